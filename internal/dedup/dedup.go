// Package dedup collapses expense items that are exact duplicates along the
// import key. Within a group the smallest id is canonical; the rest are
// deleted.
package dedup

import (
	"fmt"
	"sort"

	"github.com/kmorisaki/billing-recon/internal/model"
)

// Group is one set of duplicates, reported with the shared key values so the
// deletion can be audited afterwards.
type Group struct {
	KeptID       int64
	RemovedIDs   []int64
	ContractID   *int64
	Production   *int64
	Partner      *int64
	WorkType     string
	Amount       string
	ImplDate     string
	ExpectedDate string
}

type Result struct {
	Groups       []Group
	DeletedCount int
}

// Plan groups non-archived items by the full duplicate key. A NULL
// contract_id (or production/partner) is a valid key component and groups
// with other NULLs.
func Plan(items []model.ExpenseItem) Result {
	byKey := make(map[string][]model.ExpenseItem)
	var order []string
	for _, item := range items {
		if item.Archived {
			continue
		}
		key := duplicateKey(item)
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], item)
	}

	var result Result
	for _, key := range order {
		group := byKey[key]
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })

		kept := group[0]
		removed := make([]int64, 0, len(group)-1)
		for _, item := range group[1:] {
			removed = append(removed, item.ID)
		}
		result.Groups = append(result.Groups, Group{
			KeptID:       kept.ID,
			RemovedIDs:   removed,
			ContractID:   kept.ContractID,
			Production:   kept.ProductionID,
			Partner:      kept.PartnerID,
			WorkType:     kept.WorkType,
			Amount:       kept.Amount.String(),
			ImplDate:     kept.ImplementationDate,
			ExpectedDate: kept.ExpectedPaymentDate,
		})
		result.DeletedCount += len(removed)
	}
	return result
}

// AllRemovedIDs flattens the plan into the ids to delete.
func (r Result) AllRemovedIDs() []int64 {
	var ids []int64
	for _, group := range r.Groups {
		ids = append(ids, group.RemovedIDs...)
	}
	return ids
}

func duplicateKey(item model.ExpenseItem) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		nullableKey(item.ContractID),
		nullableKey(item.ProductionID),
		nullableKey(item.PartnerID),
		item.WorkType,
		item.Amount.String(),
		item.ImplementationDate,
		item.ExpectedPaymentDate,
	)
}

func nullableKey(id *int64) string {
	if id == nil {
		return "null"
	}
	return fmt.Sprintf("%d", *id)
}
