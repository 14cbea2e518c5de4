// Package repair restores contract references on expense items whose
// contract was deleted. A replacement is the contract matching the item's
// (production, partner, work type) with the latest start date; with no
// replacement the reference is cleared to the explicit unlinked state.
package repair

import (
	"github.com/kmorisaki/billing-recon/internal/dateutil"
	"github.com/kmorisaki/billing-recon/internal/model"
)

type Relink struct {
	ItemID         int64
	ItemName       string
	ProductionName string
	PartnerName    string
	OldContractID  int64
	NewContractID  int64
}

type Clear struct {
	ItemID         int64
	ItemName       string
	ProductionName string
	PartnerName    string
	OldContractID  int64
}

type Result struct {
	Relinks []Relink
	Clears  []Clear
}

type tripleKey struct {
	productionID int64
	partnerID    int64
	workType     string
}

// Plan decides the repair for every dangling item. Items whose production or
// partner is unset cannot be re-derived and are cleared. The plan is
// idempotent: valid references are never handed to it, so an empty input
// yields an empty plan.
func Plan(items []model.DanglingItem, contracts []model.Contract) Result {
	byTriple := make(map[tripleKey][]model.Contract)
	for _, contract := range contracts {
		if contract.ProductionID == nil {
			continue
		}
		key := tripleKey{*contract.ProductionID, contract.PartnerID, contract.WorkType}
		byTriple[key] = append(byTriple[key], contract)
	}

	var result Result
	for _, item := range items {
		oldID := int64(0)
		if item.ContractID != nil {
			oldID = *item.ContractID
		}

		var candidates []model.Contract
		if item.ProductionID != nil && item.PartnerID != nil {
			key := tripleKey{*item.ProductionID, *item.PartnerID, item.WorkType}
			candidates = byTriple[key]
		}

		if len(candidates) == 0 {
			result.Clears = append(result.Clears, Clear{
				ItemID:         item.ID,
				ItemName:       item.ItemName,
				ProductionName: item.ProductionName,
				PartnerName:    item.PartnerName,
				OldContractID:  oldID,
			})
			continue
		}

		chosen := candidates[0]
		for _, candidate := range candidates[1:] {
			if laterContract(candidate, chosen) {
				chosen = candidate
			}
		}

		result.Relinks = append(result.Relinks, Relink{
			ItemID:         item.ID,
			ItemName:       item.ItemName,
			ProductionName: item.ProductionName,
			PartnerName:    item.PartnerName,
			OldContractID:  oldID,
			NewContractID:  chosen.ID,
		})
	}
	return result
}

// laterContract reports whether a supersedes b: later start date wins,
// higher id breaks ties. Contracts with unparseable start dates lose to any
// dated contract.
func laterContract(a, b model.Contract) bool {
	dateA, errA := dateutil.Parse(a.StartDate)
	dateB, errB := dateutil.Parse(b.StartDate)
	switch {
	case errA == nil && errB != nil:
		return true
	case errA != nil && errB == nil:
		return false
	case errA == nil && errB == nil && !dateA.Equal(dateB):
		return dateA.After(dateB)
	}
	return a.ID > b.ID
}
