// Package audit detects performance contracts whose counterparty disagrees
// with the affiliated partner of a linked cast member, and plans the
// caller-selected resolution. Detection is read-only; mutations happen only
// when a plan is applied explicitly.
package audit

import (
	"errors"

	"github.com/kmorisaki/billing-recon/internal/model"
)

// ErrAmbiguous is returned when a resolution has more than one equally valid
// outcome and requires manual selection.
var ErrAmbiguous = errors.New("ambiguous resolution")

type Strategy int

const (
	// StrategyAdoptCastPartner repoints the contract to the cast members'
	// shared affiliated partner. Refused when affiliations diverge.
	StrategyAdoptCastPartner Strategy = iota + 1
	// StrategyAdoptContractPartner repoints every mismatched cast member to
	// the contract's partner.
	StrategyAdoptContractPartner
	// StrategyManualPartner repoints both sides to a caller-chosen partner.
	StrategyManualPartner
)

type MismatchedCast struct {
	CastID          int64
	CastName        string
	CastPartnerID   *int64
	CastPartnerName string
	Role            string
}

type Inconsistency struct {
	ContractID          int64
	ProductionName      string
	ContractPartnerID   int64
	ContractPartnerName string
	ItemName            string
	StartDate           string
	EndDate             string
	Mismatched          []MismatchedCast
}

// Mutation is one planned row update. Exactly one target id is set.
type Mutation struct {
	ContractID *int64
	CastID     *int64
	PartnerID  int64
}

// Detect groups the flattened contract-cast rows and keeps contracts with at
// least one affiliation mismatch. Rows arrive ordered by contract id.
func Detect(rows []model.CastLinkRow) []Inconsistency {
	var result []Inconsistency
	byContract := make(map[int64]int)

	for _, row := range rows {
		if row.CastPartnerID != nil && *row.CastPartnerID == row.ContractPartnerID {
			continue
		}
		idx, seen := byContract[row.ContractID]
		if !seen {
			result = append(result, Inconsistency{
				ContractID:          row.ContractID,
				ProductionName:      row.ProductionName,
				ContractPartnerID:   row.ContractPartnerID,
				ContractPartnerName: row.ContractPartnerName,
				ItemName:            row.ItemName,
				StartDate:           row.StartDate,
				EndDate:             row.EndDate,
			})
			idx = len(result) - 1
			byContract[row.ContractID] = idx
		}
		result[idx].Mismatched = append(result[idx].Mismatched, MismatchedCast{
			CastID:          row.CastID,
			CastName:        row.CastName,
			CastPartnerID:   row.CastPartnerID,
			CastPartnerName: row.CastPartnerName,
			Role:            row.Role,
		})
	}
	return result
}

// SharedCastPartner returns the single affiliated partner shared by every
// mismatched cast member, or false when affiliations diverge or are missing.
func (inc Inconsistency) SharedCastPartner() (int64, bool) {
	var shared *int64
	for _, cast := range inc.Mismatched {
		if cast.CastPartnerID == nil {
			return 0, false
		}
		if shared == nil {
			shared = cast.CastPartnerID
			continue
		}
		if *shared != *cast.CastPartnerID {
			return 0, false
		}
	}
	if shared == nil {
		return 0, false
	}
	return *shared, true
}

// AutoFixable reports whether the inconsistency qualifies for unattended
// resolution: all mismatched cast members share one affiliated partner.
func (inc Inconsistency) AutoFixable() bool {
	_, ok := inc.SharedCastPartner()
	return ok
}

// Plan turns a chosen strategy into the mutations to apply. targetPartnerID
// is consulted only by StrategyManualPartner.
func Plan(inc Inconsistency, strategy Strategy, targetPartnerID int64) ([]Mutation, error) {
	switch strategy {
	case StrategyAdoptCastPartner:
		partnerID, ok := inc.SharedCastPartner()
		if !ok {
			return nil, ErrAmbiguous
		}
		contractID := inc.ContractID
		return []Mutation{{ContractID: &contractID, PartnerID: partnerID}}, nil

	case StrategyAdoptContractPartner:
		mutations := make([]Mutation, 0, len(inc.Mismatched))
		for _, cast := range inc.Mismatched {
			castID := cast.CastID
			mutations = append(mutations, Mutation{CastID: &castID, PartnerID: inc.ContractPartnerID})
		}
		return mutations, nil

	case StrategyManualPartner:
		if targetPartnerID == 0 {
			return nil, ErrAmbiguous
		}
		contractID := inc.ContractID
		mutations := []Mutation{{ContractID: &contractID, PartnerID: targetPartnerID}}
		for _, cast := range inc.Mismatched {
			castID := cast.CastID
			mutations = append(mutations, Mutation{CastID: &castID, PartnerID: targetPartnerID})
		}
		return mutations, nil
	}
	return nil, errors.New("unknown strategy")
}
