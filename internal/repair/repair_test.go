package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmorisaki/billing-recon/internal/model"
)

func ptr(v int64) *int64 { return &v }

func newDangling(id int64, contractID, productionID, partnerID int64, workType string) model.DanglingItem {
	item := model.DanglingItem{ProductionName: "Morning Show", PartnerName: "Studio North"}
	item.ID = id
	item.ItemName = "production fee"
	item.ContractID = ptr(contractID)
	item.ProductionID = ptr(productionID)
	item.PartnerID = ptr(partnerID)
	item.WorkType = workType
	return item
}

func newContract(id int64, productionID, partnerID int64, workType, startDate string) model.Contract {
	return model.Contract{
		ID:           id,
		ProductionID: ptr(productionID),
		PartnerID:    partnerID,
		WorkType:     workType,
		StartDate:    startDate,
	}
}

func TestRelinksToLatestReplacement(t *testing.T) {
	// Contract 7 was deleted; two items referenced it. C2 starts later than
	// C1, so both items move to C2.
	items := []model.DanglingItem{
		newDangling(101, 7, 1, 2, "production"),
		newDangling(102, 7, 1, 2, "production"),
	}
	contracts := []model.Contract{
		newContract(11, 1, 2, "production", "2024-04-01"),
		newContract(12, 1, 2, "production", "2025-04-01"),
	}

	result := Plan(items, contracts)
	require.Len(t, result.Relinks, 2)
	assert.Empty(t, result.Clears)
	for _, relink := range result.Relinks {
		assert.Equal(t, int64(7), relink.OldContractID)
		assert.Equal(t, int64(12), relink.NewContractID)
	}
}

func TestClearsWhenNoReplacementExists(t *testing.T) {
	items := []model.DanglingItem{newDangling(101, 7, 1, 2, "production")}
	contracts := []model.Contract{
		newContract(11, 1, 2, "performance", "2025-04-01"), // wrong work type
		newContract(12, 1, 9, "production", "2025-04-01"),  // wrong partner
		newContract(13, 3, 2, "production", "2025-04-01"),  // wrong production
	}

	result := Plan(items, contracts)
	assert.Empty(t, result.Relinks)
	require.Len(t, result.Clears, 1)
	assert.Equal(t, int64(101), result.Clears[0].ItemID)
	assert.Equal(t, int64(7), result.Clears[0].OldContractID)
}

func TestClearsItemsMissingTripleFields(t *testing.T) {
	item := newDangling(101, 7, 1, 2, "production")
	item.PartnerID = nil

	result := Plan([]model.DanglingItem{item}, []model.Contract{newContract(11, 1, 2, "production", "2025-04-01")})
	assert.Empty(t, result.Relinks)
	assert.Len(t, result.Clears, 1)
}

func TestStartDateTieBreaksOnID(t *testing.T) {
	items := []model.DanglingItem{newDangling(101, 7, 1, 2, "production")}
	contracts := []model.Contract{
		newContract(11, 1, 2, "production", "2025-04-01"),
		newContract(14, 1, 2, "production", "2025-04-01"),
	}

	result := Plan(items, contracts)
	require.Len(t, result.Relinks, 1)
	assert.Equal(t, int64(14), result.Relinks[0].NewContractID)
}

func TestDatedContractBeatsUndated(t *testing.T) {
	items := []model.DanglingItem{newDangling(101, 7, 1, 2, "production")}
	contracts := []model.Contract{
		newContract(20, 1, 2, "production", ""),
		newContract(11, 1, 2, "production", "2023-04-01"),
	}

	result := Plan(items, contracts)
	require.Len(t, result.Relinks, 1)
	assert.Equal(t, int64(11), result.Relinks[0].NewContractID)
}

func TestMixedDateLayoutsCompare(t *testing.T) {
	items := []model.DanglingItem{newDangling(101, 7, 1, 2, "production")}
	contracts := []model.Contract{
		newContract(11, 1, 2, "production", "2024/10/01"),
		newContract(12, 1, 2, "production", "2024-09-01"),
	}

	result := Plan(items, contracts)
	require.Len(t, result.Relinks, 1)
	assert.Equal(t, int64(11), result.Relinks[0].NewContractID)
}

func TestIdempotentOnCleanInput(t *testing.T) {
	// With no dangling items the plan is empty, so a second run right after
	// a first produces zero additional mutations.
	result := Plan(nil, []model.Contract{newContract(11, 1, 2, "production", "2025-04-01")})
	assert.Empty(t, result.Relinks)
	assert.Empty(t, result.Clears)
}
