package dedup

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmorisaki/billing-recon/internal/model"
)

func ptr(v int64) *int64 { return &v }

func newItem(id int64) model.ExpenseItem {
	return model.ExpenseItem{
		ID:                  id,
		ItemName:            "production fee",
		ContractID:          ptr(7),
		ProductionID:        ptr(1),
		PartnerID:           ptr(2),
		WorkType:            "production",
		Amount:              decimal.NewFromInt(30000),
		ImplementationDate:  "2025-05-01",
		ExpectedPaymentDate: "2025-06-30",
	}
}

func TestCollapsesToMinimumID(t *testing.T) {
	result := Plan([]model.ExpenseItem{newItem(205), newItem(101)})

	require.Len(t, result.Groups, 1)
	group := result.Groups[0]
	assert.Equal(t, int64(101), group.KeptID)
	assert.Equal(t, []int64{205}, group.RemovedIDs)
	assert.Equal(t, 1, result.DeletedCount)
	assert.Equal(t, []int64{205}, result.AllRemovedIDs())
}

func TestGroupOfNKeepsExactlyOne(t *testing.T) {
	items := []model.ExpenseItem{newItem(40), newItem(10), newItem(30), newItem(20)}
	result := Plan(items)

	require.Len(t, result.Groups, 1)
	assert.Equal(t, int64(10), result.Groups[0].KeptID)
	assert.ElementsMatch(t, []int64{20, 30, 40}, result.Groups[0].RemovedIDs)
	assert.Equal(t, 3, result.DeletedCount)
}

func TestNoOpOnUniqueData(t *testing.T) {
	base := newItem(1)

	differentAmount := newItem(2)
	differentAmount.Amount = decimal.NewFromInt(30001)

	differentContract := newItem(3)
	differentContract.ContractID = ptr(8)

	differentWorkType := newItem(4)
	differentWorkType.WorkType = "performance"

	differentImpl := newItem(5)
	differentImpl.ImplementationDate = "2025-05-02"

	differentDue := newItem(6)
	differentDue.ExpectedPaymentDate = "2025-07-31"

	result := Plan([]model.ExpenseItem{base, differentAmount, differentContract, differentWorkType, differentImpl, differentDue})
	assert.Empty(t, result.Groups)
	assert.Zero(t, result.DeletedCount)
}

func TestNullContractGroupsWithNulls(t *testing.T) {
	a := newItem(1)
	a.ContractID = nil
	b := newItem(2)
	b.ContractID = nil
	c := newItem(3) // contract 7, not part of the null group

	result := Plan([]model.ExpenseItem{a, b, c})
	require.Len(t, result.Groups, 1)
	assert.Equal(t, int64(1), result.Groups[0].KeptID)
	assert.Equal(t, []int64{2}, result.Groups[0].RemovedIDs)
	assert.Nil(t, result.Groups[0].ContractID)
}

func TestArchivedItemsDoNotParticipate(t *testing.T) {
	a := newItem(1)
	b := newItem(2)
	b.Archived = true

	result := Plan([]model.ExpenseItem{a, b})
	assert.Empty(t, result.Groups)
}

func TestGroupReportsSharedKey(t *testing.T) {
	result := Plan([]model.ExpenseItem{newItem(101), newItem(205)})

	require.Len(t, result.Groups, 1)
	group := result.Groups[0]
	assert.Equal(t, int64(7), *group.ContractID)
	assert.Equal(t, "production", group.WorkType)
	assert.Equal(t, "30000", group.Amount)
	assert.Equal(t, "2025-05-01", group.ImplDate)
	assert.Equal(t, "2025-06-30", group.ExpectedDate)
}
