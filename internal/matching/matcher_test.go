package matching

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmorisaki/billing-recon/internal/model"
)

func newItem(id int64, amount int64, expectedDate string) model.UnmatchedItem {
	item := model.UnmatchedItem{
		PartnerName: "Studio North",
		PartnerCode: "092011",
	}
	item.ID = id
	item.ItemName = "production fee"
	item.Amount = decimal.NewFromInt(amount)
	item.ExpectedPaymentDate = expectedDate
	return item
}

func newPayment(id int64, amount string, date string) model.PaymentRecord {
	value, _ := decimal.NewFromString(amount)
	return model.PaymentRecord{
		ID:          id,
		Payee:       "Studio North",
		PayeeCode:   "092011",
		Amount:      value,
		PaymentDate: date,
	}
}

func run(t *testing.T, items []model.UnmatchedItem, payments []model.PaymentRecord) Result {
	t.Helper()
	return NewEngine(DefaultConfig()).Run(items, payments)
}

func TestExactAmountWithinDateWindow(t *testing.T) {
	// Partner code 092011, amount diff 0%, date diff 5 days.
	result := run(t,
		[]model.UnmatchedItem{newItem(2854, 50000, "2025-06-15")},
		[]model.PaymentRecord{newPayment(1, "50000", "2025-06-20")},
	)

	require.Len(t, result.Matches, 1)
	match := result.Matches[0]
	assert.Equal(t, int64(2854), match.ItemID)
	assert.Equal(t, int64(1), match.PaymentID)
	assert.True(t, match.Difference.IsZero())
	assert.Equal(t, 5, match.DateDays)
	assert.True(t, match.ExactAmount)
}

func TestAmountToleranceBoundary(t *testing.T) {
	// 52500 / 50000 is exactly 5.0%: inside. 52500.5 is 5.001%: outside.
	inside := run(t,
		[]model.UnmatchedItem{newItem(1, 50000, "2025-06-15")},
		[]model.PaymentRecord{newPayment(1, "52500", "2025-06-15")},
	)
	require.Len(t, inside.Matches, 1)
	assert.Equal(t, "2500", inside.Matches[0].Difference.String())

	outside := run(t,
		[]model.UnmatchedItem{newItem(1, 50000, "2025-06-15")},
		[]model.PaymentRecord{newPayment(1, "52500.5", "2025-06-15")},
	)
	assert.Empty(t, outside.Matches)
	assert.Equal(t, []int64{1}, outside.Unmatched)
}

func TestSixPercentDifferenceIsUnmatched(t *testing.T) {
	result := run(t,
		[]model.UnmatchedItem{newItem(1, 50000, "2025-06-15")},
		[]model.PaymentRecord{newPayment(1, "53000", "2025-06-15")},
	)
	assert.Empty(t, result.Matches)
	assert.Equal(t, []int64{1}, result.Unmatched)
}

func TestDateToleranceBoundary(t *testing.T) {
	inside := run(t,
		[]model.UnmatchedItem{newItem(1, 50000, "2025-06-15")},
		[]model.PaymentRecord{newPayment(1, "50000", "2025-06-22")},
	)
	require.Len(t, inside.Matches, 1)
	assert.Equal(t, 7, inside.Matches[0].DateDays)

	outside := run(t,
		[]model.UnmatchedItem{newItem(1, 50000, "2025-06-15")},
		[]model.PaymentRecord{newPayment(1, "50000", "2025-06-23")},
	)
	assert.Empty(t, outside.Matches)
}

func TestMixedDateLayouts(t *testing.T) {
	result := run(t,
		[]model.UnmatchedItem{newItem(1, 50000, "2025-06-15")},
		[]model.PaymentRecord{newPayment(1, "50000", "2025/06/18")},
	)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, 3, result.Matches[0].DateDays)
}

func TestUnparseablePaymentDateDisqualifiesCandidateOnly(t *testing.T) {
	result := run(t,
		[]model.UnmatchedItem{newItem(1, 50000, "2025-06-15")},
		[]model.PaymentRecord{
			newPayment(1, "50000", "June 18th"),
			newPayment(2, "50000", "2025-06-18"),
		},
	)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, int64(2), result.Matches[0].PaymentID)
}

func TestUnparseableExpectedDateIsSkipped(t *testing.T) {
	result := run(t,
		[]model.UnmatchedItem{newItem(1, 50000, "someday")},
		[]model.PaymentRecord{newPayment(1, "50000", "2025-06-18")},
	)
	assert.Empty(t, result.Matches)
	require.Len(t, result.Skips, 1)
	assert.Equal(t, int64(1), result.Skips[0].ItemID)
}

func TestZeroAmountShortCircuits(t *testing.T) {
	result := run(t,
		[]model.UnmatchedItem{newItem(1, 0, "2025-06-15")},
		[]model.PaymentRecord{newPayment(1, "0", "2025-06-15")},
	)
	assert.Empty(t, result.Matches)
	require.Len(t, result.Skips, 1)
	assert.Contains(t, result.Skips[0].Reason, "non-positive")
}

func TestMissingIdentityIsSkipped(t *testing.T) {
	item := newItem(1, 50000, "2025-06-15")
	item.PartnerName = ""
	item.PartnerCode = ""

	result := run(t, []model.UnmatchedItem{item}, []model.PaymentRecord{newPayment(1, "50000", "2025-06-15")})
	assert.Empty(t, result.Matches)
	require.Len(t, result.Skips, 1)
	assert.Contains(t, result.Skips[0].Reason, "neither name nor code")
}

func TestIdentityFilterExcludesForeignPayments(t *testing.T) {
	foreign := newPayment(1, "50000", "2025-06-15")
	foreign.Payee = "Someone Else"
	foreign.PayeeCode = "777777"

	result := run(t, []model.UnmatchedItem{newItem(1, 50000, "2025-06-15")}, []model.PaymentRecord{foreign})
	assert.Empty(t, result.Matches)
	assert.Equal(t, []int64{1}, result.Unmatched)
}

func TestTieBreakPrefersExactAmount(t *testing.T) {
	result := run(t,
		[]model.UnmatchedItem{newItem(1, 50000, "2025-06-15")},
		[]model.PaymentRecord{
			newPayment(1, "50100", "2025-06-15"), // closer date is irrelevant: not exact
			newPayment(2, "50000", "2025-06-20"),
		},
	)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, int64(2), result.Matches[0].PaymentID)
}

func TestTieBreakPrefersSmallerDateDistance(t *testing.T) {
	result := run(t,
		[]model.UnmatchedItem{newItem(1, 50000, "2025-06-15")},
		[]model.PaymentRecord{
			newPayment(1, "50000", "2025-06-20"),
			newPayment(2, "50000", "2025-06-16"),
		},
	)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, int64(2), result.Matches[0].PaymentID)
}

func TestTieBreakPrefersHighestPaymentID(t *testing.T) {
	result := run(t,
		[]model.UnmatchedItem{newItem(1, 50000, "2025-06-15")},
		[]model.PaymentRecord{
			newPayment(3, "50000", "2025-06-17"),
			newPayment(9, "50000", "2025-06-17"),
			newPayment(5, "50000", "2025-06-17"),
		},
	)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, int64(9), result.Matches[0].PaymentID)
}

func TestDeterministicAcrossRuns(t *testing.T) {
	items := []model.UnmatchedItem{newItem(1, 50000, "2025-06-15"), newItem(2, 50000, "2025-06-15")}
	payments := []model.PaymentRecord{
		newPayment(1, "50000", "2025-06-16"),
		newPayment(2, "50000", "2025-06-16"),
		newPayment(3, "50100", "2025-06-15"),
	}

	first := run(t, items, payments)
	for i := 0; i < 10; i++ {
		again := run(t, items, payments)
		assert.Equal(t, first, again)
	}
}

func TestPaymentConsumedOncePerRun(t *testing.T) {
	items := []model.UnmatchedItem{newItem(1, 50000, "2025-06-15"), newItem(2, 50000, "2025-06-15")}
	payments := []model.PaymentRecord{newPayment(7, "50000", "2025-06-15")}

	result := run(t, items, payments)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, int64(1), result.Matches[0].ItemID)
	assert.Equal(t, []int64{2}, result.Unmatched)
}

func TestSignedDifference(t *testing.T) {
	under := run(t,
		[]model.UnmatchedItem{newItem(1, 50000, "2025-06-15")},
		[]model.PaymentRecord{newPayment(1, "49000", "2025-06-15")},
	)
	require.Len(t, under.Matches, 1)
	assert.Equal(t, "-1000", under.Matches[0].Difference.String())
}
