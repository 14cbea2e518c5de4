// Package matching implements the tolerance matcher: for each unmatched
// expense item it selects the single best payment record among the
// candidates that pass the identity resolver.
package matching

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kmorisaki/billing-recon/internal/dateutil"
	"github.com/kmorisaki/billing-recon/internal/identity"
	"github.com/kmorisaki/billing-recon/internal/model"
)

type Config struct {
	// AmountTolerance is the maximum relative amount difference, inclusive.
	AmountTolerance decimal.Decimal
	// DateToleranceDays is the maximum whole-day distance, inclusive.
	DateToleranceDays int
}

func DefaultConfig() Config {
	return Config{
		AmountTolerance:   decimal.NewFromFloat(0.05),
		DateToleranceDays: 7,
	}
}

// Match is one accepted pairing. Difference is payment minus expense amount,
// signed.
type Match struct {
	ItemID      int64
	ItemName    string
	PartnerName string
	PaymentID   int64
	Amount      decimal.Decimal
	Difference  decimal.Decimal
	DateDays    int
	ExactAmount bool
}

// Skip is a single item that could not be evaluated. Not fatal for the run.
type Skip struct {
	ItemID int64
	Reason string
}

type Result struct {
	Matches   []Match
	Unmatched []int64
	Skips     []Skip
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.AmountTolerance.LessThanOrEqual(decimal.Zero) {
		cfg.AmountTolerance = DefaultConfig().AmountTolerance
	}
	if cfg.DateToleranceDays <= 0 {
		cfg.DateToleranceDays = DefaultConfig().DateToleranceDays
	}
	return &Engine{cfg: cfg}
}

// Run matches items against payments. Items are processed in id order, and a
// payment record is consumed by at most one item per run, so repeated runs
// over an identical snapshot select identical pairings.
func (e *Engine) Run(items []model.UnmatchedItem, payments []model.PaymentRecord) Result {
	var result Result
	taken := make(map[int64]bool, len(payments))

	for _, item := range items {
		best, skip := e.bestCandidate(item, payments, taken)
		if skip != nil {
			result.Skips = append(result.Skips, *skip)
			continue
		}
		if best == nil {
			result.Unmatched = append(result.Unmatched, item.ID)
			continue
		}
		taken[best.PaymentID] = true
		result.Matches = append(result.Matches, *best)
	}
	return result
}

func (e *Engine) bestCandidate(item model.UnmatchedItem, payments []model.PaymentRecord, taken map[int64]bool) (*Match, *Skip) {
	if item.PartnerName == "" && item.PartnerCode == "" {
		return nil, &Skip{ItemID: item.ID, Reason: "partner has neither name nor code"}
	}
	if item.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, &Skip{ItemID: item.ID, Reason: "non-positive expense amount"}
	}

	expectedDate, err := dateutil.Parse(item.ExpectedPaymentDate)
	if err != nil {
		return nil, &Skip{ItemID: item.ID, Reason: fmt.Sprintf("expected payment date: %v", err)}
	}

	var best *Match
	for _, payment := range payments {
		if taken[payment.ID] {
			continue
		}
		candidate := e.evaluate(item, payment, expectedDate)
		if candidate == nil {
			continue
		}
		if best == nil || preferred(*candidate, *best) {
			best = candidate
		}
	}
	return best, nil
}

func (e *Engine) evaluate(item model.UnmatchedItem, payment model.PaymentRecord, expectedDate time.Time) *Match {
	if !identity.Resolve(item.PartnerName, item.PartnerCode, payment.Payee, payment.PayeeCode) {
		return nil
	}

	diff := payment.Amount.Sub(item.Amount)
	relative := diff.Abs().Div(item.Amount)
	if relative.GreaterThan(e.cfg.AmountTolerance) {
		return nil
	}

	paymentDate, err := dateutil.Parse(payment.PaymentDate)
	if err != nil {
		// Unparseable on either side disqualifies this candidate only.
		return nil
	}
	days := dateutil.DaysBetween(paymentDate, expectedDate)
	if days > e.cfg.DateToleranceDays {
		return nil
	}

	return &Match{
		ItemID:      item.ID,
		ItemName:    item.ItemName,
		PartnerName: item.PartnerName,
		PaymentID:   payment.ID,
		Amount:      payment.Amount,
		Difference:  diff,
		DateDays:    days,
		ExactAmount: diff.IsZero(),
	}
}

// preferred reports whether a beats b under the canonical tie-break order:
// exact amount match, then smaller date distance, then most recently
// recorded payment (highest id).
func preferred(a, b Match) bool {
	if a.ExactAmount != b.ExactAmount {
		return a.ExactAmount
	}
	if a.DateDays != b.DateDays {
		return a.DateDays < b.DateDays
	}
	return a.PaymentID > b.PaymentID
}
