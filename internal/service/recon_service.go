package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kmorisaki/billing-recon/internal/audit"
	"github.com/kmorisaki/billing-recon/internal/config"
	"github.com/kmorisaki/billing-recon/internal/dedup"
	"github.com/kmorisaki/billing-recon/internal/matching"
	"github.com/kmorisaki/billing-recon/internal/model"
	"github.com/kmorisaki/billing-recon/internal/repair"
	"github.com/kmorisaki/billing-recon/internal/report"
	"github.com/kmorisaki/billing-recon/internal/repository"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ReconService runs the reconciliation passes. Each pass reads its snapshot,
// plans mutations in memory, and applies them through the repository in one
// transaction, so a rejected commit leaves no partial state.
type ReconService struct {
	repo        *repository.ReconRepository
	engine      *matching.Engine
	sampleLimit int
	log         zerolog.Logger
}

func NewReconService(repo *repository.ReconRepository, cfg *config.Config, log zerolog.Logger) *ReconService {
	engine := matching.NewEngine(matching.Config{
		AmountTolerance:   decimal.NewFromFloat(cfg.Matching.AmountTolerance),
		DateToleranceDays: cfg.Matching.DateToleranceDays,
	})
	return &ReconService{
		repo:        repo,
		engine:      engine,
		sampleLimit: cfg.Report.SampleLimit,
		log:         log,
	}
}

type MatchInput struct {
	// Month narrows the run to items expected in "YYYY-MM". Empty matches
	// the full backlog.
	Month string
}

// RunMatch executes the tolerance matcher pass.
func (s *ReconService) RunMatch(ctx context.Context, input MatchInput) (*report.Summary, error) {
	if input.Month != "" && !monthPattern.MatchString(input.Month) {
		return nil, fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidInput)
	}

	items, err := s.repo.ListUnmatchedItems(ctx, input.Month)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListOpenPayments(ctx)
	if err != nil {
		return nil, err
	}

	result := s.engine.Run(items, payments)
	if err := s.repo.ApplyMatches(ctx, result.Matches, time.Now()); err != nil {
		return nil, err
	}

	summary := report.NewSummary("match")
	summary.AddCount("matched", len(result.Matches))
	summary.AddCount("unmatched", len(result.Unmatched))
	summary.AddCount("skipped", len(result.Skips))

	sample := report.NewSample(fmt.Sprintf("matched items (%d)", len(result.Matches)), s.sampleLimit)
	for _, match := range result.Matches {
		sample.Add("expense #%d %q (%s) -> payment #%d, diff %s, %d day(s)",
			match.ItemID, match.ItemName, match.PartnerName, match.PaymentID,
			match.Difference.StringFixed(2), match.DateDays)
	}
	summary.AddSample(sample)

	for _, skip := range result.Skips {
		summary.AddIssue(skip.ItemID, skip.Reason)
		s.log.Warn().Int64("expense_item", skip.ItemID).Str("reason", skip.Reason).Msg("match skip")
	}

	s.log.Info().
		Int("matched", len(result.Matches)).
		Int("unmatched", len(result.Unmatched)).
		Str("month", input.Month).
		Msg("match pass finished")
	return summary.Finish(), nil
}

// RunRepair executes the contract reference repair pass. Re-running it on a
// clean store is a no-op.
func (s *ReconService) RunRepair(ctx context.Context) (*report.Summary, error) {
	items, err := s.repo.ListDanglingItems(ctx)
	if err != nil {
		return nil, err
	}

	summary := report.NewSummary("repair")
	if len(items) == 0 {
		summary.AddCount("dangling", 0)
		summary.AddCount("relinked", 0)
		summary.AddCount("cleared", 0)
		return summary.Finish(), nil
	}

	contracts, err := s.repo.ListContracts(ctx)
	if err != nil {
		return nil, err
	}

	plan := repair.Plan(items, contracts)
	if err := s.repo.ApplyRepairs(ctx, plan); err != nil {
		return nil, err
	}

	summary.AddCount("dangling", len(items))
	summary.AddCount("relinked", len(plan.Relinks))
	summary.AddCount("cleared", len(plan.Clears))

	relinked := report.NewSample(fmt.Sprintf("relinked items (%d)", len(plan.Relinks)), s.sampleLimit)
	for _, relink := range plan.Relinks {
		relinked.Add("expense #%d %q (%s / %s): contract %d -> %d",
			relink.ItemID, relink.ItemName, relink.ProductionName, relink.PartnerName,
			relink.OldContractID, relink.NewContractID)
	}
	summary.AddSample(relinked)

	cleared := report.NewSample(fmt.Sprintf("cleared items (%d)", len(plan.Clears)), s.sampleLimit)
	for _, clear := range plan.Clears {
		cleared.Add("expense #%d %q (%s / %s): contract %d -> NULL",
			clear.ItemID, clear.ItemName, clear.ProductionName, clear.PartnerName, clear.OldContractID)
	}
	summary.AddSample(cleared)

	s.log.Info().
		Int("relinked", len(plan.Relinks)).
		Int("cleared", len(plan.Clears)).
		Msg("repair pass finished")
	return summary.Finish(), nil
}

// RunDedup executes the duplicate collapser pass.
func (s *ReconService) RunDedup(ctx context.Context) (*report.Summary, error) {
	items, err := s.repo.ListActiveItems(ctx)
	if err != nil {
		return nil, err
	}

	plan := dedup.Plan(items)
	if err := s.repo.DeleteItems(ctx, plan.AllRemovedIDs()); err != nil {
		return nil, err
	}

	summary := report.NewSummary("dedup")
	summary.AddCount("groups", len(plan.Groups))
	summary.AddCount("deleted", plan.DeletedCount)

	sample := report.NewSample(fmt.Sprintf("collapsed groups (%d)", len(plan.Groups)), s.sampleLimit)
	for _, group := range plan.Groups {
		sample.Add("kept #%d, removed %v (contract %s, work %q, amount %s, impl %s, due %s)",
			group.KeptID, group.RemovedIDs, formatNullable(group.ContractID),
			group.WorkType, group.Amount, group.ImplDate, group.ExpectedDate)
	}
	summary.AddSample(sample)

	s.log.Info().
		Int("groups", len(plan.Groups)).
		Int("deleted", plan.DeletedCount).
		Msg("dedup pass finished")
	return summary.Finish(), nil
}

// AuditReport bundles the read-only auditor output with its summary.
type AuditReport struct {
	Summary         *report.Summary       `json:"summary"`
	Inconsistencies []audit.Inconsistency `json:"inconsistencies"`
}

// RunAudit detects affiliation mismatches. Read-only.
func (s *ReconService) RunAudit(ctx context.Context) (*AuditReport, error) {
	rows, err := s.repo.ListPerformanceCastLinks(ctx)
	if err != nil {
		return nil, err
	}

	inconsistencies := audit.Detect(rows)

	autoFixable := 0
	for _, inc := range inconsistencies {
		if inc.AutoFixable() {
			autoFixable++
		}
	}

	summary := report.NewSummary("audit")
	summary.AddCount("links", len(rows))
	summary.AddCount("flagged", len(inconsistencies))
	summary.AddCount("auto-fixable", autoFixable)

	sample := report.NewSample(fmt.Sprintf("flagged contracts (%d)", len(inconsistencies)), s.sampleLimit)
	for _, inc := range inconsistencies {
		sample.Add("contract #%d %q (%s): partner %q vs %d mismatched cast member(s)",
			inc.ContractID, inc.ItemName, inc.ProductionName,
			inc.ContractPartnerName, len(inc.Mismatched))
	}
	summary.AddSample(sample)

	s.log.Info().Int("flagged", len(inconsistencies)).Msg("audit pass finished")
	return &AuditReport{Summary: summary.Finish(), Inconsistencies: inconsistencies}, nil
}

type ResolveInput struct {
	ContractID      int64
	Strategy        audit.Strategy
	TargetPartnerID int64
}

// ResolveInconsistency applies one caller-selected resolution to one flagged
// contract. Bulk mutation never happens here.
func (s *ReconService) ResolveInconsistency(ctx context.Context, input ResolveInput) error {
	if input.ContractID == 0 {
		return fmt.Errorf("%w: contract_id is required", ErrInvalidInput)
	}

	auditReport, err := s.RunAudit(ctx)
	if err != nil {
		return err
	}
	var target *audit.Inconsistency
	for i := range auditReport.Inconsistencies {
		if auditReport.Inconsistencies[i].ContractID == input.ContractID {
			target = &auditReport.Inconsistencies[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: contract %d has no inconsistency", ErrNotFound, input.ContractID)
	}

	if input.Strategy == audit.StrategyManualPartner {
		if _, err := s.repo.GetPartner(ctx, input.TargetPartnerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: partner %d", ErrNotFound, input.TargetPartnerID)
			}
			return err
		}
	}

	mutations, err := audit.Plan(*target, input.Strategy, input.TargetPartnerID)
	if err != nil {
		if errors.Is(err, audit.ErrAmbiguous) {
			return fmt.Errorf("%w: contract %d", ErrAmbiguousResolution, input.ContractID)
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.repo.ApplyAuditMutations(ctx, mutations); err != nil {
		return err
	}
	s.log.Info().
		Int64("contract", input.ContractID).
		Int("strategy", int(input.Strategy)).
		Int("mutations", len(mutations)).
		Msg("inconsistency resolved")
	return nil
}

// AutoFixAudit resolves every inconsistency whose mismatched cast members
// share one affiliated partner, adopting that partner on the contract.
// Divergent groups are left for manual resolution.
func (s *ReconService) AutoFixAudit(ctx context.Context) (*report.Summary, error) {
	auditReport, err := s.RunAudit(ctx)
	if err != nil {
		return nil, err
	}

	summary := report.NewSummary("audit-autofix")
	fixed := 0
	skipped := 0
	sample := report.NewSample("repointed contracts", s.sampleLimit)

	for _, inc := range auditReport.Inconsistencies {
		if !inc.AutoFixable() {
			skipped++
			continue
		}
		mutations, err := audit.Plan(inc, audit.StrategyAdoptCastPartner, 0)
		if err != nil {
			skipped++
			summary.AddIssue(inc.ContractID, err.Error())
			continue
		}
		if err := s.repo.ApplyAuditMutations(ctx, mutations); err != nil {
			return nil, err
		}
		fixed++
		sample.Add("contract #%d: partner %q -> cast partner %q",
			inc.ContractID, inc.ContractPartnerName, inc.Mismatched[0].CastPartnerName)
	}

	summary.AddCount("flagged", len(auditReport.Inconsistencies))
	summary.AddCount("fixed", fixed)
	summary.AddCount("left-manual", skipped)
	summary.AddSample(sample)

	s.log.Info().Int("fixed", fixed).Int("left_manual", skipped).Msg("audit auto-fix finished")
	return summary.Finish(), nil
}

// RunCorners repoints expense items attributed to a sub-production to its
// parent, keeping the sub-unit in corner_id.
func (s *ReconService) RunCorners(ctx context.Context) (*report.Summary, error) {
	items, err := s.repo.ListCornerItems(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ApplyCornerFixes(ctx, items); err != nil {
		return nil, err
	}

	summary := report.NewSummary("corners")
	summary.AddCount("repointed", len(items))

	sample := report.NewSample(fmt.Sprintf("repointed items (%d)", len(items)), s.sampleLimit)
	for _, item := range items {
		sample.Add("expense #%d: %q (ID %d) -> parent %q (ID %d)",
			item.ExpenseItemID, item.CornerName, item.CornerProductionID,
			item.ParentName, item.ParentProductionID)
	}
	summary.AddSample(sample)

	s.log.Info().Int("repointed", len(items)).Msg("corner pass finished")
	return summary.Finish(), nil
}

// Findings is the cross-pass snapshot behind the Excel export.
type Findings struct {
	GeneratedAt     time.Time
	Matched         []repository.MatchedItemRow
	Dangling        []model.DanglingItem
	DuplicateGroups []dedup.Group
	Inconsistencies []audit.Inconsistency
}

// CollectFindings gathers the current reconciliation state without mutating
// anything. Duplicate groups are planned, not deleted.
func (s *ReconService) CollectFindings(ctx context.Context) (*Findings, error) {
	matched, err := s.repo.ListMatchedItems(ctx)
	if err != nil {
		return nil, err
	}
	dangling, err := s.repo.ListDanglingItems(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListActiveItems(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPerformanceCastLinks(ctx)
	if err != nil {
		return nil, err
	}

	return &Findings{
		GeneratedAt:     time.Now(),
		Matched:         matched,
		Dangling:        dangling,
		DuplicateGroups: dedup.Plan(items).Groups,
		Inconsistencies: audit.Detect(rows),
	}, nil
}

func formatNullable(id *int64) string {
	if id == nil {
		return "NULL"
	}
	return fmt.Sprintf("%d", *id)
}
