package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kmorisaki/billing-recon/internal/audit"
	"github.com/kmorisaki/billing-recon/internal/matching"
	"github.com/kmorisaki/billing-recon/internal/model"
	"github.com/kmorisaki/billing-recon/internal/repair"
)

// ReconRepository is the entity store access layer. The handle is injected;
// callers own its lifetime. Every Apply* method commits its mutations in one
// transaction, so a mid-run failure leaves no partial state.
type ReconRepository struct {
	db *gorm.DB
}

func NewReconRepository(db *gorm.DB) *ReconRepository {
	return &ReconRepository{db: db}
}

// ListUnmatchedItems returns non-archived expense items without a matched
// payment, joined with their partner identity. month ("YYYY-MM") narrows by
// expected payment month when non-empty.
func (r *ReconRepository) ListUnmatchedItems(ctx context.Context, month string) ([]model.UnmatchedItem, error) {
	query := `
		SELECT
			ei.id,
			ei.item_name,
			ei.contract_id,
			ei.production_id,
			ei.partner_id,
			ei.work_type,
			ei.amount,
			COALESCE(ei.implementation_date, '') AS implementation_date,
			COALESCE(ei.expected_payment_date, '') AS expected_payment_date,
			COALESCE(ei.payment_status, 'unpaid') AS payment_status,
			COALESCE(p.name, '') AS partner_name,
			COALESCE(p.code, '') AS partner_code
		FROM expense_items ei
		LEFT JOIN partners p ON p.id = ei.partner_id
		WHERE ei.payment_matched_id IS NULL
			AND COALESCE(ei.archived, FALSE) = FALSE
	`
	args := []interface{}{}
	if month != "" {
		query += ` AND REPLACE(SUBSTR(COALESCE(ei.expected_payment_date, ''), 1, 7), '/', '-') = ?`
		args = append(args, month)
	}
	query += ` ORDER BY ei.id`

	var items []model.UnmatchedItem
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListOpenPayments returns payment records not yet consumed by any matched
// expense item. Payment rows themselves are never updated; consumption is
// tracked through expense_items.payment_matched_id.
func (r *ReconRepository) ListOpenPayments(ctx context.Context) ([]model.PaymentRecord, error) {
	var payments []model.PaymentRecord
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			pay.id,
			COALESCE(pay.subject, '') AS subject,
			COALESCE(pay.project_name, '') AS project_name,
			COALESCE(pay.payee, '') AS payee,
			COALESCE(pay.payee_code, '') AS payee_code,
			pay.amount,
			COALESCE(pay.payment_date, '') AS payment_date,
			COALESCE(pay.status, '') AS status
		FROM payments pay
		WHERE NOT EXISTS (
			SELECT 1 FROM expense_items ei WHERE ei.payment_matched_id = pay.id
		)
		ORDER BY pay.id
	`).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// ApplyMatches writes the match state for every accepted pairing.
func (r *ReconRepository) ApplyMatches(ctx context.Context, matches []matching.Match, verifiedAt time.Time) error {
	if len(matches) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, match := range matches {
			err := tx.Exec(`
				UPDATE expense_items
				SET
					payment_matched_id = ?,
					payment_verified_date = ?,
					payment_difference = ?,
					payment_status = ?
				WHERE id = ?
			`, match.PaymentID, verifiedAt.Format("2006-01-02"), match.Difference, model.PaymentStatusMatched, match.ItemID).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListDanglingItems returns non-archived expense items whose contract_id
// references a contract that no longer exists.
func (r *ReconRepository) ListDanglingItems(ctx context.Context) ([]model.DanglingItem, error) {
	var items []model.DanglingItem
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			ei.id,
			ei.item_name,
			ei.contract_id,
			ei.production_id,
			ei.partner_id,
			ei.work_type,
			COALESCE(prod.name, '') AS production_name,
			COALESCE(part.name, '') AS partner_name
		FROM expense_items ei
		LEFT JOIN contracts c ON c.id = ei.contract_id
		LEFT JOIN productions prod ON prod.id = ei.production_id
		LEFT JOIN partners part ON part.id = ei.partner_id
		WHERE ei.contract_id IS NOT NULL
			AND c.id IS NULL
			AND COALESCE(ei.archived, FALSE) = FALSE
		ORDER BY ei.id
	`).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ReconRepository) ListContracts(ctx context.Context) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			production_id,
			partner_id,
			COALESCE(work_type, '') AS work_type,
			COALESCE(item_name, '') AS item_name,
			COALESCE(contract_start_date, '') AS start_date,
			COALESCE(contract_end_date, '') AS end_date,
			COALESCE(payment_terms, '') AS payment_terms
		FROM contracts
		ORDER BY id
	`).Scan(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

// ApplyRepairs relinks and clears contract references in one transaction.
func (r *ReconRepository) ApplyRepairs(ctx context.Context, plan repair.Result) error {
	if len(plan.Relinks) == 0 && len(plan.Clears) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, relink := range plan.Relinks {
			err := tx.Exec(`
				UPDATE expense_items SET contract_id = ? WHERE id = ?
			`, relink.NewContractID, relink.ItemID).Error
			if err != nil {
				return err
			}
		}
		for _, clear := range plan.Clears {
			err := tx.Exec(`
				UPDATE expense_items SET contract_id = NULL WHERE id = ?
			`, clear.ItemID).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListActiveItems returns every non-archived expense item, as the duplicate
// collapser consumes them.
func (r *ReconRepository) ListActiveItems(ctx context.Context) ([]model.ExpenseItem, error) {
	var items []model.ExpenseItem
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			COALESCE(item_name, '') AS item_name,
			contract_id,
			production_id,
			partner_id,
			COALESCE(work_type, '') AS work_type,
			amount,
			COALESCE(implementation_date, '') AS implementation_date,
			COALESCE(expected_payment_date, '') AS expected_payment_date,
			COALESCE(archived, FALSE) AS archived
		FROM expense_items
		WHERE COALESCE(archived, FALSE) = FALSE
		ORDER BY id
	`).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteItems removes the duplicate expense items in one transaction.
func (r *ReconRepository) DeleteItems(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			if err := tx.Exec(`DELETE FROM expense_items WHERE id = ?`, id).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ListPerformanceCastLinks returns every cast link of a performance-type
// contract, flattened for the consistency auditor.
func (r *ReconRepository) ListPerformanceCastLinks(ctx context.Context) ([]model.CastLinkRow, error) {
	var rows []model.CastLinkRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			c.id AS contract_id,
			c.production_id,
			COALESCE(prod.name, '') AS production_name,
			c.partner_id AS contract_partner_id,
			COALESCE(cpart.name, '') AS contract_partner_name,
			COALESCE(c.item_name, '') AS item_name,
			COALESCE(c.contract_start_date, '') AS start_date,
			COALESCE(c.contract_end_date, '') AS end_date,
			ca.id AS cast_id,
			ca.name AS cast_name,
			ca.partner_id AS cast_partner_id,
			COALESCE(capart.name, '') AS cast_partner_name,
			COALESCE(cc.role, '') AS role
		FROM contracts c
		JOIN contract_cast cc ON cc.contract_id = c.id
		JOIN cast_members ca ON ca.id = cc.cast_id
		LEFT JOIN productions prod ON prod.id = c.production_id
		LEFT JOIN partners cpart ON cpart.id = c.partner_id
		LEFT JOIN partners capart ON capart.id = ca.partner_id
		WHERE c.work_type = ?
		ORDER BY c.id, ca.id
	`, model.WorkTypePerformance).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetPartner verifies a partner exists before a manual resolution targets it.
func (r *ReconRepository) GetPartner(ctx context.Context, id int64) (*model.Partner, error) {
	var partner model.Partner
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, name, code, COALESCE(role, 'payee') AS role
		FROM partners
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&partner).Error
	if err != nil {
		return nil, err
	}
	if partner.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &partner, nil
}

// ApplyAuditMutations repoints contract or cast partners in one transaction.
func (r *ReconRepository) ApplyAuditMutations(ctx context.Context, mutations []audit.Mutation) error {
	if len(mutations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range mutations {
			switch {
			case m.ContractID != nil:
				err := tx.Exec(`
					UPDATE contracts SET partner_id = ?, updated_at = NOW() WHERE id = ?
				`, m.PartnerID, *m.ContractID).Error
				if err != nil {
					return err
				}
			case m.CastID != nil:
				err := tx.Exec(`
					UPDATE cast_members SET partner_id = ?, updated_at = NOW() WHERE id = ?
				`, m.PartnerID, *m.CastID).Error
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ListCornerItems returns expense items still attributed to a sub-production.
func (r *ReconRepository) ListCornerItems(ctx context.Context) ([]model.CornerItem, error) {
	var items []model.CornerItem
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			ei.id AS expense_item_id,
			prod.id AS corner_production_id,
			COALESCE(prod.name, '') AS corner_name,
			prod.parent_production_id,
			COALESCE(parent.name, '') AS parent_name
		FROM expense_items ei
		JOIN productions prod ON prod.id = ei.production_id
		LEFT JOIN productions parent ON parent.id = prod.parent_production_id
		WHERE prod.parent_production_id IS NOT NULL
		ORDER BY prod.parent_production_id, prod.id, ei.id
	`).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ApplyCornerFixes repoints each item to the parent production and records
// the sub-unit in corner_id, all in one transaction.
func (r *ReconRepository) ApplyCornerFixes(ctx context.Context, items []model.CornerItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			err := tx.Exec(`
				UPDATE expense_items
				SET production_id = ?, corner_id = ?
				WHERE id = ?
			`, item.ParentProductionID, item.CornerProductionID, item.ExpenseItemID).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// MatchedItemRow feeds the findings export.
type MatchedItemRow struct {
	ItemID            int64
	ItemName          string
	PartnerName       string
	Amount            decimal.Decimal
	PaymentMatchedID  int64
	PaymentDifference decimal.Decimal
	VerifiedDate      string
}

func (r *ReconRepository) ListMatchedItems(ctx context.Context) ([]MatchedItemRow, error) {
	var rows []MatchedItemRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			ei.id AS item_id,
			COALESCE(ei.item_name, '') AS item_name,
			COALESCE(p.name, '') AS partner_name,
			ei.amount,
			ei.payment_matched_id,
			COALESCE(ei.payment_difference, 0) AS payment_difference,
			COALESCE(ei.payment_verified_date::text, '') AS verified_date
		FROM expense_items ei
		LEFT JOIN partners p ON p.id = ei.partner_id
		WHERE ei.payment_matched_id IS NOT NULL
		ORDER BY ei.id
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
