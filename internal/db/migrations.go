package db

import (
	"fmt"

	"gorm.io/gorm"
)

// The entity tables themselves belong to the desktop application and its
// migration tooling. The engine only guarantees that the nullable
// reconciliation columns it writes exist, so it can run against any schema
// revision the migrations have produced.
var migrationStatements = []string{
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'expense_items' AND column_name = 'payment_matched_id') THEN
			ALTER TABLE expense_items ADD COLUMN payment_matched_id BIGINT;
		END IF;
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'expense_items' AND column_name = 'payment_verified_date') THEN
			ALTER TABLE expense_items ADD COLUMN payment_verified_date DATE;
		END IF;
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'expense_items' AND column_name = 'payment_difference') THEN
			ALTER TABLE expense_items ADD COLUMN payment_difference NUMERIC(18,2);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'expense_items' AND column_name = 'corner_id') THEN
			ALTER TABLE expense_items ADD COLUMN corner_id BIGINT;
		END IF;
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'expense_items' AND column_name = 'archived') THEN
			ALTER TABLE expense_items ADD COLUMN archived BOOLEAN NOT NULL DEFAULT FALSE;
		END IF;
	END
	$$;`,
	`CREATE INDEX IF NOT EXISTS idx_expense_items_contract_id ON expense_items (contract_id) WHERE contract_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_expense_items_payment_matched_id ON expense_items (payment_matched_id) WHERE payment_matched_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_triple ON contracts (production_id, partner_id, work_type);`,
	`CREATE INDEX IF NOT EXISTS idx_payments_payee_code ON payments (payee_code) WHERE payee_code <> '';`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
