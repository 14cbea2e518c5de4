package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PartnerRole string

const (
	PartnerRolePayee     PartnerRole = "payee"
	PartnerRolePerformer PartnerRole = "performer"
	PartnerRoleBoth      PartnerRole = "both"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusMatched PaymentStatus = "matched"
)

const WorkTypePerformance = "performance"

// Partner is a counterparty: payer, payee or performer. Code is unique when
// present; name is not.
type Partner struct {
	ID   int64
	Name string
	Code *string
	Role PartnerRole
}

// Production is a show, segment or event. A production with a parent is a
// sub-unit (corner); expense items must not stay attributed to it directly.
type Production struct {
	ID                 int64
	Name               string
	ParentProductionID *int64
}

// Contract dates are stored as text in the legacy schema and may use either
// accepted layout. They are parsed through dateutil where recency matters.
type Contract struct {
	ID           int64
	ProductionID *int64
	PartnerID    int64
	WorkType     string
	ItemName     string
	StartDate    string
	EndDate      string
	PaymentTerms string
}

type ExpenseItem struct {
	ID                  int64
	ItemName            string
	ContractID          *int64
	ProductionID        *int64
	CornerID            *int64
	PartnerID           *int64
	WorkType            string
	Amount              decimal.Decimal
	ImplementationDate  string
	ExpectedPaymentDate string
	PaymentStatus       PaymentStatus
	PaymentMatchedID    *int64
	PaymentVerifiedDate *time.Time
	PaymentDifference   *decimal.Decimal
	Archived            bool
}

// PaymentRecord is an externally observed ledger entry. The engine never
// mutates these rows.
type PaymentRecord struct {
	ID          int64
	Subject     string
	ProjectName string
	Payee       string
	PayeeCode   string
	Amount      decimal.Decimal
	PaymentDate string
	Status      string
}

type CastMember struct {
	ID        int64
	Name      string
	PartnerID *int64
}

// UnmatchedItem is an expense item joined with its partner identity, as the
// tolerance matcher consumes it.
type UnmatchedItem struct {
	ExpenseItem
	PartnerName string
	PartnerCode string
}

// DanglingItem is an expense item whose contract_id points at a deleted
// contract, joined with display names for reporting.
type DanglingItem struct {
	ExpenseItem
	ProductionName string
	PartnerName    string
}

// CastLinkRow is one contract-cast link of a performance contract, flattened
// the way the auditor reads it from the store.
type CastLinkRow struct {
	ContractID          int64
	ProductionID        *int64
	ProductionName      string
	ContractPartnerID   int64
	ContractPartnerName string
	ItemName            string
	StartDate           string
	EndDate             string
	CastID              int64
	CastName            string
	CastPartnerID       *int64
	CastPartnerName     string
	Role                string
}

// CornerItem is an expense item still attributed to a sub-production.
type CornerItem struct {
	ExpenseItemID      int64
	CornerProductionID int64
	CornerName         string
	ParentProductionID int64
	ParentName         string
}
