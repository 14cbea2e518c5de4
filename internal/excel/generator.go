package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kmorisaki/billing-recon/internal/service"
)

// Generator renders the cross-pass findings workbook: one sheet per concern
// plus a summary, consumable by the back-office staff auditing a run.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(findings *service.Findings) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Summary"
	file.SetSheetName("Sheet1", summarySheet)
	g.writeSummary(file, summarySheet, findings)

	file.NewSheet("Matched")
	g.writeMatched(file, "Matched", findings)

	file.NewSheet("Dangling")
	g.writeDangling(file, "Dangling", findings)

	file.NewSheet("Duplicates")
	g.writeDuplicates(file, "Duplicates", findings)

	file.NewSheet("Audit")
	g.writeAudit(file, "Audit", findings)

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, findings *service.Findings) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Generated at")
	set("B1", formatDateTime(findings.GeneratedAt))
	set("A2", "Matched expense items")
	set("B2", len(findings.Matched))
	set("A3", "Dangling contract references")
	set("B3", len(findings.Dangling))
	set("A4", "Duplicate groups")
	set("B4", len(findings.DuplicateGroups))
	set("A5", "Audit inconsistencies")
	set("B5", len(findings.Inconsistencies))

	_ = file.SetColWidth(sheet, "A", "A", 32)
	_ = file.SetColWidth(sheet, "B", "B", 22)
}

func (g *Generator) writeMatched(file *excelize.File, sheet string, findings *service.Findings) {
	headers := []string{"Expense ID", "Item", "Partner", "Amount", "Payment ID", "Difference", "Verified"}
	writeHeaders(file, sheet, headers)

	for i, row := range findings.Matched {
		r := i + 2
		set := cellSetter(file, sheet, r)
		set(1, row.ItemID)
		set(2, row.ItemName)
		set(3, row.PartnerName)
		set(4, row.Amount.StringFixed(0))
		set(5, row.PaymentMatchedID)
		set(6, row.PaymentDifference.StringFixed(2))
		set(7, row.VerifiedDate)
	}
	_ = file.SetColWidth(sheet, "B", "C", 28)
}

func (g *Generator) writeDangling(file *excelize.File, sheet string, findings *service.Findings) {
	headers := []string{"Expense ID", "Item", "Production", "Partner", "Stale contract ID"}
	writeHeaders(file, sheet, headers)

	for i, item := range findings.Dangling {
		r := i + 2
		set := cellSetter(file, sheet, r)
		set(1, item.ID)
		set(2, item.ItemName)
		set(3, item.ProductionName)
		set(4, item.PartnerName)
		if item.ContractID != nil {
			set(5, *item.ContractID)
		}
	}
	_ = file.SetColWidth(sheet, "B", "D", 28)
}

func (g *Generator) writeDuplicates(file *excelize.File, sheet string, findings *service.Findings) {
	headers := []string{"Kept ID", "Removed IDs", "Contract", "Work type", "Amount", "Implementation", "Expected payment"}
	writeHeaders(file, sheet, headers)

	for i, group := range findings.DuplicateGroups {
		r := i + 2
		set := cellSetter(file, sheet, r)
		set(1, group.KeptID)
		set(2, fmt.Sprintf("%v", group.RemovedIDs))
		if group.ContractID != nil {
			set(3, *group.ContractID)
		} else {
			set(3, "NULL")
		}
		set(4, group.WorkType)
		set(5, group.Amount)
		set(6, group.ImplDate)
		set(7, group.ExpectedDate)
	}
	_ = file.SetColWidth(sheet, "B", "B", 24)
}

func (g *Generator) writeAudit(file *excelize.File, sheet string, findings *service.Findings) {
	headers := []string{"Contract ID", "Production", "Item", "Contract partner", "Cast member", "Cast partner", "Role", "Period"}
	writeHeaders(file, sheet, headers)

	r := 2
	for _, inc := range findings.Inconsistencies {
		for _, cast := range inc.Mismatched {
			set := cellSetter(file, sheet, r)
			set(1, inc.ContractID)
			set(2, inc.ProductionName)
			set(3, inc.ItemName)
			set(4, inc.ContractPartnerName)
			set(5, cast.CastName)
			set(6, cast.CastPartnerName)
			set(7, cast.Role)
			set(8, fmt.Sprintf("%s - %s", inc.StartDate, inc.EndDate))
			r++
		}
	}
	_ = file.SetColWidth(sheet, "B", "F", 26)
}

func writeHeaders(file *excelize.File, sheet string, headers []string) {
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = file.SetCellValue(sheet, cell, header)
	}
}

func cellSetter(file *excelize.File, sheet string, row int) func(col int, value interface{}) {
	return func(col int, value interface{}) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = file.SetCellValue(sheet, cell, value)
	}
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
