package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/kmorisaki/billing-recon/internal/audit"
)

// Generator renders the printable consistency audit report handed to the
// accounting desk before resolutions are applied.
type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) Generate(inconsistencies []audit.Inconsistency) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "Cast affiliation consistency report", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s - %d flagged contract(s)",
		time.Now().Format("2006-01-02 15:04"), len(inconsistencies)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if len(inconsistencies) == 0 {
		pdf.SetFont(g.fontName, "", 11)
		pdf.MultiCell(0, 6, "All performance contracts agree with their cast affiliations.", "", "L", false)
	}

	for _, inc := range inconsistencies {
		g.writeContractBlock(pdf, inc)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeContractBlock(pdf *gofpdf.Fpdf, inc audit.Inconsistency) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Contract #%d - %s", inc.ContractID, safeValue(inc.ItemName)), "", 1, "L", false, 0, "")

	pdf.SetFont(g.fontName, "", 10)
	lines := []string{
		fmt.Sprintf("Production: %s", safeValue(inc.ProductionName)),
		fmt.Sprintf("Contract partner: %s (ID %d)", safeValue(inc.ContractPartnerName), inc.ContractPartnerID),
		fmt.Sprintf("Period: %s - %s", safeValue(inc.StartDate), safeValue(inc.EndDate)),
	}
	for _, line := range lines {
		pdf.MultiCell(0, 5, line, "", "L", false)
	}

	headers := []string{"Cast member", "Affiliated partner", "Role"}
	widths := []float64{65, 75, 40}
	drawTableRow(pdf, g.fontName, headers, widths, true)
	for _, cast := range inc.Mismatched {
		row := []string{cast.CastName, safeValue(cast.CastPartnerName), cast.Role}
		drawTableRow(pdf, g.fontName, row, widths, false)
	}

	if inc.AutoFixable() {
		pdf.SetFont(g.fontName, "I", 9)
		pdf.CellFormat(0, 5, "Eligible for auto-fix (single shared affiliation).", "", 1, "L", false, 0, "")
	} else {
		pdf.SetTextColor(200, 0, 0)
		pdf.SetFont(g.fontName, "I", 9)
		pdf.CellFormat(0, 5, "Divergent affiliations: manual selection required.", "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 9)
	for i, col := range cols {
		pdf.CellFormat(widths[i], 7, col, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
