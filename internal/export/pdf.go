package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bigongold/loan-manager/internal/clock"
	"github.com/bigongold/loan-manager/internal/domain"

	"github.com/go-pdf/fpdf"
)

const companyName = "Big On Gold Loans"

// PDFRenderer renders the loan agreement and the management report.
type PDFRenderer struct {
	clock clock.Clock
}

func NewPDFRenderer(clk clock.Clock) *PDFRenderer {
	return &PDFRenderer{clock: clk}
}

func (r *PDFRenderer) newDocument(title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor(companyName, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, companyName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, "Generated "+r.clock.Now().Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(4)
	return pdf
}

func field(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(55, 7, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 7, value, "", "L", false)
}

func save(pdf *fpdf.Fpdf, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}

// RenderLoanDocument writes the loan agreement for one loan.
func (r *PDFRenderer) RenderLoanDocument(loan *domain.Loan, path string) error {
	pdf := r.newDocument("Loan Agreement " + loan.LoanID)

	field(pdf, "Customer", loan.CustomerName)
	field(pdf, "National ID (NIN)", loan.NINNumber)
	field(pdf, "Loan type", string(loan.LoanType))
	field(pdf, "Principal (RWF)", loan.LoanAmount.StringFixed(2))
	field(pdf, "Interest rate", loan.InterestRate.String()+"% per year")
	field(pdf, "Duration", string(loan.Duration))
	field(pdf, "Amount to repay (RWF)", loan.ReturnAmount.StringFixed(2))
	field(pdf, "Payment plan", string(loan.PaymentPlan))
	field(pdf, "Collateral", string(loan.Collateral))
	field(pdf, "Purpose", loan.Purpose)
	field(pdf, "Application date", loan.ApplicationDate.Format(domain.DateLayout))
	field(pdf, "Status", string(loan.Status))
	if loan.NextPayment != nil {
		field(pdf, "Next payment due", loan.NextPayment.Format(domain.DateLayout))
	}
	if loan.FinalCompletionDate != nil {
		field(pdf, "Final completion date", loan.FinalCompletionDate.Format(domain.DateLayout))
	}
	if len(loan.SecurityPhotos) > 0 {
		field(pdf, "Security photos", strings.Join(loan.SecurityPhotos, "\n"))
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, fmt.Sprintf(
		"The borrower agrees to repay %s RWF under a %s plan, pledging the collateral above as security.",
		loan.ReturnAmount.StringFixed(2), strings.ToLower(string(loan.PaymentPlan))), "", "L", false)
	pdf.Ln(14)
	pdf.CellFormat(90, 7, "Borrower signature: ____________", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Officer signature: ____________", "", 1, "L", false, 0, "")

	return save(pdf, path)
}

// RenderReport writes the analytics summary followed by the action log.
func (r *PDFRenderer) RenderReport(summary *domain.Summary, logs []*domain.AuditEntry, path string) error {
	title := "Loan Portfolio Report"
	if summary.DateFilter != "" {
		title += " (" + summary.DateFilter + ")"
	}
	pdf := r.newDocument(title)

	field(pdf, "Loans", fmt.Sprintf("%d", summary.LoanCount))
	field(pdf, "Total lent (RWF)", summary.TotalLent.StringFixed(2))
	field(pdf, "Total recovered (RWF)", summary.TotalRecovered.StringFixed(2))
	field(pdf, "Outstanding debt (RWF)", summary.OutstandingDebt.StringFixed(2))
	field(pdf, "Active loans", fmt.Sprintf("%d", summary.ActiveCount))

	statuses := make([]string, 0, len(summary.StatusBreakdown))
	for status := range summary.StatusBreakdown {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		field(pdf, "  "+status, fmt.Sprintf("%d", summary.StatusBreakdown[domain.LoanStatus(status)]))
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Recent activity", "", 1, "L", false, 0, "")

	widths := []float64{40, 25, 35, 90}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Time", "User", "Action", "Details"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, e := range logs {
		details := e.Details
		if len(details) > 60 {
			details = details[:57] + "..."
		}
		for i, v := range []string{e.Timestamp, e.User, e.Action, details} {
			pdf.CellFormat(widths[i], 6, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return save(pdf, path)
}
