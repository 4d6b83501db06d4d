package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/bigongold/loan-manager/internal/clock"
	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/repository"
	customError "github.com/bigongold/loan-manager/pkg/errors"
	"github.com/bigongold/loan-manager/pkg/utils"
)

const summaryKeyPrefix = "loans:summary:"

var datePrefixPattern = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?$`)

// TabularWriter writes rows, header first, to a spreadsheet file.
type TabularWriter interface {
	WriteTabular(rows [][]string, path string) error
}

// DocumentRenderer produces the printable documents.
type DocumentRenderer interface {
	RenderLoanDocument(loan *domain.Loan, path string) error
	RenderReport(summary *domain.Summary, logs []*domain.AuditEntry, path string) error
}

// SummaryCache stores computed summaries between changes.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.Summary, bool)
	Set(ctx context.Context, key string, value *domain.Summary)
	DeletePrefix(ctx context.Context, prefix string)
}

type ReportService struct {
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	audit       *AuditLog
	clock       clock.Clock
	cache       SummaryCache
	tabular     TabularWriter
	documents   DocumentRenderer
}

// NewReportService builds the report service. cache may be nil.
func NewReportService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	audit *AuditLog,
	clk clock.Clock,
	cache SummaryCache,
	tabular TabularWriter,
	documents DocumentRenderer,
) *ReportService {
	s := &ReportService{
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		audit:       audit,
		clock:       clk,
		cache:       cache,
		tabular:     tabular,
		documents:   documents,
	}
	if cache != nil {
		audit.OnChange(s.Invalidate)
	}
	return s
}

// Summary aggregates the loans not in the recycle bin. datePrefix, when set,
// is a YYYY, YYYY-MM or YYYY-MM-DD prefix of the application date.
func (s *ReportService) Summary(ctx context.Context, datePrefix string) (*domain.Summary, error) {
	if datePrefix != "" && !datePrefixPattern.MatchString(datePrefix) {
		return nil, customError.WrapValidation("date filter must look like YYYY, YYYY-MM or YYYY-MM-DD")
	}

	key := summaryKeyPrefix + datePrefix
	if datePrefix == "" {
		key += "all"
	}
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	loans, err := s.LoanRepo.Find(ctx, domain.AllLoans())
	if err != nil {
		return nil, err
	}
	payments, err := s.PaymentRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	summary := Summarize(loans, payments, datePrefix)
	if s.cache != nil {
		s.cache.Set(ctx, key, summary)
	}
	return summary, nil
}

// Invalidate drops every cached summary.
func (s *ReportService) Invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.DeletePrefix(ctx, summaryKeyPrefix)
	}
}

func (s *ReportService) RecentLogs(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	return s.audit.Recent(ctx, limit)
}

var exportHeader = []string{
	"Loan ID", "Customer", "NIN", "Loan Type", "Amount", "Return Amount", "Duration",
	"Payment Plan", "Status", "Application Date", "Next Payment", "Days Remaining",
}

// ExportLoans writes the loans selected by filter to a spreadsheet and returns
// how many were written.
func (s *ReportService) ExportLoans(ctx context.Context, filter domain.LoanFilter, path string) (int, error) {
	today := utils.DateOnly(s.clock.Now())
	if filter.Kind == domain.FilterOverdue && filter.Today.IsZero() {
		filter.Today = today
	}

	loans, err := s.LoanRepo.Find(ctx, filter)
	if err != nil {
		return 0, err
	}

	rows := make([][]string, 0, len(loans)+1)
	rows = append(rows, exportHeader)
	for _, loan := range loans {
		view := NewLoanView(loan, today)
		rows = append(rows, []string{
			loan.LoanID,
			loan.CustomerName,
			loan.NINNumber,
			string(loan.LoanType),
			loan.LoanAmount.StringFixed(2),
			loan.ReturnAmount.StringFixed(2),
			string(loan.Duration),
			string(loan.PaymentPlan),
			view.ViewStatus,
			utils.FormatDate(loan.ApplicationDate),
			formatOptionalDate(loan.NextPayment),
			view.DaysRemaining,
		})
	}

	if err := s.tabular.WriteTabular(rows, path); err != nil {
		return 0, fmt.Errorf("write loan export: %w", err)
	}
	return len(loans), nil
}

// GenerateReport renders the summary and the most recent log entries to a PDF.
func (s *ReportService) GenerateReport(ctx context.Context, datePrefix, path string) error {
	summary, err := s.Summary(ctx, datePrefix)
	if err != nil {
		return err
	}
	logs, err := s.audit.Recent(ctx, domain.DefaultLogLimit)
	if err != nil {
		return err
	}

	if err := s.documents.RenderReport(summary, logs, path); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// RenderLoanAgreement writes the printable agreement for one loan.
func (s *ReportService) RenderLoanAgreement(ctx context.Context, loanID, path string) error {
	loan, err := s.LoanRepo.GetByID(ctx, loanID)
	if err != nil {
		return err
	}
	if err := s.documents.RenderLoanDocument(loan, path); err != nil {
		return fmt.Errorf("render loan document: %w", err)
	}
	return nil
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return utils.FormatDate(*t)
}
