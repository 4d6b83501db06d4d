package handler

import (
	"net/http"
	"strconv"

	"github.com/bigongold/loan-manager/internal/service"
	customError "github.com/bigongold/loan-manager/pkg/errors"
	"github.com/bigongold/loan-manager/pkg/response"
)

type ReportHandler struct {
	reports *service.ReportService
}

func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reports.Summary(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, summary)
}

func (h *ReportHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.FromError(w, customError.WrapValidation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	logs, err := h.reports.RecentLogs(r.Context(), limit)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, logs)
}

// Document renders the printable summary report for ?date= as a PDF.
func (h *ReportHandler) Document(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	serveRendered(w, r, "report.pdf", "application/pdf", func(path string) error {
		return h.reports.GenerateReport(r.Context(), date, path)
	})
}

// Export downloads the loans selected by ?filter= as a spreadsheet.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		response.FromError(w, err)
		return
	}
	serveRendered(w, r, "loans.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", func(path string) error {
		_, err := h.reports.ExportLoans(r.Context(), filter, path)
		return err
	})
}
