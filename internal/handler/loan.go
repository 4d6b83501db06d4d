package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/service"
	customError "github.com/bigongold/loan-manager/pkg/errors"
	"github.com/bigongold/loan-manager/pkg/response"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type LoanHandler struct {
	loans   *service.LoanService
	reports *service.ReportService
}

func NewLoanHandler(loans *service.LoanService, reports *service.ReportService) *LoanHandler {
	return &LoanHandler{loans: loans, reports: reports}
}

// filterFromQuery reads ?filter=all|status|active|overdue|recycle&status=...
func filterFromQuery(r *http.Request) (domain.LoanFilter, error) {
	q := r.URL.Query()
	switch domain.FilterKind(q.Get("filter")) {
	case "", domain.FilterAll:
		return domain.AllLoans(), nil
	case domain.FilterStatus:
		return domain.LoansWithStatus(domain.LoanStatus(q.Get("status"))), nil
	case domain.FilterActive:
		return domain.ActiveLoans(), nil
	case domain.FilterOverdue:
		return domain.OverdueLoans(time.Time{}), nil
	case domain.FilterRecycleBin:
		return domain.RecycleBin(), nil
	}
	return domain.LoanFilter{}, customError.WrapValidation("filter must be one of all, status, active, overdue, recycle")
}

func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		response.FromError(w, err)
		return
	}

	views, err := h.loans.ListLoans(r.Context(), filter)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, views)
}

func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	loan, err := h.loans.CreateLoan(r.Context(), sessionFrom(r), &req)
	writeLoan(w, loan, err, http.StatusCreated)
}

func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.loans.GetLoan(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, view)
}

func (h *LoanHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var patch domain.LoanPatch
	if err := decodeJSON(r, &patch); err != nil {
		response.FromError(w, err)
		return
	}

	loan, err := h.loans.EditLoan(r.Context(), sessionFrom(r), mux.Vars(r)["id"], &patch)
	writeLoan(w, loan, err, http.StatusOK)
}

type deleteRequest struct {
	Password string `json:"password"`
}

// Delete permanently removes a loan from the recycle bin. The caller must be
// an admin and confirm with their own password.
func (h *LoanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	if err := h.loans.PermanentDelete(r.Context(), sessionFrom(r), mux.Vars(r)["id"], req.Password); err != nil {
		response.FromError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transition serves the single-step status changes: approve, reject,
// recycle, restore and mark-paid.
func (h *LoanHandler) Transition(action string) http.HandlerFunc {
	ops := map[string]func(ctx context.Context, actor domain.Session, id string) (*domain.Loan, error){
		"approve":   h.loans.Approve,
		"reject":    h.loans.Reject,
		"recycle":   h.loans.SoftDelete,
		"restore":   h.loans.Restore,
		"mark-paid": h.loans.MarkFullyPaid,
	}
	op, ok := ops[action]
	if !ok {
		panic("handler: unknown loan transition " + action)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		loan, err := op(r.Context(), sessionFrom(r), mux.Vars(r)["id"])
		writeLoan(w, loan, err, http.StatusOK)
	}
}

// Agreement renders the printable loan agreement as a PDF download.
func (h *LoanHandler) Agreement(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	serveRendered(w, r, "loan-"+id+".pdf", "application/pdf", func(path string) error {
		return h.reports.RenderLoanAgreement(r.Context(), id, path)
	})
}

// writeLoan reports a committed change whose audit entry could not be
// written as a 503 that still carries the loan.
func writeLoan(w http.ResponseWriter, loan *domain.Loan, err error, status int) {
	if err != nil {
		if loan != nil {
			logrus.WithError(err).WithField("loan_id", loan.LoanID).Error("change saved but not audited")
		}
		response.FromError(w, err)
		return
	}
	response.JSON(w, status, loan)
}

// serveRendered renders into a temporary file and streams it to the client.
func serveRendered(w http.ResponseWriter, r *http.Request, name, contentType string, render func(path string) error) {
	dir, err := os.MkdirTemp("", "loans-render-")
	if err != nil {
		response.InternalServerError(w, "Failed to prepare document", err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(name))
	if err := render(path); err != nil {
		response.FromError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(name)+`"`)
	http.ServeFile(w, r, path)
}
