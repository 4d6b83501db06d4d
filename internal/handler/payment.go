package handler

import (
	"net/http"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/service"
	"github.com/bigongold/loan-manager/pkg/response"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type PaymentHandler struct {
	repayments *service.RepaymentService
}

func NewPaymentHandler(repayments *service.RepaymentService) *PaymentHandler {
	return &PaymentHandler{repayments: repayments}
}

type paymentResponse struct {
	Payment *domain.Payment `json:"payment"`
	Loan    *domain.Loan    `json:"loan"`
}

func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req domain.RecordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	loanID := mux.Vars(r)["id"]
	payment, loan, err := h.repayments.RecordPayment(r.Context(), sessionFrom(r), loanID, &req)
	if err != nil {
		if payment != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"loan":       loanID,
				"payment_id": payment.ID,
			}).Error("payment stored but loan not fully updated")
		}
		response.FromError(w, err)
		return
	}

	response.Created(w, paymentResponse{Payment: payment, Loan: loan})
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	payments, err := h.repayments.ListPayments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, payments)
}

func (h *PaymentHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.repayments.GetBalance(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, balance)
}
