package handler

import (
	"net/http"

	"github.com/bigongold/loan-manager/internal/session"
	"github.com/bigongold/loan-manager/pkg/response"

	"github.com/gorilla/mux"
)

type Handlers struct {
	Signer *session.Signer
	// GuestWrites lets requests without a token change data as the guest session.
	GuestWrites bool

	Sessions *SessionHandler
	Loans    *LoanHandler
	Payments *PaymentHandler
	Reports  *ReportHandler
	Users    *UserHandler
	Health   *HealthHandler
}

func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Health.Ready).Methods(http.MethodGet)

	// Sign-in needs no session
	router.HandleFunc("/api/v1/session", h.Sessions.Login).Methods(http.MethodPost)

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(SessionMiddleware(h.Signer, h.GuestWrites))

	api.HandleFunc("/session", h.Sessions.Current).Methods(http.MethodGet)

	api.HandleFunc("/loans", h.Loans.List).Methods(http.MethodGet)
	api.HandleFunc("/loans", h.Loans.Create).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}", h.Loans.Get).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}", h.Loans.Edit).Methods(http.MethodPatch)
	api.HandleFunc("/loans/{id}", h.Loans.Delete).Methods(http.MethodDelete)
	for _, action := range []string{"approve", "reject", "recycle", "restore", "mark-paid"} {
		api.HandleFunc("/loans/{id}/"+action, h.Loans.Transition(action)).Methods(http.MethodPost)
	}
	api.HandleFunc("/loans/{id}/agreement", h.Loans.Agreement).Methods(http.MethodGet)

	api.HandleFunc("/loans/{id}/payments", h.Payments.List).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/payments", h.Payments.Record).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/balance", h.Payments.Balance).Methods(http.MethodGet)

	api.HandleFunc("/reports/summary", h.Reports.Summary).Methods(http.MethodGet)
	api.HandleFunc("/reports/summary.pdf", h.Reports.Document).Methods(http.MethodGet)
	api.HandleFunc("/reports/loans.xlsx", h.Reports.Export).Methods(http.MethodGet)
	api.HandleFunc("/logs", h.Reports.Logs).Methods(http.MethodGet)

	api.HandleFunc("/users", h.Users.List).Methods(http.MethodGet)
	api.HandleFunc("/users", h.Users.Create).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", h.Users.Delete).Methods(http.MethodDelete)

	return router
}
