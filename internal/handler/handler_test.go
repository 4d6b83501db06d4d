package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bigongold/loan-manager/internal/clock"
	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/export"
	"github.com/bigongold/loan-manager/internal/repository/memory"
	"github.com/bigongold/loan-manager/internal/service"
	"github.com/bigongold/loan-manager/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router http.Handler
	signer *session.Signer
	clock  *clock.Fixed
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, true)
}

func newTestServerWith(t *testing.T, guestWrites bool) *testServer {
	t.Helper()
	service.BcryptCost = bcrypt.MinCost

	store := memory.NewStore()
	clk := clock.NewFixed(time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	audit := service.NewAuditLog(store.Logs, clk)
	identity := service.NewIdentityService(store.Users)
	loans := service.NewLoanService(store.Loans, store.Payments, identity, audit, clk, nil)
	repayments := service.NewRepaymentService(store.Loans, store.Payments, audit, clk)
	users := service.NewUserService(store.Users, audit)
	reports := service.NewReportService(store.Loans, store.Payments, audit, clk, nil,
		export.NewXLSXWriter(""), export.NewPDFRenderer(clk))
	require.NoError(t, users.EnsureAdmin(context.Background(), "admin", "admin-pass"))

	signer := session.NewSigner("test-secret", time.Hour)

	return &testServer{
		t:      t,
		signer: signer,
		clock:  clk,
		router: NewRouter(Handlers{
			Signer:      signer,
			GuestWrites: guestWrites,
			Sessions:    NewSessionHandler(identity, signer),
			Loans:       NewLoanHandler(loans, reports),
			Payments:    NewPaymentHandler(repayments),
			Reports:     NewReportHandler(reports),
			Users:       NewUserHandler(users),
			Health:      NewHealthHandler(store.Ping, nil, time.Second),
		}),
	}
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/v1/session", "", loginRequest{Username: username, Password: password})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &resp))
	return resp.Token
}

func (s *testServer) createLoan(token string) domain.Loan {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/v1/loans", token, domain.CreateLoanRequest{
		CustomerName:  "Alice Uwase",
		NINNumber:     "CM123",
		LoanAmount:    decimal.NewFromInt(500000),
		LoanType:      domain.LoanTypePersonal,
		Duration:      domain.DurationSixMonths,
		Collateral:    domain.CollateralGold,
		PaymentPlan:   domain.PaymentPlanMonthly,
		TermsAccepted: true,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var loan domain.Loan
	require.NoError(s.t, json.Unmarshal(env.Data, &loan))
	return loan
}

func TestSessionMiddleware(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedUser   string
	}{
		{name: "no token acts as guest", expectedStatus: http.StatusOK, expectedUser: "Guest"},
		{name: "garbage token", header: "Bearer not-a-token", expectedStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic YWRtaW46YWRtaW4=", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			srv.router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedUser != "" {
				assert.Contains(t, rec.Body.String(), `"username":"`+tt.expectedUser+`"`)
			}
		})
	}
}

func TestGuestIsReadOnly(t *testing.T) {
	srv := newTestServerWith(t, false)

	rec, env := srv.do(http.MethodPost, "/api/v1/loans", "", domain.CreateLoanRequest{
		CustomerName: "Alice Uwase", NINNumber: "CM123", LoanAmount: decimal.NewFromInt(500000),
		LoanType: domain.LoanTypePersonal, Duration: domain.DurationSixMonths,
		Collateral: domain.CollateralGold, PaymentPlan: domain.PaymentPlanMonthly, TermsAccepted: true,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)

	rec, _ = srv.do(http.MethodGet, "/api/v1/loans", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	token := srv.login("admin", "admin-pass")
	loan := srv.createLoan(token)

	rec, _ = srv.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/approve", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = srv.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/approve", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = srv.do(http.MethodGet, "/api/v1/loans?filter=active", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []domain.LoanView
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, loan.LoanID, views[0].LoanID)
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	token := srv.login("admin", "admin-pass")
	rec, env := srv.do(http.MethodGet, "/api/v1/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var s domain.Session
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.Equal(t, domain.Session{Role: domain.RoleAdmin, Username: "admin"}, s)

	rec, env = srv.do(http.MethodPost, "/api/v1/session", "", loginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "PERMISSION_DENIED", env.Code)
}

func TestLoanLifecycle(t *testing.T) {
	srv := newTestServer(t)
	loan := srv.createLoan("")
	assert.Equal(t, domain.LoanStatusPending, loan.Status)

	rec, _ := srv.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/approve", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env := srv.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/payments", "", domain.RecordPaymentRequest{
		Amount:        decimal.NewFromInt(530000),
		PaymentDate:   "2025-01-20",
		PaymentMethod: domain.PaymentMethodCash,
		ReceivedBy:    "clerk",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var paid paymentResponse
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.Equal(t, domain.LoanStatusFullyPaid, paid.Loan.Status)

	rec, env = srv.do(http.MethodGet, "/api/v1/loans/"+loan.ID+"/balance", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var balance domain.BalanceResponse
	require.NoError(t, json.Unmarshal(env.Data, &balance))
	assert.True(t, balance.Remaining.IsZero())

	rec, env = srv.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/approve", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ILLEGAL_TRANSITION", env.Code)
}

func TestLoanErrors(t *testing.T) {
	srv := newTestServer(t)
	loan := srv.createLoan("")

	tests := []struct {
		name           string
		method         string
		path           string
		body           interface{}
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "unknown loan",
			method:         http.MethodGet,
			path:           "/api/v1/loans/missing",
			expectedStatus: http.StatusNotFound,
			expectedCode:   "LOAN_NOT_FOUND",
		},
		{
			name:           "bad filter",
			method:         http.MethodGet,
			path:           "/api/v1/loans?filter=late",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:   "identity mismatch",
			method: http.MethodPost,
			path:   "/api/v1/loans",
			body: domain.CreateLoanRequest{
				CustomerName: "Bob", NINNumber: "CM123", LoanAmount: decimal.NewFromInt(1000),
				LoanType: domain.LoanTypeBusiness, Duration: domain.DurationOneYear,
				Collateral: domain.CollateralOther, PaymentPlan: domain.PaymentPlanWeekly, TermsAccepted: true,
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "IDENTITY_MISMATCH",
		},
		{
			name:   "payment on pending loan",
			method: http.MethodPost,
			path:   "/api/v1/loans/" + loan.ID + "/payments",
			body: domain.RecordPaymentRequest{
				Amount: decimal.NewFromInt(10), PaymentDate: "2025-01-20",
				PaymentMethod: domain.PaymentMethodCash, ReceivedBy: "clerk",
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "ILLEGAL_TRANSITION",
		},
		{
			name:           "permanent delete as guest",
			method:         http.MethodDelete,
			path:           "/api/v1/loans/" + loan.ID,
			body:           deleteRequest{Password: "admin-pass"},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "PERMISSION_DENIED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := srv.do(tt.method, tt.path, "", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.expectedCode, env.Code)
		})
	}
}

func TestRecycleAndPermanentDelete(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login("admin", "admin-pass")
	loan := srv.createLoan(token)

	rec, _ := srv.do(http.MethodPost, "/api/v1/loans/"+loan.ID+"/recycle", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := srv.do(http.MethodGet, "/api/v1/loans?filter=recycle", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []domain.LoanView
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)

	rec, _ = srv.do(http.MethodDelete, "/api/v1/loans/"+loan.ID, token, deleteRequest{Password: "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = srv.do(http.MethodDelete, "/api/v1/loans/"+loan.ID, token, deleteRequest{Password: "admin-pass"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = srv.do(http.MethodGet, "/api/v1/loans/"+loan.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsers(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login("admin", "admin-pass")

	rec, _ := srv.do(http.MethodGet, "/api/v1/users", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := srv.do(http.MethodPost, "/api/v1/users", token, domain.CreateUserRequest{
		Username: "clerk", Password: "secret1", Role: domain.RoleStaff,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user domain.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.NotContains(t, string(env.Data), "secret1")

	rec, env = srv.do(http.MethodPost, "/api/v1/users", token, domain.CreateUserRequest{
		Username: "clerk", Password: "secret1", Role: domain.RoleStaff,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", env.Code)

	clerk := srv.login("clerk", "secret1")
	assert.NotEmpty(t, clerk)

	rec, _ = srv.do(http.MethodDelete, "/api/v1/users/"+user.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestReportsAndLogs(t *testing.T) {
	srv := newTestServer(t)
	srv.createLoan("")

	rec, env := srv.do(http.MethodGet, "/api/v1/reports/summary?date=2025-01", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary domain.Summary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 1, summary.LoanCount)

	rec, _ = srv.do(http.MethodGet, "/api/v1/reports/summary?date=Jan", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = srv.do(http.MethodGet, "/api/v1/logs?limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []domain.AuditEntry
	require.NoError(t, json.Unmarshal(env.Data, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActionNewLoan, logs[0].Action)

	rec, _ = srv.do(http.MethodGet, "/api/v1/logs?limit=many", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = srv.do(http.MethodGet, "/api/v1/reports/loans.xlsx", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "loans.xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec, _ := srv.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = srv.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"in-memory"`)
}
