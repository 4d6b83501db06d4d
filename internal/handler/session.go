package handler

import (
	"net/http"
	"time"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/service"
	"github.com/bigongold/loan-manager/internal/session"
	"github.com/bigongold/loan-manager/pkg/response"
)

type SessionHandler struct {
	identity *service.IdentityService
	signer   *session.Signer
}

func NewSessionHandler(identity *service.IdentityService, signer *session.Signer) *SessionHandler {
	return &SessionHandler{identity: identity, signer: signer}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Session   domain.Session `json:"session"`
}

// Login exchanges a username and password for a signed session token.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	s, err := h.identity.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		response.FromError(w, err)
		return
	}

	token, expires, err := h.signer.Issue(s)
	if err != nil {
		response.InternalServerError(w, "Failed to issue session token", err)
		return
	}

	response.Created(w, loginResponse{Token: token, ExpiresAt: expires, Session: s})
}

// Current returns the session the request is acting as.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	response.Success(w, sessionFrom(r))
}
