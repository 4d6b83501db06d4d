package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/session"
	customError "github.com/bigongold/loan-manager/pkg/errors"
	"github.com/bigongold/loan-manager/pkg/response"

	"github.com/gorilla/mux"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionMiddleware resolves the acting session from a Bearer token. Requests
// without a token act as the guest session, which may only read unless
// guestWrites is set.
func SessionMiddleware(signer *session.Signer, guestWrites bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := domain.GuestSession

			header := r.Header.Get("Authorization")
			if header == "" && !guestWrites && !isReadOnly(r.Method) {
				response.Unauthorized(w, "sign in to make changes")
				return
			}
			if header != "" {
				token, ok := strings.CutPrefix(header, "Bearer ")
				if !ok {
					response.Unauthorized(w, "Authorization header must be a Bearer token")
					return
				}
				parsed, err := signer.Parse(strings.TrimSpace(token))
				if err != nil {
					response.Unauthorized(w, err.Error())
					return
				}
				s = parsed
			}

			ctx := context.WithValue(r.Context(), sessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isReadOnly(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func sessionFrom(r *http.Request) domain.Session {
	if s, ok := r.Context().Value(sessionKey).(domain.Session); ok {
		return s
	}
	return domain.GuestSession
}

func decodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return customError.WrapValidation("invalid request body: " + err.Error())
	}
	return nil
}
