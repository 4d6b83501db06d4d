package handler

import (
	"net/http"

	"github.com/bigongold/loan-manager/internal/domain"
	"github.com/bigongold/loan-manager/internal/service"
	"github.com/bigongold/loan-manager/pkg/response"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context(), sessionFrom(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, users)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	user, err := h.users.CreateUser(r.Context(), sessionFrom(r), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteUser(r.Context(), sessionFrom(r), mux.Vars(r)["id"]); err != nil {
		response.FromError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
