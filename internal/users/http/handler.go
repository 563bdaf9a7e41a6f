package http

import (
	"errors"
	"net/http"

	accounthttp "github.com/useraccounts/backend/internal/account/http"
	accountservice "github.com/useraccounts/backend/internal/account/service"
	"github.com/useraccounts/backend/internal/auth/middleware"
	commonhttp "github.com/useraccounts/backend/internal/common/http"
	"github.com/useraccounts/backend/internal/common/logger"
	"github.com/useraccounts/backend/internal/user/domain"
	"github.com/useraccounts/backend/internal/user/repository"
	"github.com/useraccounts/backend/internal/users/service"
)

type Handler struct {
	users   *service.UsersService
	account *accountservice.AccountService
	mw      *middleware.Middleware
	log     *logger.Logger
}

func NewHandler(
	users *service.UsersService,
	account *accountservice.AccountService,
	mw *middleware.Middleware,
	log *logger.Logger,
) *Handler {
	return &Handler{users: users, account: account, mw: mw, log: log}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/users/fetch", h.mw.RequireAdmin(h.handleFetch))
	mux.HandleFunc("POST /api/users", h.mw.RequireAdmin(h.handleCreate))
	mux.HandleFunc("GET /api/users/{id}", h.mw.RequireAdmin(h.handleGet))
	mux.HandleFunc("PUT /api/users/{id}", h.mw.RequireAdmin(h.handleUpdate))
	mux.HandleFunc("DELETE /api/users/{id}", h.mw.RequireAdmin(h.handleDelete))
	mux.HandleFunc("PUT /api/users/{id}/avatar", h.mw.RequireAdmin(h.handleUpdateAvatar))
}

type fetchRequest struct {
	Limit  int      `json:"limit" validate:"omitempty,min=1,max=100"`
	Offset int      `json:"offset" validate:"omitempty,min=0"`
	IDs    []string `json:"ids"`
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=3,max=30"`
	Admin    bool   `json:"admin"`
}

type updateUserRequest struct {
	Name     string `json:"name" validate:"omitempty,min=3,max=30"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=3,max=30"`
	Admin    bool   `json:"admin"`
}

type userResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
	Avatar string `json:"avatar,omitempty"`
}

type fetchResponse struct {
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Users  []userResponse `json:"users"`
}

type avatarResponse struct {
	Avatar string `json:"avatar"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:     string(u.ID),
		Name:   u.Name,
		Email:  u.Email,
		Admin:  u.Admin,
		Avatar: u.Avatar,
	}
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if !commonhttp.DecodeAndValidate(w, r, &req, "fetch failed") {
		return
	}

	users, total, err := h.users.List(r.Context(), repository.ListFilter{
		Limit:  req.Limit,
		Offset: req.Offset,
		IDs:    req.IDs,
	})
	if err != nil {
		h.log.Errorf("user fetch failed: %v", err)
		commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := fetchResponse{Total: total, Offset: req.Offset, Users: make([]userResponse, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, toUserResponse(u))
	}
	commonhttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !commonhttp.DecodeAndValidate(w, r, &req, "user creation failed") {
		return
	}

	user, err := h.users.Create(r.Context(), service.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Admin:    req.Admin,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			commonhttp.WriteError(w, http.StatusConflict, service.ErrEmailTaken.Error())
			return
		}
		h.log.Errorf("user creation failed: %v", err)
		commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), domain.ID(r.PathValue("id")))
	if err != nil {
		h.writeUserError(w, err, "user lookup failed")
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !commonhttp.DecodeAndValidate(w, r, &req, "user update failed") {
		return
	}

	user, err := h.users.Update(r.Context(), domain.ID(r.PathValue("id")), service.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Admin:    req.Admin,
	})
	if err != nil {
		h.writeUserError(w, err, "user update failed")
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), domain.ID(r.PathValue("id"))); err != nil {
		h.writeUserError(w, err, "user deletion failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), domain.ID(r.PathValue("id")))
	if err != nil {
		h.writeUserError(w, err, "user lookup failed")
		return
	}

	data, ok := accounthttp.ReadAvatarUpload(w, r)
	if !ok {
		return
	}

	url, err := h.account.UpdateAvatar(r.Context(), user, data)
	if err != nil {
		if errors.Is(err, accountservice.ErrUnsupportedImage) {
			commonhttp.WriteError(w, http.StatusBadRequest, accountservice.ErrUnsupportedImage.Error())
			return
		}
		h.log.Errorf("avatar update failed: %v", err)
		commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, avatarResponse{Avatar: url})
}

func (h *Handler) writeUserError(w http.ResponseWriter, err error, logMessage string) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		commonhttp.WriteError(w, http.StatusNotFound, service.ErrUserNotFound.Error())
	case errors.Is(err, service.ErrEmailTaken):
		commonhttp.WriteError(w, http.StatusConflict, service.ErrEmailTaken.Error())
	default:
		h.log.Errorf("%s: %v", logMessage, err)
		commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
