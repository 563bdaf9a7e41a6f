package http

import (
	"errors"
	"net/http"

	commonhttp "github.com/useraccounts/backend/internal/common/http"
	"github.com/useraccounts/backend/internal/common/logger"
	"github.com/useraccounts/backend/internal/token"

	"github.com/useraccounts/backend/internal/auth/service"
	"github.com/useraccounts/backend/internal/user/domain"
)

type Handler struct {
	auth *service.AuthService
	log  *logger.Logger
}

func NewHandler(auth *service.AuthService, log *logger.Logger) *Handler {
	return &Handler{auth: auth, log: log}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", h.handleRefresh)
	mux.HandleFunc("DELETE /api/auth/revoke", h.handleRevoke)
	mux.HandleFunc("POST /api/auth/password", h.handleForgotPassword)
	mux.HandleFunc("PUT /api/auth/password", h.handleResetPassword)
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=3,max=30"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=3,max=30"`
}

type userResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
	Avatar string `json:"avatar,omitempty"`
}

type loginResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
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

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !commonhttp.DecodeAndValidate(w, r, &req, "registration failed") {
		return
	}

	err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			commonhttp.WriteError(w, http.StatusConflict, service.ErrEmailTaken.Error())
			return
		}
		h.log.Errorf("registration failed: %v", err)
		commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !commonhttp.DecodeAndValidate(w, r, &req, "login failed") {
		return
	}

	user, pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			commonhttp.WriteError(w, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
			return
		}
		h.log.Errorf("login failed: %v", err)
		commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, loginResponse{
		User:         toUserResponse(user),
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !commonhttp.DecodeAndValidate(w, r, &req, "refresh failed") {
		return
	}

	access, err := h.auth.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeRefreshError(w, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, refreshResponse{AccessToken: access})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !commonhttp.DecodeAndValidate(w, r, &req, "revoke failed") {
		return
	}

	if err := h.auth.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		h.writeRefreshError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !commonhttp.DecodeAndValidate(w, r, &req, "password recovery failed") {
		return
	}

	err := h.auth.ForgotPassword(r.Context(), req.Email)
	if err != nil && !errors.Is(err, service.ErrEmailNotRegistered) {
		// An unknown email still gets a 204 so the endpoint cannot be used
		// to probe which accounts exist.
		h.log.Errorf("password recovery failed: %v", err)
		commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !commonhttp.DecodeAndValidate(w, r, &req, "password reset failed") {
		return
	}

	err := h.auth.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrResetTokenExpired):
			commonhttp.WriteError(w, http.StatusBadRequest, token.ErrResetTokenExpired.Error())
		case errors.Is(err, token.ErrResetTokenInvalid):
			commonhttp.WriteError(w, http.StatusBadRequest, token.ErrResetTokenInvalid.Error())
		case errors.Is(err, service.ErrAccountDeleted):
			commonhttp.WriteError(w, http.StatusBadRequest, service.ErrAccountDeleted.Error())
		default:
			h.log.Errorf("password reset failed: %v", err)
			commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeRefreshError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		commonhttp.WriteError(w, http.StatusUnauthorized, "refresh token has expired")
	case errors.Is(err, token.ErrTokenRevoked):
		commonhttp.WriteError(w, http.StatusUnauthorized, "refresh token has been revoked")
	case errors.Is(err, token.ErrTokenMalformed), errors.Is(err, token.ErrTokenSignatureInvalid):
		commonhttp.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
	case errors.Is(err, service.ErrAccountDeleted):
		commonhttp.WriteError(w, http.StatusUnauthorized, service.ErrAccountDeleted.Error())
	default:
		h.log.Errorf("refresh token operation failed: %v", err)
		commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
