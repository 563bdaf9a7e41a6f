package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/useraccounts/backend/internal/account/service"
	"github.com/useraccounts/backend/internal/auth/middleware"
	commonhttp "github.com/useraccounts/backend/internal/common/http"
	"github.com/useraccounts/backend/internal/common/logger"
	"github.com/useraccounts/backend/internal/user/domain"
)

type Handler struct {
	account *service.AccountService
	mw      *middleware.Middleware
	log     *logger.Logger
}

func NewHandler(account *service.AccountService, mw *middleware.Middleware, log *logger.Logger) *Handler {
	return &Handler{account: account, mw: mw, log: log}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/account", h.mw.RequireAuth(h.handleGetProfile))
	mux.HandleFunc("PUT /api/account", h.mw.RequireAuth(h.handleUpdateProfile))
	mux.HandleFunc("PUT /api/account/avatar", h.mw.RequireAuth(h.handleUpdateAvatar))
}

type updateProfileRequest struct {
	Name            string `json:"name" validate:"omitempty,min=3,max=30"`
	Email           string `json:"email" validate:"omitempty,email"`
	NewPassword     string `json:"newPassword" validate:"omitempty,min=3,max=30"`
	CurrentPassword string `json:"currentPassword"`
}

type profileResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
	Avatar string `json:"avatar,omitempty"`
}

type avatarResponse struct {
	Avatar string `json:"avatar"`
}

func toProfileResponse(u domain.User) profileResponse {
	return profileResponse{
		ID:     string(u.ID),
		Name:   u.Name,
		Email:  u.Email,
		Admin:  u.Admin,
		Avatar: u.Avatar,
	}
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "authorization token is required")
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, toProfileResponse(user))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "authorization token is required")
		return
	}

	var req updateProfileRequest
	if !commonhttp.DecodeAndValidate(w, r, &req, "profile update failed") {
		return
	}

	updated, err := h.account.UpdateProfile(r.Context(), user, service.ProfileUpdate{
		Name:            req.Name,
		Email:           req.Email,
		NewPassword:     req.NewPassword,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordRequired):
			commonhttp.WriteError(w, http.StatusBadRequest, service.ErrPasswordRequired.Error())
		case errors.Is(err, service.ErrPasswordMismatch):
			commonhttp.WriteError(w, http.StatusForbidden, service.ErrPasswordMismatch.Error())
		case errors.Is(err, service.ErrEmailTaken):
			commonhttp.WriteError(w, http.StatusConflict, service.ErrEmailTaken.Error())
		default:
			h.log.Errorf("profile update failed: %v", err)
			commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, toProfileResponse(updated))
}

func (h *Handler) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		commonhttp.WriteError(w, http.StatusUnauthorized, "authorization token is required")
		return
	}

	data, ok := ReadAvatarUpload(w, r)
	if !ok {
		return
	}

	url, err := h.account.UpdateAvatar(r.Context(), user, data)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedImage) {
			commonhttp.WriteError(w, http.StatusBadRequest, service.ErrUnsupportedImage.Error())
			return
		}
		h.log.Errorf("avatar update failed: %v", err)
		commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, avatarResponse{Avatar: url})
}

// ReadAvatarUpload pulls the "image" part out of a multipart form, bounded by
// the avatar size limit. Writes its own error responses.
func ReadAvatarUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxAvatarSize)
	if err := r.ParseMultipartForm(service.MaxAvatarSize); err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "image file is required")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		commonhttp.WriteError(w, http.StatusBadRequest, "failed to read image file")
		return nil, false
	}
	return data, true
}
