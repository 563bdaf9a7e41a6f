package middleware

import (
	"context"
	"errors"
	"net/http"

	commonhttp "github.com/useraccounts/backend/internal/common/http"
	"github.com/useraccounts/backend/internal/common/logger"
	"github.com/useraccounts/backend/internal/token"
	"github.com/useraccounts/backend/internal/user/domain"
	"github.com/useraccounts/backend/internal/user/repository"
)

type userKeyType struct{}

var userKey userKeyType

// Middleware authenticates requests with an access token and loads the
// current user record behind it.
type Middleware struct {
	tokens *token.Service
	users  repository.Repository
	log    *logger.Logger
}

func New(tokens *token.Service, users repository.Repository, log *logger.Logger) *Middleware {
	return &Middleware{tokens: tokens, users: users, log: log}
}

// RequireAuth rejects requests without a live access token. The claims
// snapshot identifies the user, but the record is re-read so handlers see
// current data and deleted accounts are turned away.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bearer := commonhttp.ParseBearerToken(r)
		if bearer == "" {
			commonhttp.WriteError(w, http.StatusUnauthorized, "authorization token is required")
			return
		}

		claims, err := m.tokens.VerifyAccess(bearer)
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				commonhttp.WriteError(w, http.StatusUnauthorized, "access token has expired")
				return
			}
			commonhttp.WriteError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		user, err := m.users.FindByID(r.Context(), domain.ID(claims.Subject))
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				commonhttp.WriteError(w, http.StatusUnauthorized, "your account has been deleted")
				return
			}
			m.log.WithFields(r.Context(), logger.Fields{
				"user_id": claims.Subject,
			}).Errorf("failed to load authenticated user: %v", err)
			commonhttp.WriteError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	}
}

// RequireAdmin gates a handler to admin accounts. Must run inside
// RequireAuth.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || !user.Admin {
			commonhttp.WriteError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	})
}

func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userKey).(domain.User)
	return user, ok
}
