package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/useraccounts/backend/internal/user/domain"
)

// UserSnapshot is the point-in-time copy of the user embedded in access
// tokens. It lets consumers skip a user lookup per request and is allowed to
// go stale until the token expires or is reissued.
type UserSnapshot struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
	Avatar string `json:"avatar,omitempty"`
}

type AccessClaims struct {
	jwt.RegisteredClaims
	User UserSnapshot `json:"user"`
}

// RefreshClaims carries only the subject and a unique identifier (jti); the
// jti is what the revocation store keys on, so two refresh tokens for the
// same user are independently revocable.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

func snapshotOf(user domain.User) UserSnapshot {
	return UserSnapshot{
		ID:     string(user.ID),
		Name:   user.Name,
		Email:  user.Email,
		Admin:  user.Admin,
		Avatar: user.Avatar,
	}
}

// RevocationEntry records one explicitly revoked refresh token. Entries are
// never updated; the cleanup sweep deletes them once expires_at passes.
type RevocationEntry struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
	RevokedAt time.Time
}

// ResetToken is a single-use password recovery token. Deletion is the
// consumption: there is no "used" flag.
type ResetToken struct {
	Token     string
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
