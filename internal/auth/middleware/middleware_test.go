package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useraccounts/backend/internal/common/clock"
	"github.com/useraccounts/backend/internal/common/crypto"
	"github.com/useraccounts/backend/internal/common/logger"
	"github.com/useraccounts/backend/internal/token"
	"github.com/useraccounts/backend/internal/user/domain"
	"github.com/useraccounts/backend/internal/user/repository"
)

type stubUsers struct {
	users map[domain.ID]domain.User
}

func (s *stubUsers) Create(context.Context, domain.User) error { return nil }

func (s *stubUsers) FindByID(_ context.Context, id domain.ID) (domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *stubUsers) FindByEmail(context.Context, string) (domain.User, error) {
	return domain.User{}, repository.ErrUserNotFound
}

func (s *stubUsers) EmailTaken(context.Context, string, domain.ID) (bool, error) {
	return false, nil
}

func (s *stubUsers) List(context.Context, repository.ListFilter) ([]domain.User, int, error) {
	return nil, 0, nil
}

func (s *stubUsers) Update(context.Context, domain.User) error { return nil }

func (s *stubUsers) UpdateAvatar(context.Context, domain.ID, string) error { return nil }

func (s *stubUsers) Delete(context.Context, domain.ID) error { return nil }

type noopRevocations struct{}

func (noopRevocations) Insert(context.Context, token.RevocationEntry) error { return nil }
func (noopRevocations) IsRevoked(context.Context, string) (bool, error)     { return false, nil }

type noopResets struct{}

func (noopResets) Create(context.Context, token.ResetToken) error { return nil }
func (noopResets) FindByToken(context.Context, string) (token.ResetToken, bool, error) {
	return token.ResetToken{}, false, nil
}
func (noopResets) Delete(context.Context, string) (bool, error) { return false, nil }

type fixture struct {
	mw     *Middleware
	tokens *token.Service
	users  *stubUsers
	clock  *clock.MockClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	tokens := token.NewService(token.Config{
		AccessSecret:  "0123456789abcdef0123456789abcdef",
		AccessTTL:     30 * time.Minute,
		RefreshSecret: "fedcba9876543210fedcba9876543210",
		RefreshTTL:    7 * 24 * time.Hour,
		ResetTTL:      30 * time.Minute,
	}, noopRevocations{}, noopResets{}, crypto.NewUUIDGenerator(), clk, logger.NewNop())

	users := &stubUsers{users: map[domain.ID]domain.User{
		"user-1":  {ID: "user-1", Name: "Alice", Email: "alice@example.com"},
		"admin-1": {ID: "admin-1", Name: "Root", Email: "root@example.com", Admin: true},
	}}

	return &fixture{
		mw:     New(tokens, users, logger.NewNop()),
		tokens: tokens,
		users:  users,
		clock:  clk,
	}
}

func (f *fixture) accessToken(t *testing.T, id domain.ID) string {
	t.Helper()
	bearer, err := f.tokens.IssueAccess(f.users.users[id])
	require.NoError(t, err)
	return bearer
}

func doRequest(handler http.HandlerFunc, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequireAuthMissingHeader(t *testing.T) {
	f := newFixture(t)
	rec := doRequest(f.mw.RequireAuth(okHandler), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "authorization token is required")
}

func TestRequireAuthInvalidToken(t *testing.T) {
	f := newFixture(t)
	rec := doRequest(f.mw.RequireAuth(okHandler), "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid access token")
}

func TestRequireAuthExpiredToken(t *testing.T) {
	f := newFixture(t)
	bearer := f.accessToken(t, "user-1")
	f.clock.Advance(31 * time.Minute)

	rec := doRequest(f.mw.RequireAuth(okHandler), bearer)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "access token has expired")
}

func TestRequireAuthDeletedAccount(t *testing.T) {
	f := newFixture(t)
	bearer := f.accessToken(t, "user-1")
	delete(f.users.users, "user-1")

	rec := doRequest(f.mw.RequireAuth(okHandler), bearer)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "your account has been deleted")
}

func TestRequireAuthInjectsUser(t *testing.T) {
	f := newFixture(t)

	var got domain.User
	handler := f.mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		got = user
		w.WriteHeader(http.StatusOK)
	})

	rec := doRequest(handler, f.accessToken(t, "user-1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ID("user-1"), got.ID)
}

func TestRequireAdmin(t *testing.T) {
	f := newFixture(t)

	rec := doRequest(f.mw.RequireAdmin(okHandler), f.accessToken(t, "user-1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(f.mw.RequireAdmin(okHandler), f.accessToken(t, "admin-1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
