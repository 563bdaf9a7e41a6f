package service

import (
	"context"
	"sync"
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

type memUsers struct {
	mu    sync.Mutex
	users map[domain.ID]domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[domain.ID]domain.User)}
}

func (m *memUsers) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailAlreadyInUse
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id domain.ID) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrUserNotFound
}

func (m *memUsers) EmailTaken(_ context.Context, email string, excludeID domain.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) List(_ context.Context, filter repository.ListFilter) ([]domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, u)
	}
	return all, len(all), nil
}

func (m *memUsers) Update(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) UpdateAvatar(_ context.Context, id domain.ID, avatarURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.Avatar = avatarURL
	m.users[id] = user
	return nil
}

func (m *memUsers) Delete(_ context.Context, id domain.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

type memRevocations struct {
	mu      sync.Mutex
	entries map[string]token.RevocationEntry
}

func (m *memRevocations) Insert(_ context.Context, entry token.RevocationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]token.RevocationEntry)
	}
	m.entries[entry.JTI] = entry
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, revoked := m.entries[jti]
	return revoked, nil
}

type memResets struct {
	mu     sync.Mutex
	tokens map[string]token.ResetToken
}

func (m *memResets) Create(_ context.Context, t token.ResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = make(map[string]token.ResetToken)
	}
	m.tokens[t.Token] = t
	return nil
}

func (m *memResets) FindByToken(_ context.Context, tokenString string) (token.ResetToken, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenString]
	return t, ok, nil
}

func (m *memResets) Delete(_ context.Context, tokenString string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[tokenString]; !ok {
		return false, nil
	}
	delete(m.tokens, tokenString)
	return true, nil
}

type captureNotifier struct {
	mu     sync.Mutex
	emails []string
	tokens []string
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, email, resetToken string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, email)
	n.tokens = append(n.tokens, resetToken)
	return nil
}

func (n *captureNotifier) lastToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.tokens)
	return n.tokens[len(n.tokens)-1]
}

type authFixture struct {
	auth     *AuthService
	users    *memUsers
	notifier *captureNotifier
	clock    *clock.MockClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	users := newMemUsers()
	notifier := &captureNotifier{}
	log := logger.NewNop()

	tokens := token.NewService(token.Config{
		AccessSecret:  "0123456789abcdef0123456789abcdef",
		AccessTTL:     30 * time.Minute,
		RefreshSecret: "fedcba9876543210fedcba9876543210",
		RefreshTTL:    7 * 24 * time.Hour,
		ResetTTL:      30 * time.Minute,
	}, &memRevocations{}, &memResets{}, crypto.NewUUIDGenerator(), clk, log)

	auth := NewAuthService(users, tokens, &crypto.BcryptHasher{}, crypto.NewUUIDGenerator(), notifier, clk, log)
	return &authFixture{auth: auth, users: users, notifier: notifier, clock: clk}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.Register(ctx, "Alice", "alice@example.com", "secret"))

	user, pair, err := f.auth.Login(ctx, "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.False(t, user.Admin)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.Register(ctx, "Alice", "alice@example.com", "secret"))
	err := f.auth.Register(ctx, "Other", "alice@example.com", "secret2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.Register(ctx, "Alice", "alice@example.com", "secret"))

	_, _, err := f.auth.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.auth.Login(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.Register(ctx, "Alice", "alice@example.com", "secret"))
	_, pair, err := f.auth.Login(ctx, "alice@example.com", "secret")
	require.NoError(t, err)

	access, err := f.auth.RefreshAccessToken(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
}

func TestRefreshAfterRevokeFails(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.Register(ctx, "Alice", "alice@example.com", "secret"))
	_, pair, err := f.auth.Login(ctx, "alice@example.com", "secret")
	require.NoError(t, err)

	require.NoError(t, f.auth.RevokeRefreshToken(ctx, pair.Refresh))

	_, err = f.auth.RefreshAccessToken(ctx, pair.Refresh)
	assert.ErrorIs(t, err, token.ErrTokenRevoked)
}

func TestRefreshForDeletedAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.Register(ctx, "Alice", "alice@example.com", "secret"))
	user, pair, err := f.auth.Login(ctx, "alice@example.com", "secret")
	require.NoError(t, err)

	require.NoError(t, f.users.Delete(ctx, user.ID))

	_, err = f.auth.RefreshAccessToken(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrAccountDeleted)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	err := f.auth.ForgotPassword(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrEmailNotRegistered)
}

func TestPasswordRecoveryFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.Register(ctx, "Alice", "alice@example.com", "old-password"))
	require.NoError(t, f.auth.ForgotPassword(ctx, "alice@example.com"))

	resetToken := f.notifier.lastToken(t)
	require.NoError(t, f.auth.ResetPassword(ctx, resetToken, "new-password"))

	_, _, err := f.auth.Login(ctx, "alice@example.com", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.auth.Login(ctx, "alice@example.com", "new-password")
	assert.NoError(t, err)
}

func TestResetPasswordConsumesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.Register(ctx, "Alice", "alice@example.com", "old-password"))
	require.NoError(t, f.auth.ForgotPassword(ctx, "alice@example.com"))

	resetToken := f.notifier.lastToken(t)
	require.NoError(t, f.auth.ResetPassword(ctx, resetToken, "new-password"))

	err := f.auth.ResetPassword(ctx, resetToken, "another-password")
	assert.ErrorIs(t, err, token.ErrResetTokenInvalid)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.Register(ctx, "Alice", "alice@example.com", "old-password"))
	require.NoError(t, f.auth.ForgotPassword(ctx, "alice@example.com"))

	f.clock.Advance(31 * time.Minute)

	resetToken := f.notifier.lastToken(t)
	err := f.auth.ResetPassword(ctx, resetToken, "new-password")
	assert.ErrorIs(t, err, token.ErrResetTokenExpired)
}
