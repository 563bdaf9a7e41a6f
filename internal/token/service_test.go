package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useraccounts/backend/internal/common/clock"
	"github.com/useraccounts/backend/internal/common/crypto"
	"github.com/useraccounts/backend/internal/common/logger"
	"github.com/useraccounts/backend/internal/user/domain"
)

type memRevocations struct {
	mu        sync.Mutex
	entries   map[string]RevocationEntry
	insertErr error
	checkErr  error
}

func newMemRevocations() *memRevocations {
	return &memRevocations{entries: make(map[string]RevocationEntry)}
}

func (m *memRevocations) Insert(_ context.Context, entry RevocationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, exists := m.entries[entry.JTI]; !exists {
		m.entries[entry.JTI] = entry
	}
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.checkErr != nil {
		return false, m.checkErr
	}
	_, revoked := m.entries[jti]
	return revoked, nil
}

func (m *memRevocations) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type memResets struct {
	mu      sync.Mutex
	tokens  map[string]ResetToken
	findErr error
}

func newMemResets() *memResets {
	return &memResets{tokens: make(map[string]ResetToken)}
}

func (m *memResets) Create(_ context.Context, t ResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.Token] = t
	return nil
}

func (m *memResets) FindByToken(_ context.Context, tokenString string) (ResetToken, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return ResetToken{}, false, m.findErr
	}
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

func testUser() domain.User {
	return domain.User{
		ID:    "user-1",
		Name:  "Alice",
		Email: "alice@example.com",
		Admin: false,
	}
}

func newTestService(t *testing.T) (*Service, *memRevocations, *memResets, *clock.MockClock) {
	t.Helper()
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	revocations := newMemRevocations()
	resets := newMemResets()
	svc := NewService(Config{
		AccessSecret:  "0123456789abcdef0123456789abcdef",
		AccessTTL:     30 * time.Minute,
		RefreshSecret: "fedcba9876543210fedcba9876543210",
		RefreshTTL:    7 * 24 * time.Hour,
		ResetTTL:      30 * time.Minute,
	}, revocations, resets, crypto.NewUUIDGenerator(), clk, logger.NewNop())
	return svc, revocations, resets, clk
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	bearer, err := svc.IssueAccess(testUser())
	require.NoError(t, err)

	claims, err := svc.VerifyAccess(bearer)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.User.Email)
}

func TestAccessTokenExpires(t *testing.T) {
	svc, _, _, clk := newTestService(t)

	bearer, err := svc.IssueAccess(testUser())
	require.NoError(t, err)

	clk.Advance(29 * time.Minute)
	_, err = svc.VerifyAccess(bearer)
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	_, err = svc.VerifyAccess(bearer)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	bearer, err := svc.IssueRefresh(testUser())
	require.NoError(t, err)

	claims, err := svc.VerifyRefresh(ctx, bearer, true)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestRefreshTokensGetDistinctIdentifiers(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.IssueRefresh(testUser())
	require.NoError(t, err)
	second, err := svc.IssueRefresh(testUser())
	require.NoError(t, err)

	firstClaims, err := svc.VerifyRefresh(ctx, first, true)
	require.NoError(t, err)
	secondClaims, err := svc.VerifyRefresh(ctx, second, true)
	require.NoError(t, err)
	assert.NotEqual(t, firstClaims.ID, secondClaims.ID)
}

func TestRevokeAffectsOnlyThatToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	user := testUser()

	revoked, err := svc.IssueRefresh(user)
	require.NoError(t, err)
	kept, err := svc.IssueRefresh(user)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, revoked))

	_, err = svc.VerifyRefresh(ctx, revoked, true)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = svc.VerifyRefresh(ctx, kept, true)
	assert.NoError(t, err)
}

func TestRevokeIsIdempotent(t *testing.T) {
	svc, revocations, _, _ := newTestService(t)
	ctx := context.Background()

	bearer, err := svc.IssueRefresh(testUser())
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, bearer))
	require.NoError(t, svc.Revoke(ctx, bearer))
	require.NoError(t, svc.Revoke(ctx, bearer))

	assert.Equal(t, 1, revocations.size())
}

func TestRevokeRejectsUnusableTokens(t *testing.T) {
	svc, revocations, _, clk := newTestService(t)
	ctx := context.Background()

	err := svc.Revoke(ctx, "garbage")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	bearer, err := svc.IssueRefresh(testUser())
	require.NoError(t, err)
	clk.Advance(8 * 24 * time.Hour)

	err = svc.Revoke(ctx, bearer)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, 0, revocations.size())
}

func TestVerifyRefreshSkipsRevocationCheckOnDemand(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	bearer, err := svc.IssueRefresh(testUser())
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, bearer))

	_, err = svc.VerifyRefresh(ctx, bearer, true)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = svc.VerifyRefresh(ctx, bearer, false)
	assert.NoError(t, err)
}

func TestRevocationStoreErrorIsNotRevoked(t *testing.T) {
	svc, revocations, _, _ := newTestService(t)
	ctx := context.Background()

	bearer, err := svc.IssueRefresh(testUser())
	require.NoError(t, err)

	revocations.checkErr = errors.New("connection refused")
	_, err = svc.VerifyRefresh(ctx, bearer, true)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenRevoked)
	assert.NotErrorIs(t, err, ErrTokenMalformed)
}

func TestResetTokenRoundTrip(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	raw, err := svc.IssueReset(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	email, err := svc.VerifyReset(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	// Verify does not consume.
	email, err = svc.VerifyReset(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	require.NoError(t, svc.ConsumeReset(ctx, raw))

	_, err = svc.VerifyReset(ctx, raw)
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
	assert.ErrorIs(t, svc.ConsumeReset(ctx, raw), ErrResetTokenInvalid)
}

func TestResetTokensAreUnique(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.IssueReset(ctx, "alice@example.com")
	require.NoError(t, err)
	second, err := svc.IssueReset(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestResetTokenExpiryBoundaryIsInclusive(t *testing.T) {
	svc, _, resets, clk := newTestService(t)
	ctx := context.Background()

	raw, err := svc.IssueReset(ctx, "alice@example.com")
	require.NoError(t, err)

	// Exactly at expires_at the token is already expired.
	clk.Advance(30 * time.Minute)
	_, err = svc.VerifyReset(ctx, raw)
	assert.ErrorIs(t, err, ErrResetTokenExpired)

	// Expired tokens are not deleted by verification.
	_, found, err := resets.FindByToken(ctx, raw)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestConsumeResetExactlyOnceUnderContention(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	raw, err := svc.IssueReset(ctx, "alice@example.com")
	require.NoError(t, err)

	const attempts = 100
	results := make(chan error, attempts)
	var start sync.WaitGroup
	start.Add(1)

	for i := 0; i < attempts; i++ {
		go func() {
			start.Wait()
			results <- svc.ConsumeReset(ctx, raw)
		}()
	}
	start.Done()

	var successes, invalids int
	for i := 0; i < attempts; i++ {
		err := <-results
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrResetTokenInvalid):
			invalids++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, invalids)
}

func TestResetStoreErrorIsNotInvalid(t *testing.T) {
	svc, _, resets, _ := newTestService(t)
	ctx := context.Background()

	raw, err := svc.IssueReset(ctx, "alice@example.com")
	require.NoError(t, err)

	resets.findErr = errors.New("connection refused")
	_, err = svc.VerifyReset(ctx, raw)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrResetTokenInvalid)
	assert.NotErrorIs(t, err, ErrResetTokenExpired)
}

func TestAccessAndRefreshSecretsAreIndependent(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	access, err := svc.IssueAccess(testUser())
	require.NoError(t, err)
	refresh, err := svc.IssueRefresh(testUser())
	require.NoError(t, err)

	_, err = svc.VerifyRefresh(ctx, access, true)
	assert.ErrorIs(t, err, ErrTokenSignatureInvalid)

	_, err = svc.VerifyAccess(refresh)
	assert.ErrorIs(t, err, ErrTokenSignatureInvalid)
}
