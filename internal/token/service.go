package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/useraccounts/backend/internal/common/clock"
	"github.com/useraccounts/backend/internal/common/constants"
	commoncrypto "github.com/useraccounts/backend/internal/common/crypto"
	"github.com/useraccounts/backend/internal/common/logger"
	"github.com/useraccounts/backend/internal/observability/metrics"
	"github.com/useraccounts/backend/internal/user/domain"
)

// RevocationStore is the durable set of revoked refresh-token identifiers.
// Insert must be idempotent: re-revoking an already-revoked token is a no-op.
type RevocationStore interface {
	Insert(ctx context.Context, entry RevocationEntry) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// ResetStore holds outstanding password-reset tokens. Delete must be atomic
// (single-statement delete keyed by token) so concurrent consumers cannot
// both succeed against the same token.
type ResetStore interface {
	Create(ctx context.Context, t ResetToken) error
	FindByToken(ctx context.Context, tokenString string) (ResetToken, bool, error)
	Delete(ctx context.Context, tokenString string) (bool, error)
}

type Config struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
}

// Service orchestrates the codec and the two stores. It holds no mutable
// state of its own; all shared state lives in the stores.
type Service struct {
	access      *codec
	refresh     *codec
	revocations RevocationStore
	resets      ResetStore
	ids         commoncrypto.IDGenerator
	clock       clock.Clock
	log         *logger.Logger
	cfg         Config
}

func NewService(
	cfg Config,
	revocations RevocationStore,
	resets ResetStore,
	ids commoncrypto.IDGenerator,
	clk clock.Clock,
	log *logger.Logger,
) *Service {
	return &Service{
		access:      newCodec(cfg.AccessSecret, clk),
		refresh:     newCodec(cfg.RefreshSecret, clk),
		revocations: revocations,
		resets:      resets,
		ids:         ids,
		clock:       clk,
		log:         log,
		cfg:         cfg,
	}
}

// IssueAccess builds an access token embedding a snapshot of the current
// user record. No store interaction.
func (s *Service) IssueAccess(user domain.User) (string, error) {
	now := s.clock.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
		User: snapshotOf(user),
	}

	bearer, err := s.access.encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	metrics.AccessTokensIssued.Inc()
	return bearer, nil
}

// VerifyAccess is stateless: access tokens are not individually revocable,
// their short TTL is the only mitigation for compromise.
func (s *Service) VerifyAccess(bearer string) (AccessClaims, error) {
	var claims AccessClaims
	if err := s.access.decode(bearer, &claims); err != nil {
		metrics.TokenVerificationFailures.WithLabelValues("access", failureKind(err)).Inc()
		return AccessClaims{}, err
	}
	return claims, nil
}

func (s *Service) IssueRefresh(user domain.User) (string, error) {
	jti, err := s.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("failed to generate refresh token id: %w", err)
	}

	now := s.clock.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTTL)),
		},
	}

	bearer, err := s.refresh.encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	metrics.RefreshTokensIssued.Inc()
	return bearer, nil
}

// VerifyRefresh decodes a refresh token and, when checkRevocation is set,
// rejects identifiers present in the revocation store. Revoke passes false
// so it can validate signature and expiry without tripping over its own
// earlier insert.
func (s *Service) VerifyRefresh(ctx context.Context, bearer string, checkRevocation bool) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := s.refresh.decode(bearer, &claims); err != nil {
		metrics.TokenVerificationFailures.WithLabelValues("refresh", failureKind(err)).Inc()
		return RefreshClaims{}, err
	}
	if claims.ID == "" {
		// A refresh token without a jti cannot be revoked, reject it outright.
		return RefreshClaims{}, ErrTokenMalformed
	}

	if checkRevocation {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return RefreshClaims{}, fmt.Errorf("failed to check revocation: %w", err)
		}
		if revoked {
			metrics.TokenVerificationFailures.WithLabelValues("refresh", failureKind(ErrTokenRevoked)).Inc()
			return RefreshClaims{}, ErrTokenRevoked
		}
	}

	return claims, nil
}

// Revoke denylists one refresh token until its natural expiry. A malformed
// or already-expired token cannot be meaningfully revoked and fails with the
// same classified errors as VerifyRefresh.
func (s *Service) Revoke(ctx context.Context, bearer string) error {
	claims, err := s.VerifyRefresh(ctx, bearer, false)
	if err != nil {
		return err
	}

	entry := RevocationEntry{
		JTI:       claims.ID,
		UserID:    claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: s.clock.Now(),
	}
	if err := s.revocations.Insert(ctx, entry); err != nil {
		return fmt.Errorf("failed to store revocation: %w", err)
	}

	metrics.RefreshTokensRevoked.Inc()
	s.log.WithFields(ctx, logger.Fields{
		"user_id": claims.Subject,
		"action":  "refresh_token_revoked",
	}).Info("refresh token revoked")
	return nil
}

// IssueReset creates a single-use password recovery token for email. Whether
// the email belongs to a real account is the caller's concern.
func (s *Service) IssueReset(ctx context.Context, email string) (string, error) {
	now := s.clock.Now()

	raw, err := newResetTokenString(now)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	t := ResetToken{
		Token:     raw,
		Email:     email,
		ExpiresAt: now.Add(s.cfg.ResetTTL),
		CreatedAt: now,
	}
	if err := s.resets.Create(ctx, t); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	metrics.ResetTokensIssued.Inc()
	return raw, nil
}

// VerifyReset is a read-only check: it does not consume the token and does
// not delete expired records (lazy expiry; the cleanup sweep handles
// storage hygiene).
func (s *Service) VerifyReset(ctx context.Context, tokenString string) (string, error) {
	t, found, err := s.resets.FindByToken(ctx, tokenString)
	if err != nil {
		return "", fmt.Errorf("failed to look up reset token: %w", err)
	}
	if !found {
		return "", ErrResetTokenInvalid
	}
	if !s.clock.Now().Before(t.ExpiresAt) {
		return "", ErrResetTokenExpired
	}
	return t.Email, nil
}

// ConsumeReset deletes the token; the delete is the consumption. Exactly one
// of any number of concurrent consumers succeeds.
func (s *Service) ConsumeReset(ctx context.Context, tokenString string) error {
	deleted, err := s.resets.Delete(ctx, tokenString)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	if !deleted {
		return ErrResetTokenInvalid
	}

	metrics.ResetTokensConsumed.Inc()
	return nil
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenSignatureInvalid):
		return "invalid_signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenRevoked):
		return "revoked"
	default:
		return "other"
	}
}

// newResetTokenString returns random hex with the issue-time unix seconds
// appended, so the issue moment is readable off the token during debugging.
func newResetTokenString(now time.Time) (string, error) {
	b := make([]byte, constants.ResetTokenRandSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b) + strconv.FormatInt(now.Unix(), 10), nil
}
