package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/useraccounts/backend/internal/common/clock"
	"github.com/useraccounts/backend/internal/common/crypto"
	"github.com/useraccounts/backend/internal/common/logger"
	"github.com/useraccounts/backend/internal/token"
	"github.com/useraccounts/backend/internal/user/domain"
	"github.com/useraccounts/backend/internal/user/repository"
)

// Notifier delivers the password-recovery token to the account owner,
// typically through an asynchronous channel.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, resetToken string) error
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	Access  string
	Refresh string
}

type AuthService struct {
	users    repository.Repository
	tokens   *token.Service
	hasher   crypto.PasswordHasher
	ids      crypto.IDGenerator
	notifier Notifier
	clock    clock.Clock
	log      *logger.Logger
}

func NewAuthService(
	users repository.Repository,
	tokens *token.Service,
	hasher crypto.PasswordHasher,
	ids crypto.IDGenerator,
	notifier Notifier,
	clk clock.Clock,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		ids:      ids,
		notifier: notifier,
		clock:    clk,
		log:      log,
	}
}

// Register creates a non-admin account. It does not log the account in;
// the client follows up with a login request.
func (s *AuthService) Register(ctx context.Context, name, email, password string) error {
	id, err := s.ids.NewID()
	if err != nil {
		return fmt.Errorf("failed to generate user id: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	user := domain.User{
		ID:           domain.ID(id),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Admin:        false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailAlreadyInUse) {
			return ErrEmailTaken
		}
		return err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": id,
		"action":  "user_registered",
	}).Info("user registered")
	return nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return domain.User{}, TokenPair{}, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return domain.User{}, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "user_logged_in",
	}).Info("user logged in")
	return user, pair, nil
}

// RefreshAccessToken trades a live refresh token for a fresh access token.
// The user record is re-read so the embedded snapshot reflects current
// profile data and deleted accounts stop refreshing.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshBearer string) (string, error) {
	claims, err := s.tokens.VerifyRefresh(ctx, refreshBearer, true)
	if err != nil {
		return "", err
	}

	user, err := s.users.FindByID(ctx, domain.ID(claims.Subject))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrAccountDeleted
		}
		return "", err
	}

	return s.tokens.IssueAccess(user)
}

// RevokeRefreshToken denylists the presented refresh token. Other refresh
// tokens belonging to the same user stay valid.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshBearer string) error {
	return s.tokens.Revoke(ctx, refreshBearer)
}

// ForgotPassword issues a reset token for a registered email and hands it to
// the notifier. The token itself never appears in the response or the logs.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrEmailNotRegistered
		}
		return err
	}

	resetToken, err := s.tokens.IssueReset(ctx, user.Email)
	if err != nil {
		return err
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, resetToken); err != nil {
		return fmt.Errorf("failed to send reset notification: %w", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "password_reset_requested",
	}).Info("password reset requested")
	return nil
}

// ResetPassword sets a new password for the account named by a live reset
// token. The token is consumed only after the new password is written, so a
// failed write leaves the token usable for a retry.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	email, err := s.tokens.VerifyReset(ctx, resetToken)
	if err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrAccountDeleted
		}
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.clock.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if err := s.tokens.ConsumeReset(ctx, resetToken); err != nil {
		return err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "password_reset_completed",
	}).Info("password reset completed")
	return nil
}

func (s *AuthService) issuePair(user domain.User) (TokenPair, error) {
	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}
