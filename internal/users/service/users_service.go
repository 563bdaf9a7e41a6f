package service

import (
	"context"
	"errors"
	"fmt"

	accountservice "github.com/useraccounts/backend/internal/account/service"
	"github.com/useraccounts/backend/internal/common/clock"
	"github.com/useraccounts/backend/internal/common/crypto"
	"github.com/useraccounts/backend/internal/common/logger"
	"github.com/useraccounts/backend/internal/storage"
	"github.com/useraccounts/backend/internal/user/domain"
	"github.com/useraccounts/backend/internal/user/repository"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email is already registered")
)

// NewUser describes an account created by an administrator.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Admin    bool
}

// UserUpdate carries admin-side changes; empty string fields keep their
// current values, Admin always applies.
type UserUpdate struct {
	Name     string
	Email    string
	Password string
	Admin    bool
}

// UsersService implements the administrative account operations.
type UsersService struct {
	users  repository.Repository
	hasher crypto.PasswordHasher
	ids    crypto.IDGenerator
	blobs  storage.BlobStore
	clock  clock.Clock
	log    *logger.Logger
}

func NewUsersService(
	users repository.Repository,
	hasher crypto.PasswordHasher,
	ids crypto.IDGenerator,
	blobs storage.BlobStore,
	clk clock.Clock,
	log *logger.Logger,
) *UsersService {
	return &UsersService{
		users:  users,
		hasher: hasher,
		ids:    ids,
		blobs:  blobs,
		clock:  clk,
		log:    log,
	}
}

// List returns a page of accounts plus the total count for the filter.
func (s *UsersService) List(ctx context.Context, filter repository.ListFilter) ([]domain.User, int, error) {
	return s.users.List(ctx, filter)
}

func (s *UsersService) Get(ctx context.Context, id domain.ID) (domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *UsersService) Create(ctx context.Context, nu NewUser) (domain.User, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to generate user id: %w", err)
	}

	hash, err := s.hasher.Hash(nu.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	user := domain.User{
		ID:           domain.ID(id),
		Name:         nu.Name,
		Email:        nu.Email,
		PasswordHash: hash,
		Admin:        nu.Admin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailAlreadyInUse) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": id,
		"action":  "user_created_by_admin",
	}).Info("user created")
	return user, nil
}

func (s *UsersService) Update(ctx context.Context, id domain.ID, update UserUpdate) (domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	if update.Name != "" {
		user.Name = update.Name
	}
	if update.Email != "" && update.Email != user.Email {
		taken, err := s.users.EmailTaken(ctx, update.Email, user.ID)
		if err != nil {
			return domain.User{}, err
		}
		if taken {
			return domain.User{}, ErrEmailTaken
		}
		user.Email = update.Email
	}
	if update.Password != "" {
		hash, err := s.hasher.Hash(update.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	user.Admin = update.Admin

	user.UpdatedAt = s.clock.Now()
	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return domain.User{}, ErrUserNotFound
		case errors.Is(err, repository.ErrEmailAlreadyInUse):
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	return user, nil
}

// Delete removes the account and its avatar object. A failed avatar delete
// only logs: the row removal is what revokes access, the orphaned object is
// harmless.
func (s *UsersService) Delete(ctx context.Context, id domain.ID) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if user.Avatar != "" {
		if err := s.blobs.Delete(ctx, accountservice.AvatarKey(user.ID)); err != nil {
			s.log.WithFields(ctx, logger.Fields{
				"user_id": string(user.ID),
			}).Warnf("failed to delete avatar object: %v", err)
		}
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(id),
		"action":  "user_deleted_by_admin",
	}).Info("user deleted")
	return nil
}
