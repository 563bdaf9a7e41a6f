package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/useraccounts/backend/internal/common/clock"
	"github.com/useraccounts/backend/internal/common/constants"
	"github.com/useraccounts/backend/internal/common/crypto"
	"github.com/useraccounts/backend/internal/common/logger"
	"github.com/useraccounts/backend/internal/storage"
	"github.com/useraccounts/backend/internal/user/domain"
	"github.com/useraccounts/backend/internal/user/repository"
)

var (
	// ErrPasswordRequired reports an email or password change submitted
	// without the current password.
	ErrPasswordRequired = errors.New("current password is required")

	// ErrPasswordMismatch reports a wrong current password on a profile
	// change.
	ErrPasswordMismatch = errors.New("current password is incorrect")

	// ErrEmailTaken reports a profile email change colliding with another
	// account.
	ErrEmailTaken = errors.New("email is already registered")

	// ErrUnsupportedImage reports an avatar upload that is not a supported
	// image format.
	ErrUnsupportedImage = errors.New("avatar must be a jpeg, png or gif image")
)

// ProfileUpdate carries the requested changes; empty fields keep their
// current values.
type ProfileUpdate struct {
	Name            string
	Email           string
	NewPassword     string
	CurrentPassword string
}

type AccountService struct {
	users  repository.Repository
	hasher crypto.PasswordHasher
	blobs  storage.BlobStore
	clock  clock.Clock
	log    *logger.Logger
}

func NewAccountService(
	users repository.Repository,
	hasher crypto.PasswordHasher,
	blobs storage.BlobStore,
	clk clock.Clock,
	log *logger.Logger,
) *AccountService {
	return &AccountService{
		users:  users,
		hasher: hasher,
		blobs:  blobs,
		clock:  clk,
		log:    log,
	}
}

// UpdateProfile applies a profile change for user. Changing the email or the
// password requires proving the current password first.
func (s *AccountService) UpdateProfile(ctx context.Context, user domain.User, update ProfileUpdate) (domain.User, error) {
	sensitive := (update.Email != "" && update.Email != user.Email) || update.NewPassword != ""
	if sensitive {
		if update.CurrentPassword == "" {
			return domain.User{}, ErrPasswordRequired
		}
		if err := s.hasher.Compare(user.PasswordHash, update.CurrentPassword); err != nil {
			return domain.User{}, ErrPasswordMismatch
		}
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
	if update.NewPassword != "" {
		hash, err := s.hasher.Hash(update.NewPassword)
		if err != nil {
			return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = s.clock.Now()
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailAlreadyInUse) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "profile_updated",
	}).Info("profile updated")
	return user, nil
}

// UpdateAvatar stores the uploaded image and persists its public URL on the
// user record. The previous object is overwritten in place since the key is
// derived from the user id.
func (s *AccountService) UpdateAvatar(ctx context.Context, user domain.User, data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	switch contentType {
	case "image/jpeg", "image/png", "image/gif":
	default:
		return "", ErrUnsupportedImage
	}

	key := AvatarKey(user.ID)
	if err := s.blobs.Save(ctx, key, data, contentType); err != nil {
		return "", err
	}

	url := s.blobs.URL(key)
	if err := s.users.UpdateAvatar(ctx, user.ID, url); err != nil {
		return "", err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "avatar_updated",
	}).Info("avatar updated")
	return url, nil
}

// AvatarKey returns the object key an avatar is stored under.
func AvatarKey(id domain.ID) string {
	return "avatars/" + string(id)
}

// MaxAvatarSize bounds avatar uploads.
const MaxAvatarSize = constants.MaxAvatarSizeBytes
