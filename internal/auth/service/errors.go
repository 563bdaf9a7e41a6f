package service

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses do not reveal which accounts exist.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken reports a registration attempt with an email that
	// already belongs to an account.
	ErrEmailTaken = errors.New("email is already registered")

	// ErrEmailNotRegistered reports a password-recovery request for an
	// email with no account.
	ErrEmailNotRegistered = errors.New("email is not registered")

	// ErrAccountDeleted reports a token whose subject no longer exists.
	ErrAccountDeleted = errors.New("account has been deleted")
)
