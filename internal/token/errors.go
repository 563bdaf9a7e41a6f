package token

import "errors"

// Verification failures form a closed set so callers can choose distinct
// user-facing messages per cause.
var (
	// ErrTokenMalformed reports a bearer string that cannot be parsed into
	// the expected structure.
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrTokenSignatureInvalid reports a tampered token or one signed with a
	// different secret.
	ErrTokenSignatureInvalid = errors.New("token signature is invalid")

	// ErrTokenExpired reports a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenRevoked reports a refresh token whose identifier is present in
	// the revocation store.
	ErrTokenRevoked = errors.New("refresh token has been revoked")

	// ErrResetTokenInvalid reports an unknown or already-consumed password
	// reset token.
	ErrResetTokenInvalid = errors.New("reset token is invalid")

	// ErrResetTokenExpired reports a known reset token past its expiry.
	ErrResetTokenExpired = errors.New("reset token has expired")
)
