package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useraccounts/backend/internal/common/clock"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestCodecRoundTrip(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := newCodec(testSecret, clk)

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(clk.Now()),
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(30 * time.Minute)),
		},
		User: UserSnapshot{ID: "user-1", Name: "Alice", Email: "alice@example.com", Admin: true},
	}

	bearer, err := c.encode(claims)
	require.NoError(t, err)
	require.NotEmpty(t, bearer)

	var decoded AccessClaims
	require.NoError(t, c.decode(bearer, &decoded))
	assert.Equal(t, "user-1", decoded.Subject)
	assert.Equal(t, "alice@example.com", decoded.User.Email)
	assert.True(t, decoded.User.Admin)
}

func TestCodecWrongSecret(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := newCodec(testSecret, clk)
	other := newCodec("fedcba9876543210fedcba9876543210", clk)

	bearer, err := c.encode(RefreshClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ID:        "jti-1",
		ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
	}})
	require.NoError(t, err)

	var decoded RefreshClaims
	err = other.decode(bearer, &decoded)
	assert.ErrorIs(t, err, ErrTokenSignatureInvalid)
}

func TestCodecGarbageInput(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	c := newCodec(testSecret, clk)

	for _, bearer := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		var decoded AccessClaims
		assert.ErrorIs(t, c.decode(bearer, &decoded), ErrTokenMalformed, "input %q", bearer)
	}
}

func TestCodecExpired(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := newCodec(testSecret, clk)

	bearer, err := c.encode(AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(clk.Now().Add(30 * time.Minute)),
	}})
	require.NoError(t, err)

	clk.Advance(31 * time.Minute)

	var decoded AccessClaims
	assert.ErrorIs(t, c.decode(bearer, &decoded), ErrTokenExpired)
}

func TestCodecWrongSecretAndExpired(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := newCodec(testSecret, clk)
	other := newCodec("fedcba9876543210fedcba9876543210", clk)

	bearer, err := c.encode(AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Minute)),
	}})
	require.NoError(t, err)

	clk.Advance(time.Hour)

	// Signature verification runs before claims validation.
	var decoded AccessClaims
	assert.ErrorIs(t, other.decode(bearer, &decoded), ErrTokenSignatureInvalid)
}
