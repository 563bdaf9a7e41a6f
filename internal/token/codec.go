package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/useraccounts/backend/internal/common/clock"
)

// codec signs and verifies claims with a single HS256 secret. The access and
// refresh token classes each get their own codec so that leaking one key
// space cannot forge the other.
type codec struct {
	secret []byte
	clock  clock.Clock
}

func newCodec(secret string, clk clock.Clock) *codec {
	return &codec{secret: []byte(secret), clock: clk}
}

func (c *codec) encode(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// decode parses and verifies a bearer string into claims, classifying
// failures into the package's closed error set.
func (c *codec) decode(bearer string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(
		bearer,
		claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return c.secret, nil
		},
		jwt.WithTimeFunc(c.clock.Now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case err != nil:
		// Unverifiable or otherwise structurally unusable.
		return ErrTokenMalformed
	case !parsed.Valid:
		return ErrTokenMalformed
	}
	return nil
}
