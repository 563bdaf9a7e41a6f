package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/useraccounts/backend/internal/common/constants"
	"github.com/useraccounts/backend/internal/common/db"
	"github.com/useraccounts/backend/internal/token"
)

var errResetNotFound = errors.New("reset token not found")

// PgResetStore persists one-time password-reset tokens. Consumption is a
// DELETE keyed by token string; the affected-rows count decides the winner
// when consumers race.
type PgResetStore struct {
	pool *pgxpool.Pool
}

func NewPgResetStore(pool *pgxpool.Pool) *PgResetStore {
	return &PgResetStore{pool: pool}
}

func (r *PgResetStore) Create(ctx context.Context, t token.ResetToken) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reset_tokens (token, email, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		t.Token, t.Email, t.ExpiresAt, t.CreatedAt,
	)
	return db.HandleExecError(err, "insert reset token", start)
}

func (r *PgResetStore) FindByToken(ctx context.Context, tokenString string) (token.ResetToken, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	var t token.ResetToken
	err := r.pool.QueryRow(ctx,
		`SELECT token, email, expires_at, created_at FROM reset_tokens WHERE token = $1`,
		tokenString,
	).Scan(&t.Token, &t.Email, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		handled := db.HandleQueryError(err, errResetNotFound, "find reset token", start)
		if errors.Is(handled, errResetNotFound) {
			return token.ResetToken{}, false, nil
		}
		return token.ResetToken{}, false, handled
	}
	db.MeasureQueryDuration("find reset token", start)
	return t, true, nil
}

func (r *PgResetStore) Delete(ctx context.Context, tokenString string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	tag, err := r.pool.Exec(ctx, `DELETE FROM reset_tokens WHERE token = $1`, tokenString)
	if err := db.HandleExecError(err, "delete reset token", start); err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgResetStore) DeleteExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	tag, err := r.pool.Exec(ctx, `DELETE FROM reset_tokens WHERE expires_at <= NOW()`)
	if err := db.HandleExecError(err, "delete expired reset tokens", start); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
