package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/useraccounts/backend/internal/common/constants"
	"github.com/useraccounts/backend/internal/common/db"
	"github.com/useraccounts/backend/internal/token"
)

// PgRevocationStore persists revoked refresh-token identifiers. Rows are kept
// until the underlying token would have expired anyway; DeleteExpired prunes
// the rest.
type PgRevocationStore struct {
	pool *pgxpool.Pool
}

func NewPgRevocationStore(pool *pgxpool.Pool) *PgRevocationStore {
	return &PgRevocationStore{pool: pool}
}

func (r *PgRevocationStore) Insert(ctx context.Context, entry token.RevocationEntry) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO revoked_tokens (jti, user_id, expires_at, revoked_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (jti) DO NOTHING`,
		entry.JTI, entry.UserID, entry.ExpiresAt, entry.RevokedAt,
	)
	return db.HandleExecError(err, "insert revoked token", start)
}

func (r *PgRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	var revoked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)`, jti,
	).Scan(&revoked)
	if err := db.HandleQueryError(err, nil, "check revoked token", start); err != nil {
		return false, err
	}
	return revoked, nil
}

func (r *PgRevocationStore) DeleteExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	tag, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= NOW()`)
	if err := db.HandleExecError(err, "delete expired revoked tokens", start); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
