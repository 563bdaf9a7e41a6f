package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/useraccounts/backend/internal/common/constants"
	"github.com/useraccounts/backend/internal/common/db"
	"github.com/useraccounts/backend/internal/user/domain"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailAlreadyInUse = errors.New("email already in use")
)

type ListFilter struct {
	Limit  int
	Offset int
	IDs    []string
}

type Repository interface {
	Create(ctx context.Context, user domain.User) error
	FindByID(ctx context.Context, id domain.ID) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	EmailTaken(ctx context.Context, email string, excludeID domain.ID) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]domain.User, int, error)
	Update(ctx context.Context, user domain.User) error
	UpdateAvatar(ctx context.Context, id domain.ID, avatarURL string) error
	Delete(ctx context.Context, id domain.ID) error
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, admin, avatar, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Admin,
		&user.Avatar,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (r *PgRepository) Create(ctx context.Context, user domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO users (id, name, email, password_hash, admin, avatar, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		string(user.ID),
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Admin,
		user.Avatar,
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			db.MeasureQueryDuration("create user", start)
			return ErrEmailAlreadyInUse
		}
		return db.HandleExecError(err, "create user", start)
	}
	db.MeasureQueryDuration("create user", start)
	return nil
}

func (r *PgRepository) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	user, err := scanUser(r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		string(id),
	))
	if err := db.HandleQueryError(err, ErrUserNotFound, "find user by id", start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	user, err := scanUser(r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	))
	if err := db.HandleQueryError(err, ErrUserNotFound, "find user by email", start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgRepository) EmailTaken(ctx context.Context, email string, excludeID domain.ID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND id <> $2)`,
		email,
		string(excludeID),
	)

	var taken bool
	if err := row.Scan(&taken); err != nil {
		return false, db.HandleQueryError(err, nil, "check user email", start)
	}
	db.MeasureQueryDuration("check user email", start)
	return taken, nil
}

func (r *PgRepository) List(ctx context.Context, filter ListFilter) ([]domain.User, int, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 || limit > constants.MaxUsersFetchLimit {
		limit = constants.DefaultUsersFetchLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	start := time.Now()

	var total int
	countQuery := `SELECT COUNT(*) FROM users`
	listQuery := `SELECT ` + userColumns + ` FROM users ORDER BY name ASC LIMIT $1 OFFSET $2`
	args := []any{limit, offset}

	if len(filter.IDs) > 0 {
		countQuery = `SELECT COUNT(*) FROM users WHERE id = ANY($1)`
		listQuery = `SELECT ` + userColumns + ` FROM users WHERE id = ANY($3) ORDER BY name ASC LIMIT $1 OFFSET $2`
		args = append(args, filter.IDs)
		if err := r.pool.QueryRow(ctx, countQuery, filter.IDs).Scan(&total); err != nil {
			return nil, 0, db.HandleQueryError(err, nil, "count users", start)
		}
	} else {
		if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
			return nil, 0, db.HandleQueryError(err, nil, "count users", start)
		}
	}

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, db.HandleQueryError(err, nil, "list users", start)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, db.HandleQueryError(err, nil, "list users", start)
		}
		users = append(users, user)
	}
	if rows.Err() != nil {
		return nil, 0, db.HandleQueryError(rows.Err(), nil, "list users", start)
	}

	db.MeasureQueryDuration("list users", start)
	return users, total, nil
}

func (r *PgRepository) Update(ctx context.Context, user domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE users
		 SET name = $2, email = $3, password_hash = $4, admin = $5, avatar = $6, updated_at = $7
		 WHERE id = $1`,
		string(user.ID),
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Admin,
		user.Avatar,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			db.MeasureQueryDuration("update user", start)
			return ErrEmailAlreadyInUse
		}
		return db.HandleExecError(err, "update user", start)
	}
	db.MeasureQueryDuration("update user", start)
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgRepository) UpdateAvatar(ctx context.Context, id domain.ID, avatarURL string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE users SET avatar = $2, updated_at = NOW() WHERE id = $1`,
		string(id),
		avatarURL,
	)
	if err != nil {
		return db.HandleExecError(err, "update user avatar", start)
	}
	db.MeasureQueryDuration("update user avatar", start)
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id domain.ID) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	tag, err := r.pool.Exec(
		ctx,
		`DELETE FROM users WHERE id = $1`,
		string(id),
	)
	if err != nil {
		return db.HandleExecError(err, "delete user", start)
	}
	db.MeasureQueryDuration("delete user", start)
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
