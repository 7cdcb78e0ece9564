package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"videotube/backend/internal/account/domain"
)

// Pool is the subset of *pgxpool.Pool the repository needs. pgxmock.PgxPoolIface satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const accountColumns = `id, handle, email, full_name, avatar_url, cover_image_url, password_hash,
	COALESCE(refresh_token_hash, ''), created_at, updated_at`

// PostgresRepository implements Repository on the accounts table.
type PostgresRepository struct {
	pool Pool
}

// NewPostgresRepository returns an account repository backed by pool.
func NewPostgresRepository(pool Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetByHandleOrEmail returns the account whose handle or email equals identifier, ignoring case.
func (r *PostgresRepository) GetByHandleOrEmail(ctx context.Context, identifier string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
		WHERE lower(handle) = lower($1) OR lower(email) = lower($1)
		LIMIT 1`, identifier)
	a, err := scanAccount(row)
	if err != nil {
		return nil, wrapNotFound(err, "get account by handle or email")
	}
	return a, nil
}

// GetByID returns the account with id or ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if err != nil {
		return nil, wrapNotFound(err, "get account by id")
	}
	return a, nil
}

func (r *PostgresRepository) ExistsByHandleOrEmail(ctx context.Context, handle, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts
		WHERE lower(handle) = lower($1) OR lower(email) = lower($2))`, handle, email).Scan(&exists)
	if err != nil {
		return false, oops.With("operation", "check account exists").Wrap(err)
	}
	return exists, nil
}

// Create inserts a. A unique violation on handle or email is reported as ErrDuplicate.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO accounts
		(id, handle, email, full_name, avatar_url, cover_image_url, password_hash, refresh_token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)`,
		a.ID, a.Handle, a.Email, a.FullName, a.AvatarURL, a.CoverImageURL, a.PasswordHash,
		a.RefreshTokenHash, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return oops.With("operation", "create account").With("handle", a.Handle).Wrap(err)
	}
	return nil
}

func (r *PostgresRepository) UpdateDetails(ctx context.Context, id, fullName, email string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `UPDATE accounts SET full_name = $2, email = $3, updated_at = $4
		WHERE id = $1
		RETURNING `+accountColumns, id, fullName, email, time.Now().UTC())
	a, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, wrapNotFound(err, "update account details")
	}
	return a, nil
}

func (r *PostgresRepository) UpdateImages(ctx context.Context, id, avatarURL, coverImageURL string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `UPDATE accounts SET
		avatar_url = COALESCE(NULLIF($2, ''), avatar_url),
		cover_image_url = COALESCE(NULLIF($3, ''), cover_image_url),
		updated_at = $4
		WHERE id = $1
		RETURNING `+accountColumns, id, avatarURL, coverImageURL, time.Now().UTC())
	a, err := scanAccount(row)
	if err != nil {
		return nil, wrapNotFound(err, "update account images")
	}
	return a, nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string, revokeSession bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET password_hash = $2,
		refresh_token_hash = CASE WHEN $3 THEN NULL ELSE refresh_token_hash END,
		updated_at = $4
		WHERE id = $1`, id, hash, revokeSession, time.Now().UTC())
	return rowsAffected(tag, err, "update password hash")
}

func (r *PostgresRepository) UpdateRefreshReference(ctx context.Context, id, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET refresh_token_hash = $2, updated_at = $3 WHERE id = $1`,
		id, hash, time.Now().UTC())
	return rowsAffected(tag, err, "update refresh reference")
}

// SwapRefreshReference is a single conditional UPDATE, so two concurrent
// rotations of the same token cannot both succeed.
func (r *PostgresRepository) SwapRefreshReference(ctx context.Context, id, expected, next string) (bool, error) {
	if expected == "" {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET refresh_token_hash = $3, updated_at = $4
		WHERE id = $1 AND refresh_token_hash = $2`, id, expected, next, time.Now().UTC())
	if err != nil {
		return false, oops.With("operation", "swap refresh reference").With("account_id", id).Wrap(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) ClearRefreshReference(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET refresh_token_hash = NULL, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
	return rowsAffected(tag, err, "clear refresh reference")
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Handle, &a.Email, &a.FullName, &a.AvatarURL, &a.CoverImageURL,
		&a.PasswordHash, &a.RefreshTokenHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func wrapNotFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return oops.With("operation", op).Wrap(err)
}

func rowsAffected(tag pgconn.CommandTag, err error, op string) error {
	if err != nil {
		return oops.With("operation", op).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
