package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronocap/chronocap-backend/internal/apperr"
)

// User is a platform account. Password hash, refresh token and
// verification state never leave this package in serialized form.
type User struct {
	ID                    string
	Email                 string
	Name                  *string
	PasswordHash          string
	RefreshToken          *string
	RefreshTokenExpiresAt *time.Time
	EmailVerifiedAt       *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const userCols = `id::text, email, name, password_hash, refresh_token, refresh_token_expires_at, email_verified_at, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, email, passwordHash string, name *string) (*User, error) {
	const q = `
insert into users (email, password_hash, name)
values ($1, $2, $3)
returning ` + userCols + `;
`
	u, err := scanUser(r.db.QueryRow(ctx, q, email, passwordHash, name))
	if err != nil {
		// unique violation on email
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.ErrConflict
		}
		return nil, err
	}
	return u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	const q = `select ` + userCols + ` from users where email = $1;`
	return r.get(ctx, q, email)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	const q = `select ` + userCols + ` from users where id = $1::uuid;`
	return r.get(ctx, q, id)
}

// UpdateRefreshToken stores the current refresh token and its expiry;
// nil token revokes it.
func (r *Repo) UpdateRefreshToken(ctx context.Context, id string, token *string, expiresAt *time.Time) error {
	const q = `
update users
set refresh_token = $2, refresh_token_expires_at = $3, updated_at = now()
where id = $1::uuid;
`
	ct, err := r.db.Exec(ctx, q, id, token, expiresAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *Repo) MarkEmailVerified(ctx context.Context, id string) error {
	const q = `
update users
set email_verified_at = now(), updated_at = now()
where id = $1::uuid and email_verified_at is null;
`
	_, err := r.db.Exec(ctx, q, id)
	return err
}

func (r *Repo) get(ctx context.Context, q string, arg any) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash,
		&u.RefreshToken, &u.RefreshTokenExpiresAt, &u.EmailVerifiedAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
