package capsules

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronocap/chronocap-backend/internal/apperr"
)

// Repo is the pgx-backed Store.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

var _ Store = (*Repo)(nil)

const capsuleCols = `
c.id::text, c.user_id::text, c.title, c.content, c.is_public, c.unlock_at,
c.images, c.created_at, c.updated_at, u.id::text, u.email, u.name`

func (r *Repo) Create(ctx context.Context, c *Capsule) (*Capsule, error) {
	const q = `
with c as (
  insert into capsules (user_id, title, content, is_public, unlock_at, images)
  values ($1::uuid, $2, $3, $4, $5, $6)
  returning *
)
select ` + capsuleCols + `
from c join users u on u.id = c.user_id;
`
	images := c.Images
	if images == nil {
		images = []string{}
	}
	out, err := scanCapsule(r.db.QueryRow(ctx, q, c.UserID, c.Title, c.Content, c.IsPublic, c.UnlockAt, images))
	if err != nil {
		return nil, fmt.Errorf("create capsule: %w", err)
	}
	return out, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Capsule, error) {
	const q = `
select ` + capsuleCols + `
from capsules c join users u on u.id = c.user_id
where c.id = $1::uuid;
`
	out, err := scanCapsule(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return out, nil
}

func (r *Repo) ListOwned(ctx context.Context, ownerID string, page, limit int) ([]Capsule, int, error) {
	const countQ = `select count(*) from capsules where user_id = $1::uuid;`
	const pageQ = `
select ` + capsuleCols + `
from capsules c join users u on u.id = c.user_id
where c.user_id = $1::uuid
order by c.created_at desc
offset $2 limit $3;
`
	return r.listTx(ctx, countQ, pageQ, []any{ownerID}, page, limit)
}

func (r *Repo) ListPublic(ctx context.Context, page, limit int) ([]Capsule, int, error) {
	// Locked capsules stay in the result on purpose: the public list shows
	// "coming soon" entries and redaction happens at projection time.
	const countQ = `select count(*) from capsules where is_public = true;`
	const pageQ = `
select ` + capsuleCols + `
from capsules c join users u on u.id = c.user_id
where c.is_public = true
order by c.created_at desc
offset $1 limit $2;
`
	return r.listTx(ctx, countQ, pageQ, nil, page, limit)
}

// listTx runs count and page fetch in one transaction so total matches the
// data set even under concurrent inserts.
func (r *Repo) listTx(ctx context.Context, countQ, pageQ string, args []any, page, limit int) ([]Capsule, int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	var total int
	if err := tx.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	rows, err := tx.Query(ctx, pageQ, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Capsule, 0, limit)
	for rows.Next() {
		c, err := scanCapsule(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *Repo) Update(ctx context.Context, ownerID, id string, patch Patch) (*Capsule, error) {
	const q = `
with c as (
  update capsules set
    title = coalesce($2, title),
    content = coalesce($3, content),
    is_public = coalesce($4, is_public),
    unlock_at = coalesce($5, unlock_at),
    images = coalesce($6, images),
    updated_at = now()
  where id = $1::uuid
  returning *
)
select ` + capsuleCols + `
from c join users u on u.id = c.user_id;
`
	var images any
	if patch.Images != nil {
		replacement := *patch.Images
		if replacement == nil {
			replacement = []string{}
		}
		images = replacement
	}

	var out *Capsule
	err := r.withOwnership(ctx, ownerID, id, func(tx pgx.Tx) error {
		var err error
		out, err = scanCapsule(tx.QueryRow(ctx, q, id,
			patch.Title, patch.Content, patch.IsPublic, patch.UnlockAt, images))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, ownerID, id string) error {
	return r.withOwnership(ctx, ownerID, id, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `delete from capsules where id = $1::uuid;`, id)
		return err
	})
}

// withOwnership locks the capsule row, verifies the caller owns it, and
// runs fn inside the same transaction. Check and write cannot interleave
// with a concurrent mutation this way.
func (r *Repo) withOwnership(ctx context.Context, ownerID, id string, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var owner string
	err = tx.QueryRow(ctx, `select user_id::text from capsules where id = $1::uuid for update;`, id).Scan(&owner)
	if err != nil {
		return mapLookupErr(err)
	}
	if owner != ownerID {
		return apperr.ErrForbidden
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// mapLookupErr folds "no rows" and malformed uuid input into ErrNotFound;
// a garbage id is indistinguishable from an absent capsule to the caller.
func mapLookupErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return apperr.ErrNotFound
	}
	return err
}

func scanCapsule(row pgx.Row) (*Capsule, error) {
	var c Capsule
	err := row.Scan(
		&c.ID, &c.UserID, &c.Title, &c.Content, &c.IsPublic, &c.UnlockAt,
		&c.Images, &c.CreatedAt, &c.UpdatedAt,
		&c.Creator.ID, &c.Creator.Email, &c.Creator.Name,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
