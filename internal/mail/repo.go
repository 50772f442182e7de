package mail

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronocap/chronocap-backend/internal/apperr"
)

// Delivery statuses for a mail_log row. Webhook events move a row through
// SENT/DELIVERED/RECEIVED/FAILED; CONFIRMED means the verification token
// was used and is terminal.
const (
	StatusPending   = "PENDING"
	StatusSent      = "SENT"
	StatusDelivered = "DELIVERED"
	StatusReceived  = "RECEIVED"
	StatusFailed    = "FAILED"
	StatusConfirmed = "CONFIRMED"
)

const TypeEmailVerification = "EMAIL_VERIFICATION"

type Log struct {
	ID                string
	UserID            string
	Type              string
	Status            string
	Token             string
	ProviderMessageID *string
	LastError         *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, userID, typ, token string) (*Log, error) {
	const q = `
insert into mail_log (user_id, type, status, token)
values ($1::uuid, $2, $3, $4)
returning id::text, created_at, updated_at;
`
	l := &Log{UserID: userID, Type: typ, Status: StatusPending, Token: token}
	err := r.db.QueryRow(ctx, q, userID, typ, StatusPending, token).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *Repo) GetByToken(ctx context.Context, token string) (*Log, error) {
	const q = `
select id::text, user_id::text, type, status, token, provider_message_id, last_error, created_at, updated_at
from mail_log
where token = $1;
`
	var l Log
	err := r.db.QueryRow(ctx, q, token).Scan(
		&l.ID, &l.UserID, &l.Type, &l.Status, &l.Token,
		&l.ProviderMessageID, &l.LastError, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repo) MarkSent(ctx context.Context, id string, providerMessageID *string) error {
	const q = `
update mail_log
set status = $2, provider_message_id = coalesce($3, provider_message_id), updated_at = now()
where id = $1::uuid;
`
	_, err := r.db.Exec(ctx, q, id, StatusSent, providerMessageID)
	return err
}

func (r *Repo) MarkFailed(ctx context.Context, id, lastError string) error {
	const q = `
update mail_log
set status = $2, last_error = $3, updated_at = now()
where id = $1::uuid;
`
	_, err := r.db.Exec(ctx, q, id, StatusFailed, lastError)
	return err
}

func (r *Repo) MarkConfirmed(ctx context.Context, id string) error {
	const q = `
update mail_log
set status = $2, updated_at = now()
where id = $1::uuid;
`
	_, err := r.db.Exec(ctx, q, id, StatusConfirmed)
	return err
}

// UpdateStatusByProviderID applies a webhook delivery status. CONFIRMED
// rows are terminal and never downgraded by late provider events.
func (r *Repo) UpdateStatusByProviderID(ctx context.Context, providerMessageID, status string) error {
	const q = `
update mail_log
set status = $2, updated_at = now()
where provider_message_id = $1 and status <> $3;
`
	_, err := r.db.Exec(ctx, q, providerMessageID, status, StatusConfirmed)
	return err
}

// DeleteStalePending removes PENDING rows older than the cutoff; their
// tokens were never delivered and will never be confirmed.
func (r *Repo) DeleteStalePending(ctx context.Context, olderThan time.Duration) (int64, error) {
	const q = `delete from mail_log where status = $1 and created_at < $2;`
	ct, err := r.db.Exec(ctx, q, StatusPending, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
