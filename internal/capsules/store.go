package capsules

import (
	"context"
	"time"
)

// Patch is a partial update. Nil fields are left untouched; a non-nil
// Images replaces the stored sequence wholesale, never appends.
type Patch struct {
	Title    *string
	Content  *string
	IsPublic *bool
	UnlockAt *time.Time
	Images   *[]string
}

// Store is the persistence boundary for capsules. Every record comes back
// joined with its creator projection. List operations run count and page
// fetch in one transaction so total and data cannot diverge under
// concurrent inserts; Update and Delete run the ownership check and the
// write in one transaction and return apperr.ErrNotFound or
// apperr.ErrForbidden accordingly.
type Store interface {
	Create(ctx context.Context, c *Capsule) (*Capsule, error)
	GetByID(ctx context.Context, id string) (*Capsule, error)
	ListOwned(ctx context.Context, ownerID string, page, limit int) ([]Capsule, int, error)
	ListPublic(ctx context.Context, page, limit int) ([]Capsule, int, error)
	Update(ctx context.Context, ownerID, id string, patch Patch) (*Capsule, error)
	Delete(ctx context.Context, ownerID, id string) error
}
