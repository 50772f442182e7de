package capsules

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chronocap/chronocap-backend/internal/apperr"
)

// fakeStore is an in-memory Store used by service and handler tests.
type fakeStore struct {
	mu      sync.Mutex
	seq     int
	records map[string]*Capsule
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*Capsule{}}
}

func (f *fakeStore) Create(_ context.Context, c *Capsule) (*Capsule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	now := time.Now()
	stored := *c
	// Zero-padded so the id sort below matches insertion order.
	stored.ID = fmt.Sprintf("cap-%04d", f.seq)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.Creator = Creator{ID: c.UserID, Email: c.UserID + "@example.com"}
	if stored.Images == nil {
		stored.Images = []string{}
	}
	f.records[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*Capsule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.records[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (f *fakeStore) ListOwned(_ context.Context, ownerID string, page, limit int) ([]Capsule, int, error) {
	return f.list(func(c *Capsule) bool { return c.UserID == ownerID }, page, limit)
}

func (f *fakeStore) ListPublic(_ context.Context, page, limit int) ([]Capsule, int, error) {
	return f.list(func(c *Capsule) bool { return c.IsPublic }, page, limit)
}

func (f *fakeStore) list(keep func(*Capsule) bool, page, limit int) ([]Capsule, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []Capsule
	for _, c := range f.records {
		if keep(c) {
			all = append(all, *c)
		}
	}
	// Newest first, like the created_at desc ordering in the real store.
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := len(all)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (f *fakeStore) Update(_ context.Context, ownerID, id string, patch Patch) (*Capsule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.records[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if c.UserID != ownerID {
		return nil, apperr.ErrForbidden
	}

	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.Content != nil {
		c.Content = *patch.Content
	}
	if patch.IsPublic != nil {
		c.IsPublic = *patch.IsPublic
	}
	if patch.UnlockAt != nil {
		c.UnlockAt = *patch.UnlockAt
	}
	if patch.Images != nil {
		c.Images = append([]string{}, (*patch.Images)...)
	}
	c.UpdatedAt = time.Now()

	out := *c
	return &out, nil
}

func (f *fakeStore) Delete(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.records[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if c.UserID != ownerID {
		return apperr.ErrForbidden
	}
	delete(f.records, id)
	return nil
}
