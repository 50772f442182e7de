package capsules

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/chronocap/chronocap-backend/internal/apperr"
)

const (
	maxTitleLen   = 120
	maxContentLen = 10000
	maxImages     = 20

	// DefaultPageLimit and MaxPageLimit bound skip/take pagination.
	// Unbounded limits are a resource-exhaustion hole.
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Service orchestrates the capsule lifecycle: input normalization,
// validation and the ownership discipline around every mutation.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateInput is the normalized create request. UnlockAt is an ISO-8601
// string; parsing failure is a validation error.
type CreateInput struct {
	Title    string
	Content  string
	IsPublic *bool
	UnlockAt string
}

// UpdateInput is a partial update; nil means "leave alone". Images, when
// present, replaces the stored list wholesale.
type UpdateInput struct {
	Title    *string
	Content  *string
	IsPublic *bool
	UnlockAt *string
	Images   *[]string
}

// Page is one page of capsules plus the total across all pages.
type Page struct {
	Data  []Capsule
	Total int
	Page  int
	Limit int
}

func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput, images []string) (*Capsule, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}
	if len(images) > maxImages {
		return nil, apperr.Validationf("at most %d images allowed", maxImages)
	}
	unlockAt, err := parseUnlockAt(in.UnlockAt)
	if err != nil {
		return nil, err
	}

	isPublic := false
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}

	c, err := s.store.Create(ctx, &Capsule{
		UserID:   ownerID,
		Title:    in.Title,
		Content:  in.Content,
		IsPublic: isPublic,
		UnlockAt: unlockAt,
		Images:   images,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("capsule created", "capsule_id", c.ID, "user_id", ownerID, "unlock_at", c.UnlockAt)
	return c, nil
}

func (s *Service) ListOwned(ctx context.Context, ownerID string, page, limit int) (*Page, error) {
	page, limit = clampPage(page, limit)
	data, total, err := s.store.ListOwned(ctx, ownerID, page, limit)
	if err != nil {
		return nil, err
	}
	return &Page{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func (s *Service) ListPublic(ctx context.Context, page, limit int) (*Page, error) {
	page, limit = clampPage(page, limit)
	data, total, err := s.store.ListPublic(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	return &Page{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// GetByID fetches without authorization; the caller classifies the viewer
// with CanView and projects accordingly. This enables the adaptive
// owner-or-public endpoint.
func (s *Service) GetByID(ctx context.Context, id string) (*Capsule, error) {
	return s.store.GetByID(ctx, id)
}

// GetPublicByID hides existence: a private capsule is reported absent, not
// forbidden, so anonymous callers cannot probe ids. A public-but-locked
// capsule IS returned; the projector redacts it the same way the public
// list does.
func (s *Service) GetPublicByID(ctx context.Context, id string) (*Capsule, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsPublic {
		return nil, apperr.ErrNotFound
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, ownerID, id string, in UpdateInput) (*Capsule, error) {
	patch := Patch{Content: in.Content, IsPublic: in.IsPublic, Images: in.Images}

	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return nil, err
		}
		patch.Title = in.Title
	}
	if in.Content != nil {
		if err := validateContent(*in.Content); err != nil {
			return nil, err
		}
	}
	if in.Images != nil && len(*in.Images) > maxImages {
		return nil, apperr.Validationf("at most %d images allowed", maxImages)
	}
	if in.UnlockAt != nil {
		// Moving unlockAt forward re-locks the capsule. Allowed: owners
		// may delay their own reveal.
		unlockAt, err := parseUnlockAt(*in.UnlockAt)
		if err != nil {
			return nil, err
		}
		patch.UnlockAt = &unlockAt
	}

	c, err := s.store.Update(ctx, ownerID, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("capsule updated", "capsule_id", id, "user_id", ownerID)
	return c, nil
}

func (s *Service) Remove(ctx context.Context, ownerID, id string) error {
	if err := s.store.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.Info("capsule deleted", "capsule_id", id, "user_id", ownerID)
	return nil
}

// Length limits count characters, not bytes; multibyte titles must not
// hit the cap early.
func validateTitle(title string) error {
	if n := utf8.RuneCountInString(title); n == 0 || n > maxTitleLen {
		return apperr.Validationf("title must be 1-%d characters", maxTitleLen)
	}
	return nil
}

func validateContent(content string) error {
	if utf8.RuneCountInString(content) > maxContentLen {
		return apperr.Validationf("content must be at most %d characters", maxContentLen)
	}
	return nil
}

func parseUnlockAt(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperr.Validationf("unlockAt must be an ISO-8601 date string")
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
