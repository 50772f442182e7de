package capsules

import "time"

// View is the single response shape for a capsule. Three variants exist:
// owner view and public-unlocked view carry the real content and images,
// the public-locked view carries content: null and images: []. Consumers
// depend on these fields staying exactly as they are.
type View struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Content            *string   `json:"content"`
	IsPublic           bool      `json:"isPublic"`
	UnlockAt           time.Time `json:"unlockAt"`
	Images             []string  `json:"images"`
	Creator            Creator   `json:"creator"`
	Locked             bool      `json:"locked"`
	Unlocked           bool      `json:"unlocked"`
	SecondsUntilUnlock int64     `json:"secondsUntilUnlock"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Project renders the capsule for the given access class at the given
// instant. Returns nil for AccessDenied; callers must have rejected the
// request before rendering anything.
//
// The redaction invariant: content and images appear if and only if the
// viewer is the owner, or the capsule is public and unlocked.
func Project(c *Capsule, access AccessClass, now time.Time) *View {
	if access == AccessDenied {
		return nil
	}

	lock := EvaluateLock(c.UnlockAt, now)
	v := &View{
		ID:                 c.ID,
		Title:              c.Title,
		IsPublic:           c.IsPublic,
		UnlockAt:           c.UnlockAt,
		Images:             []string{},
		Creator:            c.Creator,
		Locked:             lock.Locked,
		Unlocked:           !lock.Locked,
		SecondsUntilUnlock: lock.SecondsUntilUnlock,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}

	if access == AccessOwner || !lock.Locked {
		content := c.Content
		v.Content = &content
		if c.Images != nil {
			v.Images = append(v.Images, c.Images...)
		}
	}

	return v
}
