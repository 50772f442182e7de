package capsules

import "time"

// Creator is the only projection of a user a capsule response may carry.
type Creator struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// Capsule is a user-owned, time-locked content record. Content and images
// are the payload hidden until unlock; everything else is metadata the
// public may see once the capsule is public.
type Capsule struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	IsPublic  bool
	UnlockAt  time.Time
	Images    []string
	Creator   Creator
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccessClass is the guard's verdict for a (capsule, viewer) pair.
type AccessClass int

const (
	AccessDenied AccessClass = iota
	AccessOwner
	AccessPublic
)

// CanView classifies a viewer against a capsule. The owner sees everything
// regardless of lock or visibility; a public capsule is visible to anyone
// (content still gated by lock state at projection time); everyone else is
// denied. viewerID == "" means anonymous.
func CanView(c *Capsule, viewerID string) AccessClass {
	if viewerID != "" && viewerID == c.UserID {
		return AccessOwner
	}
	if c.IsPublic {
		return AccessPublic
	}
	return AccessDenied
}

// CanMutate reports whether the viewer may update or delete the capsule.
func CanMutate(c *Capsule, viewerID string) bool {
	return viewerID != "" && viewerID == c.UserID
}

// LockState is derived purely from wall-clock time; it is identical for
// every viewer. Only redaction depends on who is asking.
type LockState struct {
	Locked             bool
	SecondsUntilUnlock int64
}

// EvaluateLock computes lock state at the given instant. A capsule is
// locked while unlockAt is strictly in the future, so it unlocks at the
// exact instant now == unlockAt. The countdown rounds up: a capsule
// unlocking in 0.4s reports 1, not 0.
func EvaluateLock(unlockAt, now time.Time) LockState {
	if !unlockAt.After(now) {
		return LockState{}
	}
	d := unlockAt.Sub(now)
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return LockState{Locked: true, SecondsUntilUnlock: secs}
}
