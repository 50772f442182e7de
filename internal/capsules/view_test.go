package capsules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCapsule(isPublic bool, unlockAt time.Time) *Capsule {
	name := "Ada"
	return &Capsule{
		ID:        "cap-1",
		UserID:    "user-1",
		Title:     "To future me",
		Content:   "secret plans",
		IsPublic:  isPublic,
		UnlockAt:  unlockAt,
		Images:    []string{"a.jpg", "b.jpg"},
		Creator:   Creator{ID: "user-1", Email: "ada@example.com", Name: &name},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestProjectOwnerSeesContentWhileLocked(t *testing.T) {
	now := time.Now()
	c := sampleCapsule(true, now.Add(time.Hour))

	v := Project(c, AccessOwner, now)
	require.NotNil(t, v)

	assert.True(t, v.Locked)
	assert.False(t, v.Unlocked)
	assert.Equal(t, int64(3600), v.SecondsUntilUnlock)
	require.NotNil(t, v.Content)
	assert.Equal(t, "secret plans", *v.Content)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, v.Images)
	assert.Equal(t, "ada@example.com", v.Creator.Email)
}

func TestProjectPublicLockedRedacts(t *testing.T) {
	now := time.Now()
	c := sampleCapsule(true, now.Add(time.Hour))

	v := Project(c, AccessPublic, now)
	require.NotNil(t, v)

	assert.Nil(t, v.Content)
	assert.Equal(t, []string{}, v.Images)
	assert.True(t, v.Locked)
	assert.False(t, v.Unlocked)
	assert.Positive(t, v.SecondsUntilUnlock)

	// Metadata leaks by design so the public can discover pending reveals.
	assert.Equal(t, "cap-1", v.ID)
	assert.Equal(t, "To future me", v.Title)
	assert.Equal(t, c.UnlockAt, v.UnlockAt)
	assert.Equal(t, c.Creator, v.Creator)
	assert.Equal(t, c.CreatedAt, v.CreatedAt)
	assert.Equal(t, c.UpdatedAt, v.UpdatedAt)
}

func TestProjectPublicUnlockedRoundTrips(t *testing.T) {
	now := time.Now()
	c := sampleCapsule(true, now.Add(-time.Second))

	v := Project(c, AccessPublic, now)
	require.NotNil(t, v)

	assert.False(t, v.Locked)
	assert.True(t, v.Unlocked)
	assert.Equal(t, int64(0), v.SecondsUntilUnlock)
	require.NotNil(t, v.Content)
	assert.Equal(t, c.Content, *v.Content)
	assert.Equal(t, c.Images, v.Images)
}

func TestProjectDeniedReturnsNil(t *testing.T) {
	c := sampleCapsule(false, time.Now().Add(time.Hour))
	assert.Nil(t, Project(c, AccessDenied, time.Now()))
}

func TestProjectDoesNotAliasStoredImages(t *testing.T) {
	now := time.Now()
	c := sampleCapsule(true, now.Add(-time.Hour))

	v := Project(c, AccessPublic, now)
	v.Images[0] = "mutated.jpg"

	assert.Equal(t, "a.jpg", c.Images[0])
}

func TestProjectNilImagesRenderEmptySlice(t *testing.T) {
	now := time.Now()
	c := sampleCapsule(true, now.Add(-time.Hour))
	c.Images = nil

	v := Project(c, AccessPublic, now)
	assert.NotNil(t, v.Images)
	assert.Empty(t, v.Images)
}
