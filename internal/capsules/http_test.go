package capsules

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronocap/chronocap-backend/internal/auth"
	"github.com/chronocap/chronocap-backend/internal/storage"
)

const testSecret = "test-secret"

type fakeStorage struct{}

func (fakeStorage) StoreCapsuleImages(_ context.Context, files []*multipart.FileHeader) ([]storage.StoredFile, error) {
	out := make([]storage.StoredFile, 0, len(files))
	for _, fh := range files {
		out = append(out, storage.StoredFile{
			OriginalName: fh.Filename,
			URL:          "/uploads/" + fh.Filename,
			Path:         "/tmp/" + fh.Filename,
		})
	}
	return out, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newFakeStore()
	svc := NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := gin.New()
	Register(r.Group("/api/v1/capsules"), svc, fakeStorage{}, testSecret)
	RegisterPublic(r.Group("/api/v1/public/capsules"), svc)
	return r, svc
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, userID+"@example.com", testSecret, time.Minute)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(r *gin.Engine, method, path, authz string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) View {
	t.Helper()
	var v View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func createCapsule(t *testing.T, r *gin.Engine, owner string, body gin.H) View {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/api/v1/capsules", bearer(t, owner), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeView(t, w)
}

func TestCreateRequiresAuth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/capsules", "", gin.H{"title": "t", "unlockAt": futureISO()})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateReturnsOwnerView(t *testing.T) {
	r, _ := newTestRouter(t)

	v := createCapsule(t, r, "alice", gin.H{
		"title":    "to 2030",
		"content":  "open me later",
		"unlockAt": futureISO(),
	})

	assert.True(t, v.Locked)
	assert.False(t, v.IsPublic)
	require.NotNil(t, v.Content)
	assert.Equal(t, "open me later", *v.Content)
}

func TestCreateRejectsInvalidUnlockAt(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/capsules", bearer(t, "alice"), gin.H{"title": "t", "unlockAt": "soon-ish"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateMultipartWithImages(t *testing.T) {
	r, _ := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "snapshots"))
	require.NoError(t, mw.WriteField("unlockAt", futureISO()))
	require.NoError(t, mw.WriteField("isPublic", "true"))

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="images"; filename="pic.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/capsules", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, "alice"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	v := decodeView(t, w)
	assert.True(t, v.IsPublic)
	assert.Equal(t, []string{"/uploads/pic.png"}, v.Images)
}

func TestGetAdaptiveOwnerSeesLockedContent(t *testing.T) {
	r, _ := newTestRouter(t)
	created := createCapsule(t, r, "alice", gin.H{"title": "t", "content": "hidden", "unlockAt": futureISO()})

	w := doJSON(r, http.MethodGet, "/api/v1/capsules/"+created.ID, bearer(t, "alice"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	v := decodeView(t, w)
	assert.True(t, v.Locked)
	require.NotNil(t, v.Content)
	assert.Equal(t, "hidden", *v.Content)
}

func TestGetAdaptivePrivateDeniedToOthers(t *testing.T) {
	r, _ := newTestRouter(t)
	created := createCapsule(t, r, "alice", gin.H{"title": "t", "unlockAt": futureISO()})

	w := doJSON(r, http.MethodGet, "/api/v1/capsules/"+created.ID, bearer(t, "bob"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/capsules/"+created.ID, "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetAdaptivePublicLockedRedactedForOthers(t *testing.T) {
	r, _ := newTestRouter(t)
	created := createCapsule(t, r, "alice", gin.H{"title": "t", "content": "hidden", "isPublic": true, "unlockAt": futureISO()})

	w := doJSON(r, http.MethodGet, "/api/v1/capsules/"+created.ID, bearer(t, "bob"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	v := decodeView(t, w)
	assert.True(t, v.Locked)
	assert.Nil(t, v.Content)
	assert.Equal(t, []string{}, v.Images)
}

func TestGetAdaptiveExpiredTokenFallsBackToAnonymous(t *testing.T) {
	r, _ := newTestRouter(t)
	created := createCapsule(t, r, "alice", gin.H{"title": "t", "content": "x", "isPublic": true, "unlockAt": "2020-01-01"})

	expired, err := auth.GenerateToken("alice", "alice@example.com", testSecret, -time.Minute)
	require.NoError(t, err)

	w := doJSON(r, http.MethodGet, "/api/v1/capsules/"+created.ID, "Bearer "+expired, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Anonymous public view of an unlocked capsule still carries content.
	v := decodeView(t, w)
	assert.True(t, v.Unlocked)
	require.NotNil(t, v.Content)
}

func TestGetAdaptiveMissingIs404(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/api/v1/capsules/nope", bearer(t, "alice"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMineIsOwnerScoped(t *testing.T) {
	r, _ := newTestRouter(t)
	createCapsule(t, r, "alice", gin.H{"title": "mine", "content": "c", "unlockAt": futureISO()})
	createCapsule(t, r, "bob", gin.H{"title": "not mine", "unlockAt": futureISO()})

	w := doJSON(r, http.MethodGet, "/api/v1/capsules", bearer(t, "alice"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data  []View `json:"data"`
		Total int    `json:"total"`
		Page  int    `json:"page"`
		Limit int    `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "mine", resp.Data[0].Title)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, DefaultPageLimit, resp.Limit)
	// Owner list carries content even while locked.
	require.NotNil(t, resp.Data[0].Content)
}

func TestPublicListRedactsLocked(t *testing.T) {
	r, _ := newTestRouter(t)
	createCapsule(t, r, "alice", gin.H{"title": "locked", "content": "secret", "isPublic": true, "unlockAt": futureISO()})
	createCapsule(t, r, "alice", gin.H{"title": "open", "content": "visible", "isPublic": true, "unlockAt": "2020-01-01"})
	createCapsule(t, r, "alice", gin.H{"title": "private", "unlockAt": futureISO()})

	w := doJSON(r, http.MethodGet, "/api/v1/public/capsules", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data  []View `json:"data"`
		Total int    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, 2, resp.Total)

	for _, v := range resp.Data {
		switch v.Title {
		case "locked":
			assert.Nil(t, v.Content)
			assert.True(t, v.Locked)
		case "open":
			require.NotNil(t, v.Content)
			assert.Equal(t, "visible", *v.Content)
		default:
			t.Fatalf("private capsule leaked into public list: %q", v.Title)
		}
	}
}

func TestPublicGetPrivateIs404(t *testing.T) {
	r, _ := newTestRouter(t)
	created := createCapsule(t, r, "alice", gin.H{"title": "secret", "unlockAt": futureISO()})

	w := doJSON(r, http.MethodGet, "/api/v1/public/capsules/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPublicGetLockedIsRedacted(t *testing.T) {
	r, _ := newTestRouter(t)
	created := createCapsule(t, r, "alice", gin.H{"title": "soon", "content": "secret", "isPublic": true, "unlockAt": futureISO()})

	w := doJSON(r, http.MethodGet, "/api/v1/public/capsules/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	v := decodeView(t, w)
	assert.Equal(t, "soon", v.Title)
	assert.Nil(t, v.Content)
	assert.True(t, v.Locked)
	assert.Positive(t, v.SecondsUntilUnlock)
}

func TestUpdateOwnershipAndImages(t *testing.T) {
	r, _ := newTestRouter(t)
	created := createCapsule(t, r, "alice", gin.H{"title": "t", "unlockAt": futureISO()})

	w := doJSON(r, http.MethodPatch, "/api/v1/capsules/"+created.ID, bearer(t, "bob"), gin.H{"title": "stolen"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodPatch, "/api/v1/capsules/"+created.ID, bearer(t, "alice"), gin.H{
		"title":  "renamed",
		"images": []string{"only.jpg"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	v := decodeView(t, w)
	assert.Equal(t, "renamed", v.Title)
	assert.Equal(t, []string{"only.jpg"}, v.Images)
}

func TestDeleteOwnership(t *testing.T) {
	r, _ := newTestRouter(t)
	created := createCapsule(t, r, "alice", gin.H{"title": "t", "unlockAt": futureISO()})

	w := doJSON(r, http.MethodDelete, "/api/v1/capsules/"+created.ID, bearer(t, "bob"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodDelete, "/api/v1/capsules/"+created.ID, bearer(t, "alice"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/capsules/"+created.ID, bearer(t, "alice"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
