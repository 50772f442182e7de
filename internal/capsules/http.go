package capsules

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chronocap/chronocap-backend/internal/apperr"
	"github.com/chronocap/chronocap-backend/internal/auth"
	"github.com/chronocap/chronocap-backend/internal/storage"
)

// Up to this many image files are accepted on create; stored URLs per
// capsule are capped separately at maxImages.
const maxUploadFiles = 10

type Handler struct {
	svc     *Service
	storage storage.Storage
}

// Register wires the owner/adaptive capsule routes. Everything requires
// auth except the single-capsule GET, which adapts to the viewer: owners
// see everything, anonymous and third parties fall back to the public
// rules.
func Register(rg *gin.RouterGroup, svc *Service, store storage.Storage, secret string) {
	h := &Handler{svc: svc, storage: store}

	rg.POST("", auth.RequireUser(secret), h.create)
	rg.GET("", auth.RequireUser(secret), h.listMine)
	rg.GET("/:id", auth.OptionalUser(secret), h.getAdaptive)
	rg.PATCH("/:id", auth.RequireUser(secret), h.update)
	rg.DELETE("/:id", auth.RequireUser(secret), h.remove)
}

type createReq struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	IsPublic *bool  `json:"isPublic"`
	UnlockAt string `json:"unlockAt"`
}

func (h *Handler) create(c *gin.Context) {
	userID := auth.UserID(c)

	var in CreateInput
	var images []string

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid multipart form"})
			return
		}
		in = CreateInput{
			Title:    formValue(form, "title"),
			Content:  formValue(form, "content"),
			UnlockAt: formValue(form, "unlockAt"),
		}
		if v := formValue(form, "isPublic"); v != "" {
			isPublic := v == "true" || v == "1"
			in.IsPublic = &isPublic
		}

		files := imageFiles(form.File["images"])
		if len(files) > maxUploadFiles {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "at most 10 image files allowed"})
			return
		}
		if len(files) > 0 {
			stored, err := h.storage.StoreCapsuleImages(c.Request.Context(), files)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to store images"})
				return
			}
			images = make([]string, 0, len(stored))
			for _, f := range stored {
				images = append(images, f.URL)
			}
		}
	} else {
		var req createReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
			return
		}
		in = CreateInput{Title: req.Title, Content: req.Content, IsPublic: req.IsPublic, UnlockAt: req.UnlockAt}
	}

	capsule, err := h.svc.Create(c.Request.Context(), userID, in, images)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, Project(capsule, AccessOwner, time.Now()))
}

func (h *Handler) listMine(c *gin.Context) {
	page, err := h.svc.ListOwned(c.Request.Context(), auth.UserID(c), queryInt(c, "page", 1), queryInt(c, "limit", DefaultPageLimit))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse(page, AccessOwner))
}

func (h *Handler) getAdaptive(c *gin.Context) {
	capsule, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	access := CanView(capsule, auth.UserID(c))
	if access == AccessDenied {
		// The caller learns the capsule exists; that is fine on this
		// endpoint, which private owners reach while logged out too.
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "this capsule is private and cannot be viewed"})
		return
	}
	c.JSON(http.StatusOK, Project(capsule, access, time.Now()))
}

type updateReq struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	IsPublic *bool     `json:"isPublic"`
	UnlockAt *string   `json:"unlockAt"`
	Images   *[]string `json:"images"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	capsule, err := h.svc.Update(c.Request.Context(), auth.UserID(c), c.Param("id"), UpdateInput{
		Title:    req.Title,
		Content:  req.Content,
		IsPublic: req.IsPublic,
		UnlockAt: req.UnlockAt,
		Images:   req.Images,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Project(capsule, AccessOwner, time.Now()))
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// pageResponse projects a page for one access class. The list endpoints
// never mix access classes: own capsules are all owner views, the public
// list is all public views.
func pageResponse(p *Page, access AccessClass) gin.H {
	now := time.Now()
	data := make([]*View, 0, len(p.Data))
	for i := range p.Data {
		data = append(data, Project(&p.Data[i], access, now))
	}
	return gin.H{"data": data, "total": p.Total, "page": p.Page, "limit": p.Limit}
}

func imageFiles(files []*multipart.FileHeader) []*multipart.FileHeader {
	// Non-image uploads are dropped silently, same as the image filter on
	// the old upload pipeline.
	out := make([]*multipart.FileHeader, 0, len(files))
	for _, fh := range files {
		if strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			out = append(out, fh)
		}
	}
	return out
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}

func fail(c *gin.Context, err error) {
	switch {
	case apperr.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "capsule not found"})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
