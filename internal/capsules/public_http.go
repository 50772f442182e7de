package capsules

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PublicHandler serves the anonymous surface. Private capsules are
// reported absent here, never forbidden: existence must not leak to
// callers who could not view the capsule anyway.
type PublicHandler struct {
	svc *Service
}

func RegisterPublic(rg *gin.RouterGroup, svc *Service) {
	h := &PublicHandler{svc: svc}

	rg.GET("", h.list)
	rg.GET("/:id", h.get)
}

func (h *PublicHandler) list(c *gin.Context) {
	// Locked public capsules appear here redacted ("coming soon").
	page, err := h.svc.ListPublic(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "limit", DefaultPageLimit))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse(page, AccessPublic))
}

func (h *PublicHandler) get(c *gin.Context) {
	capsule, err := h.svc.GetPublicByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Project(capsule, AccessPublic, time.Now()))
}
