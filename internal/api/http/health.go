package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthResponse reports liveness plus postgres reachability. The capsule
// API serves nothing useful without its database, so db state rides along.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db,omitempty"`
}

type HealthHandler struct {
	service string
	version string
	db      *pgxpool.Pool
}

func NewHealthHandler(service, version string, db *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{service: service, version: version, db: db}
}

func (h *HealthHandler) check(c *gin.Context) {
	db := "disabled"
	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		db = "up"
		if err := h.db.Ping(pingCtx); err != nil {
			db = "down"
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.service,
		Version:   h.version,
		DB:        db,
	})
}

// RegisterRoutes exposes the probe on both paths; load balancers and
// kubelets disagree on the spelling.
func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.check)
	r.GET("/healthz", h.check)
}
