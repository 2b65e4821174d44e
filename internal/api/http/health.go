package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Remote    string    `json:"remote"`
	DB        string    `json:"db,omitempty"`
}

// Pinger reports whether a dependency answers. *db.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	serviceName string
	version     string
	remote      string
	db          Pinger
}

// NewHealthHandler builds the health endpoints. db may be nil when the
// remote does not use PostgreSQL.
func NewHealthHandler(serviceName, version, remote string, db Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		remote:      remote,
		db:          db,
	}
}

// HealthCheck is the liveness probe. It never touches dependencies.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, h.response("healthy", ""))
}

// ReadinessCheck pings the database, when there is one, and answers 503 if it
// is down.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, h.response("healthy", "disabled"))
		return
	}

	pingCtx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
	defer cancel()

	if err := h.db.Ping(pingCtx); err != nil {
		c.JSON(http.StatusServiceUnavailable, h.response("unhealthy", "down"))
		return
	}
	c.JSON(http.StatusOK, h.response("healthy", "up"))
}

func (h *HealthHandler) response(status, db string) HealthResponse {
	return HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Remote:    h.remote,
		DB:        db,
	}
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.ReadinessCheck)
}
