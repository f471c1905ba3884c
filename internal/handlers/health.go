package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/redis"
)

// HealthHandler reports service liveness.
type HealthHandler struct {
	db        database.DB
	redis     *redis.Client
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler. redis may be nil.
func NewHealthHandler(db database.DB, redisClient *redis.Client, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redisClient,
		version:   version,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers health endpoints
func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
}

// CheckResult represents an individual check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()

	status := http.StatusOK
	overall := "healthy"
	checks := make(map[string]*CheckResult)

	if h.db != nil {
		start := time.Now()
		if err := h.db.PingContext(ctx); err != nil {
			overall = "unhealthy"
			status = http.StatusServiceUnavailable
			checks["database"] = &CheckResult{Status: "unhealthy", Message: err.Error()}
		} else {
			checks["database"] = &CheckResult{Status: "healthy", Latency: time.Since(start).String()}
		}
	}

	if h.redis != nil {
		start := time.Now()
		if err := h.redis.Ping(ctx); err != nil {
			overall = "unhealthy"
			status = http.StatusServiceUnavailable
			checks["redis"] = &CheckResult{Status: "unhealthy", Message: err.Error()}
		} else {
			checks["redis"] = &CheckResult{Status: "healthy", Latency: time.Since(start).String()}
		}
	}

	return c.JSON(status, map[string]any{
		"status":      overall,
		"version":     h.version,
		"uptime":      time.Since(h.startTime).Round(time.Second).String(),
		"checks":      checks,
		"reported_at": time.Now().UTC(),
	})
}
