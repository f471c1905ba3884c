package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
)

// DeduplicationService is the service surface the handler needs.
type DeduplicationService interface {
	Search(ctx context.Context, raw models.SearchCriteria) (*models.SearchResult, error)
	RecordDecision(ctx context.Context, req models.DecisionRequest) (*models.AuditRecord, error)
	History(ctx context.Context, caseID uuid.UUID) ([]models.AuditRecord, error)
	Clusters(ctx context.Context, page, limit int) (*models.ClusterResult, error)
}

// DedupHandler handles deduplication API endpoints
type DedupHandler struct {
	service DeduplicationService
}

// NewDedupHandler creates a new deduplication handler
func NewDedupHandler(service DeduplicationService) *DedupHandler {
	return &DedupHandler{service: service}
}

// RegisterRoutes registers deduplication routes
func (h *DedupHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/cases/deduplication/search", h.Search)
	g.POST("/cases/deduplication/decision", h.RecordDecision)
	g.GET("/cases/:caseId/deduplication/history", h.History)
	g.GET("/cases/deduplication/clusters", h.Clusters)
}

// Search handles POST /cases/deduplication/search
func (h *DedupHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.SearchRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	result, err := h.service.Search(ctx, req.Criteria())
	if err != nil {
		return err
	}

	return SuccessResponse(c, result)
}

// RecordDecision handles POST /cases/deduplication/decision
func (h *DedupHandler) RecordDecision(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.DecisionRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	if _, err := h.service.RecordDecision(ctx, req); err != nil {
		return err
	}

	return MessageResponse(c, http.StatusCreated, "deduplication decision recorded")
}

// History handles GET /cases/:caseId/deduplication/history
func (h *DedupHandler) History(c echo.Context) error {
	ctx := c.Request().Context()

	caseID, err := ParseUUID(c, "caseId")
	if err != nil {
		return err
	}

	records, err := h.service.History(ctx, caseID)
	if err != nil {
		return err
	}
	if records == nil {
		records = []models.AuditRecord{}
	}

	return SuccessResponse(c, records)
}

// Clusters handles GET /cases/deduplication/clusters
func (h *DedupHandler) Clusters(c echo.Context) error {
	ctx := c.Request().Context()

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	result, err := h.service.Clusters(ctx, page, limit)
	if err != nil {
		return err
	}

	return SuccessResponse(c, result)
}
