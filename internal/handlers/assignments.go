package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/assignments"
	"github.com/Ramsey-B/clover/pkg/accessscope"
	"github.com/Ramsey-B/clover/pkg/apierror"
	appctx "github.com/Ramsey-B/clover/pkg/context"
)

// AssignmentHandler handles user-client assignment endpoints. Admin only.
type AssignmentHandler struct {
	repo *assignments.Repository
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(repo *assignments.Repository) *AssignmentHandler {
	return &AssignmentHandler{repo: repo}
}

// RegisterRoutes registers assignment routes
func (h *AssignmentHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/users/:userId/clients/:clientId", h.Assign)
	g.DELETE("/users/:userId/clients/:clientId", h.Remove)
	g.GET("/users/:userId/clients", h.List)
}

func requireAdmin(c echo.Context) error {
	if _, err := GetUserID(c); err != nil {
		return err
	}
	if !appctx.HasRole(c.Request().Context(), accessscope.RoleAdmin) {
		return apierror.Forbidden(apierror.CodeNoClientAccess, "admin role required")
	}
	return nil
}

// Assign handles POST /users/:userId/clients/:clientId
func (h *AssignmentHandler) Assign(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}

	userID, err := ParseUUID(c, "userId")
	if err != nil {
		return err
	}
	clientID, err := ParseUUID(c, "clientId")
	if err != nil {
		return err
	}

	assignment, err := h.repo.Assign(c.Request().Context(), userID, clientID)
	if err != nil {
		return err
	}

	return CreatedResponse(c, assignment)
}

// Remove handles DELETE /users/:userId/clients/:clientId
func (h *AssignmentHandler) Remove(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}

	userID, err := ParseUUID(c, "userId")
	if err != nil {
		return err
	}
	clientID, err := ParseUUID(c, "clientId")
	if err != nil {
		return err
	}

	if err := h.repo.Remove(c.Request().Context(), userID, clientID); err != nil {
		return err
	}

	return NoContentResponse(c)
}

// List handles GET /users/:userId/clients
func (h *AssignmentHandler) List(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}

	userID, err := ParseUUID(c, "userId")
	if err != nil {
		return err
	}

	list, err := h.repo.ListByUserID(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, map[string]any{
		"userId":      userID,
		"assignments": list,
		"count":       len(list),
	})
}
