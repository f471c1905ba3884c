// Package handlers exposes the deduplication HTTP API.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/apierror"
	appctx "github.com/Ramsey-B/clover/pkg/context"
)

// ParseUUID parses a UUID from a path parameter
func ParseUUID(c echo.Context, param string) (uuid.UUID, error) {
	idStr := c.Param(param)
	if idStr == "" {
		return uuid.Nil, httperror.NewHTTPError(http.StatusBadRequest, "missing "+param)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s: must be a valid UUID", param)
	}

	return id, nil
}

// GetUserID extracts the authenticated user id from context
func GetUserID(c echo.Context) (uuid.UUID, error) {
	ctx := c.Request().Context()
	userIDStr := appctx.GetUserID(ctx)
	if userIDStr == "" {
		return uuid.Nil, apierror.Unauthorized("authentication required")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, apierror.Unauthorized("invalid authentication token")
	}

	return userID, nil
}

// SuccessResponse returns a 200 OK with data wrapped in the success envelope
func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

// CreatedResponse returns a 201 Created with data wrapped in the success envelope
func CreatedResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"data":    data,
	})
}

// MessageResponse returns the given status with a message-only success envelope
func MessageResponse(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]any{
		"success": true,
		"message": message,
	})
}

// NoContentResponse returns a 204 No Content
func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// BadRequest returns a 400 Bad Request error
func BadRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}

// queryInt reads an integer query parameter, falling back on absence or junk
func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
