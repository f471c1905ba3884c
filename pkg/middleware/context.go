package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/context"
)

const (
	// HeaderUserID is the header key for user ID (test/gateway injected)
	HeaderUserID = "X-User-ID"
	// HeaderUserRoles is the header key for comma-separated user roles
	HeaderUserRoles = "X-User-Roles"
)

func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			userID := req.Header.Get(HeaderUserID)

			var roles []string
			if raw := req.Header.Get(HeaderUserRoles); raw != "" {
				for _, role := range strings.Split(raw, ",") {
					roles = append(roles, strings.TrimSpace(role))
				}
			}

			ctx := req.Context()
			ctx = context.SetRequestID(ctx, requestID)
			ctx = context.SetMethod(ctx, req.Method)
			ctx = context.SetRoute(ctx, req.URL.Path)
			ctx = context.SetRemoteIP(ctx, c.RealIP())
			ctx = context.SetReferer(ctx, req.Referer())
			if userID != "" {
				ctx = context.SetUserID(ctx, userID)
			}
			if len(roles) > 0 {
				ctx = context.SetUserRoles(ctx, roles)
			}

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
