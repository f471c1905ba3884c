// Package accessscope resolves which clients' cases a caller may see.
package accessscope

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/apierror"
	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Roles recognized by the gatekeeper.
const (
	RoleAdmin   = "ADMIN"
	RoleBackend = "BACKEND"
)

// Scope is a caller's resolved client access.
type Scope struct {
	UserID       uuid.UUID
	Unrestricted bool
	ClientIDs    []uuid.UUID
}

// Allows reports whether the scope permits access to the given client.
func (s Scope) Allows(clientID uuid.UUID) bool {
	if s.Unrestricted {
		return true
	}
	for _, id := range s.ClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}

// AssignmentStore is the read surface the resolver needs.
type AssignmentStore interface {
	GetClientIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Resolver turns an authenticated request context into a Scope.
type Resolver struct {
	assignments AssignmentStore
	logger      ectologger.Logger
}

// NewResolver creates a new scope resolver
func NewResolver(assignments AssignmentStore, logger ectologger.Logger) *Resolver {
	return &Resolver{
		assignments: assignments,
		logger:      logger,
	}
}

// Resolve returns the caller's scope. ADMIN callers are unrestricted;
// BACKEND callers are restricted to their assigned clients and rejected
// with NO_CLIENT_ACCESS when they have none.
func (r *Resolver) Resolve(ctx context.Context) (Scope, error) {
	ctx, span := tracing.StartSpan(ctx, "accessscope.Resolver.Resolve")
	defer span.End()

	userIDStr := appctx.GetUserID(ctx)
	if userIDStr == "" {
		return Scope{}, apierror.Unauthorized("authentication required")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return Scope{}, apierror.Unauthorized("invalid authentication token")
	}

	if appctx.HasRole(ctx, RoleAdmin) {
		return Scope{UserID: userID, Unrestricted: true}, nil
	}

	clientIDs, err := r.assignments.GetClientIDs(ctx, userID)
	if err != nil {
		return Scope{}, err
	}

	if len(clientIDs) == 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{"user_id": userID}).Warn("User has no client assignments")
		return Scope{}, apierror.Forbidden(apierror.CodeNoClientAccess, "no client access assigned")
	}

	return Scope{UserID: userID, ClientIDs: clientIDs}, nil
}
