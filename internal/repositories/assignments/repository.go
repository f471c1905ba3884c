// Package assignments persists the user ↔ client access assignments the
// gatekeeper scopes searches with.
package assignments

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository handles user-client assignment persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new assignment repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Assign grants a user access to a client. Idempotent: re-assigning an
// existing pair is a no-op.
func (r *Repository) Assign(ctx context.Context, userID, clientID uuid.UUID) (*models.UserClientAssignment, error) {
	ctx, span := tracing.StartSpan(ctx, "assignments.Repository.Assign")
	defer span.End()

	assignment := models.UserClientAssignment{
		ID:        uuid.New(),
		UserID:    userID,
		ClientID:  clientID,
		CreatedAt: time.Now().UTC(),
	}

	sb := database.NewInsertBuilder()
	sb = sb.InsertInto("user_client_assignments")
	sb = sb.Cols("id", "user_id", "client_id", "created_at")
	sb = sb.Values(assignment.ID, assignment.UserID, assignment.ClientID, assignment.CreatedAt)
	sb = sb.OnConflictDoNothing()

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to assign client to user")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to assign client")
	}

	return &assignment, nil
}

// Remove revokes a user's access to a client.
func (r *Repository) Remove(ctx context.Context, userID, clientID uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "assignments.Repository.Remove")
	defer span.End()

	sb := database.NewDeleteBuilder()
	sb.DeleteFrom("user_client_assignments")
	sb.Where(
		sb.Equal("user_id", userID),
		sb.Equal("client_id", clientID),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to remove client assignment")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to remove client assignment")
	}

	return nil
}

// ListByUserID returns all assignments for a user.
func (r *Repository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.UserClientAssignment, error) {
	ctx, span := tracing.StartSpan(ctx, "assignments.Repository.ListByUserID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "user_id", "client_id", "created_at")
	sb.From("user_client_assignments")
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("created_at")

	query, args := sb.Build()

	var assignments []models.UserClientAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list client assignments")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list client assignments")
	}

	return assignments, nil
}

// GetClientIDs returns the client ids a user may access.
func (r *Repository) GetClientIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ctx, span := tracing.StartSpan(ctx, "assignments.Repository.GetClientIDs")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("client_id")
	sb.From("user_client_assignments")
	sb.Where(sb.Equal("user_id", userID))

	query, args := sb.Build()

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get client ids for user")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve client access")
	}

	return ids, nil
}
