// Package dedupaudit persists the append-only deduplication decision audit.
package dedupaudit

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/apierror"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository handles audit record persistence. Records are append-only:
// there is no update or delete path.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new audit repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type auditRow struct {
	ID              uuid.UUID                                   `db:"id"`
	CaseID          uuid.UUID                                   `db:"case_id"`
	SearchCriteria  database.JSONB[models.SearchCriteria]       `db:"search_criteria"`
	DuplicatesFound database.JSONB[[]models.DuplicateCandidate] `db:"duplicates_found"`
	UserDecision    string                                      `db:"user_decision"`
	Rationale       string                                      `db:"rationale"`
	PerformedBy     uuid.UUID                                   `db:"performed_by"`
	PerformedAt     time.Time                                   `db:"performed_at"`
	UpdatedAt       time.Time                                   `db:"updated_at"`
}

func (r auditRow) toModel() models.AuditRecord {
	duplicates := r.DuplicatesFound.GetValue()
	if duplicates == nil {
		duplicates = []models.DuplicateCandidate{}
	}
	return models.AuditRecord{
		ID:              r.ID,
		CaseID:          r.CaseID,
		SearchCriteria:  r.SearchCriteria.GetValue(),
		DuplicatesFound: duplicates,
		UserDecision:    models.DecisionType(r.UserDecision),
		Rationale:       r.Rationale,
		PerformedBy:     r.PerformedBy,
		PerformedAt:     r.PerformedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// Insert writes one audit record in its own transaction. The record either
// lands fully or not at all.
func (r *Repository) Insert(ctx context.Context, record *models.AuditRecord) (*models.AuditRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupaudit.Repository.Insert")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":  "Insert",
		"case_id": record.CaseID,
	})

	now := time.Now().UTC()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.PerformedAt = now
	record.UpdatedAt = now

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, apierror.Internal(apierror.CodeDecisionError, "failed to record deduplication decision")
	}
	defer tx.Rollback(ctx)

	sb := database.NewInsertBuilder()
	sb = sb.InsertInto("case_deduplication_audit")
	sb = sb.Cols("id", "case_id", "search_criteria", "duplicates_found",
		"user_decision", "rationale", "performed_by", "performed_at", "updated_at")
	sb = sb.Values(record.ID, record.CaseID,
		database.NewJSONB(record.SearchCriteria),
		database.NewJSONB(record.DuplicatesFound),
		string(record.UserDecision), record.Rationale, record.PerformedBy,
		record.PerformedAt, record.UpdatedAt)

	query, args := sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to insert audit record")
		return nil, apierror.Internal(apierror.CodeDecisionError, "failed to record deduplication decision")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apierror.Internal(apierror.CodeDecisionError, "failed to record deduplication decision")
	}

	log.Debug("Recorded deduplication decision")
	return record, nil
}

// ListByCaseID returns a case's audit trail, newest first.
func (r *Repository) ListByCaseID(ctx context.Context, caseID uuid.UUID) ([]models.AuditRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupaudit.Repository.ListByCaseID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "case_id", "search_criteria", "duplicates_found",
		"user_decision", "rationale", "performed_by", "performed_at", "updated_at")
	sb.From("case_deduplication_audit")
	sb.Where(sb.Equal("case_id", caseID))
	sb.OrderBy("performed_at").Desc()

	query, args := sb.Build()

	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list audit records")
		return nil, apierror.Internal(apierror.CodeHistoryError, "failed to get deduplication history")
	}

	records := make([]models.AuditRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toModel())
	}

	return records, nil
}

// CountByCaseID returns the number of audit rows for a case.
func (r *Repository) CountByCaseID(ctx context.Context, caseID uuid.UUID) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupaudit.Repository.CountByCaseID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("case_deduplication_audit")
	sb.Where(sb.Equal("case_id", caseID))

	query, args := sb.Build()

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count audit records")
		return 0, apierror.Internal(apierror.CodeHistoryError, "failed to count audit records")
	}

	return count, nil
}
