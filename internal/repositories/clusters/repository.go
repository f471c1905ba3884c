// Package clusters mines groups of cases sharing identifier values.
package clusters

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/apierror"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// identifierColumns maps each exact-identifier criteria field to its column.
// Grouping runs once per field so values from different identifier types
// never share a key space.
var identifierColumns = []struct {
	Field  models.FieldName
	Column string
}{
	{models.FieldPANNumber, "pan_number"},
	{models.FieldAadhaarNumber, "aadhaar_number"},
	{models.FieldCustomerPhone, "applicant_phone"},
	{models.FieldBankAccountNumber, "bank_account_number"},
}

// Repository runs the batch duplicate-group scans.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new cluster repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GroupRow is one case's membership in an identifier duplicate group.
type GroupRow struct {
	Field      models.FieldName
	GroupValue string
	Case       models.Case
}

type groupScanRow struct {
	GroupValue string `db:"group_value"`
	models.Case
}

// ScanParams restricts and bounds a duplicate-group scan.
type ScanParams struct {
	ClientIDs  []uuid.UUID
	Restricted bool
	// PageSize bounds each per-field pass; the scan is cancellable between
	// passes via the context.
	PageSize int
}

// FindIdentifierGroups scans the case store once per identifier field and
// returns every case belonging to a value shared by more than one case.
// This is a full-table batch scan; never call it on the intake hot path.
func (r *Repository) FindIdentifierGroups(ctx context.Context, params ScanParams) ([]GroupRow, error) {
	ctx, span := tracing.StartSpan(ctx, "clusters.Repository.FindIdentifierGroups")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "FindIdentifierGroups",
	})

	if params.Restricted && len(params.ClientIDs) == 0 {
		return []GroupRow{}, nil
	}

	var rows []GroupRow
	for _, ident := range identifierColumns {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		fieldRows, err := r.scanField(ctx, ident.Column, params)
		if err != nil {
			log.WithError(err).WithFields(map[string]any{"field": ident.Field}).Error("Failed to scan identifier field")
			return nil, apierror.Internal(apierror.CodeClustersError, "failed to get duplicate clusters")
		}

		for _, row := range fieldRows {
			rows = append(rows, GroupRow{
				Field:      ident.Field,
				GroupValue: row.GroupValue,
				Case:       row.Case,
			})
		}
	}

	log.WithFields(map[string]any{"count": len(rows)}).Debug("Identifier group scan complete")
	return rows, nil
}

func (r *Repository) scanField(ctx context.Context, column string, params ScanParams) ([]groupScanRow, error) {
	var args []any
	argNum := 1

	// the scope filter appears in both the inner value query and the outer
	// member query, each with its own placeholder list
	scopeCond := func() string {
		if !params.Restricted {
			return ""
		}
		placeholders := make([]string, len(params.ClientIDs))
		for i, clientID := range params.ClientIDs {
			placeholders[i] = fmt.Sprintf("$%d", argNum)
			args = append(args, clientID)
			argNum++
		}
		return fmt.Sprintf(" AND client_id IN (%s)", strings.Join(placeholders, ", "))
	}

	innerScope := scopeCond()
	outerScope := scopeCond()

	limit := params.PageSize
	if limit < 1 || limit > 5000 {
		limit = 500
	}

	query := fmt.Sprintf(`
		SELECT %[1]s as group_value,
			id, case_number, applicant_name, status, client_id, product_id,
			pan_number, aadhaar_number, applicant_phone, applicant_email, bank_account_number,
			created_at, updated_at
		FROM cases
		WHERE %[1]s IN (
			SELECT %[1]s FROM cases
			WHERE %[1]s IS NOT NULL AND %[1]s <> ''%[2]s
			GROUP BY %[1]s
			HAVING COUNT(*) > 1
		)%[3]s
		ORDER BY %[1]s, created_at DESC
		LIMIT %[4]d
	`, column, innerScope, outerScope, limit)

	var rows []groupScanRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	return rows, nil
}
