// Package cases provides read access to the case store for deduplication
// candidate search.
package cases

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

// Repository handles candidate lookups against the case store
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new case repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// SearchRow is a raw search hit: the case plus per-field match flags and the
// fuzzy-name similarity when a name criterion was supplied.
type SearchRow struct {
	models.Case
	PANMatched         bool    `db:"pan_matched"`
	AadhaarMatched     bool    `db:"aadhaar_matched"`
	PhoneMatched       bool    `db:"phone_matched"`
	BankAccountMatched bool    `db:"bank_account_matched"`
	NameSimilarity     float64 `db:"name_similarity"`
}

// SearchParams tunes a candidate search.
type SearchParams struct {
	// MinSimilarity is the trigram similarity threshold for name matches.
	MinSimilarity float64
	// Limit caps the number of raw rows returned.
	Limit int
	// ClientIDs restricts results to the given clients. Nil means
	// unrestricted; empty means no access at all.
	ClientIDs []uuid.UUID
	// Restricted indicates whether ClientIDs applies.
	Restricted bool
}

const caseColumns = `id, case_number, applicant_name, status, client_id, product_id,
		pan_number, aadhaar_number, applicant_phone, applicant_email, bank_account_number,
		created_at, updated_at`

// Search runs one query combining exact-identifier predicates with trigram
// name similarity. Rows matching any criterion come back with match flags;
// an empty result is not an error.
func (r *Repository) Search(ctx context.Context, c models.SearchCriteria, params SearchParams) ([]SearchRow, error) {
	ctx, span := tracing.StartSpan(ctx, "cases.Repository.Search")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "Search",
	})

	if c.IsEmpty() {
		return []SearchRow{}, nil
	}
	if params.Restricted && len(params.ClientIDs) == 0 {
		return []SearchRow{}, nil
	}

	var matchConds []string
	var args []any
	argNum := 1

	// every select expression defaults to a non-match when the criterion is absent
	panFlag := "FALSE"
	aadhaarFlag := "FALSE"
	phoneFlag := "FALSE"
	bankFlag := "FALSE"
	nameSim := "0.0"

	if c.PANNumber != "" {
		matchConds = append(matchConds, fmt.Sprintf("pan_number = $%d", argNum))
		panFlag = fmt.Sprintf("(pan_number = $%d)", argNum)
		args = append(args, c.PANNumber)
		argNum++
	}

	if c.AadhaarNumber != "" {
		matchConds = append(matchConds, fmt.Sprintf("aadhaar_number = $%d", argNum))
		aadhaarFlag = fmt.Sprintf("(aadhaar_number = $%d)", argNum)
		args = append(args, c.AadhaarNumber)
		argNum++
	}

	if c.CustomerPhone != "" {
		matchConds = append(matchConds, fmt.Sprintf("applicant_phone = $%d", argNum))
		phoneFlag = fmt.Sprintf("(applicant_phone = $%d)", argNum)
		args = append(args, c.CustomerPhone)
		argNum++
	}

	if c.BankAccountNumber != "" {
		matchConds = append(matchConds, fmt.Sprintf("bank_account_number = $%d", argNum))
		bankFlag = fmt.Sprintf("(bank_account_number = $%d)", argNum)
		args = append(args, c.BankAccountNumber)
		argNum++
	}

	if c.CustomerName != "" {
		matchConds = append(matchConds, fmt.Sprintf("similarity(applicant_name, $%d) >= $%d", argNum, argNum+1))
		// gate the selected similarity too: a row matched on an exact field
		// must not carry a sub-threshold similarity into scoring
		nameSim = fmt.Sprintf(
			"CASE WHEN similarity(applicant_name, $%d) >= $%d THEN similarity(applicant_name, $%d) ELSE 0 END",
			argNum, argNum+1, argNum,
		)
		args = append(args, c.CustomerName, params.MinSimilarity)
		argNum += 2
	}

	conditions := []string{"(" + strings.Join(matchConds, " OR ") + ")"}

	if params.Restricted {
		placeholders := make([]string, len(params.ClientIDs))
		for i, clientID := range params.ClientIDs {
			placeholders[i] = fmt.Sprintf("$%d", argNum)
			args = append(args, clientID)
			argNum++
		}
		conditions = append(conditions, fmt.Sprintf("client_id IN (%s)", strings.Join(placeholders, ", ")))
	}

	limit := params.Limit
	if limit < 1 || limit > 500 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT %s,
			COALESCE(%s, FALSE) as pan_matched,
			COALESCE(%s, FALSE) as aadhaar_matched,
			COALESCE(%s, FALSE) as phone_matched,
			COALESCE(%s, FALSE) as bank_account_matched,
			%s as name_similarity
		FROM cases
		WHERE %s
		ORDER BY created_at DESC
		LIMIT %d
	`, caseColumns, panFlag, aadhaarFlag, phoneFlag, bankFlag, nameSim, strings.Join(conditions, " AND "), limit)

	var rows []SearchRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		log.WithError(err).Error("Failed to search for duplicate candidates")
		return nil, apierror.Internal(apierror.CodeSearchError, "failed to search for duplicate cases")
	}

	log.WithFields(map[string]any{"count": len(rows)}).Debug("Candidate search complete")
	return rows, nil
}

// GetByID fetches a single case.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	ctx, span := tracing.StartSpan(ctx, "cases.Repository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(caseColumns)
	sb.From("cases")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var result models.Case
	err := r.db.GetContext(ctx, &result, query, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, apierror.NotFound(apierror.CodeCaseNotFound, fmt.Sprintf("case %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get case")
		return nil, apierror.Internal(apierror.CodeSearchError, "failed to get case")
	}

	return &result, nil
}
