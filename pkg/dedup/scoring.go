package dedup

import (
	"sort"

	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/internal/repositories/cases"
	"github.com/Ramsey-B/clover/pkg/models"
)

// exactFieldWeight is the score contribution of each exact-identifier match.
// A fuzzy name match contributes its similarity directly, so stronger name
// matches rank higher. Composite scores are capped at 1.0.
const exactFieldWeight = 0.4

// maxScore caps the composite score.
const maxScore = 1.0

// Rank deduplicates raw search rows by case id, unions their matched fields,
// scores each candidate and orders the result. Pure function of its input.
//
// Name similarity only counts at or above minNameSimilarity; rows matched on
// an exact field can carry a sub-threshold similarity that must not score.
//
// Ordering: score desc, then created_at desc (the newer case is the likelier
// "current" duplicate), then id for a stable total order.
func Rank(rows []cases.SearchRow, minNameSimilarity float64) []models.DuplicateCandidate {
	type agg struct {
		c              models.Case
		matched        map[models.FieldName]bool
		nameSimilarity float64
	}

	byID := make(map[uuid.UUID]*agg)
	order := make([]uuid.UUID, 0, len(rows))

	for _, row := range rows {
		entry, ok := byID[row.Case.ID]
		if !ok {
			entry = &agg{c: row.Case, matched: make(map[models.FieldName]bool)}
			byID[row.Case.ID] = entry
			order = append(order, row.Case.ID)
		}

		if row.PANMatched {
			entry.matched[models.FieldPANNumber] = true
		}
		if row.AadhaarMatched {
			entry.matched[models.FieldAadhaarNumber] = true
		}
		if row.PhoneMatched {
			entry.matched[models.FieldCustomerPhone] = true
		}
		if row.BankAccountMatched {
			entry.matched[models.FieldBankAccountNumber] = true
		}
		if row.NameSimilarity > entry.nameSimilarity {
			entry.nameSimilarity = row.NameSimilarity
		}
	}

	candidates := make([]models.DuplicateCandidate, 0, len(byID))
	for _, id := range order {
		entry := byID[id]

		score := 0.0
		fields := make([]models.FieldName, 0, len(entry.matched)+1)
		for _, field := range []models.FieldName{
			models.FieldPANNumber,
			models.FieldAadhaarNumber,
			models.FieldCustomerPhone,
			models.FieldBankAccountNumber,
		} {
			if entry.matched[field] {
				fields = append(fields, field)
				score += exactFieldWeight
			}
		}

		if entry.nameSimilarity > 0 && entry.nameSimilarity >= minNameSimilarity {
			fields = append(fields, models.FieldCustomerName)
			score += entry.nameSimilarity
		}

		if len(fields) == 0 {
			continue
		}
		if score > maxScore {
			score = maxScore
		}

		candidates = append(candidates, models.DuplicateCandidate{
			Case:          entry.c,
			MatchedFields: fields,
			MatchScore:    score,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].MatchScore != candidates[j].MatchScore {
			return candidates[i].MatchScore > candidates[j].MatchScore
		}
		if !candidates[i].Case.CreatedAt.Equal(candidates[j].Case.CreatedAt) {
			return candidates[i].Case.CreatedAt.After(candidates[j].Case.CreatedAt)
		}
		return candidates[i].Case.ID.String() < candidates[j].Case.ID.String()
	})

	return candidates
}
