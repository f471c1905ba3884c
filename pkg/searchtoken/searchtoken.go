// Package searchtoken signs search results so a later decision can prove it
// echoes a real prior search rather than caller-fabricated evidence.
package searchtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/apierror"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Signer issues and verifies HMAC-SHA256 search tokens.
type Signer struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSigner creates a signer. An empty secret disables signing entirely.
func NewSigner(secret string, maxAge time.Duration) *Signer {
	if secret == "" {
		return nil
	}
	return &Signer{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

type payload struct {
	UserID   string                `json:"userId"`
	Criteria models.SearchCriteria `json:"criteria"`
	CaseIDs  []string              `json:"caseIds"`
	IssuedAt int64                 `json:"issuedAt"`
}

func candidateIDs(candidates []models.DuplicateCandidate) []string {
	ids := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		ids = append(ids, candidate.Case.ID.String())
	}
	sort.Strings(ids)
	return ids
}

// Sign produces a token binding the caller, criteria and candidate set.
func (s *Signer) Sign(userID uuid.UUID, criteria models.SearchCriteria, candidates []models.DuplicateCandidate) (string, error) {
	p := payload{
		UserID:   userID.String(),
		Criteria: criteria,
		CaseIDs:  candidateIDs(candidates),
		IssuedAt: s.now().Unix(),
	}

	body, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)

	return base64.RawURLEncoding.EncodeToString(body) + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks a token against the decision's echoed criteria and
// candidates. Any mismatch, bad signature or expired token fails with
// INVALID_SEARCH_TOKEN.
func (s *Signer) Verify(token string, userID uuid.UUID, criteria models.SearchCriteria, candidates []models.DuplicateCandidate) error {
	invalid := apierror.BadRequest(apierror.CodeInvalidSearchToken, "search token is invalid")

	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return invalid
	}

	body, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return invalid
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return invalid
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return invalid
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return invalid
	}

	if s.maxAge > 0 && s.now().Sub(time.Unix(p.IssuedAt, 0)) > s.maxAge {
		return apierror.BadRequest(apierror.CodeInvalidSearchToken, "search token has expired")
	}

	if p.UserID != userID.String() {
		return invalid
	}
	if p.Criteria != criteria {
		return invalid
	}

	ids := candidateIDs(candidates)
	if len(ids) != len(p.CaseIDs) {
		return invalid
	}
	for i := range ids {
		if ids[i] != p.CaseIDs[i] {
			return invalid
		}
	}

	return nil
}
