package models

import (
	"time"

	"github.com/google/uuid"
)

// FieldName identifies a matchable criteria field.
type FieldName string

const (
	FieldCustomerName      FieldName = "customerName"
	FieldPANNumber         FieldName = "panNumber"
	FieldCustomerPhone     FieldName = "customerPhone"
	FieldAadhaarNumber     FieldName = "aadhaarNumber"
	FieldBankAccountNumber FieldName = "bankAccountNumber"
)

// SearchCriteria is the caller-supplied (and later normalized) search input.
// All fields optional, at least one required after normalization.
type SearchCriteria struct {
	CustomerName      string `json:"customerName,omitempty"`
	PANNumber         string `json:"panNumber,omitempty"`
	CustomerPhone     string `json:"customerPhone,omitempty"`
	AadhaarNumber     string `json:"aadhaarNumber,omitempty"`
	BankAccountNumber string `json:"bankAccountNumber,omitempty"`
}

// IsEmpty reports whether no criterion is set.
func (c SearchCriteria) IsEmpty() bool {
	return c.CustomerName == "" &&
		c.PANNumber == "" &&
		c.CustomerPhone == "" &&
		c.AadhaarNumber == "" &&
		c.BankAccountNumber == ""
}

// DuplicateCandidate is a ranked search hit. Built per search call, never
// persisted on its own; audit rows keep a JSON snapshot of what was shown.
type DuplicateCandidate struct {
	Case          Case        `json:"case"`
	MatchedFields []FieldName `json:"matchedFields"`
	MatchScore    float64     `json:"matchScore"`
}

// DecisionType enumerates operator deduplication decisions.
type DecisionType string

const (
	DecisionCreateNew   DecisionType = "CREATE_NEW"
	DecisionUseExisting DecisionType = "USE_EXISTING"
	DecisionMergeCases  DecisionType = "MERGE_CASES"
)

func (d DecisionType) IsValid() bool {
	switch d {
	case DecisionCreateNew, DecisionUseExisting, DecisionMergeCases:
		return true
	}
	return false
}

// DeduplicationDecision is the operator's submitted decision.
type DeduplicationDecision struct {
	CaseID    uuid.UUID    `json:"caseId" validate:"required"`
	Decision  DecisionType `json:"decision" validate:"required"`
	Rationale string       `json:"rationale" validate:"required"`
}

// AuditRecord is one append-only deduplication audit entry.
type AuditRecord struct {
	ID              uuid.UUID            `json:"id"`
	CaseID          uuid.UUID            `json:"caseId"`
	SearchCriteria  SearchCriteria       `json:"searchCriteria"`
	DuplicatesFound []DuplicateCandidate `json:"duplicatesFound"`
	UserDecision    DecisionType         `json:"userDecision"`
	Rationale       string               `json:"rationale"`
	PerformedBy     uuid.UUID            `json:"performedBy"`
	PerformedAt     time.Time            `json:"performedAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// SearchRequest is the POST search body.
type SearchRequest struct {
	CustomerName      string `json:"customerName"`
	PANNumber         string `json:"panNumber"`
	CustomerPhone     string `json:"customerPhone"`
	AadhaarNumber     string `json:"aadhaarNumber"`
	BankAccountNumber string `json:"bankAccountNumber"`
}

func (r SearchRequest) Criteria() SearchCriteria {
	return SearchCriteria{
		CustomerName:      r.CustomerName,
		PANNumber:         r.PANNumber,
		CustomerPhone:     r.CustomerPhone,
		AadhaarNumber:     r.AadhaarNumber,
		BankAccountNumber: r.BankAccountNumber,
	}
}

// DecisionRequest is the POST decision body. DuplicatesFound and
// SearchCriteria echo what the operator was shown; SearchToken, when present,
// lets the server verify that echo against a prior search.
type DecisionRequest struct {
	Decision        DeduplicationDecision `json:"decision" validate:"required"`
	DuplicatesFound []DuplicateCandidate  `json:"duplicatesFound"`
	SearchCriteria  *SearchCriteria       `json:"searchCriteria"`
	SearchToken     string                `json:"searchToken"`
}

// SearchResult is the ranked candidate list plus its verification token.
type SearchResult struct {
	Candidates  []DuplicateCandidate `json:"candidates"`
	SearchToken string               `json:"searchToken,omitempty"`
}
