package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of event
type EventType string

const (
	// EventTypeSearchPerformed is emitted after every duplicate search
	EventTypeSearchPerformed EventType = "dedup.search.performed"

	// EventTypeDecisionRecorded is emitted when an agent records a decision
	EventTypeDecisionRecorded EventType = "dedup.decision.recorded"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// SearchPerformedEvent is emitted after a duplicate search completes
type SearchPerformedEvent struct {
	BaseEvent
	UserID         string   `json:"user_id"`
	MatchedFields  []string `json:"matched_fields,omitempty"`
	CandidateCount int      `json:"candidate_count"`
}

// DecisionRecordedEvent is emitted when a deduplication decision lands in the
// audit trail
type DecisionRecordedEvent struct {
	BaseEvent
	AuditID        string `json:"audit_id"`
	CaseID         string `json:"case_id"`
	UserID         string `json:"user_id"`
	Decision       string `json:"decision"`
	DuplicateCount int    `json:"duplicate_count"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
