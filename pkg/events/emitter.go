// Package events handles event emission for deduplication lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes deduplication events. Emission failures are logged but
// never fail the operation that triggered them.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter. A nil producer disables emission.
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitSearchPerformed emits an event after a duplicate search completes.
func (e *Emitter) EmitSearchPerformed(ctx context.Context, userID string, candidates []models.DuplicateCandidate) {
	if e.producer == nil {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSearchPerformed")
	defer span.End()

	fieldSet := make(map[models.FieldName]bool)
	for _, candidate := range candidates {
		for _, field := range candidate.MatchedFields {
			fieldSet[field] = true
		}
	}
	fields := make([]string, 0, len(fieldSet))
	for field := range fieldSet {
		fields = append(fields, string(field))
	}

	payload := SearchPerformedEvent{
		BaseEvent:      NewBaseEvent(EventTypeSearchPerformed),
		UserID:         userID,
		MatchedFields:  fields,
		CandidateCount: len(candidates),
	}
	data, _ := json.Marshal(payload)

	event := &kafka.DeduplicationEvent{
		EventType:      string(EventTypeSearchPerformed),
		UserID:         userID,
		DuplicateCount: len(candidates),
		Data:           data,
	}

	if err := e.producer.PublishDeduplicationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit search performed event")
	}
}

// EmitDecisionRecorded emits an event for a freshly written audit record.
func (e *Emitter) EmitDecisionRecorded(ctx context.Context, record *models.AuditRecord) {
	if e.producer == nil {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDecisionRecorded")
	defer span.End()

	payload := DecisionRecordedEvent{
		BaseEvent:      NewBaseEvent(EventTypeDecisionRecorded),
		AuditID:        record.ID.String(),
		CaseID:         record.CaseID.String(),
		UserID:         record.PerformedBy.String(),
		Decision:       string(record.UserDecision),
		DuplicateCount: len(record.DuplicatesFound),
	}
	data, _ := json.Marshal(payload)

	event := &kafka.DeduplicationEvent{
		EventType:      string(EventTypeDecisionRecorded),
		CaseID:         record.CaseID.String(),
		UserID:         record.PerformedBy.String(),
		Decision:       string(record.UserDecision),
		DuplicateCount: len(record.DuplicatesFound),
		Data:           data,
	}

	if err := e.producer.PublishDeduplicationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit decision recorded event")
	}
}
