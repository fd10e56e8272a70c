package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_PROCESSED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeTurnProcessed     = "TURN_PROCESSED"
	TypeTurnFailed        = "TURN_FAILED"
	TypeSessionSummary    = "SESSION_SUMMARIZED"
	TypeRetrievalDegraded = "RETRIEVAL_DEGRADED"
)

// NewTurnProcessed records a fully handled inbound message.
func NewTurnProcessed(sessionId, intent string, degraded bool, elapsed time.Duration) Event {
	return BaseEvent{
		Type: TypeTurnProcessed,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"intent":     intent,
			"degraded":   degraded,
			"elapsed_ms": elapsed.Milliseconds(),
		},
		OccurredAt: time.Now(),
	}
}

// NewTurnFailed records a message that fell back to the apology reply.
func NewTurnFailed(sessionId, stage, reason string) Event {
	return BaseEvent{
		Type: TypeTurnFailed,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"stage":      stage,
			"reason":     reason,
		},
		OccurredAt: time.Now(),
	}
}

// NewSessionSummarized records a history compaction run.
func NewSessionSummarized(sessionId string, summarizedTurnCount int) Event {
	return BaseEvent{
		Type: TypeSessionSummary,
		Data: map[string]interface{}{
			"session_id":            sessionId,
			"summarized_turn_count": summarizedTurnCount,
		},
		OccurredAt: time.Now(),
	}
}

// NewRetrievalDegraded records a retrieval leg that produced no evidence.
func NewRetrievalDegraded(sessionId, source, reason string) Event {
	return BaseEvent{
		Type: TypeRetrievalDegraded,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"source":     source,
			"reason":     reason,
		},
		OccurredAt: time.Now(),
	}
}
