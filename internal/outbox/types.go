package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a to-be-inserted outbox entry. Domain writes hand these to the
// repository inside their own transaction, so an event exists iff the state
// change that produced it committed.
type Event struct {
	Type    string
	RoundID uuid.UUID
	Payload any
}

// NewEvent builds an outbox event for a round.
func NewEvent(eventType string, roundID uuid.UUID, payload any) Event {
	return Event{Type: eventType, RoundID: roundID, Payload: payload}
}

// OutboxEvent is a stored outbox row.
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	RoundID   uuid.UUID       `json:"round_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// Envelope is the wire shape published to the stream and decoded by
// consumers. Payload stays raw so consumers decode only the types they
// handle.
type Envelope struct {
	EventID   uuid.UUID       `json:"event_id"`
	EventType string          `json:"event_type"`
	RoundID   uuid.UUID       `json:"round_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}
