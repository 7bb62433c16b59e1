package gateway

import (
	"encoding/json"
	"time"

	"github.com/wonderelo/wonderelo/internal/events"
)

// RoundEvent is the wire shape pushed to websocket clients. Data carries the
// outbox payload untouched so clients and the state tracker decode the same
// bytes the domain wrote.
type RoundEvent struct {
	ID        string          `json:"id"`
	RoundID   string          `json:"round_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// knownEventTypes lists the event types the gateway forwards. Anything else
// on the stream is acked and dropped.
var knownEventTypes = map[string]bool{
	events.TypeRoundScheduled:         true,
	events.TypeRoundCancelled:         true,
	events.TypeMatchingCompleted:      true,
	events.TypeMatchRevealed:          true,
	events.TypeMeetConfirmed:          true,
	events.TypeNoShowReported:         true,
	events.TypeNetworkingEnded:        true,
	events.TypeContactExchanged:       true,
	events.TypeParticipantUnconfirmed: true,
}

// ParseEventPayload decodes the event data into its typed payload.
func ParseEventPayload(event *RoundEvent) (interface{}, error) {
	switch event.Type {
	case events.TypeRoundScheduled:
		var payload events.RoundScheduled
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case events.TypeRoundCancelled:
		var payload events.RoundCancelled
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case events.TypeMatchingCompleted:
		var payload events.MatchingCompleted
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case events.TypeMatchRevealed:
		var payload events.MatchRevealed
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case events.TypeMeetConfirmed:
		var payload events.MeetConfirmed
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case events.TypeNoShowReported:
		var payload events.NoShowReported
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case events.TypeNetworkingEnded:
		var payload events.NetworkingEnded
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case events.TypeContactExchanged:
		var payload events.ContactExchanged
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case events.TypeParticipantUnconfirmed:
		var payload events.ParticipantUnconfirmed
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil
	}
}
