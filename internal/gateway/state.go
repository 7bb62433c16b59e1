package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wonderelo/wonderelo/internal/events"
)

// RoundState is the gateway's view of a round, rebuilt from the event stream
// so late-joining clients can catch up without hitting the API.
type RoundState struct {
	RoundID          string     `json:"round_id"`
	Status           string     `json:"status"`
	StartsAt         *time.Time `json:"starts_at,omitempty"`
	MatchedCount     int        `json:"matched_count"`
	NoMatchCount     int        `json:"no_match_count"`
	MatchCount       int        `json:"match_count"`
	OpenMatches      int        `json:"open_matches"`
	MatchingRanAt    *time.Time `json:"matching_ran_at,omitempty"`
	SecondsToStart   int        `json:"seconds_to_start"`
	ServerTime       time.Time  `json:"server_time"`
	LastEventType    string     `json:"last_event_type,omitempty"`
	LastEventAt      *time.Time `json:"last_event_at,omitempty"`
	ContactExchanges int        `json:"contact_exchanges"`
}

// secondsUntil returns the whole seconds between serverTime and t, floored
// at zero. Clients use ServerTime to correct for their own clock skew.
func secondsUntil(t *time.Time, serverTime time.Time) int {
	if t == nil || t.IsZero() {
		return 0
	}
	remaining := int(t.Sub(serverTime).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RoundStateManager tracks per-round state in memory.
type RoundStateManager struct {
	mu     sync.RWMutex
	states map[uuid.UUID]*RoundState
}

// NewRoundStateManager creates a state manager.
func NewRoundStateManager() *RoundStateManager {
	return &RoundStateManager{states: make(map[uuid.UUID]*RoundState)}
}

// GetState returns a copy of the round's state stamped with the server time,
// or nil if the gateway has seen no events for the round.
func (rsm *RoundStateManager) GetState(roundID uuid.UUID, serverTime time.Time) *RoundState {
	rsm.mu.RLock()
	defer rsm.mu.RUnlock()

	state, ok := rsm.states[roundID]
	if !ok {
		return nil
	}
	cp := *state
	cp.ServerTime = serverTime
	cp.SecondsToStart = secondsUntil(cp.StartsAt, serverTime)
	return &cp
}

// RemoveState drops a round's state, e.g. after it completes.
func (rsm *RoundStateManager) RemoveState(roundID uuid.UUID) {
	rsm.mu.Lock()
	defer rsm.mu.Unlock()
	delete(rsm.states, roundID)
}

// ProcessEvent folds an incoming event into the round's state.
func (rsm *RoundStateManager) ProcessEvent(event *RoundEvent) error {
	roundID, err := uuid.Parse(event.RoundID)
	if err != nil {
		return err
	}

	rsm.mu.Lock()
	defer rsm.mu.Unlock()

	state, ok := rsm.states[roundID]
	if !ok {
		state = &RoundState{RoundID: event.RoundID}
		rsm.states[roundID] = state
	}
	state.LastEventType = event.Type
	ts := event.Timestamp
	state.LastEventAt = &ts

	payload, err := ParseEventPayload(event)
	if err != nil {
		return err
	}

	switch event.Type {
	case events.TypeRoundScheduled:
		p := payload.(events.RoundScheduled)
		state.Status = "SCHEDULED"
		state.StartsAt = &p.StartsAt

	case events.TypeRoundCancelled:
		state.Status = "CANCELLED"

	case events.TypeMatchingCompleted:
		p := payload.(events.MatchingCompleted)
		state.Status = "IN_PROGRESS"
		state.MatchCount = p.MatchCount
		state.MatchedCount = p.MatchedCount
		state.NoMatchCount = p.NoMatchCount
		state.MatchingRanAt = &p.RanAt

	case events.TypeMatchRevealed:
		state.OpenMatches++

	case events.TypeNoShowReported:
		// The broken match never reaches networking_ended; a rematch shows
		// up as its own match_revealed.
		if state.OpenMatches > 0 {
			state.OpenMatches--
		}

	case events.TypeNetworkingEnded:
		if state.OpenMatches > 0 {
			state.OpenMatches--
		}
		if state.MatchingRanAt != nil && state.OpenMatches == 0 {
			state.Status = "COMPLETED"
		}

	case events.TypeContactExchanged:
		state.ContactExchanges++
	}

	return nil
}
