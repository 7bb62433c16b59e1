package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonderelo/wonderelo/internal/events"
)

func mustEvent(t *testing.T, roundID uuid.UUID, eventType string, payload any) *RoundEvent {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &RoundEvent{
		ID:        uuid.New().String(),
		RoundID:   roundID.String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func TestRoundStateFollowsEventStream(t *testing.T) {
	sm := NewRoundStateManager()
	roundID := uuid.New()
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)

	require.NoError(t, sm.ProcessEvent(mustEvent(t, roundID, events.TypeRoundScheduled,
		events.RoundScheduled{RoundID: roundID, StartsAt: startsAt})))

	state := sm.GetState(roundID, startsAt.Add(-90*time.Second))
	require.NotNil(t, state)
	assert.Equal(t, "SCHEDULED", state.Status)
	assert.Equal(t, 90, state.SecondsToStart)

	require.NoError(t, sm.ProcessEvent(mustEvent(t, roundID, events.TypeMatchingCompleted,
		events.MatchingCompleted{RoundID: roundID, MatchCount: 2, MatchedCount: 4, NoMatchCount: 1, RanAt: startsAt})))
	require.NoError(t, sm.ProcessEvent(mustEvent(t, roundID, events.TypeMatchRevealed,
		events.MatchRevealed{RoundID: roundID, MatchID: uuid.New()})))
	require.NoError(t, sm.ProcessEvent(mustEvent(t, roundID, events.TypeMatchRevealed,
		events.MatchRevealed{RoundID: roundID, MatchID: uuid.New()})))

	state = sm.GetState(roundID, startsAt)
	assert.Equal(t, "IN_PROGRESS", state.Status)
	assert.Equal(t, 2, state.MatchCount)
	assert.Equal(t, 4, state.MatchedCount)
	assert.Equal(t, 1, state.NoMatchCount)
	assert.Equal(t, 2, state.OpenMatches)
	assert.Equal(t, 0, state.SecondsToStart)

	require.NoError(t, sm.ProcessEvent(mustEvent(t, roundID, events.TypeNetworkingEnded,
		events.NetworkingEnded{RoundID: roundID, MatchID: uuid.New(), EndedAt: startsAt.Add(15 * time.Minute)})))
	state = sm.GetState(roundID, startsAt)
	assert.Equal(t, "IN_PROGRESS", state.Status)

	require.NoError(t, sm.ProcessEvent(mustEvent(t, roundID, events.TypeNetworkingEnded,
		events.NetworkingEnded{RoundID: roundID, MatchID: uuid.New(), EndedAt: startsAt.Add(16 * time.Minute)})))
	state = sm.GetState(roundID, startsAt)
	assert.Equal(t, "COMPLETED", state.Status)
	assert.Equal(t, 0, state.OpenMatches)
}

func TestRoundStateNoShowFreesTheBrokenMatch(t *testing.T) {
	sm := NewRoundStateManager()
	roundID := uuid.New()

	require.NoError(t, sm.ProcessEvent(mustEvent(t, roundID, events.TypeMatchingCompleted,
		events.MatchingCompleted{RoundID: roundID, MatchCount: 1, MatchedCount: 2, RanAt: time.Now().UTC()})))
	require.NoError(t, sm.ProcessEvent(mustEvent(t, roundID, events.TypeMatchRevealed,
		events.MatchRevealed{RoundID: roundID, MatchID: uuid.New()})))

	rematch := uuid.New()
	require.NoError(t, sm.ProcessEvent(mustEvent(t, roundID, events.TypeNoShowReported,
		events.NoShowReported{RoundID: roundID, MatchID: uuid.New(), RematchedInto: &rematch})))
	require.NoError(t, sm.ProcessEvent(mustEvent(t, roundID, events.TypeMatchRevealed,
		events.MatchRevealed{RoundID: roundID, MatchID: rematch})))

	state := sm.GetState(roundID, time.Now().UTC())
	assert.Equal(t, 1, state.OpenMatches)

	require.NoError(t, sm.ProcessEvent(mustEvent(t, roundID, events.TypeNetworkingEnded,
		events.NetworkingEnded{RoundID: roundID, MatchID: rematch, EndedAt: time.Now().UTC()})))
	state = sm.GetState(roundID, time.Now().UTC())
	assert.Equal(t, "COMPLETED", state.Status)
}

func TestRoundStateCancelled(t *testing.T) {
	sm := NewRoundStateManager()
	roundID := uuid.New()

	require.NoError(t, sm.ProcessEvent(mustEvent(t, roundID, events.TypeRoundScheduled,
		events.RoundScheduled{RoundID: roundID, StartsAt: time.Now().UTC().Add(time.Hour)})))
	require.NoError(t, sm.ProcessEvent(mustEvent(t, roundID, events.TypeRoundCancelled,
		events.RoundCancelled{RoundID: roundID})))

	state := sm.GetState(roundID, time.Now().UTC())
	assert.Equal(t, "CANCELLED", state.Status)
	assert.Equal(t, events.TypeRoundCancelled, state.LastEventType)
}

func TestGetStateUnknownRound(t *testing.T) {
	sm := NewRoundStateManager()
	assert.Nil(t, sm.GetState(uuid.New(), time.Now().UTC()))
}
