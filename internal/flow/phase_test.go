package flow

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/wonderelo/wonderelo/internal/models"
)

var (
	roundStart = time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	params     = models.SystemParams{
		ConfirmationWindowMin: 5,
		WalkingTimeMin:        3,
		SafetyWindowMin:       2,
		NetworkingMin:         8,
	}
)

func at(hh, mm, ss int) time.Time {
	return time.Date(2026, 3, 14, hh, mm, ss, 0, time.UTC)
}

func activeMatch(revealed, met, end *time.Time) *models.Match {
	return &models.Match{
		ID:              uuid.New(),
		Status:          models.MatchStatusActive,
		RevealedAt:      revealed,
		MeetConfirmedAt: met,
		NetworkingEndAt: end,
	}
}

func TestComputePhase_TimeDriven(t *testing.T) {
	tests := []struct {
		name   string
		now    time.Time
		status models.ParticipantStatus
		match  *models.Match
		want   Phase
	}{
		{"well before window", at(13, 40, 0), models.ParticipantStatusRegistered, nil, PhaseBeforeConfirmation},
		{"just before window opens", at(13, 54, 59), models.ParticipantStatusRegistered, nil, PhaseBeforeConfirmation},
		{"window open, registered", at(13, 55, 0), models.ParticipantStatusRegistered, nil, PhaseConfirmationWindow},
		{"mid window, registered", at(13, 57, 0), models.ParticipantStatusRegistered, nil, PhaseConfirmationWindow},
		{"mid window, confirmed stays in window", at(13, 57, 30), models.ParticipantStatusConfirmed, nil, PhaseConfirmationWindow},
		{"matching instant, confirmed, no match yet", at(14, 0, 0), models.ParticipantStatusConfirmed, nil, PhaseWaitingForMatch},
		{"matching instant, still registered: wait for backend", at(14, 0, 0), models.ParticipantStatusRegistered, nil, PhaseWaitingForBackend},
		{"after instant, still registered: still waiting for backend", at(14, 1, 30), models.ParticipantStatusRegistered, nil, PhaseWaitingForBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePhase(tt.now, roundStart, params, tt.status, tt.match)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputePhase_MatchOverridesTime(t *testing.T) {
	revealed := at(14, 0, 10)
	met := at(14, 2, 0)
	end := at(14, 10, 0)

	// match created but not revealed keeps the participant waiting
	m := activeMatch(nil, nil, nil)
	assert.Equal(t, PhaseWaitingForMatch,
		ComputePhase(at(14, 0, 5), roundStart, params, models.ParticipantStatusMatched, m))

	// revealed match means walking, regardless of any countdown
	m = activeMatch(&revealed, nil, nil)
	assert.Equal(t, PhaseWalkingToMeeting,
		ComputePhase(at(14, 1, 0), roundStart, params, models.ParticipantStatusMatched, m))

	// exactly at the walking deadline nothing breaks and late confirmation
	// stays possible
	deadline := revealed.Add(3 * time.Minute)
	assert.Equal(t, PhaseWalkingToMeeting,
		ComputePhase(deadline, roundStart, params, models.ParticipantStatusWalking, m))
	assert.Equal(t, PhaseWalkingToMeeting,
		ComputePhase(deadline.Add(10*time.Minute), roundStart, params, models.ParticipantStatusWalking, m))

	m = activeMatch(&revealed, &met, &end)
	assert.Equal(t, PhaseNetworking,
		ComputePhase(at(14, 5, 0), roundStart, params, models.ParticipantStatusNetworking, m))
	assert.Equal(t, PhaseCompleted,
		ComputePhase(end, roundStart, params, models.ParticipantStatusNetworking, m))
}

func TestComputePhase_TerminalStatusOverridesEverything(t *testing.T) {
	revealed := at(14, 0, 10)
	m := activeMatch(&revealed, nil, nil)

	assert.Equal(t, PhaseUnconfirmed,
		ComputePhase(at(13, 57, 0), roundStart, params, models.ParticipantStatusUnconfirmed, nil))
	assert.Equal(t, PhaseNoMatch,
		ComputePhase(at(14, 1, 0), roundStart, params, models.ParticipantStatusNoMatch, nil))
	assert.Equal(t, PhaseNoShow,
		ComputePhase(at(14, 1, 0), roundStart, params, models.ParticipantStatusNoShow, m))
	assert.Equal(t, PhaseCompleted,
		ComputePhase(at(14, 1, 0), roundStart, params, models.ParticipantStatusCompleted, m))
}

// Full scenario: 14:00 round, 5-minute confirmation window, 3-minute walk.
func TestComputePhase_Scenario(t *testing.T) {
	// before the window
	assert.Equal(t, PhaseBeforeConfirmation,
		ComputePhase(at(13, 54, 0), roundStart, params, models.ParticipantStatusRegistered, nil))

	// 13:57, window open, 180s remaining to the matching instant
	phase := ComputePhase(at(13, 57, 0), roundStart, params, models.ParticipantStatusRegistered, nil)
	assert.Equal(t, PhaseConfirmationWindow, phase)
	target, ok := CountdownTarget(phase, roundStart, params, nil)
	assert.True(t, ok)
	assert.Equal(t, "3:00", FormatCountdown(target.Sub(at(13, 57, 0))))

	// participant confirms at 13:57:30; countdown continues to 14:00
	phase = ComputePhase(at(13, 57, 30), roundStart, params, models.ParticipantStatusConfirmed, nil)
	assert.Equal(t, PhaseConfirmationWindow, phase)

	// 14:00, no match yet
	assert.Equal(t, PhaseWaitingForMatch,
		ComputePhase(at(14, 0, 0), roundStart, params, models.ParticipantStatusConfirmed, nil))

	// match revealed at 14:00:10, walking until 14:03:10
	revealed := at(14, 0, 10)
	m := activeMatch(&revealed, nil, nil)
	phase = ComputePhase(at(14, 1, 0), roundStart, params, models.ParticipantStatusMatched, m)
	assert.Equal(t, PhaseWalkingToMeeting, phase)
	target, ok = CountdownTarget(phase, roundStart, params, m)
	assert.True(t, ok)
	assert.Equal(t, at(14, 3, 10), target)
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "3:00", FormatCountdown(3*time.Minute))
	assert.Equal(t, "0:05", FormatCountdown(5*time.Second))
	assert.Equal(t, "1:01:01", FormatCountdown(3661*time.Second))
	// passed deadlines clamp instead of going negative
	assert.Equal(t, "0:00", FormatCountdown(-30*time.Second))
}
