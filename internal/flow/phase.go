// Package flow implements the participant round-progression flow: a pure
// phase calculator over server-owned state, a screen router, a bounded
// status poller and the action dispatchers. The backend is the source of
// truth for status and match; local timers only decide when to re-poll and
// re-render, never what the state is.
package flow

import (
	"fmt"
	"time"

	"github.com/wonderelo/wonderelo/internal/models"
	"github.com/wonderelo/wonderelo/internal/timing"
)

// Phase is the derived position of a participant inside a round's timeline.
type Phase string

const (
	PhaseBeforeConfirmation Phase = "BEFORE_CONFIRMATION"
	PhaseConfirmationWindow Phase = "CONFIRMATION_WINDOW"
	PhaseWaitingForMatch    Phase = "WAITING_FOR_MATCH"
	// PhaseWaitingForBackend covers the gap where the matching instant has
	// passed but the server has not yet flipped a still-REGISTERED
	// participant to UNCONFIRMED. The client must not guess; it re-polls.
	PhaseWaitingForBackend Phase = "WAITING_FOR_BACKEND"
	PhaseWalkingToMeeting  Phase = "WALKING_TO_MEETING"
	PhaseNetworking        Phase = "NETWORKING"
	PhaseCompleted         Phase = "COMPLETED"
	PhaseUnconfirmed       Phase = "UNCONFIRMED"
	PhaseNoMatch           Phase = "NO_MATCH"
	PhaseNoShow            Phase = "NO_SHOW"
)

// Terminal reports whether no further phase can follow.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseUnconfirmed, PhaseNoMatch, PhaseNoShow:
		return true
	}
	return false
}

// ComputePhase derives the current phase. It is a pure function of
// (now, round start, params, participant status, match) and nothing else.
//
// Tie-breaks, most specific signal first:
//   - an explicit terminal status overrides any countdown-derived phase,
//   - an explicit match record overrides a purely time-derived phase,
//   - time decides the rest.
func ComputePhase(now time.Time, startsAt time.Time, params models.SystemParams, status models.ParticipantStatus, match *models.Match) Phase {
	switch status {
	case models.ParticipantStatusUnconfirmed:
		return PhaseUnconfirmed
	case models.ParticipantStatusNoMatch:
		return PhaseNoMatch
	case models.ParticipantStatusNoShow:
		return PhaseNoShow
	case models.ParticipantStatusCompleted:
		return PhaseCompleted
	}

	if match != nil && match.Status == models.MatchStatusActive {
		switch {
		case match.MeetConfirmedAt != nil && match.NetworkingEndAt != nil:
			if !now.Before(*match.NetworkingEndAt) {
				return PhaseCompleted
			}
			return PhaseNetworking
		case match.RevealedAt != nil:
			// The walking deadline passing carries no automatic failure;
			// late meet confirmation stays possible.
			return PhaseWalkingToMeeting
		default:
			// Match created but not yet revealed.
			return PhaseWaitingForMatch
		}
	}

	b := timing.Compute(startsAt, params)

	if now.Before(b.ConfirmationStart) {
		return PhaseBeforeConfirmation
	}

	if now.Before(b.MatchingInstant) {
		switch status {
		case models.ParticipantStatusRegistered, models.ParticipantStatusConfirmed:
			return PhaseConfirmationWindow
		}
		return PhaseWaitingForMatch
	}

	// Matching instant passed with no match record. A still-REGISTERED
	// status means the server has not processed the window yet: wait for
	// the backend to flip it rather than assume anything.
	if status == models.ParticipantStatusRegistered {
		return PhaseWaitingForBackend
	}
	return PhaseWaitingForMatch
}

// CountdownTarget returns the instant the current phase counts down to, or
// false when the phase has no countdown.
func CountdownTarget(phase Phase, startsAt time.Time, params models.SystemParams, match *models.Match) (time.Time, bool) {
	switch phase {
	case PhaseBeforeConfirmation:
		return timing.Compute(startsAt, params).ConfirmationStart, true
	case PhaseConfirmationWindow:
		return startsAt, true
	case PhaseWalkingToMeeting:
		if match != nil && match.RevealedAt != nil {
			return timing.WalkingDeadline(*match.RevealedAt, params), true
		}
	case PhaseNetworking:
		if match != nil && match.NetworkingEndAt != nil {
			return *match.NetworkingEndAt, true
		}
	}
	return time.Time{}, false
}

// FormatCountdown renders the remaining time for the presentation tick.
// Negative remainders clamp to zero so a passed deadline shows 0:00 instead
// of crashing or going negative.
func FormatCountdown(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	total := int(remaining.Round(time.Second).Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
