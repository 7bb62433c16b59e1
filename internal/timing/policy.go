// Package timing maps a round's start instant and the system parameters to
// the phase boundaries of the participant flow. Pure and side-effect free so
// it is testable without network access or wall-clock waiting.
package timing

import (
	"time"

	"github.com/wonderelo/wonderelo/internal/models"
)

// Boundaries holds the derived instants of a round's timeline. The walking
// deadline and networking end are not here: they depend on the match record
// and are derived once a match exists.
type Boundaries struct {
	ConfirmationStart  time.Time
	RegistrationCloses time.Time
	MatchingInstant    time.Time
}

// Compute derives the phase boundaries for a round starting at startsAt.
func Compute(startsAt time.Time, params models.SystemParams) Boundaries {
	return Boundaries{
		ConfirmationStart:  startsAt.Add(-time.Duration(params.ConfirmationWindowMin) * time.Minute),
		RegistrationCloses: startsAt.Add(-time.Duration(params.SafetyWindowMin) * time.Minute),
		MatchingInstant:    startsAt,
	}
}

// WalkingDeadline derives the walking deadline once a match has been
// revealed. Passing the deadline carries no automatic consequence; late
// meet confirmation stays allowed.
func WalkingDeadline(revealedAt time.Time, params models.SystemParams) time.Time {
	return revealedAt.Add(time.Duration(params.WalkingTimeMin) * time.Minute)
}

// NetworkingEnd derives the networking window end from the meet confirmation.
func NetworkingEnd(meetConfirmedAt time.Time, params models.SystemParams) time.Time {
	return meetConfirmedAt.Add(time.Duration(params.NetworkingMin) * time.Minute)
}

// RegistrationOpen reports whether now is still before the safety-window
// cutoff for the round.
func RegistrationOpen(now, startsAt time.Time, params models.SystemParams) bool {
	return now.Before(Compute(startsAt, params).RegistrationCloses)
}
