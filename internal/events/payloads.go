// Package events defines the payloads published through the transactional
// outbox. Every payload carries the IDs a consumer needs to act without a
// read-back; consumers tolerate unknown fields.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type identifiers; also the trailing subject token on the stream.
const (
	TypeRoundScheduled         = "round_scheduled"
	TypeRoundCancelled         = "round_cancelled"
	TypeMatchingCompleted      = "matching_completed"
	TypeMatchRevealed          = "match_revealed"
	TypeMeetConfirmed          = "meet_confirmed"
	TypeNoShowReported         = "no_show_reported"
	TypeNetworkingEnded        = "networking_ended"
	TypeContactExchanged       = "contact_exchanged"
	TypeParticipantUnconfirmed = "participant_unconfirmed"
)

// RoundScheduled is published when a round is created or rescheduled, so the
// orchestrator can (re)arm its matching timer.
type RoundScheduled struct {
	RoundID  uuid.UUID `json:"round_id"`
	StartsAt time.Time `json:"starts_at"`
}

// RoundCancelled tells the orchestrator to drop any pending timers.
type RoundCancelled struct {
	RoundID uuid.UUID `json:"round_id"`
}

// MatchingCompleted summarizes a matching run.
type MatchingCompleted struct {
	RoundID      uuid.UUID `json:"round_id"`
	MatchCount   int       `json:"match_count"`
	MatchedCount int       `json:"matched_count"`
	NoMatchCount int       `json:"no_match_count"`
	RanAt        time.Time `json:"ran_at"`
}

// MatchRevealed is published per match created; the gateway fans it out to
// the round's websocket room.
type MatchRevealed struct {
	RoundID        uuid.UUID   `json:"round_id"`
	MatchID        uuid.UUID   `json:"match_id"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
	RevealedAt     time.Time   `json:"revealed_at"`
}

// MeetConfirmed is published when a match reaches check-in quorum. The
// orchestrator arms the networking-end timer off NetworkingEndAt.
type MeetConfirmed struct {
	RoundID         uuid.UUID `json:"round_id"`
	MatchID         uuid.UUID `json:"match_id"`
	MeetConfirmedAt time.Time `json:"meet_confirmed_at"`
	NetworkingEndAt time.Time `json:"networking_end_at"`
}

// NoShowReported is published when a participant reports an absent partner.
type NoShowReported struct {
	RoundID       uuid.UUID  `json:"round_id"`
	MatchID       uuid.UUID  `json:"match_id"`
	ReporterID    uuid.UUID  `json:"reporter_id"`
	NoShowID      uuid.UUID  `json:"no_show_id"`
	RematchedInto *uuid.UUID `json:"rematched_into,omitempty"`
}

// NetworkingEnded closes out a match.
type NetworkingEnded struct {
	RoundID uuid.UUID `json:"round_id"`
	MatchID uuid.UUID `json:"match_id"`
	EndedAt time.Time `json:"ended_at"`
}

// ContactExchanged is published once per mutually opted-in pair.
type ContactExchanged struct {
	MatchID        uuid.UUID   `json:"match_id"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
}

// ParticipantUnconfirmed is published per sweep of still-registered
// participants at the matching instant.
type ParticipantUnconfirmed struct {
	RoundID uuid.UUID `json:"round_id"`
	Count   int64     `json:"count"`
}
