package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantStatus defines the per-round status of a participant.
// The backend is the source of truth for this value; clients never infer it.
type ParticipantStatus string

const (
	ParticipantStatusRegistered  ParticipantStatus = "REGISTERED"
	ParticipantStatusConfirmed   ParticipantStatus = "CONFIRMED"
	ParticipantStatusUnconfirmed ParticipantStatus = "UNCONFIRMED"
	ParticipantStatusMatched     ParticipantStatus = "MATCHED"
	ParticipantStatusWalking     ParticipantStatus = "WALKING"
	ParticipantStatusNetworking  ParticipantStatus = "NETWORKING"
	ParticipantStatusCompleted   ParticipantStatus = "COMPLETED"
	ParticipantStatusNoMatch     ParticipantStatus = "NO_MATCH"
	ParticipantStatusNoShow      ParticipantStatus = "NO_SHOW"
)

// Terminal reports whether the status permits no further transitions.
func (s ParticipantStatus) Terminal() bool {
	switch s {
	case ParticipantStatusCompleted, ParticipantStatusUnconfirmed, ParticipantStatusNoShow:
		return true
	}
	return false
}

// validTransitions is the closed transition table for participant statuses.
// NO_MATCH is re-enterable into MATCHED because a no-show rematch can pick up
// previously unmatched participants.
var validTransitions = map[ParticipantStatus][]ParticipantStatus{
	ParticipantStatusRegistered:  {ParticipantStatusConfirmed, ParticipantStatusUnconfirmed},
	ParticipantStatusConfirmed:   {ParticipantStatusMatched, ParticipantStatusNoMatch},
	ParticipantStatusMatched:     {ParticipantStatusWalking, ParticipantStatusNoShow, ParticipantStatusNoMatch},
	ParticipantStatusWalking:     {ParticipantStatusNetworking, ParticipantStatusNoShow, ParticipantStatusMatched, ParticipantStatusNoMatch},
	ParticipantStatusNetworking:  {ParticipantStatusCompleted, ParticipantStatusNoShow, ParticipantStatusMatched},
	ParticipantStatusNoMatch:     {ParticipantStatusMatched},
	ParticipantStatusUnconfirmed: {},
	ParticipantStatusNoShow:      {},
	ParticipantStatusCompleted:   {},
}

// CanTransition reports whether moving from s to next is allowed.
func (s ParticipantStatus) CanTransition(next ParticipantStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Participant represents a person registered for a round. The opaque Token is
// the sole credential; there is no login.
type Participant struct {
	ID          uuid.UUID         `json:"id"`
	RoundID     uuid.UUID         `json:"round_id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone,omitempty"`
	Token       string            `json:"-"`
	CheckInCode string            `json:"check_in_code"`
	Status      ParticipantStatus `json:"status"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
