package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundStatus defines the lifecycle status of a round.
type RoundStatus string

const (
	RoundStatusScheduled    RoundStatus = "SCHEDULED"
	RoundStatusConfirmation RoundStatus = "CONFIRMATION"
	RoundStatusMatching     RoundStatus = "MATCHING"
	RoundStatusInProgress   RoundStatus = "IN_PROGRESS"
	RoundStatusCompleted    RoundStatus = "COMPLETED"
	RoundStatusCancelled    RoundStatus = "CANCELLED"
)

// Round represents a single scheduled networking time slot within a session.
type Round struct {
	ID            uuid.UUID    `json:"id"`
	SessionID     uuid.UUID    `json:"session_id"`
	Name          string       `json:"name"`
	StartsAt      time.Time    `json:"starts_at"`
	DurationMin   int          `json:"duration_min"`
	Status        RoundStatus  `json:"status"`
	Params        *RoundParams `json:"params,omitempty"` // per-round override of system params
	Registrations int          `json:"registrations"`
	NextDeadline  *time.Time   `json:"next_deadline,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// RoundParams holds JSONB per-round overrides of the system window durations.
type RoundParams struct {
	ConfirmationWindowMin *int `json:"confirmation_window_min,omitempty"`
	WalkingTimeMin        *int `json:"walking_time_min,omitempty"`
	SafetyWindowMin       *int `json:"safety_window_min,omitempty"`
	NetworkingMin         *int `json:"networking_min,omitempty"`
	MaxParticipants       *int `json:"max_participants,omitempty"`
}

// MeetingPoint is a designated location participants walk to after matching.
type MeetingPoint struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
}
