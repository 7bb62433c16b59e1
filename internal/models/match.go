package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus defines the lifecycle status of a match.
type MatchStatus string

const (
	MatchStatusActive    MatchStatus = "ACTIVE"
	MatchStatusCompleted MatchStatus = "COMPLETED"
	MatchStatusBroken    MatchStatus = "BROKEN" // voided by a no-show report
)

// Match groups two or more participants paired for a round.
type Match struct {
	ID              uuid.UUID       `json:"id"`
	RoundID         uuid.UUID       `json:"round_id"`
	ParticipantIDs  []uuid.UUID     `json:"participant_ids"`
	MeetingPointID  uuid.UUID       `json:"meeting_point_id"`
	MeetingPoint    *MeetingPoint   `json:"meeting_point,omitempty"`
	ImageURL        string          `json:"image_url,omitempty"` // visual pairing aid
	Status          MatchStatus     `json:"status"`
	CheckIns        []MatchCheckIn  `json:"check_ins,omitempty"`
	ContactPrefs    []ContactPref   `json:"contact_prefs,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	RevealedAt      *time.Time      `json:"revealed_at,omitempty"`
	MeetConfirmedAt *time.Time      `json:"meet_confirmed_at,omitempty"`
	NetworkingEndAt *time.Time      `json:"networking_end_at,omitempty"`
}

// CheckedIn reports whether the given participant has already checked in.
func (m *Match) CheckedIn(participantID uuid.UUID) bool {
	for _, ci := range m.CheckIns {
		if ci.ParticipantID == participantID {
			return true
		}
	}
	return false
}

// QuorumMet reports whether every member of the match has checked in.
func (m *Match) QuorumMet() bool {
	return len(m.CheckIns) >= len(m.ParticipantIDs)
}

// Partners returns the other members of the match, from participantID's view.
func (m *Match) Partners(participantID uuid.UUID) []uuid.UUID {
	partners := make([]uuid.UUID, 0, len(m.ParticipantIDs)-1)
	for _, id := range m.ParticipantIDs {
		if id != participantID {
			partners = append(partners, id)
		}
	}
	return partners
}

// Contains reports whether participantID is a member of the match.
func (m *Match) Contains(participantID uuid.UUID) bool {
	for _, id := range m.ParticipantIDs {
		if id == participantID {
			return true
		}
	}
	return false
}

// MatchCheckIn records a participant proving presence at the meeting point by
// submitting a partner's code.
type MatchCheckIn struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	ScannedCode   string    `json:"scanned_code"`
	CheckedInAt   time.Time `json:"checked_in_at"`
}

// ContactPref records one participant's per-partner opt-in to share contact
// details. Details cross only when both sides opt in.
type ContactPref struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	PartnerID     uuid.UUID `json:"partner_id"`
	Share         bool      `json:"share"`
	SubmittedAt   time.Time `json:"submitted_at"`
}
