package matches

import (
	"github.com/google/uuid"
	"github.com/wonderelo/wonderelo/internal/models"
)

// CheckInRequest carries the partner code scanned at the meeting point.
type CheckInRequest struct {
	ScannedCode string `json:"scanned_code"`
}

// NoShowRequest reports an absent partner.
type NoShowRequest struct {
	NoShowParticipantID uuid.UUID `json:"no_show_participant_id"`
	Notes               string    `json:"notes,omitempty"`
}

// NoShowResponse carries the rematch result; NewMatch is nil when no partner
// was available.
type NoShowResponse struct {
	NewMatch *models.Match `json:"new_match,omitempty"`
}

// ContactPrefsRequest is the per-partner opt-in map.
type ContactPrefsRequest struct {
	Prefs map[uuid.UUID]bool `json:"prefs"`
}

// MatchingResult summarizes a matching run.
type MatchingResult struct {
	RoundID   uuid.UUID       `json:"round_id"`
	Matches   []*models.Match `json:"matches"`
	Unmatched []uuid.UUID     `json:"unmatched"`
}
