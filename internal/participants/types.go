package participants

import (
	"time"

	"github.com/google/uuid"
	"github.com/wonderelo/wonderelo/internal/models"
)

// RegisterRequest represents a request to register for a round.
type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// RegisterResponse carries the fresh participant plus the bearer token the
// client must persist; the token is never returned again.
type RegisterResponse struct {
	Participant *models.Participant `json:"participant"`
	Token       string              `json:"token"`
}

// StatusResponse is the wire shape of the status endpoint: everything a
// client needs to derive its phase purely, including the server clock.
type StatusResponse struct {
	ServerTime   time.Time                `json:"server_time"`
	Round        *models.Round            `json:"round"`
	Params       models.SystemParams      `json:"params"`
	Status       models.ParticipantStatus `json:"status"`
	Match        *models.Match            `json:"match,omitempty"`
	ContactPrefs map[uuid.UUID]bool       `json:"contact_prefs,omitempty"`
	Contacts     []SharedContact          `json:"contacts,omitempty"`
}

// SharedContact is a partner's contact details after mutual opt-in.
type SharedContact struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
}
