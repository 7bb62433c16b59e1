package rounds

import (
	"time"

	"github.com/wonderelo/wonderelo/internal/models"
)

// CreateRoundRequest represents a request to schedule a new round.
type CreateRoundRequest struct {
	SessionID   string              `json:"session_id"`
	Name        string              `json:"name"`
	StartsAt    time.Time           `json:"starts_at"`
	DurationMin int                 `json:"duration_min"`
	Params      *models.RoundParams `json:"params,omitempty"`
}

// UpdateRoundRequest represents a partial update to a round.
type UpdateRoundRequest struct {
	Name        *string             `json:"name,omitempty"`
	StartsAt    *time.Time          `json:"starts_at,omitempty"`
	DurationMin *int                `json:"duration_min,omitempty"`
	Params      *models.RoundParams `json:"params,omitempty"`
}

// NextDeadline is the soonest timer the orchestrator must honor for a round.
type NextDeadline struct {
	RoundID  string     `json:"round_id"`
	Deadline *time.Time `json:"deadline"`
}
