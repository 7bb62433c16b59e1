package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StateHandler serves the gateway's in-memory round state so reconnecting
// clients can resync phase and countdowns before the next event arrives.
type StateHandler struct {
	stateManager *RoundStateManager
}

// NewStateHandler creates a state handler.
func NewStateHandler(sm *RoundStateManager) *StateHandler {
	return &StateHandler{stateManager: sm}
}

// HandleGetRoundState handles GET /api/rounds/{id}/state.
func (h *StateHandler) HandleGetRoundState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	roundIDStr := extractRoundIDFromPath(r.URL.Path)
	if roundIDStr == "" {
		http.Error(w, "Round ID is required", http.StatusBadRequest)
		return
	}

	roundID, err := uuid.Parse(roundIDStr)
	if err != nil {
		http.Error(w, "Invalid round ID format", http.StatusBadRequest)
		return
	}

	state := h.stateManager.GetState(roundID, time.Now().UTC())
	if state == nil {
		http.Error(w, "No state for round", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Msg("failed to encode round state response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes.
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/rounds/", func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > len("/api/rounds/") && r.URL.Path[len(r.URL.Path)-6:] == "/state" {
			h.HandleGetRoundState(w, r)
		} else {
			http.NotFound(w, r)
		}
	})
}

// extractRoundIDFromPath extracts the round ID from /api/rounds/{id}/state.
func extractRoundIDFromPath(path string) string {
	const prefix = "/api/rounds/"
	const suffix = "/state"

	if len(path) <= len(prefix)+len(suffix) {
		return ""
	}
	if path[:len(prefix)] != prefix || path[len(path)-len(suffix):] != suffix {
		return ""
	}
	return path[len(prefix) : len(path)-len(suffix)]
}
