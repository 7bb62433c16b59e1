package gateway

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles websocket upgrade requests for round rooms.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a websocket handler.
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{connectionManager: cm}
}

// HandleRoundConnection joins a client to a round's room.
func (h *WebSocketHandler) HandleRoundConnection(w http.ResponseWriter, r *http.Request) {
	roundIDStr := r.URL.Query().Get("round_id")
	if roundIDStr == "" {
		http.Error(w, "round_id is required", http.StatusBadRequest)
		return
	}

	roundID, err := uuid.Parse(roundIDStr)
	if err != nil {
		http.Error(w, "invalid round_id format", http.StatusBadRequest)
		return
	}

	// Participant identity narrows targeted events (contact exchanges) to
	// the right sockets; spectator connections without one still get the
	// room-wide stream.
	participantID := r.URL.Query().Get("participant_id")
	if participantID == "" {
		participantID = "anonymous"
	}

	if err := h.connectionManager.UpgradeConnection(w, r, participantID, roundID); err != nil {
		log.Error().
			Err(err).
			Str("round_id", roundID.String()).
			Str("participant_id", participantID).
			Msg("failed to upgrade websocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	w.Write([]byte("{"))
	w.Write([]byte("\"total_connections\":" + strconv.Itoa(stats["total_connections"].(int)) + ","))
	w.Write([]byte("\"active_rounds\":" + strconv.Itoa(stats["active_rounds"].(int))))
	w.Write([]byte("}"))
}

// RegisterRoutes registers the websocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/round", h.HandleRoundConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
