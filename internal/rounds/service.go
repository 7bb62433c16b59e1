package rounds

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wonderelo/wonderelo/internal/api"
	"github.com/wonderelo/wonderelo/internal/models"
)

// Service exposes the organizer-facing round CRUD over HTTP.
type Service struct {
	app *App
}

// NewService creates the rounds HTTP service.
func NewService(app *App) *Service {
	return &Service{app: app}
}

// Routes mounts the round endpoints. The admin auth middleware is applied by
// the caller.
func (s *Service) Routes(r chi.Router) {
	r.Post("/rounds", s.handleCreateRound)
	r.Get("/rounds/{roundID}", s.handleGetRound)
	r.Patch("/rounds/{roundID}", s.handleUpdateRound)
	r.Delete("/rounds/{roundID}", s.handleDeleteRound)
	r.Post("/rounds/{roundID}/cancel", s.handleCancelRound)
	r.Get("/sessions/{sessionID}/rounds", s.handleListRounds)
	r.Get("/sessions/{sessionID}/meeting-points", s.handleListMeetingPoints)
}

func (s *Service) handleCreateRound(w http.ResponseWriter, r *http.Request) {
	var req CreateRoundRequest
	if err := api.Decode(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	round, err := s.app.CreateRound(r.Context(), req)
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	api.JSON(w, http.StatusCreated, round)
}

func (s *Service) handleGetRound(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid round id")
		return
	}

	round, err := s.app.GetRound(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, roundView{Round: round, Hot: s.app.IsHot(round)})
}

func (s *Service) handleUpdateRound(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid round id")
		return
	}

	var req UpdateRoundRequest
	if err := api.Decode(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	round, err := s.app.UpdateRound(r.Context(), id, req)
	if err != nil {
		s.respondError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, round)
}

func (s *Service) handleDeleteRound(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid round id")
		return
	}

	if err := s.app.DeleteRound(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}
	api.JSON(w, http.StatusNoContent, nil)
}

func (s *Service) handleCancelRound(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid round id")
		return
	}

	round, err := s.app.UpdateRoundStatus(r.Context(), id, models.RoundStatusCancelled)
	if err != nil {
		s.respondError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, round)
}

func (s *Service) handleListRounds(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	list, err := s.app.ListRoundsBySession(r.Context(), sessionID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	views := make([]roundView, len(list))
	for i := range list {
		views[i] = roundView{Round: &list[i], Hot: s.app.IsHot(&list[i])}
	}
	api.JSON(w, http.StatusOK, views)
}

func (s *Service) handleListMeetingPoints(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	points, err := s.app.ListMeetingPoints(r.Context(), sessionID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, points)
}

func (s *Service) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		api.Error(w, http.StatusNotFound, "round not found")
		return
	}
	api.Error(w, http.StatusInternalServerError, err.Error())
}

// roundView decorates a round with derived display fields.
type roundView struct {
	*models.Round
	Hot bool `json:"hot"`
}
