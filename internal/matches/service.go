package matches

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wonderelo/wonderelo/internal/api"
	"github.com/wonderelo/wonderelo/internal/auth"
	"github.com/wonderelo/wonderelo/internal/models"
)

// Service exposes the match-side participant actions and admin views.
type Service struct {
	app *App
}

// NewService creates the matches HTTP service.
func NewService(app *App) *Service {
	return &Service{app: app}
}

// ParticipantRoutes mounts endpoints guarded by the participant token.
func (s *Service) ParticipantRoutes(r chi.Router) {
	r.Post("/rounds/{roundID}/participants/{participantID}/checkin", s.handleCheckIn)
	r.Post("/rounds/{roundID}/participants/{participantID}/confirm-meet", s.handleConfirmMeet)
	r.Post("/rounds/{roundID}/participants/{participantID}/no-show", s.handleNoShow)
	r.Post("/matches/{matchID}/participants/{participantID}/contact-prefs", s.handleContactPrefs)
}

// AdminRoutes mounts endpoints guarded by the admin key.
func (s *Service) AdminRoutes(r chi.Router) {
	r.Get("/rounds/{roundID}/matches", s.handleListMatches)
	r.Post("/rounds/{roundID}/matching/run", s.handleRunMatching)
}

func (s *Service) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	p, ok := s.boundParticipant(w, r)
	if !ok {
		return
	}

	var req CheckInRequest
	if err := api.Decode(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	match, err := s.app.CheckIn(r.Context(), p, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, match)
}

func (s *Service) handleConfirmMeet(w http.ResponseWriter, r *http.Request) {
	p, ok := s.boundParticipant(w, r)
	if !ok {
		return
	}

	match, err := s.app.ConfirmMeet(r.Context(), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, match)
}

func (s *Service) handleNoShow(w http.ResponseWriter, r *http.Request) {
	p, ok := s.boundParticipant(w, r)
	if !ok {
		return
	}

	var req NoShowRequest
	if err := api.Decode(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NoShowParticipantID == uuid.Nil {
		api.Error(w, http.StatusBadRequest, "no_show_participant_id is required")
		return
	}

	res, err := s.app.ReportNoShow(r.Context(), p, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, res)
}

func (s *Service) handleContactPrefs(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid match id")
		return
	}
	participantID, err := uuid.Parse(chi.URLParam(r, "participantID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid participant id")
		return
	}

	p, ok := auth.ParticipantFrom(r.Context())
	if !ok || p.ID != participantID {
		api.Error(w, http.StatusForbidden, "token does not match participant")
		return
	}

	var req ContactPrefsRequest
	if err := api.Decode(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Prefs) == 0 {
		api.Error(w, http.StatusBadRequest, "prefs must not be empty")
		return
	}

	if err := s.app.SubmitContactPrefs(r.Context(), p, matchID, req.Prefs); err != nil {
		s.writeError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleListMatches(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid round id")
		return
	}

	ms, err := s.app.ListMatchesByRound(r.Context(), roundID)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to list matches")
		return
	}
	api.JSON(w, http.StatusOK, ms)
}

// handleRunMatching triggers the matching run manually; the normal path is
// the orchestrator's timer.
func (s *Service) handleRunMatching(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid round id")
		return
	}

	result, err := s.app.RunMatching(r.Context(), roundID)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		api.Error(w, http.StatusConflict, "matching already ran for this round")
		return
	}
	api.JSON(w, http.StatusOK, result)
}

func (s *Service) boundParticipant(w http.ResponseWriter, r *http.Request) (*models.Participant, bool) {
	roundID, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid round id")
		return nil, false
	}
	participantID, err := uuid.Parse(chi.URLParam(r, "participantID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid participant id")
		return nil, false
	}

	p, ok := auth.ParticipantFrom(r.Context())
	if !ok || p.ID != participantID || p.RoundID != roundID {
		api.Error(w, http.StatusForbidden, "token does not match participant")
		return nil, false
	}
	return p, true
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMatchingNotRun):
		api.ErrorWithReason(w, http.StatusNotFound, err.Error(), api.ReasonMatchingNotRun)
	case errors.Is(err, ErrNoActiveMatch):
		api.ErrorWithReason(w, http.StatusNotFound, err.Error(), api.ReasonNoMatch)
	case errors.Is(err, ErrNotFound):
		api.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrBadCode), errors.Is(err, ErrNotPartner):
		api.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTooEarly):
		api.Error(w, http.StatusConflict, err.Error())
	default:
		api.Error(w, http.StatusInternalServerError, err.Error())
	}
}
