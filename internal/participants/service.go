package participants

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wonderelo/wonderelo/internal/api"
	"github.com/wonderelo/wonderelo/internal/auth"
	"github.com/wonderelo/wonderelo/internal/clock"
	"github.com/wonderelo/wonderelo/internal/models"
)

// MatchProvider defines what the status endpoint needs from the matches app.
type MatchProvider interface {
	ActiveMatchForParticipant(ctx context.Context, roundID, participantID uuid.UUID) (*models.Match, error)
	ContactPrefsFor(ctx context.Context, match *models.Match, participantID uuid.UUID) (map[uuid.UUID]bool, error)
	SharedContactsFor(ctx context.Context, match *models.Match, participantID uuid.UUID) ([]SharedContact, error)
}

// Service exposes registration, confirmation and the status endpoint.
type Service struct {
	app     *App
	matches MatchProvider
	clk     clock.Clock
}

// NewService creates the participants HTTP service.
func NewService(app *App, matches MatchProvider, clk clock.Clock) *Service {
	return &Service{app: app, matches: matches, clk: clk}
}

// PublicRoutes mounts endpoints guarded by the anonymous key.
func (s *Service) PublicRoutes(r chi.Router) {
	r.Post("/rounds/{roundID}/register", s.handleRegister)
}

// ParticipantRoutes mounts endpoints guarded by the participant token.
func (s *Service) ParticipantRoutes(r chi.Router) {
	r.Get("/rounds/{roundID}/participants/{participantID}/status", s.handleStatus)
	r.Post("/rounds/{roundID}/participants/{participantID}/confirm", s.handleConfirm)
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid round id")
		return
	}

	var req RegisterRequest
	if err := api.Decode(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.app.Register(r.Context(), roundID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrRegistrationClosed), errors.Is(err, ErrRoundNotOpen), errors.Is(err, ErrRoundFull):
			api.Error(w, http.StatusConflict, err.Error())
		default:
			api.Error(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	api.JSON(w, http.StatusCreated, resp)
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	p, roundID, ok := s.boundParticipant(w, r)
	if !ok {
		return
	}

	round, err := s.app.rounds.GetRound(r.Context(), roundID)
	if err != nil {
		api.Error(w, http.StatusNotFound, "round not found")
		return
	}

	match, err := s.matches.ActiveMatchForParticipant(r.Context(), roundID, p.ID)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to load match")
		return
	}

	resp := StatusResponse{
		ServerTime: s.clk.Now(),
		Round:      round,
		Params:     s.app.rounds.ResolveParams(round),
		Status:     p.Status,
		Match:      match,
	}

	if match != nil {
		prefs, err := s.matches.ContactPrefsFor(r.Context(), match, p.ID)
		if err != nil {
			api.Error(w, http.StatusInternalServerError, "failed to load contact preferences")
			return
		}
		resp.ContactPrefs = prefs

		contacts, err := s.matches.SharedContactsFor(r.Context(), match, p.ID)
		if err != nil {
			api.Error(w, http.StatusInternalServerError, "failed to load shared contacts")
			return
		}
		resp.Contacts = contacts
	}

	api.JSON(w, http.StatusOK, resp)
}

func (s *Service) handleConfirm(w http.ResponseWriter, r *http.Request) {
	p, _, ok := s.boundParticipant(w, r)
	if !ok {
		return
	}

	if _, err := s.app.Confirm(r.Context(), p.ID); err != nil {
		switch {
		case errors.Is(err, ErrOutsideWindow), errors.Is(err, ErrInvalidTransition):
			api.Error(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrNotFound):
			api.Error(w, http.StatusNotFound, "participant not found")
		default:
			api.Error(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	api.JSON(w, http.StatusOK, map[string]string{"status": string(models.ParticipantStatusConfirmed)})
}

// boundParticipant checks that the token-resolved participant matches the
// URL and round. A token for someone else's participant ID is a 403, not a
// lookup.
func (s *Service) boundParticipant(w http.ResponseWriter, r *http.Request) (*models.Participant, uuid.UUID, bool) {
	roundID, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid round id")
		return nil, uuid.Nil, false
	}
	participantID, err := uuid.Parse(chi.URLParam(r, "participantID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid participant id")
		return nil, uuid.Nil, false
	}

	p, ok := auth.ParticipantFrom(r.Context())
	if !ok || p.ID != participantID || p.RoundID != roundID {
		api.Error(w, http.StatusForbidden, "token does not match participant")
		return nil, uuid.Nil, false
	}
	return p, roundID, true
}
