package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wonderelo/wonderelo/internal/api"
)

// Service exposes the audit log to organizers.
type Service struct {
	repo *Repository
}

// NewService creates the audit HTTP service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Routes mounts the audit endpoints. Admin auth is applied by the caller.
func (s *Service) Routes(r chi.Router) {
	r.Get("/rounds/{roundID}/audit", s.handleListByRound)
}

func (s *Service) handleListByRound(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid round id")
		return
	}

	entries, err := s.repo.ListByRound(r.Context(), roundID, 200)
	if err != nil {
		api.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	api.JSON(w, http.StatusOK, entries)
}
