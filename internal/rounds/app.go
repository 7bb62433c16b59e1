package rounds

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/wonderelo/wonderelo/internal/events"
	"github.com/wonderelo/wonderelo/internal/models"
	"github.com/wonderelo/wonderelo/internal/outbox"
)

// ErrNotFound is returned when a round does not exist.
var ErrNotFound = errors.New("round not found")

// RoundsRepository defines what the app layer needs from the repository.
// Mutations take outbox events so the event insert shares the write's
// transaction.
type RoundsRepository interface {
	CreateRound(ctx context.Context, round *models.Round, evts []outbox.Event) (*models.Round, error)
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
	UpdateRound(ctx context.Context, id uuid.UUID, req UpdateRoundRequest, evts []outbox.Event) (*models.Round, error)
	UpdateRoundStatus(ctx context.Context, id uuid.UUID, status models.RoundStatus, evts []outbox.Event) (*models.Round, error)
	DeleteRound(ctx context.Context, id uuid.UUID) error
	ListRoundsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Round, error)
	FetchRoundsDueForMatching(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error)
	UpdateNextDeadline(ctx context.Context, id uuid.UUID, deadline *time.Time) error
	ClearNextDeadline(ctx context.Context, id uuid.UUID) error
	ListMeetingPoints(ctx context.Context, sessionID uuid.UUID) ([]models.MeetingPoint, error)
}

// App handles round business logic.
type App struct {
	repo   RoundsRepository
	params models.SystemParams
}

// NewApp creates a new rounds App.
func NewApp(repo RoundsRepository, params models.SystemParams) *App {
	return &App{
		repo:   repo,
		params: params,
	}
}

// CreateRound schedules a new round.
func (a *App) CreateRound(ctx context.Context, req CreateRoundRequest) (*models.Round, error) {
	if err := a.validateCreateRoundRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}

	round := &models.Round{
		ID:          uuid.New(),
		SessionID:   sessionID,
		Name:        req.Name,
		StartsAt:    req.StartsAt.UTC(),
		DurationMin: req.DurationMin,
		Status:      models.RoundStatusScheduled,
		Params:      req.Params,
	}

	evts := []outbox.Event{
		outbox.NewEvent(events.TypeRoundScheduled, round.ID, events.RoundScheduled{
			RoundID:  round.ID,
			StartsAt: round.StartsAt,
		}),
	}
	created, err := a.repo.CreateRound(ctx, round, evts)
	if err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	log.Printf("Created round: %s (%s, starts %s)", created.Name, created.ID, created.StartsAt)
	return created, nil
}

// GetRound retrieves a round by ID.
func (a *App) GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	round, err := a.repo.GetRound(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return round, nil
}

// UpdateRound applies a partial update. Rescheduling a round resets its
// status to SCHEDULED and re-emits round_scheduled so the orchestrator
// re-arms its matching timer.
func (a *App) UpdateRound(ctx context.Context, id uuid.UUID, req UpdateRoundRequest) (*models.Round, error) {
	var evts []outbox.Event
	if req.StartsAt != nil {
		evts = append(evts, outbox.NewEvent(events.TypeRoundScheduled, id, events.RoundScheduled{
			RoundID:  id,
			StartsAt: req.StartsAt.UTC(),
		}))
	}

	round, err := a.repo.UpdateRound(ctx, id, req, evts)
	if err != nil {
		return nil, fmt.Errorf("failed to update round: %w", err)
	}
	return round, nil
}

// UpdateRoundStatus moves a round through its lifecycle. Cancelling emits
// round_cancelled so the orchestrator drops any pending timers.
func (a *App) UpdateRoundStatus(ctx context.Context, id uuid.UUID, status models.RoundStatus) (*models.Round, error) {
	var evts []outbox.Event
	if status == models.RoundStatusCancelled {
		evts = append(evts, outbox.NewEvent(events.TypeRoundCancelled, id, events.RoundCancelled{RoundID: id}))
	}

	round, err := a.repo.UpdateRoundStatus(ctx, id, status, evts)
	if err != nil {
		return nil, fmt.Errorf("failed to update round status: %w", err)
	}
	return round, nil
}

// DeleteRound removes a round.
func (a *App) DeleteRound(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.DeleteRound(ctx, id); err != nil {
		return fmt.Errorf("failed to delete round: %w", err)
	}
	return nil
}

// ListRoundsBySession lists a session's rounds in start order.
func (a *App) ListRoundsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Round, error) {
	roundsList, err := a.repo.ListRoundsBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	return roundsList, nil
}

// FetchRoundsDueForMatching returns rounds whose matching instant has passed
// but whose matching run has not happened. Used for orchestrator recovery.
func (a *App) FetchRoundsDueForMatching(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	ids, err := a.repo.FetchRoundsDueForMatching(ctx, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due rounds: %w", err)
	}
	return ids, nil
}

// UpdateNextDeadline records the orchestrator's next timer for the round.
func (a *App) UpdateNextDeadline(ctx context.Context, id uuid.UUID, deadline *time.Time) error {
	if err := a.repo.UpdateNextDeadline(ctx, id, deadline); err != nil {
		return fmt.Errorf("failed to update next deadline: %w", err)
	}
	return nil
}

// ClearNextDeadline removes the round's pending timer record.
func (a *App) ClearNextDeadline(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.ClearNextDeadline(ctx, id); err != nil {
		return fmt.Errorf("failed to clear next deadline: %w", err)
	}
	return nil
}

// ListMeetingPoints lists the session's meeting points.
func (a *App) ListMeetingPoints(ctx context.Context, sessionID uuid.UUID) ([]models.MeetingPoint, error) {
	points, err := a.repo.ListMeetingPoints(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meeting points: %w", err)
	}
	return points, nil
}

// ResolveParams returns the effective window parameters for a round.
func (a *App) ResolveParams(round *models.Round) models.SystemParams {
	return a.params.Resolve(round.Params)
}

// IsHot reports whether the round crossed the popularity threshold.
func (a *App) IsHot(round *models.Round) bool {
	return a.params.FireThreshold > 0 && round.Registrations >= a.params.FireThreshold
}

func (a *App) validateCreateRoundRequest(req CreateRoundRequest) error {
	if req.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.StartsAt.IsZero() {
		return fmt.Errorf("starts_at is required")
	}
	if req.DurationMin <= 0 {
		return fmt.Errorf("duration_min must be positive")
	}
	return nil
}
