package rounds

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonderelo/wonderelo/internal/events"
	"github.com/wonderelo/wonderelo/internal/models"
	"github.com/wonderelo/wonderelo/internal/outbox"
)

type fakeRoundsRepo struct {
	rounds map[uuid.UUID]*models.Round
	events []outbox.Event
}

func newFakeRoundsRepo() *fakeRoundsRepo {
	return &fakeRoundsRepo{rounds: make(map[uuid.UUID]*models.Round)}
}

func (f *fakeRoundsRepo) eventTypes() []string {
	types := make([]string, len(f.events))
	for i, e := range f.events {
		types[i] = e.Type
	}
	return types
}

func (f *fakeRoundsRepo) CreateRound(_ context.Context, round *models.Round, evts []outbox.Event) (*models.Round, error) {
	cp := *round
	f.rounds[round.ID] = &cp
	f.events = append(f.events, evts...)
	return &cp, nil
}

func (f *fakeRoundsRepo) GetRound(_ context.Context, id uuid.UUID) (*models.Round, error) {
	round, ok := f.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return round, nil
}

func (f *fakeRoundsRepo) UpdateRound(_ context.Context, id uuid.UUID, req UpdateRoundRequest, evts []outbox.Event) (*models.Round, error) {
	round, ok := f.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Name != nil {
		round.Name = *req.Name
	}
	if req.StartsAt != nil {
		round.StartsAt = req.StartsAt.UTC()
		round.Status = models.RoundStatusScheduled
	}
	if req.DurationMin != nil {
		round.DurationMin = *req.DurationMin
	}
	if req.Params != nil {
		round.Params = req.Params
	}
	f.events = append(f.events, evts...)
	return round, nil
}

func (f *fakeRoundsRepo) UpdateRoundStatus(_ context.Context, id uuid.UUID, status models.RoundStatus, evts []outbox.Event) (*models.Round, error) {
	round, ok := f.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	round.Status = status
	f.events = append(f.events, evts...)
	return round, nil
}

func (f *fakeRoundsRepo) DeleteRound(_ context.Context, id uuid.UUID) error {
	if _, ok := f.rounds[id]; !ok {
		return ErrNotFound
	}
	delete(f.rounds, id)
	return nil
}

func (f *fakeRoundsRepo) ListRoundsBySession(_ context.Context, sessionID uuid.UUID) ([]models.Round, error) {
	var out []models.Round
	for _, round := range f.rounds {
		if round.SessionID == sessionID {
			out = append(out, *round)
		}
	}
	return out, nil
}

func (f *fakeRoundsRepo) FetchRoundsDueForMatching(_ context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, round := range f.rounds {
		due := !round.StartsAt.After(now)
		pre := round.Status == models.RoundStatusScheduled || round.Status == models.RoundStatusConfirmation
		if due && pre && int32(len(ids)) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeRoundsRepo) UpdateNextDeadline(_ context.Context, id uuid.UUID, deadline *time.Time) error {
	round, ok := f.rounds[id]
	if !ok {
		return ErrNotFound
	}
	round.NextDeadline = deadline
	return nil
}

func (f *fakeRoundsRepo) ClearNextDeadline(_ context.Context, id uuid.UUID) error {
	round, ok := f.rounds[id]
	if !ok {
		return ErrNotFound
	}
	round.NextDeadline = nil
	return nil
}

func (f *fakeRoundsRepo) ListMeetingPoints(_ context.Context, _ uuid.UUID) ([]models.MeetingPoint, error) {
	return nil, nil
}

func TestCreateRoundEmitsRoundScheduled(t *testing.T) {
	repo := newFakeRoundsRepo()
	app := NewApp(repo, models.DefaultSystemParams())

	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	round, err := app.CreateRound(context.Background(), CreateRoundRequest{
		SessionID:   uuid.New().String(),
		Name:        "Icebreaker",
		StartsAt:    startsAt,
		DurationMin: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusScheduled, round.Status)
	assert.Equal(t, startsAt, round.StartsAt)

	require.Len(t, repo.events, 1)
	assert.Equal(t, events.TypeRoundScheduled, repo.events[0].Type)
	payload, ok := repo.events[0].Payload.(events.RoundScheduled)
	require.True(t, ok)
	assert.Equal(t, round.ID, payload.RoundID)
	assert.Equal(t, startsAt, payload.StartsAt)
}

func TestCreateRoundValidation(t *testing.T) {
	repo := newFakeRoundsRepo()
	app := NewApp(repo, models.DefaultSystemParams())
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		req  CreateRoundRequest
	}{
		{"missing session", CreateRoundRequest{Name: "R", StartsAt: startsAt, DurationMin: 20}},
		{"missing name", CreateRoundRequest{SessionID: uuid.New().String(), StartsAt: startsAt, DurationMin: 20}},
		{"missing start", CreateRoundRequest{SessionID: uuid.New().String(), Name: "R", DurationMin: 20}},
		{"zero duration", CreateRoundRequest{SessionID: uuid.New().String(), Name: "R", StartsAt: startsAt}},
		{"bad session id", CreateRoundRequest{SessionID: "not-a-uuid", Name: "R", StartsAt: startsAt, DurationMin: 20}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := app.CreateRound(context.Background(), tc.req)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, repo.events)
}

func TestUpdateRoundRescheduleReemitsRoundScheduled(t *testing.T) {
	repo := newFakeRoundsRepo()
	app := NewApp(repo, models.DefaultSystemParams())

	created, err := app.CreateRound(context.Background(), CreateRoundRequest{
		SessionID:   uuid.New().String(),
		Name:        "Icebreaker",
		StartsAt:    time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC),
		DurationMin: 20,
	})
	require.NoError(t, err)

	// A round that already entered confirmation gets rescheduled.
	_, err = app.UpdateRoundStatus(context.Background(), created.ID, models.RoundStatusConfirmation)
	require.NoError(t, err)

	newStart := time.Date(2026, 3, 14, 16, 30, 0, 0, time.UTC)
	updated, err := app.UpdateRound(context.Background(), created.ID, UpdateRoundRequest{StartsAt: &newStart})
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusScheduled, updated.Status)
	assert.Equal(t, newStart, updated.StartsAt)

	assert.Equal(t, []string{events.TypeRoundScheduled, events.TypeRoundScheduled}, repo.eventTypes())
	payload := repo.events[1].Payload.(events.RoundScheduled)
	assert.Equal(t, newStart, payload.StartsAt)
}

func TestUpdateRoundWithoutRescheduleEmitsNothing(t *testing.T) {
	repo := newFakeRoundsRepo()
	app := NewApp(repo, models.DefaultSystemParams())

	created, err := app.CreateRound(context.Background(), CreateRoundRequest{
		SessionID:   uuid.New().String(),
		Name:        "Icebreaker",
		StartsAt:    time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC),
		DurationMin: 20,
	})
	require.NoError(t, err)
	repo.events = nil

	name := "Speed networking"
	updated, err := app.UpdateRound(context.Background(), created.ID, UpdateRoundRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Empty(t, repo.events)
}

func TestCancelRoundEmitsRoundCancelled(t *testing.T) {
	repo := newFakeRoundsRepo()
	app := NewApp(repo, models.DefaultSystemParams())

	created, err := app.CreateRound(context.Background(), CreateRoundRequest{
		SessionID:   uuid.New().String(),
		Name:        "Icebreaker",
		StartsAt:    time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC),
		DurationMin: 20,
	})
	require.NoError(t, err)
	repo.events = nil

	cancelled, err := app.UpdateRoundStatus(context.Background(), created.ID, models.RoundStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusCancelled, cancelled.Status)
	assert.Equal(t, []string{events.TypeRoundCancelled}, repo.eventTypes())

	// Non-cancel transitions stay silent; the outbox already carries the
	// events that matter for those phases.
	_, err = app.UpdateRoundStatus(context.Background(), created.ID, models.RoundStatusCompleted)
	require.NoError(t, err)
	assert.Len(t, repo.events, 1)
}

func TestIsHot(t *testing.T) {
	params := models.DefaultSystemParams()
	app := NewApp(newFakeRoundsRepo(), params)

	cold := &models.Round{Registrations: params.FireThreshold - 1}
	hot := &models.Round{Registrations: params.FireThreshold}
	assert.False(t, app.IsHot(cold))
	assert.True(t, app.IsHot(hot))
}

func TestResolveParamsAppliesOverrides(t *testing.T) {
	app := NewApp(newFakeRoundsRepo(), models.DefaultSystemParams())

	walking := 7
	round := &models.Round{Params: &models.RoundParams{WalkingTimeMin: &walking}}
	resolved := app.ResolveParams(round)
	assert.Equal(t, 7, resolved.WalkingTimeMin)
	assert.Equal(t, models.DefaultSystemParams().NetworkingMin, resolved.NetworkingMin)
}
