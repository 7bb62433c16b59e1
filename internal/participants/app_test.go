package participants

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonderelo/wonderelo/internal/audit"
	"github.com/wonderelo/wonderelo/internal/models"
)

// fakeRepo is an in-memory ParticipantsRepository.
type fakeRepo struct {
	byID map[uuid.UUID]*models.Participant
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[uuid.UUID]*models.Participant)}
}

func (f *fakeRepo) CreateParticipant(_ context.Context, p *models.Participant) (*models.Participant, error) {
	cp := *p
	cp.CreatedAt = time.Now()
	f.byID[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeRepo) GetParticipant(_ context.Context, id uuid.UUID) (*models.Participant, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) GetParticipantByToken(_ context.Context, token string) (*models.Participant, error) {
	for _, p := range f.byID {
		if p.Token == token {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) GetParticipantByCheckInCode(_ context.Context, roundID uuid.UUID, code string) (*models.Participant, error) {
	for _, p := range f.byID {
		if p.RoundID == roundID && p.CheckInCode == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) UpdateParticipantStatus(_ context.Context, id uuid.UUID, status models.ParticipantStatus, confirmedAt *time.Time) (*models.Participant, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Status = status
	if confirmedAt != nil {
		p.ConfirmedAt = confirmedAt
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) ListParticipantsByRound(_ context.Context, roundID uuid.UUID) ([]models.Participant, error) {
	var out []models.Participant
	for _, p := range f.byID {
		if p.RoundID == roundID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListParticipantsByStatus(_ context.Context, roundID uuid.UUID, statuses ...models.ParticipantStatus) ([]models.Participant, error) {
	var out []models.Participant
	for _, p := range f.byID {
		if p.RoundID != roundID {
			continue
		}
		for _, s := range statuses {
			if p.Status == s {
				out = append(out, *p)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkUnconfirmed(_ context.Context, roundID uuid.UUID) (int64, error) {
	var n int64
	for _, p := range f.byID {
		if p.RoundID == roundID && p.Status == models.ParticipantStatusRegistered {
			p.Status = models.ParticipantStatusUnconfirmed
			n++
		}
	}
	return n, nil
}

// fakeRounds serves a single round with default params.
type fakeRounds struct {
	round *models.Round
}

func (f *fakeRounds) GetRound(_ context.Context, id uuid.UUID) (*models.Round, error) {
	if f.round == nil || f.round.ID != id {
		return nil, ErrNotFound
	}
	cp := *f.round
	return &cp, nil
}

func (f *fakeRounds) ResolveParams(round *models.Round) models.SystemParams {
	return models.DefaultSystemParams().Resolve(round.Params)
}

func newTestApp(t *testing.T, now time.Time, round *models.Round) (*App, *fakeRepo, *clockwork.FakeClock) {
	t.Helper()
	repo := newFakeRepo()
	clk := clockwork.NewFakeClockAt(now)
	app := NewApp(repo, &fakeRounds{round: round}, clk, audit.NoOp{})
	return app, repo, clk
}

func testRound(startsAt time.Time) *models.Round {
	return &models.Round{
		ID:          uuid.New(),
		SessionID:   uuid.New(),
		Name:        "Morning mixer",
		StartsAt:    startsAt,
		DurationMin: 20,
		Status:      models.RoundStatusScheduled,
	}
}

func TestRegister_IssuesTokenAndCode(t *testing.T) {
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	round := testRound(startsAt)
	app, _, _ := newTestApp(t, startsAt.Add(-30*time.Minute), round)

	resp, err := app.Register(context.Background(), round.ID, RegisterRequest{
		Name:  "Ada",
		Email: "Ada@Example.com",
	})
	require.NoError(t, err)

	assert.Len(t, resp.Token, 64)
	assert.Equal(t, resp.Token, resp.Participant.Token)
	assert.Len(t, resp.Participant.CheckInCode, 9)
	assert.Equal(t, byte('-'), resp.Participant.CheckInCode[4])
	assert.Equal(t, "ada@example.com", resp.Participant.Email)
	assert.Equal(t, models.ParticipantStatusRegistered, resp.Participant.Status)
}

func TestRegister_ClosedInsideSafetyWindow(t *testing.T) {
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	round := testRound(startsAt)
	// Safety window is 2 minutes; 13:58:30 is past the cutoff.
	app, _, _ := newTestApp(t, startsAt.Add(-90*time.Second), round)

	_, err := app.Register(context.Background(), round.ID, RegisterRequest{
		Name:  "Ada",
		Email: "ada@example.com",
	})
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestRegister_ClosedAtExactCutoff(t *testing.T) {
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	round := testRound(startsAt)
	app, _, _ := newTestApp(t, startsAt.Add(-2*time.Minute), round)

	_, err := app.Register(context.Background(), round.ID, RegisterRequest{
		Name:  "Ada",
		Email: "ada@example.com",
	})
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestRegister_RejectsWhenFull(t *testing.T) {
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	round := testRound(startsAt)
	two := 2
	round.Params = &models.RoundParams{MaxParticipants: &two}
	round.Registrations = 2
	app, _, _ := newTestApp(t, startsAt.Add(-30*time.Minute), round)

	_, err := app.Register(context.Background(), round.ID, RegisterRequest{
		Name:  "Ada",
		Email: "ada@example.com",
	})
	assert.ErrorIs(t, err, ErrRoundFull)

	// One seat left again: registration goes through.
	round.Registrations = 1
	_, err = app.Register(context.Background(), round.ID, RegisterRequest{
		Name:  "Ada",
		Email: "ada@example.com",
	})
	assert.NoError(t, err)
}

func TestRegister_RejectsNonOpenRound(t *testing.T) {
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	round := testRound(startsAt)
	round.Status = models.RoundStatusCompleted
	app, _, _ := newTestApp(t, startsAt.Add(-30*time.Minute), round)

	_, err := app.Register(context.Background(), round.ID, RegisterRequest{
		Name:  "Ada",
		Email: "ada@example.com",
	})
	assert.ErrorIs(t, err, ErrRoundNotOpen)
}

func TestRegister_ValidatesInput(t *testing.T) {
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	round := testRound(startsAt)
	app, _, _ := newTestApp(t, startsAt.Add(-30*time.Minute), round)

	_, err := app.Register(context.Background(), round.ID, RegisterRequest{Email: "ada@example.com"})
	assert.ErrorContains(t, err, "name is required")

	_, err = app.Register(context.Background(), round.ID, RegisterRequest{Name: "Ada", Email: "not-an-email"})
	assert.ErrorContains(t, err, "email is invalid")
}

func TestConfirm_InsideWindow(t *testing.T) {
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	round := testRound(startsAt)
	app, _, clk := newTestApp(t, startsAt.Add(-30*time.Minute), round)

	resp, err := app.Register(context.Background(), round.ID, RegisterRequest{
		Name:  "Ada",
		Email: "ada@example.com",
	})
	require.NoError(t, err)

	// Advance to 13:57, inside the 5-minute confirmation window.
	clk.Advance(27 * time.Minute)

	p, err := app.Confirm(context.Background(), resp.Participant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantStatusConfirmed, p.Status)
	require.NotNil(t, p.ConfirmedAt)
	assert.Equal(t, startsAt.Add(-3*time.Minute), *p.ConfirmedAt)
}

func TestConfirm_Idempotent(t *testing.T) {
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	round := testRound(startsAt)
	app, _, clk := newTestApp(t, startsAt.Add(-30*time.Minute), round)

	resp, err := app.Register(context.Background(), round.ID, RegisterRequest{
		Name:  "Ada",
		Email: "ada@example.com",
	})
	require.NoError(t, err)

	clk.Advance(27 * time.Minute)
	first, err := app.Confirm(context.Background(), resp.Participant.ID)
	require.NoError(t, err)

	second, err := app.Confirm(context.Background(), resp.Participant.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ConfirmedAt, second.ConfirmedAt)
}

func TestConfirm_OutsideWindow(t *testing.T) {
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	round := testRound(startsAt)
	app, _, clk := newTestApp(t, startsAt.Add(-30*time.Minute), round)

	resp, err := app.Register(context.Background(), round.ID, RegisterRequest{
		Name:  "Ada",
		Email: "ada@example.com",
	})
	require.NoError(t, err)

	// Before the window opens at 13:55.
	_, err = app.Confirm(context.Background(), resp.Participant.ID)
	assert.ErrorIs(t, err, ErrOutsideWindow)

	// At the matching instant the window has closed.
	clk.Advance(30 * time.Minute)
	_, err = app.Confirm(context.Background(), resp.Participant.ID)
	assert.ErrorIs(t, err, ErrOutsideWindow)
}

func TestTransition_RejectsInvalid(t *testing.T) {
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	round := testRound(startsAt)
	app, repo, _ := newTestApp(t, startsAt.Add(-30*time.Minute), round)

	p := &models.Participant{
		ID:      uuid.New(),
		RoundID: round.ID,
		Status:  models.ParticipantStatusRegistered,
	}
	_, err := repo.CreateParticipant(context.Background(), p)
	require.NoError(t, err)

	_, err = app.Transition(context.Background(), p.ID, models.ParticipantStatusNetworking)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransition_SameStatusIsNoOp(t *testing.T) {
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	round := testRound(startsAt)
	app, repo, _ := newTestApp(t, startsAt.Add(-30*time.Minute), round)

	p := &models.Participant{
		ID:      uuid.New(),
		RoundID: round.ID,
		Status:  models.ParticipantStatusWalking,
	}
	_, err := repo.CreateParticipant(context.Background(), p)
	require.NoError(t, err)

	got, err := app.Transition(context.Background(), p.ID, models.ParticipantStatusWalking)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantStatusWalking, got.Status)
}

func TestMarkUnconfirmed_SkipsConfirmed(t *testing.T) {
	startsAt := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	round := testRound(startsAt)
	app, repo, _ := newTestApp(t, startsAt, round)

	reg := &models.Participant{ID: uuid.New(), RoundID: round.ID, Status: models.ParticipantStatusRegistered}
	conf := &models.Participant{ID: uuid.New(), RoundID: round.ID, Status: models.ParticipantStatusConfirmed}
	_, err := repo.CreateParticipant(context.Background(), reg)
	require.NoError(t, err)
	_, err = repo.CreateParticipant(context.Background(), conf)
	require.NoError(t, err)

	n, err := app.MarkUnconfirmed(context.Background(), round.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := app.GetParticipant(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantStatusUnconfirmed, got.Status)

	got, err = app.GetParticipant(context.Background(), conf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantStatusConfirmed, got.Status)
}
