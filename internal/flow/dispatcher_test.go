package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonderelo/wonderelo/internal/models"
)

type fakeActionClient struct {
	mu           sync.Mutex
	confirmCalls int
	confirmBlock chan struct{}
	confirmErr   error
	noShowResult *NoShowResult
}

func (f *fakeActionClient) ConfirmAttendance(ctx context.Context, roundID, participantID uuid.UUID) error {
	f.mu.Lock()
	f.confirmCalls++
	block := f.confirmBlock
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.confirmErr
}

func (f *fakeActionClient) CheckIn(ctx context.Context, roundID, participantID uuid.UUID, scannedCode string) (*models.Match, error) {
	now := time.Now()
	return &models.Match{ID: uuid.New(), Status: models.MatchStatusActive, RevealedAt: &now}, nil
}

func (f *fakeActionClient) ConfirmMeet(ctx context.Context, roundID, participantID uuid.UUID) (*models.Match, error) {
	now := time.Now()
	end := now.Add(8 * time.Minute)
	return &models.Match{ID: uuid.New(), Status: models.MatchStatusActive, RevealedAt: &now, MeetConfirmedAt: &now, NetworkingEndAt: &end}, nil
}

func (f *fakeActionClient) ReportNoShow(ctx context.Context, roundID, participantID, noShowID uuid.UUID, notes string) (*NoShowResult, error) {
	if f.noShowResult == nil {
		return nil, errors.New("no participants available for rematch")
	}
	return f.noShowResult, nil
}

func (f *fakeActionClient) SubmitContactPrefs(ctx context.Context, matchID, participantID uuid.UUID, prefs map[uuid.UUID]bool) error {
	return nil
}

type fakeApplier struct {
	mu       sync.Mutex
	statuses []models.ParticipantStatus
	matches  []*models.Match
}

func (f *fakeApplier) ApplyLocalStatus(status models.ParticipantStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
}

func (f *fakeApplier) ApplyLocalMatch(match *models.Match, status models.ParticipantStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches = append(f.matches, match)
	f.statuses = append(f.statuses, status)
}

// Dispatching confirm twice in rapid succession results in exactly one
// network call.
func TestDispatcher_ConfirmSingleFlight(t *testing.T) {
	client := &fakeActionClient{confirmBlock: make(chan struct{})}
	applier := &fakeApplier{}
	d := NewDispatcher(client, applier, uuid.New(), uuid.New())

	first := make(chan error, 1)
	go func() { first <- d.ConfirmAttendance(context.Background()) }()

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.confirmCalls == 1
	}, time.Second, time.Millisecond)

	// second tap while the first request is in flight: no-op
	assert.NoError(t, d.ConfirmAttendance(context.Background()))
	client.mu.Lock()
	assert.Equal(t, 1, client.confirmCalls)
	client.mu.Unlock()

	close(client.confirmBlock)
	assert.NoError(t, <-first)

	// optimistic update applied exactly once
	applier.mu.Lock()
	assert.Equal(t, []models.ParticipantStatus{models.ParticipantStatusConfirmed}, applier.statuses)
	applier.mu.Unlock()
}

func TestDispatcher_ConfirmFailureSkipsOptimisticUpdate(t *testing.T) {
	client := &fakeActionClient{confirmErr: newError(ErrorKindValidation, "confirmation window closed", nil)}
	applier := &fakeApplier{}
	d := NewDispatcher(client, applier, uuid.New(), uuid.New())

	err := d.ConfirmAttendance(context.Background())

	var flowErr *Error
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, ErrorKindValidation, flowErr.Kind)
	assert.Empty(t, applier.statuses)

	// the action is user-retriable: a later call issues a fresh request
	_ = d.ConfirmAttendance(context.Background())
	assert.Equal(t, 2, client.confirmCalls)
}

func TestDispatcher_CheckInAppliesMatch(t *testing.T) {
	client := &fakeActionClient{}
	applier := &fakeApplier{}
	d := NewDispatcher(client, applier, uuid.New(), uuid.New())

	match, err := d.CheckIn(context.Background(), "WX-1234")

	require.NoError(t, err)
	require.NotNil(t, match)
	require.Len(t, applier.statuses, 1)
	assert.Equal(t, models.ParticipantStatusWalking, applier.statuses[0])
}

// A successful no-show report with a returned new match swaps directly to
// walking, skipping the waiting screen.
func TestDispatcher_NoShowRematchSwapsSeamlessly(t *testing.T) {
	now := time.Now()
	newMatch := &models.Match{ID: uuid.New(), Status: models.MatchStatusActive, RevealedAt: &now}
	client := &fakeActionClient{noShowResult: &NoShowResult{NewMatch: newMatch}}
	applier := &fakeApplier{}
	d := NewDispatcher(client, applier, uuid.New(), uuid.New())

	res, err := d.ReportNoShow(context.Background(), uuid.New(), "partner never arrived")

	require.NoError(t, err)
	require.NotNil(t, res.NewMatch)
	require.Len(t, applier.matches, 1)
	assert.Equal(t, newMatch.ID, applier.matches[0].ID)
	assert.Equal(t, models.ParticipantStatusWalking, applier.statuses[0])
}

// On rematch failure the participant stays in place; nothing is applied.
func TestDispatcher_NoShowFailureLeavesStateAlone(t *testing.T) {
	client := &fakeActionClient{}
	applier := &fakeApplier{}
	d := NewDispatcher(client, applier, uuid.New(), uuid.New())

	_, err := d.ReportNoShow(context.Background(), uuid.New(), "")

	assert.Error(t, err)
	assert.Empty(t, applier.matches)
}
