package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonderelo/wonderelo/internal/models"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (*StatusResponse, error)
}

func (f *fakeFetcher) Status(ctx context.Context, roundID, participantID uuid.UUID) (*StatusResponse, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	fn := f.fn
	f.mu.Unlock()
	return fn(call)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func statusResp(status models.ParticipantStatus) *StatusResponse {
	return &StatusResponse{
		ServerTime: roundStart.Add(-10 * time.Minute),
		Round:      models.Round{ID: uuid.New(), StartsAt: roundStart},
		Params:     params,
		Status:     status,
	}
}

func newTestPoller(f *fakeFetcher, cfg PollerConfig) (*Poller, *clockwork.FakeClock) {
	clk := clockwork.NewFakeClock()
	p := NewPoller(f, clk, uuid.New(), uuid.New(), cfg)
	return p, clk
}

func TestPoller_AppliesSnapshot(t *testing.T) {
	f := &fakeFetcher{fn: func(int) (*StatusResponse, error) {
		return statusResp(models.ParticipantStatusRegistered), nil
	}}
	p, _ := newTestPoller(f, DefaultPollerConfig())

	done := p.pollOnce(context.Background())

	assert.False(t, done)
	snap := p.Snapshot()
	assert.Equal(t, models.ParticipantStatusRegistered, snap.Status)
	assert.Equal(t, PhaseBeforeConfirmation, snap.Phase)
	assert.Equal(t, uint64(1), snap.Seq)
}

// A poll response that was in flight before a local optimistic update must
// never overwrite it.
func TestPoller_StalePollNeverRegressesOptimisticUpdate(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{fn: func(int) (*StatusResponse, error) {
		<-release
		return statusResp(models.ParticipantStatusRegistered), nil
	}}
	p, _ := newTestPoller(f, DefaultPollerConfig())
	// seed an initial snapshot so the optimistic update has a round to work on
	p.snapshot = Snapshot{Round: models.Round{StartsAt: roundStart}, Params: params}

	pollDone := make(chan struct{})
	go func() {
		p.pollOnce(context.Background())
		close(pollDone)
	}()

	// wait until the fetch is actually in flight
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)

	// user confirms while the poll is still in flight
	p.ApplyLocalStatus(models.ParticipantStatusConfirmed)

	close(release)
	<-pollDone

	assert.Equal(t, models.ParticipantStatusConfirmed, p.Snapshot().Status,
		"stale poll response overwrote the optimistic update")
}

func TestPoller_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{fn: func(int) (*StatusResponse, error) {
		<-release
		return statusResp(models.ParticipantStatusRegistered), nil
	}}
	p, _ := newTestPoller(f, DefaultPollerConfig())

	pollDone := make(chan struct{})
	go func() {
		p.pollOnce(context.Background())
		close(pollDone)
	}()
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)

	// a tick while the first fetch is in flight is skipped entirely
	p.pollOnce(context.Background())
	assert.Equal(t, 1, f.callCount())

	close(release)
	<-pollDone
}

func TestPoller_FailureBudget(t *testing.T) {
	f := &fakeFetcher{fn: func(int) (*StatusResponse, error) {
		return nil, errors.New("connection refused")
	}}
	p, _ := newTestPoller(f, PollerConfig{Interval: 5 * time.Second, MaxFailures: 3})

	assert.False(t, p.pollOnce(context.Background()))
	assert.False(t, p.pollOnce(context.Background()))
	assert.True(t, p.pollOnce(context.Background()), "third consecutive failure should exhaust the budget")
	assert.ErrorIs(t, p.Snapshot().Err, ErrPollTimeout)
}

// The terminal error snapshot must not carry a sequence number older than an
// optimistic update applied while the failing fetch was in flight.
func TestPoller_FailureBudgetKeepsOrdering(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{fn: func(int) (*StatusResponse, error) {
		<-release
		return nil, errors.New("connection refused")
	}}
	p, _ := newTestPoller(f, PollerConfig{Interval: 5 * time.Second, MaxFailures: 1})
	p.snapshot = Snapshot{Round: models.Round{StartsAt: roundStart}, Params: params}

	pollDone := make(chan bool, 1)
	go func() { pollDone <- p.pollOnce(context.Background()) }()
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)

	p.ApplyLocalStatus(models.ParticipantStatusConfirmed)
	optimisticSeq := p.Snapshot().Seq

	close(release)
	require.True(t, <-pollDone)

	snap := p.Snapshot()
	assert.ErrorIs(t, snap.Err, ErrPollTimeout)
	assert.Greater(t, snap.Seq, optimisticSeq)
	assert.Equal(t, models.ParticipantStatusConfirmed, snap.Status,
		"terminal snapshot dropped the optimistic update")
}

func TestPoller_FailureCountResetsOnSuccess(t *testing.T) {
	f := &fakeFetcher{fn: func(call int) (*StatusResponse, error) {
		if call%2 == 1 {
			return nil, errors.New("flaky")
		}
		return statusResp(models.ParticipantStatusRegistered), nil
	}}
	p, _ := newTestPoller(f, PollerConfig{Interval: 5 * time.Second, MaxFailures: 2})

	for i := 0; i < 6; i++ {
		assert.False(t, p.pollOnce(context.Background()))
	}
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	f := &fakeFetcher{fn: func(int) (*StatusResponse, error) {
		return statusResp(models.ParticipantStatusRegistered), nil
	}}
	p, _ := newTestPoller(f, DefaultPollerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancellation")
	}
}

func TestPoller_RunPollsOnTick(t *testing.T) {
	f := &fakeFetcher{fn: func(int) (*StatusResponse, error) {
		return statusResp(models.ParticipantStatusConfirmed), nil
	}}
	p, clk := newTestPoller(f, PollerConfig{Interval: 5 * time.Second, MaxFailures: 3})

	sub := p.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	// immediate first poll
	select {
	case snap := <-sub:
		assert.Equal(t, uint64(1), snap.Seq)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	clk.BlockUntil(1) // ticker registered
	clk.Advance(5 * time.Second)

	select {
	case snap := <-sub:
		assert.Equal(t, uint64(2), snap.Seq)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after tick")
	}
}
