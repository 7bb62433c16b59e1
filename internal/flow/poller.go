package flow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wonderelo/wonderelo/internal/clock"
	"github.com/wonderelo/wonderelo/internal/models"
)

// StatusFetcher is what the poller needs from the REST client.
type StatusFetcher interface {
	Status(ctx context.Context, roundID, participantID uuid.UUID) (*StatusResponse, error)
}

// Snapshot is the poller's view of the participant's state. Seq is a
// monotonic application order: consumers can rely on never observing a
// regression to an older snapshot.
type Snapshot struct {
	Seq        uint64
	ServerTime time.Time
	Round      models.Round
	Params     models.SystemParams
	Status     models.ParticipantStatus
	Match      *models.Match
	Phase      Phase
	// Err is set once the failure budget is exhausted; the poller has
	// stopped and the UI should offer an escape hatch.
	Err error
}

// PollerConfig tunes the poll tick. The poll tick is network I/O and is
// deliberately separate from the 1s presentation tick, which is pure
// formatting over the latest snapshot.
type PollerConfig struct {
	Interval    time.Duration
	MaxFailures int
}

// DefaultPollerConfig polls every 5s and gives up after 5 consecutive
// failures.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:    5 * time.Second,
		MaxFailures: 5,
	}
}

// Poller periodically fetches participant status for one (round,
// participant) pair. Phase transitions caused by other participants'
// actions or by server-side matching runs are invisible without it.
//
// Guarantees:
//   - single-flight: a tick while a fetch is in flight is skipped,
//   - monotonic ordering: responses sequenced before a local optimistic
//     update are discarded, never applied over it,
//   - bounded retries: after MaxFailures consecutive errors it surfaces
//     ErrPollTimeout instead of polling forever,
//   - cancellation: Run returns promptly when the context is cancelled.
type Poller struct {
	fetcher       StatusFetcher
	clk           clock.Clock
	cfg           PollerConfig
	roundID       uuid.UUID
	participantID uuid.UUID

	mu         sync.Mutex
	inFlight   bool
	nextSeq    uint64
	appliedSeq uint64
	snapshot   Snapshot
	failures   int
	subs       []chan Snapshot
}

// NewPoller creates a poller for one participant/round pair.
func NewPoller(fetcher StatusFetcher, clk clock.Clock, roundID, participantID uuid.UUID, cfg PollerConfig) *Poller {
	return &Poller{
		fetcher:       fetcher,
		clk:           clk,
		cfg:           cfg,
		roundID:       roundID,
		participantID: participantID,
		nextSeq:       1,
	}
}

// Subscribe returns a channel receiving every applied snapshot. Slow
// consumers lose intermediate snapshots, never ordering.
func (p *Poller) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 8)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()
	return ch
}

// Snapshot returns the latest applied snapshot. The presentation tick reads
// this once a second and formats countdowns from it, with no side effects.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// Run polls until the context is cancelled or the failure budget runs out.
// An immediate first poll avoids waiting a full interval for initial state.
func (p *Poller) Run(ctx context.Context) error {
	if done := p.pollOnce(ctx); done {
		return ErrPollTimeout
	}

	ticker := p.clk.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if done := p.pollOnce(ctx); done {
				return ErrPollTimeout
			}
		}
	}
}

// pollOnce performs a single fetch. Returns true when the poller must stop.
func (p *Poller) pollOnce(ctx context.Context) bool {
	p.mu.Lock()
	if p.inFlight {
		// Idempotent re-entry: never two fetches at once.
		p.mu.Unlock()
		return false
	}
	p.inFlight = true
	seq := p.nextSeq
	p.nextSeq++
	p.mu.Unlock()

	resp, err := p.fetcher.Status(ctx, p.roundID, p.participantID)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = false

	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.failures++
		log.Debug().
			Err(err).
			Int("consecutive_failures", p.failures).
			Str("round_id", p.roundID.String()).
			Msg("status poll failed")
		if p.failures >= p.cfg.MaxFailures {
			// The terminal snapshot must move the sequence forward: an
			// optimistic update may have claimed a later seq mid-flight.
			if seq < p.appliedSeq {
				seq = p.nextSeq
				p.nextSeq++
			}
			p.appliedSeq = seq
			p.snapshot.Err = ErrPollTimeout
			p.snapshot.Seq = seq
			p.publishLocked()
			return true
		}
		return false
	}

	p.failures = 0
	if seq < p.appliedSeq {
		// A newer snapshot (poll or optimistic update) already applied;
		// this response is stale.
		log.Debug().
			Uint64("seq", seq).
			Uint64("applied", p.appliedSeq).
			Msg("discarding out-of-order poll response")
		return false
	}
	p.appliedSeq = seq
	p.snapshot = Snapshot{
		Seq:        seq,
		ServerTime: resp.ServerTime,
		Round:      resp.Round,
		Params:     resp.Params,
		Status:     resp.Status,
		Match:      resp.Match,
		Phase:      ComputePhase(resp.ServerTime, resp.Round.StartsAt, resp.Params, resp.Status, resp.Match),
	}
	p.publishLocked()
	return false
}

// ApplyLocalStatus applies an optimistic status update from a dispatcher.
// It claims a sequence number ahead of any in-flight poll so a stale
// response issued before the action can never overwrite it.
func (p *Poller) ApplyLocalStatus(status models.ParticipantStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocalLocked(status, p.snapshot.Match)
}

// ApplyLocalMatch applies an optimistic match swap (check-in progress,
// no-show rematch) together with a status update.
func (p *Poller) ApplyLocalMatch(match *models.Match, status models.ParticipantStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocalLocked(status, match)
}

func (p *Poller) applyLocalLocked(status models.ParticipantStatus, match *models.Match) {
	seq := p.nextSeq
	p.nextSeq++
	p.appliedSeq = seq
	p.snapshot.Seq = seq
	p.snapshot.Status = status
	p.snapshot.Match = match
	p.snapshot.Phase = ComputePhase(p.clk.Now(), p.snapshot.Round.StartsAt, p.snapshot.Params, status, match)
	p.publishLocked()
}

func (p *Poller) publishLocked() {
	for _, ch := range p.subs {
		select {
		case ch <- p.snapshot:
		default:
			// Drop for slow consumers; they re-read Snapshot() anyway.
		}
	}
}
