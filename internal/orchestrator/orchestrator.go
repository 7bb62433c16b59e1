// Package orchestrator drives the server-side round timeline: it consumes
// round events from JetStream, arms one-shot timers for the matching instant
// and each match's networking end, and fires the corresponding app calls when
// they elapse. Recovery happens through event replay plus a startup sweep of
// overdue rounds.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/wonderelo/wonderelo/internal/matches"
	"github.com/wonderelo/wonderelo/internal/models"
)

const (
	consumerName           = "round-orchestrator"
	consumerMaxDeliver     = 5
	consumerAckWait        = 30 * time.Second
	consumerMaxAckPending  = 100
	eventChannelBufferSize = 256
	natsMaxReconnects      = -1
	natsReconnectWait      = 2 * time.Second
)

// RoundsApp defines what the orchestrator needs from the rounds app.
type RoundsApp interface {
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
	FetchRoundsDueForMatching(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error)
	UpdateNextDeadline(ctx context.Context, id uuid.UUID, deadline *time.Time) error
	ClearNextDeadline(ctx context.Context, id uuid.UUID) error
}

// MatchesApp defines what the orchestrator needs from the matches app.
type MatchesApp interface {
	RunMatching(ctx context.Context, roundID uuid.UUID) (*matches.MatchingResult, error)
	CompleteNetworking(ctx context.Context, matchID uuid.UUID) error
}

type taskKind int

const (
	taskRunMatching taskKind = iota
	taskEndNetworking
)

// task is one unit of deadline work handed to the worker pool.
type task struct {
	kind    taskKind
	roundID uuid.UUID
	matchID uuid.UUID // set for taskEndNetworking
}

// timerKey identifies an armed timer: the matching timer is keyed by round,
// networking-end timers by match.
type timerKey struct {
	kind taskKind
	id   uuid.UUID
}

type Orchestrator struct {
	rounds     RoundsApp
	matches    MatchesApp
	clock      clockwork.Clock
	batchSize  int32
	instanceID string

	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer

	numWorkers int
	workCh     chan task

	// Track in-flight work to prevent duplicate processing
	inFlight   map[timerKey]bool
	inFlightMu sync.Mutex

	activeTimers   map[timerKey]clockwork.Timer
	activeTimersMu sync.Mutex

	lastScheduled   map[timerKey]time.Time
	lastScheduledMu sync.Mutex
}

// NewOrchestrator creates an orchestrator wired to NATS.
func NewOrchestrator(natsURL string, rounds RoundsApp, matchesApp MatchesApp, clk clockwork.Clock, batchSize int32) (*Orchestrator, error) {
	nc, js, err := setupNATSConnection(natsURL)
	if err != nil {
		return nil, err
	}

	numWorkers := 10
	o := &Orchestrator{
		rounds:     rounds,
		matches:    matchesApp,
		clock:      clk,
		batchSize:  batchSize,
		instanceID: uuid.New().String()[:8],

		nc: nc,
		js: js,

		numWorkers: numWorkers,
		workCh:     make(chan task, numWorkers*2),

		inFlight:      make(map[timerKey]bool),
		activeTimers:  make(map[timerKey]clockwork.Timer),
		lastScheduled: make(map[timerKey]time.Time),
	}

	if err := o.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, err
	}
	return o, nil
}

// Close gracefully closes the orchestrator.
func (o *Orchestrator) Close() error {
	if o.nc != nil {
		o.nc.Close()
	}
	return nil
}
