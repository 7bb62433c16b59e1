package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// RunScheduler runs the event-driven orchestrator as a JetStream consumer.
// Recovery happens through event replay with DeliverAllPolicy plus a startup
// sweep of overdue rounds.
func (o *Orchestrator) RunScheduler(ctx context.Context) error {
	log.Info().
		Str("instance", o.instanceID).
		Int("workers", o.numWorkers).
		Msg("round orchestrator started as JetStream consumer")

	eventCh := make(chan jetstream.Msg, eventChannelBufferSize)

	consumeCtx, err := o.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case eventCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start JetStream consumer: %w", err)
	}
	defer consumeCtx.Stop()

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < o.numWorkers; i++ {
		wg.Add(1)
		go o.worker(workerCtx, &wg, i)
	}

	defer func() {
		log.Info().Str("instance", o.instanceID).Msg("shutting down workers")
		cancelWorkers()
		close(o.workCh)
		wg.Wait()
		log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	}()

	o.recoverDueRounds(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", o.instanceID).Msg("orchestrator shutdown requested")
			o.activeTimersMu.Lock()
			for key, timer := range o.activeTimers {
				stopAndDrainTimer(timer)
				log.Debug().Str("id", key.id.String()).Msg("cancelled timer on shutdown")
			}
			o.activeTimers = make(map[timerKey]clockwork.Timer)
			o.activeTimersMu.Unlock()
			return nil
		case msg := <-eventCh:
			if err := o.processEvent(ctx, msg); err != nil {
				log.Error().Err(err).Msg("failed to process event")
				msg.Nak()
			} else {
				msg.Ack()
			}
		}
	}
}

// worker processes fired deadlines from the work channel.
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	log.Info().
		Str("instance", o.instanceID).
		Int("worker_id", workerID).
		Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("worker shutting down")
			return
		case t, ok := <-o.workCh:
			if !ok {
				log.Info().
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Msg("work channel closed, worker shutting down")
				return
			}

			key := timerKey{kind: t.kind, id: t.roundID}
			if t.kind == taskEndNetworking {
				key.id = t.matchID
			}

			if err := o.handleTask(ctx, t); err != nil {
				log.Error().
					Err(err).
					Str("id", key.id.String()).
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Msg("worker task handling failed")
			}

			o.inFlightMu.Lock()
			delete(o.inFlight, key)
			o.inFlightMu.Unlock()
		}
	}
}
