package orchestrator

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// schedule arms a one-shot timer that enqueues the task when the deadline
// passes. A deadline already in the past enqueues immediately, which is how
// replayed events for overdue rounds get handled. Duplicate schedules for
// the same (key, deadline) are skipped.
func (o *Orchestrator) schedule(ctx context.Context, key timerKey, t task, deadline time.Time) {
	o.lastScheduledMu.Lock()
	if last, exists := o.lastScheduled[key]; exists && last.Equal(deadline) {
		o.lastScheduledMu.Unlock()
		log.Debug().
			Str("id", key.id.String()).
			Time("deadline", deadline).
			Msg("skipping duplicate schedule for this exact deadline")
		return
	}
	o.lastScheduled[key] = deadline
	o.lastScheduledMu.Unlock()

	duration := deadline.Sub(o.clock.Now())
	if duration <= 0 {
		o.enqueue(key, t)
		return
	}

	timer := o.clock.NewTimer(duration)
	o.replaceTimer(key, timer)

	go func() {
		select {
		case <-timer.Chan():
			o.removeTimer(key)
			o.lastScheduledMu.Lock()
			delete(o.lastScheduled, key)
			o.lastScheduledMu.Unlock()
			o.enqueue(key, t)
		case <-ctx.Done():
			stopAndDrainTimer(timer)
			o.removeTimer(key)
			o.lastScheduledMu.Lock()
			delete(o.lastScheduled, key)
			o.lastScheduledMu.Unlock()
			log.Debug().Str("id", key.id.String()).Msg("timer cancelled due to context cancellation")
		}
	}()

	log.Debug().
		Str("id", key.id.String()).
		Time("deadline", deadline).
		Dur("duration", duration).
		Msg("scheduled one-shot timer")
}

// enqueue hands a fired task to the worker pool, deduplicating in-flight work.
func (o *Orchestrator) enqueue(key timerKey, t task) {
	o.inFlightMu.Lock()
	if o.inFlight[key] {
		o.inFlightMu.Unlock()
		log.Debug().Str("id", key.id.String()).Msg("skipping task already in flight")
		return
	}
	o.inFlight[key] = true
	o.inFlightMu.Unlock()

	select {
	case o.workCh <- t:
		log.Debug().Str("id", key.id.String()).Msg("timer fired - enqueued for processing")
	default:
		o.inFlightMu.Lock()
		delete(o.inFlight, key)
		o.inFlightMu.Unlock()
		log.Warn().Str("id", key.id.String()).Msg("timer fired but work channel full")
	}
}

// replaceTimer atomically replaces a timer for a key, cancelling any existing
// timer first so a new timer cannot slip in between Stop() and delete().
func (o *Orchestrator) replaceTimer(key timerKey, newTimer clockwork.Timer) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()

	if existing, exists := o.activeTimers[key]; exists {
		stopAndDrainTimer(existing)
		log.Debug().Str("id", key.id.String()).Msg("replaced existing timer")
	}
	o.activeTimers[key] = newTimer
}

// stopAndDrainTimer safely stops a timer and drains its channel to prevent
// goroutine leaks, per the time.Timer.Stop() documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// cancelTimer cancels and removes an active timer.
func (o *Orchestrator) cancelTimer(key timerKey) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()

	if timer, exists := o.activeTimers[key]; exists {
		stopAndDrainTimer(timer)
		delete(o.activeTimers, key)

		o.lastScheduledMu.Lock()
		delete(o.lastScheduled, key)
		o.lastScheduledMu.Unlock()

		log.Debug().Str("id", key.id.String()).Msg("cancelled existing timer")
	}
}

// removeTimer removes a timer from the active timers map (called when it fires).
func (o *Orchestrator) removeTimer(key timerKey) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()
	delete(o.activeTimers, key)
}
