package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wonderelo/wonderelo/internal/events"
)

// HandleDomainEvent routes incoming round events to the timer handlers.
func (o *Orchestrator) HandleDomainEvent(ctx context.Context, eventType string, roundID uuid.UUID, payload []byte) error {
	log.Info().
		Str("event_type", eventType).
		Str("round_id", roundID.String()).
		Msg("handling domain event")

	switch eventType {
	case events.TypeRoundScheduled:
		var p events.RoundScheduled
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal RoundScheduled payload: %w", err)
		}
		return o.handleRoundScheduled(ctx, p)

	case events.TypeRoundCancelled:
		o.cancelTimer(timerKey{kind: taskRunMatching, id: roundID})
		if err := o.rounds.ClearNextDeadline(ctx, roundID); err != nil {
			log.Error().Err(err).Str("round_id", roundID.String()).Msg("failed to clear deadline for cancelled round")
		}
		return nil

	case events.TypeMeetConfirmed:
		var p events.MeetConfirmed
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal MeetConfirmed payload: %w", err)
		}
		return o.handleMeetConfirmed(ctx, p)

	case events.TypeMatchingCompleted:
		// Matching ran; the round's matching timer is spent.
		o.cancelTimer(timerKey{kind: taskRunMatching, id: roundID})
		if err := o.rounds.ClearNextDeadline(ctx, roundID); err != nil {
			log.Error().Err(err).Str("round_id", roundID.String()).Msg("failed to clear matching deadline")
		}
		return nil

	case events.TypeNetworkingEnded:
		var p events.NetworkingEnded
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal NetworkingEnded payload: %w", err)
		}
		o.cancelTimer(timerKey{kind: taskEndNetworking, id: p.MatchID})
		return nil

	case events.TypeMatchRevealed, events.TypeNoShowReported,
		events.TypeContactExchanged, events.TypeParticipantUnconfirmed:
		// Gateway-facing events; no orchestrator action needed.
		return nil

	default:
		log.Warn().
			Str("event_type", eventType).
			Str("round_id", roundID.String()).
			Msg("unknown event type - ignoring")
		return nil
	}
}

// handleRoundScheduled arms the matching timer at the round's start instant.
// Replayed events for rounds that already started enqueue immediately; the
// matching run itself is idempotent.
func (o *Orchestrator) handleRoundScheduled(ctx context.Context, p events.RoundScheduled) error {
	log.Info().
		Str("round_id", p.RoundID.String()).
		Time("starts_at", p.StartsAt).
		Msg("handling RoundScheduled event")

	if err := o.rounds.UpdateNextDeadline(ctx, p.RoundID, &p.StartsAt); err != nil {
		log.Error().Err(err).Str("round_id", p.RoundID.String()).Msg("failed to record next deadline")
	}

	o.schedule(ctx,
		timerKey{kind: taskRunMatching, id: p.RoundID},
		task{kind: taskRunMatching, roundID: p.RoundID},
		p.StartsAt)
	return nil
}

// handleMeetConfirmed arms the networking-end timer for the match.
func (o *Orchestrator) handleMeetConfirmed(ctx context.Context, p events.MeetConfirmed) error {
	log.Info().
		Str("round_id", p.RoundID.String()).
		Str("match_id", p.MatchID.String()).
		Time("networking_end_at", p.NetworkingEndAt).
		Msg("handling MeetConfirmed event")

	o.schedule(ctx,
		timerKey{kind: taskEndNetworking, id: p.MatchID},
		task{kind: taskEndNetworking, roundID: p.RoundID, matchID: p.MatchID},
		p.NetworkingEndAt)
	return nil
}

// handleTask executes a fired deadline.
func (o *Orchestrator) handleTask(ctx context.Context, t task) error {
	switch t.kind {
	case taskRunMatching:
		log.Info().Str("round_id", t.roundID.String()).Msg("matching timer firing")
		result, err := o.matches.RunMatching(ctx, t.roundID)
		if err != nil {
			return fmt.Errorf("matching run failed: %w", err)
		}
		if result != nil {
			if err := o.rounds.ClearNextDeadline(ctx, t.roundID); err != nil {
				log.Error().Err(err).Str("round_id", t.roundID.String()).Msg("failed to clear deadline after matching")
			}
		}
		return nil

	case taskEndNetworking:
		log.Info().Str("match_id", t.matchID.String()).Msg("networking-end timer firing")
		if err := o.matches.CompleteNetworking(ctx, t.matchID); err != nil {
			return fmt.Errorf("networking completion failed: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown task kind %d", t.kind)
	}
}

// recoverDueRounds sweeps rounds whose matching instant passed while no
// orchestrator was running. Belt and braces on top of event replay: a round
// created before the stream existed still gets matched.
func (o *Orchestrator) recoverDueRounds(ctx context.Context) {
	due, err := o.rounds.FetchRoundsDueForMatching(ctx, o.clock.Now(), o.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch due rounds on startup")
		return
	}
	if len(due) == 0 {
		return
	}

	log.Info().Int("count", len(due)).Str("instance", o.instanceID).Msg("recovering overdue rounds")
	for _, roundID := range due {
		o.enqueue(
			timerKey{kind: taskRunMatching, id: roundID},
			task{kind: taskRunMatching, roundID: roundID})
	}
}
