package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
	"github.com/wonderelo/wonderelo/internal/outbox"
)

// setupNATSConnection creates a NATS connection with JetStream
func setupNATSConnection(natsURL string) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return nc, js, nil
}

// ensureConsumer creates or gets the JetStream consumer
func (o *Orchestrator) ensureConsumer(ctx context.Context) error {
	stream, err := o.js.Stream(ctx, "ROUND_EVENTS")
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		Description:   "Round orchestrator event consumer with startup replay",
		FilterSubject: "round.events.>",
		DeliverPolicy: jetstream.DeliverAllPolicy, // Replay all events for recovery
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    consumerMaxDeliver,
		AckWait:       consumerAckWait,
		MaxAckPending: consumerMaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, consumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().Msg("created JetStream consumer for orchestrator")
	} else {
		log.Info().Msg("using existing JetStream consumer for orchestrator")
	}

	o.consumer = consumer
	return nil
}

// processEvent processes a single JetStream event
func (o *Orchestrator) processEvent(ctx context.Context, msg jetstream.Msg) error {
	var env outbox.Envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}

	log.Debug().
		Str("subject", msg.Subject()).
		Str("round_id", env.RoundID.String()).
		Str("event_type", env.EventType).
		Msg("processing orchestrator event")

	return o.HandleDomainEvent(ctx, env.EventType, env.RoundID, env.Payload)
}
