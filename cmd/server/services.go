package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wonderelo/wonderelo/internal/audit"
	"github.com/wonderelo/wonderelo/internal/clock"
	"github.com/wonderelo/wonderelo/internal/config"
	"github.com/wonderelo/wonderelo/internal/matches"
	"github.com/wonderelo/wonderelo/internal/models"
	"github.com/wonderelo/wonderelo/internal/outbox"
	"github.com/wonderelo/wonderelo/internal/participants"
	"github.com/wonderelo/wonderelo/internal/rounds"
)

// Services bundles the HTTP services and the apps the middleware needs.
type Services struct {
	Rounds       *rounds.Service
	Participants *participants.Service
	Matches      *matches.Service
	Audit        *audit.Service

	ParticipantsApp *participants.App
}

func setupServices(pool *pgxpool.Pool, params models.SystemParams) *Services {
	clk := setupClock()

	outboxRepo := outbox.NewRepository(pool)
	auditRepo := audit.NewRepository(pool)

	roundsApp := rounds.NewApp(rounds.NewRepository(pool, outboxRepo), params)
	participantsApp := participants.NewApp(participants.NewRepository(pool), roundsApp, clk, auditRepo)
	matchesApp := matches.NewApp(matches.NewRepository(pool, outboxRepo), participantsApp, roundsApp, clk, auditRepo)

	return &Services{
		Rounds:          rounds.NewService(roundsApp),
		Participants:    participants.NewService(participantsApp, matchesApp, clk),
		Matches:         matches.NewService(matchesApp),
		Audit:           audit.NewService(auditRepo),
		ParticipantsApp: participantsApp,
	}
}

// setupClock returns the wall clock, shifted by CLOCK_OFFSET_MIN when set.
// The offset is the demo/time-travel knob: windows move, logic does not.
func setupClock() clock.Clock {
	clk := clock.NewReal()
	if offsetMin := config.GetEnvAsInt("CLOCK_OFFSET_MIN", 0); offsetMin != 0 {
		return clock.WithOffset(clk, time.Duration(offsetMin)*time.Minute)
	}
	return clk
}
