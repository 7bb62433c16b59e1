package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wonderelo/wonderelo/internal/audit"
	"github.com/wonderelo/wonderelo/internal/clock"
	"github.com/wonderelo/wonderelo/internal/config"
	"github.com/wonderelo/wonderelo/internal/database"
	"github.com/wonderelo/wonderelo/internal/dbconfig"
	"github.com/wonderelo/wonderelo/internal/matches"
	"github.com/wonderelo/wonderelo/internal/orchestrator"
	"github.com/wonderelo/wonderelo/internal/outbox"
	"github.com/wonderelo/wonderelo/internal/participants"
	"github.com/wonderelo/wonderelo/internal/rounds"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := config.FromEnv()
	params, err := config.LoadSystemParams(cfg.ParamsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load window parameters")
	}
	batchSize := int32(config.GetEnvAsInt("RECOVERY_BATCH_SIZE", 100))

	dbCfg := dbconfig.NewConfigFromEnv()
	pool, err := database.NewPool(context.Background(), dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	log.Info().
		Str("database", dbCfg.Database).
		Str("nats_url", cfg.NatsURL).
		Msg("starting round orchestrator")

	clk := clock.NewReal()
	outboxRepo := outbox.NewRepository(pool)
	auditRepo := audit.NewRepository(pool)

	roundsApp := rounds.NewApp(rounds.NewRepository(pool, outboxRepo), params)
	participantsApp := participants.NewApp(participants.NewRepository(pool), roundsApp, clk, auditRepo)
	matchesApp := matches.NewApp(matches.NewRepository(pool, outboxRepo), participantsApp, roundsApp, clk, auditRepo)

	orch, err := orchestrator.NewOrchestrator(cfg.NatsURL, roundsApp, matchesApp, clk, batchSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create orchestrator")
	}
	defer orch.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := orch.RunScheduler(ctx); err != nil {
			log.Error().Err(err).Msg("orchestrator scheduler failed")
		}
	}()

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         ":" + getEnv("HEALTH_PORT", "8082"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health check server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health check server shutdown failed")
	}

	cancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("round orchestrator shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
