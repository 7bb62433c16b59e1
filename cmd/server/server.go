package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/wonderelo/wonderelo/internal/auth"
	"github.com/wonderelo/wonderelo/internal/config"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(cfg config.Config, services *Services) *http.Server {
	r := chi.NewRouter()

	setupHealthCheck(r)

	r.Route("/api/v1", func(v1 chi.Router) {
		// Registration: guarded by the anonymous key baked into the client.
		v1.Group(func(pub chi.Router) {
			pub.Use(auth.KeyAuth(cfg.AnonKey))
			services.Participants.PublicRoutes(pub)
		})

		// Participant flow: guarded by the token issued at registration.
		v1.Group(func(part chi.Router) {
			part.Use(auth.ParticipantAuth(services.ParticipantsApp))
			services.Participants.ParticipantRoutes(part)
			services.Matches.ParticipantRoutes(part)
		})

		// Organizer surface.
		v1.Group(func(admin chi.Router) {
			admin.Use(auth.KeyAuth(cfg.AdminKey))
			services.Rounds.Routes(admin)
			services.Matches.AdminRoutes(admin)
			services.Audit.Routes(admin)
		})
	})

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	handler := c.Handler(r)

	return &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func setupHealthCheck(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Printf("Failed to write health check response: %v", err)
		}
	})
}
