// Package auth holds the bearer-token middleware. There is no login: the
// anonymous key guards registration, the admin key guards the organizer
// surface and each participant authenticates with the opaque token issued at
// registration.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/wonderelo/wonderelo/internal/api"
	"github.com/wonderelo/wonderelo/internal/models"
)

type contextKey string

const participantKey contextKey = "participant"

// TokenResolver resolves a participant bearer token.
type TokenResolver interface {
	GetParticipantByToken(ctx context.Context, token string) (*models.Participant, error)
}

// ParticipantFrom returns the participant the middleware resolved.
func ParticipantFrom(ctx context.Context) (*models.Participant, bool) {
	p, ok := ctx.Value(participantKey).(*models.Participant)
	return p, ok
}

// ParticipantAuth resolves the bearer token to a participant and stores it in
// the request context. Unknown tokens get a 401.
func ParticipantAuth(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				api.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			p, err := resolver.GetParticipantByToken(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), participantKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// KeyAuth requires the bearer token to equal the configured key. Used for
// the anonymous registration key and the admin key.
func KeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if key == "" || subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				api.Error(w, http.StatusUnauthorized, "invalid key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
