package participants

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wonderelo/wonderelo/internal/audit"
	"github.com/wonderelo/wonderelo/internal/clock"
	"github.com/wonderelo/wonderelo/internal/models"
	"github.com/wonderelo/wonderelo/internal/timing"
)

var (
	// ErrNotFound is returned when a participant does not exist.
	ErrNotFound = errors.New("participant not found")
	// ErrRegistrationClosed is returned past the safety-window cutoff.
	ErrRegistrationClosed = errors.New("registration is closed for this round")
	// ErrRoundNotOpen is returned when the round cannot accept registrations.
	ErrRoundNotOpen = errors.New("round is not open for registration")
	// ErrRoundFull is returned when the round has reached its capacity.
	ErrRoundFull = errors.New("round is full")
	// ErrOutsideWindow is returned when confirming outside the confirmation window.
	ErrOutsideWindow = errors.New("confirmation window is not open")
	// ErrInvalidTransition is returned on a status change the table forbids.
	ErrInvalidTransition = errors.New("invalid participant status transition")
)

// ParticipantsRepository defines what the app layer needs from the repository.
type ParticipantsRepository interface {
	CreateParticipant(ctx context.Context, p *models.Participant) (*models.Participant, error)
	GetParticipant(ctx context.Context, id uuid.UUID) (*models.Participant, error)
	GetParticipantByToken(ctx context.Context, token string) (*models.Participant, error)
	GetParticipantByCheckInCode(ctx context.Context, roundID uuid.UUID, code string) (*models.Participant, error)
	UpdateParticipantStatus(ctx context.Context, id uuid.UUID, status models.ParticipantStatus, confirmedAt *time.Time) (*models.Participant, error)
	ListParticipantsByRound(ctx context.Context, roundID uuid.UUID) ([]models.Participant, error)
	ListParticipantsByStatus(ctx context.Context, roundID uuid.UUID, statuses ...models.ParticipantStatus) ([]models.Participant, error)
	MarkUnconfirmed(ctx context.Context, roundID uuid.UUID) (int64, error)
}

// RoundProvider defines what this app needs from the rounds app.
type RoundProvider interface {
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
	ResolveParams(round *models.Round) models.SystemParams
}

// App handles participant business logic.
type App struct {
	repo   ParticipantsRepository
	rounds RoundProvider
	clk    clock.Clock
	audit  audit.Recorder
}

// NewApp creates a new participants App.
func NewApp(repo ParticipantsRepository, rounds RoundProvider, clk clock.Clock, recorder audit.Recorder) *App {
	return &App{
		repo:   repo,
		rounds: rounds,
		clk:    clk,
		audit:  recorder,
	}
}

// Register creates a participant for a round, guarded by the safety window
// and the round's capacity. The issued token is the sole credential and is
// returned exactly once.
func (a *App) Register(ctx context.Context, roundID uuid.UUID, req RegisterRequest) (*RegisterResponse, error) {
	if err := a.validateRegisterRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	round, err := a.rounds.GetRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	switch round.Status {
	case models.RoundStatusScheduled, models.RoundStatusConfirmation:
	default:
		return nil, ErrRoundNotOpen
	}

	params := a.rounds.ResolveParams(round)
	if !timing.RegistrationOpen(a.clk.Now(), round.StartsAt, params) {
		return nil, ErrRegistrationClosed
	}
	if params.MaxParticipants > 0 && round.Registrations >= params.MaxParticipants {
		return nil, ErrRoundFull
	}

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	code, err := newCheckInCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate check-in code: %w", err)
	}

	p := &models.Participant{
		ID:          uuid.New(),
		RoundID:     roundID,
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       strings.TrimSpace(req.Phone),
		Token:       token,
		CheckInCode: code,
		Status:      models.ParticipantStatusRegistered,
	}

	created, err := a.repo.CreateParticipant(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}

	if err := a.audit.Record(ctx, roundID, created.ID, models.AuditActionRegistered, ""); err != nil {
		log.Printf("audit record failed for participant %s: %v", created.ID, err)
	}

	log.Printf("Registered participant %s for round %s", created.ID, roundID)
	return &RegisterResponse{Participant: created, Token: token}, nil
}

// GetParticipant retrieves a participant by ID.
func (a *App) GetParticipant(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	p, err := a.repo.GetParticipant(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// GetParticipantByToken resolves the bearer credential.
func (a *App) GetParticipantByToken(ctx context.Context, token string) (*models.Participant, error) {
	p, err := a.repo.GetParticipantByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve participant token: %w", err)
	}
	return p, nil
}

// GetParticipantByCheckInCode resolves a scanned peer code within a round.
func (a *App) GetParticipantByCheckInCode(ctx context.Context, roundID uuid.UUID, code string) (*models.Participant, error) {
	p, err := a.repo.GetParticipantByCheckInCode(ctx, roundID, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve check-in code: %w", err)
	}
	return p, nil
}

// Confirm records attendance confirmation. Idempotent: confirming an
// already-confirmed participant is a no-op success. Rejected outside the
// confirmation window.
func (a *App) Confirm(ctx context.Context, participantID uuid.UUID) (*models.Participant, error) {
	p, err := a.repo.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	if p.Status == models.ParticipantStatusConfirmed {
		return p, nil
	}
	if p.Status != models.ParticipantStatusRegistered {
		return nil, ErrInvalidTransition
	}

	round, err := a.rounds.GetRound(ctx, p.RoundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	now := a.clk.Now()
	b := timing.Compute(round.StartsAt, a.rounds.ResolveParams(round))
	if now.Before(b.ConfirmationStart) || !now.Before(b.MatchingInstant) {
		return nil, ErrOutsideWindow
	}

	updated, err := a.repo.UpdateParticipantStatus(ctx, participantID, models.ParticipantStatusConfirmed, &now)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm participant: %w", err)
	}

	if err := a.audit.Record(ctx, p.RoundID, participantID, models.AuditActionConfirmed, ""); err != nil {
		log.Printf("audit record failed for participant %s: %v", participantID, err)
	}
	return updated, nil
}

// Transition moves a participant to the next status, validated against the
// closed transition table.
func (a *App) Transition(ctx context.Context, participantID uuid.UUID, next models.ParticipantStatus) (*models.Participant, error) {
	p, err := a.repo.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	if p.Status == next {
		return p, nil
	}
	if !p.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}

	updated, err := a.repo.UpdateParticipantStatus(ctx, participantID, next, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update participant status: %w", err)
	}

	detail := fmt.Sprintf("%s -> %s", p.Status, next)
	if err := a.audit.Record(ctx, p.RoundID, participantID, models.AuditActionStatusChanged, detail); err != nil {
		log.Printf("audit record failed for participant %s: %v", participantID, err)
	}
	return updated, nil
}

// MarkUnconfirmed flips every still-REGISTERED participant of the round to
// UNCONFIRMED. Called by the orchestrator at the matching instant.
func (a *App) MarkUnconfirmed(ctx context.Context, roundID uuid.UUID) (int64, error) {
	n, err := a.repo.MarkUnconfirmed(ctx, roundID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark unconfirmed participants: %w", err)
	}
	if n > 0 {
		log.Printf("Marked %d participants unconfirmed for round %s", n, roundID)
	}
	return n, nil
}

// ListByRound lists all participants of a round.
func (a *App) ListByRound(ctx context.Context, roundID uuid.UUID) ([]models.Participant, error) {
	list, err := a.repo.ListParticipantsByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return list, nil
}

// ListByStatus lists a round's participants holding any of the statuses.
func (a *App) ListByStatus(ctx context.Context, roundID uuid.UUID, statuses ...models.ParticipantStatus) ([]models.Participant, error) {
	list, err := a.repo.ListParticipantsByStatus(ctx, roundID, statuses...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants by status: %w", err)
	}
	return list, nil
}

func (a *App) validateRegisterRequest(req RegisterRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("email is invalid")
	}
	return nil
}

// newToken returns a 64-hex-char opaque bearer credential.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// checkInAlphabet avoids characters that misread on badges (0/O, 1/I/L).
const checkInAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// newCheckInCode returns a short human-enterable code, e.g. "K7Q2-M9XB".
func newCheckInCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 0, 9)
	for i, b := range buf {
		if i == 4 {
			out = append(out, '-')
		}
		out = append(out, checkInAlphabet[int(b)%len(checkInAlphabet)])
	}
	return string(out), nil
}
