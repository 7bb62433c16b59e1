package flow

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wonderelo/wonderelo/internal/models"
)

// ActionClient is what the dispatcher needs from the REST client.
type ActionClient interface {
	ConfirmAttendance(ctx context.Context, roundID, participantID uuid.UUID) error
	CheckIn(ctx context.Context, roundID, participantID uuid.UUID, scannedCode string) (*models.Match, error)
	ConfirmMeet(ctx context.Context, roundID, participantID uuid.UUID) (*models.Match, error)
	ReportNoShow(ctx context.Context, roundID, participantID, noShowID uuid.UUID, notes string) (*NoShowResult, error)
	SubmitContactPrefs(ctx context.Context, matchID, participantID uuid.UUID, prefs map[uuid.UUID]bool) error
}

// LocalApplier is what the dispatcher needs from the poller to push
// optimistic updates.
type LocalApplier interface {
	ApplyLocalStatus(status models.ParticipantStatus)
	ApplyLocalMatch(match *models.Match, status models.ParticipantStatus)
}

// Dispatcher issues participant actions. Each action is a single network
// call; failures surface as dismissible errors and are never auto-retried,
// the user re-triggers. Confirm is single-flight: a second call while one is
// in flight is a no-op, so rapid double-taps produce exactly one request.
type Dispatcher struct {
	client        ActionClient
	local         LocalApplier
	roundID       uuid.UUID
	participantID uuid.UUID

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewDispatcher creates a dispatcher for one participant/round pair.
func NewDispatcher(client ActionClient, local LocalApplier, roundID, participantID uuid.UUID) *Dispatcher {
	return &Dispatcher{
		client:        client,
		local:         local,
		roundID:       roundID,
		participantID: participantID,
		inFlight:      make(map[string]bool),
	}
}

// begin marks an action in flight; returns false when one already is.
func (d *Dispatcher) begin(action string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[action] {
		return false
	}
	d.inFlight[action] = true
	return true
}

func (d *Dispatcher) end(action string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, action)
}

// ConfirmAttendance confirms the participant and optimistically shows the
// waiting state immediately, instead of flashing the confirm button until
// the next poll lands.
func (d *Dispatcher) ConfirmAttendance(ctx context.Context) error {
	if !d.begin("confirm") {
		return nil
	}
	defer d.end("confirm")

	if err := d.client.ConfirmAttendance(ctx, d.roundID, d.participantID); err != nil {
		return err
	}
	d.local.ApplyLocalStatus(models.ParticipantStatusConfirmed)
	return nil
}

// CheckIn submits a partner's code. On success the returned match carries
// the updated check-in list (and, once quorum is met, the networking window).
func (d *Dispatcher) CheckIn(ctx context.Context, scannedCode string) (*models.Match, error) {
	if !d.begin("checkin") {
		return nil, nil
	}
	defer d.end("checkin")

	match, err := d.client.CheckIn(ctx, d.roundID, d.participantID, scannedCode)
	if err != nil {
		return nil, err
	}
	status := models.ParticipantStatusWalking
	if match.MeetConfirmedAt != nil {
		status = models.ParticipantStatusNetworking
	}
	d.local.ApplyLocalMatch(match, status)
	return match, nil
}

// ConfirmMeet is the organizer-assisted fallback for a code exchange.
func (d *Dispatcher) ConfirmMeet(ctx context.Context) (*models.Match, error) {
	if !d.begin("confirm-meet") {
		return nil, nil
	}
	defer d.end("confirm-meet")

	match, err := d.client.ConfirmMeet(ctx, d.roundID, d.participantID)
	if err != nil {
		return nil, err
	}
	d.local.ApplyLocalMatch(match, models.ParticipantStatusNetworking)
	return match, nil
}

// ReportNoShow reports an absent partner. On a successful rematch the new
// match is applied seamlessly, skipping the waiting screen; on failure the
// participant stays where they are and can retry.
func (d *Dispatcher) ReportNoShow(ctx context.Context, noShowID uuid.UUID, notes string) (*NoShowResult, error) {
	if !d.begin("no-show") {
		return nil, nil
	}
	defer d.end("no-show")

	res, err := d.client.ReportNoShow(ctx, d.roundID, d.participantID, noShowID, notes)
	if err != nil {
		return nil, err
	}
	if res.NewMatch != nil {
		d.local.ApplyLocalMatch(res.NewMatch, models.ParticipantStatusWalking)
	}
	return res, nil
}

// SubmitContactPrefs submits the per-partner opt-in map.
func (d *Dispatcher) SubmitContactPrefs(ctx context.Context, matchID uuid.UUID, prefs map[uuid.UUID]bool) error {
	if !d.begin("contact-prefs") {
		return nil
	}
	defer d.end("contact-prefs")

	return d.client.SubmitContactPrefs(ctx, matchID, d.participantID, prefs)
}
