package matches

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/wonderelo/wonderelo/internal/audit"
	"github.com/wonderelo/wonderelo/internal/clock"
	"github.com/wonderelo/wonderelo/internal/events"
	"github.com/wonderelo/wonderelo/internal/matching"
	"github.com/wonderelo/wonderelo/internal/models"
	"github.com/wonderelo/wonderelo/internal/outbox"
	"github.com/wonderelo/wonderelo/internal/participants"
	"github.com/wonderelo/wonderelo/internal/timing"
)

var (
	// ErrNotFound is returned when a match does not exist.
	ErrNotFound = errors.New("match not found")
	// ErrNoActiveMatch is returned when matching ran but left this
	// participant without a partner.
	ErrNoActiveMatch = errors.New("no active match for participant")
	// ErrMatchingNotRun is returned before the round's matching instant.
	ErrMatchingNotRun = errors.New("matching has not run for this round")
	// ErrNotPartner is returned when the referenced participant is not a
	// member of the match.
	ErrNotPartner = errors.New("participant is not part of this match")
	// ErrBadCode is returned when a scanned code resolves to nobody in the
	// match.
	ErrBadCode = errors.New("code does not belong to a partner in this match")
	// ErrTooEarly is returned for actions attempted before their window.
	ErrTooEarly = errors.New("action is not available yet")
)

// MatchesRepository defines what the app layer needs from the repository.
// Methods taking events write them through the outbox in the same
// transaction as the domain change.
type MatchesRepository interface {
	CreateMatchesForRound(ctx context.Context, roundID uuid.UUID, ms []*models.Match, evts []outbox.Event) error
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	GetActiveMatchByParticipant(ctx context.Context, roundID, participantID uuid.UUID) (*models.Match, error)
	ListMatchesByRound(ctx context.Context, roundID uuid.UUID) ([]models.Match, error)
	ListMatchesBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Match, error)
	AddCheckIn(ctx context.Context, matchID uuid.UUID, ci models.MatchCheckIn) (*models.Match, error)
	ConfirmMeet(ctx context.Context, matchID uuid.UUID, meetAt, networkingEnd time.Time, evts []outbox.Event) (*models.Match, error)
	UpdateMatchStatus(ctx context.Context, matchID uuid.UUID, status models.MatchStatus, evts []outbox.Event) error
	SubmitContactPrefs(ctx context.Context, matchID uuid.UUID, prefs []models.ContactPref, evts []outbox.Event) error
	ListContactPrefs(ctx context.Context, matchID uuid.UUID) ([]models.ContactPref, error)
}

// ParticipantDirectory defines what this app needs from the participants app.
type ParticipantDirectory interface {
	GetParticipant(ctx context.Context, id uuid.UUID) (*models.Participant, error)
	GetParticipantByCheckInCode(ctx context.Context, roundID uuid.UUID, code string) (*models.Participant, error)
	Transition(ctx context.Context, id uuid.UUID, next models.ParticipantStatus) (*models.Participant, error)
	MarkUnconfirmed(ctx context.Context, roundID uuid.UUID) (int64, error)
	ListByStatus(ctx context.Context, roundID uuid.UUID, statuses ...models.ParticipantStatus) ([]models.Participant, error)
}

// RoundProvider defines what this app needs from the rounds app.
type RoundProvider interface {
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
	ResolveParams(round *models.Round) models.SystemParams
	UpdateRoundStatus(ctx context.Context, id uuid.UUID, status models.RoundStatus) (*models.Round, error)
	ListMeetingPoints(ctx context.Context, sessionID uuid.UUID) ([]models.MeetingPoint, error)
}

// App handles match business logic: the matching run, check-ins, no-show
// rematching and contact exchange.
type App struct {
	repo         MatchesRepository
	participants ParticipantDirectory
	rounds       RoundProvider
	clk          clock.Clock
	audit        audit.Recorder
}

// NewApp creates a new matches App.
func NewApp(repo MatchesRepository, directory ParticipantDirectory, rounds RoundProvider, clk clock.Clock, recorder audit.Recorder) *App {
	return &App{
		repo:         repo,
		participants: directory,
		rounds:       rounds,
		clk:          clk,
		audit:        recorder,
	}
}

// RunMatching executes the matching instant for a round: sweep unconfirmed
// registrations, pair the confirmed pool and reveal the matches. Idempotent
// against event replay: a round past CONFIRMATION is skipped.
func (a *App) RunMatching(ctx context.Context, roundID uuid.UUID) (*MatchingResult, error) {
	round, err := a.rounds.GetRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	switch round.Status {
	case models.RoundStatusScheduled, models.RoundStatusConfirmation:
	default:
		log.Printf("Matching already ran for round %s (status %s), skipping", roundID, round.Status)
		return nil, nil
	}

	if _, err := a.rounds.UpdateRoundStatus(ctx, roundID, models.RoundStatusMatching); err != nil {
		return nil, fmt.Errorf("failed to move round to matching: %w", err)
	}

	var evts []outbox.Event

	swept, err := a.participants.MarkUnconfirmed(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep unconfirmed participants: %w", err)
	}
	if swept > 0 {
		evts = append(evts, outbox.NewEvent(events.TypeParticipantUnconfirmed, roundID,
			events.ParticipantUnconfirmed{RoundID: roundID, Count: swept}))
	}

	pool, err := a.participants.ListByStatus(ctx, roundID, models.ParticipantStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed participants: %w", err)
	}
	poolIDs := make([]uuid.UUID, len(pool))
	for i, p := range pool {
		poolIDs[i] = p.ID
	}

	exclusions, err := a.sessionExclusions(ctx, round.SessionID)
	if err != nil {
		return nil, err
	}

	pairing := matching.Pair(roundID, poolIDs, exclusions, matching.Options{AllowTriple: true})

	points, err := a.rounds.ListMeetingPoints(ctx, round.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meeting points: %w", err)
	}
	pointIDs := make([]uuid.UUID, len(points))
	pointImages := make(map[uuid.UUID]string, len(points))
	for i, pt := range points {
		pointIDs[i] = pt.ID
		pointImages[pt.ID] = pt.ImageURL
	}
	assigned := matching.AssignMeetingPoints(pairing.Groups, pointIDs)

	now := a.clk.Now()
	ms := make([]*models.Match, len(pairing.Groups))
	for i, group := range pairing.Groups {
		m := &models.Match{
			ID:             uuid.New(),
			RoundID:        roundID,
			ParticipantIDs: group,
			Status:         models.MatchStatusActive,
			RevealedAt:     &now,
		}
		if len(assigned) > 0 {
			m.MeetingPointID = assigned[i]
			m.ImageURL = pointImages[assigned[i]]
		}
		ms[i] = m
		evts = append(evts, outbox.NewEvent(events.TypeMatchRevealed, roundID, events.MatchRevealed{
			RoundID:        roundID,
			MatchID:        m.ID,
			ParticipantIDs: group,
			RevealedAt:     now,
		}))
	}

	evts = append(evts, outbox.NewEvent(events.TypeMatchingCompleted, roundID, events.MatchingCompleted{
		RoundID:      roundID,
		MatchCount:   len(ms),
		MatchedCount: len(poolIDs) - len(pairing.Unmatched),
		NoMatchCount: len(pairing.Unmatched),
		RanAt:        now,
	}))

	if err := a.repo.CreateMatchesForRound(ctx, roundID, ms, evts); err != nil {
		return nil, fmt.Errorf("failed to create matches: %w", err)
	}

	for _, m := range ms {
		for _, pid := range m.ParticipantIDs {
			if _, err := a.participants.Transition(ctx, pid, models.ParticipantStatusMatched); err != nil {
				log.Printf("failed to mark participant %s matched: %v", pid, err)
			}
		}
	}
	for _, pid := range pairing.Unmatched {
		if _, err := a.participants.Transition(ctx, pid, models.ParticipantStatusNoMatch); err != nil {
			log.Printf("failed to mark participant %s no-match: %v", pid, err)
		}
	}

	if _, err := a.rounds.UpdateRoundStatus(ctx, roundID, models.RoundStatusInProgress); err != nil {
		return nil, fmt.Errorf("failed to move round in progress: %w", err)
	}

	log.Printf("Matching complete for round %s: %d matches, %d unmatched (swept %d)",
		roundID, len(ms), len(pairing.Unmatched), swept)

	return &MatchingResult{RoundID: roundID, Matches: ms, Unmatched: pairing.Unmatched}, nil
}

// CheckIn records presence at the meeting point via a partner's code. The
// participant who scanned moves to WALKING-done; when the whole match has
// checked in the meet is confirmed and everyone moves to NETWORKING.
func (a *App) CheckIn(ctx context.Context, p *models.Participant, req CheckInRequest) (*models.Match, error) {
	match, err := a.requireActiveMatch(ctx, p)
	if err != nil {
		return nil, err
	}

	peer, err := a.participants.GetParticipantByCheckInCode(ctx, p.RoundID, req.ScannedCode)
	if err != nil || peer.ID == p.ID || !match.Contains(peer.ID) {
		return nil, ErrBadCode
	}

	if match.CheckedIn(p.ID) {
		return match, nil
	}

	now := a.clk.Now()
	match, err = a.repo.AddCheckIn(ctx, match.ID, models.MatchCheckIn{
		ParticipantID: p.ID,
		ScannedCode:   req.ScannedCode,
		CheckedInAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record check-in: %w", err)
	}

	if p.Status == models.ParticipantStatusMatched {
		if _, err := a.participants.Transition(ctx, p.ID, models.ParticipantStatusWalking); err != nil {
			log.Printf("failed to mark participant %s walking: %v", p.ID, err)
		}
	}

	if err := a.audit.Record(ctx, p.RoundID, p.ID, models.AuditActionCheckedIn, ""); err != nil {
		log.Printf("audit record failed for participant %s: %v", p.ID, err)
	}

	if match.QuorumMet() && match.MeetConfirmedAt == nil {
		return a.confirmMeet(ctx, p.RoundID, match)
	}
	return match, nil
}

// ConfirmMeet is the organizer-assisted fallback when the code exchange is
// not possible. It confirms the meet for the whole match immediately.
func (a *App) ConfirmMeet(ctx context.Context, p *models.Participant) (*models.Match, error) {
	match, err := a.requireActiveMatch(ctx, p)
	if err != nil {
		return nil, err
	}
	if match.MeetConfirmedAt != nil {
		return match, nil
	}
	return a.confirmMeet(ctx, p.RoundID, match)
}

func (a *App) confirmMeet(ctx context.Context, roundID uuid.UUID, match *models.Match) (*models.Match, error) {
	round, err := a.rounds.GetRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	now := a.clk.Now()
	end := timing.NetworkingEnd(now, a.rounds.ResolveParams(round))

	updated, err := a.repo.ConfirmMeet(ctx, match.ID, now, end, []outbox.Event{
		outbox.NewEvent(events.TypeMeetConfirmed, roundID, events.MeetConfirmed{
			RoundID:         roundID,
			MatchID:         match.ID,
			MeetConfirmedAt: now,
			NetworkingEndAt: end,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm meet: %w", err)
	}

	for _, pid := range updated.ParticipantIDs {
		a.advanceToNetworking(ctx, pid)
	}

	log.Printf("Meet confirmed for match %s, networking until %s", match.ID, end)
	return updated, nil
}

// advanceToNetworking walks a participant to NETWORKING through the
// transition table; members who never checked in pass through WALKING.
func (a *App) advanceToNetworking(ctx context.Context, pid uuid.UUID) {
	p, err := a.participants.GetParticipant(ctx, pid)
	if err != nil {
		log.Printf("failed to load participant %s: %v", pid, err)
		return
	}
	if p.Status == models.ParticipantStatusMatched {
		if _, err := a.participants.Transition(ctx, pid, models.ParticipantStatusWalking); err != nil {
			log.Printf("failed to advance participant %s: %v", pid, err)
			return
		}
	}
	if _, err := a.participants.Transition(ctx, pid, models.ParticipantStatusNetworking); err != nil {
		log.Printf("failed to advance participant %s: %v", pid, err)
	}
}

// ReportNoShow voids the reporter's match and rematches the remaining
// members against the round's unmatched pool. Available from reveal onward,
// through both the walking and networking windows.
func (a *App) ReportNoShow(ctx context.Context, p *models.Participant, req NoShowRequest) (*NoShowResponse, error) {
	match, err := a.requireActiveMatch(ctx, p)
	if err != nil {
		return nil, err
	}
	if req.NoShowParticipantID == p.ID || !match.Contains(req.NoShowParticipantID) {
		return nil, ErrNotPartner
	}
	if match.RevealedAt == nil {
		return nil, ErrTooEarly
	}

	// Everyone except the absentee gets rematched.
	displaced := make([]uuid.UUID, 0, len(match.ParticipantIDs)-1)
	for _, pid := range match.ParticipantIDs {
		if pid != req.NoShowParticipantID {
			displaced = append(displaced, pid)
		}
	}

	newGroup, err := a.rematchGroup(ctx, p.RoundID, displaced)
	if err != nil {
		return nil, err
	}

	var rematchedInto *uuid.UUID
	var newMatch *models.Match
	now := a.clk.Now()
	if newGroup != nil {
		newMatch = &models.Match{
			ID:             uuid.New(),
			RoundID:        p.RoundID,
			ParticipantIDs: newGroup,
			MeetingPointID: match.MeetingPointID,
			ImageURL:       match.ImageURL,
			Status:         models.MatchStatusActive,
			RevealedAt:     &now,
		}
		rematchedInto = &newMatch.ID
	}

	evts := []outbox.Event{
		outbox.NewEvent(events.TypeNoShowReported, p.RoundID, events.NoShowReported{
			RoundID:       p.RoundID,
			MatchID:       match.ID,
			ReporterID:    p.ID,
			NoShowID:      req.NoShowParticipantID,
			RematchedInto: rematchedInto,
		}),
	}

	if err := a.repo.UpdateMatchStatus(ctx, match.ID, models.MatchStatusBroken, evts); err != nil {
		return nil, fmt.Errorf("failed to break match: %w", err)
	}

	if _, err := a.participants.Transition(ctx, req.NoShowParticipantID, models.ParticipantStatusNoShow); err != nil {
		log.Printf("failed to mark participant %s no-show: %v", req.NoShowParticipantID, err)
	}
	if err := a.audit.Record(ctx, p.RoundID, req.NoShowParticipantID, models.AuditActionNoShowReported, req.Notes); err != nil {
		log.Printf("audit record failed for participant %s: %v", req.NoShowParticipantID, err)
	}

	if newMatch == nil {
		for _, pid := range displaced {
			if _, err := a.participants.Transition(ctx, pid, models.ParticipantStatusNoMatch); err != nil {
				log.Printf("failed to mark participant %s no-match: %v", pid, err)
			}
		}
		a.maybeCompleteRound(ctx, p.RoundID)
		return &NoShowResponse{}, nil
	}

	revealEvt := []outbox.Event{
		outbox.NewEvent(events.TypeMatchRevealed, p.RoundID, events.MatchRevealed{
			RoundID:        p.RoundID,
			MatchID:        newMatch.ID,
			ParticipantIDs: newMatch.ParticipantIDs,
			RevealedAt:     now,
		}),
	}
	if err := a.repo.CreateMatchesForRound(ctx, p.RoundID, []*models.Match{newMatch}, revealEvt); err != nil {
		return nil, fmt.Errorf("failed to create rematch: %w", err)
	}

	for _, pid := range newMatch.ParticipantIDs {
		if _, err := a.participants.Transition(ctx, pid, models.ParticipantStatusMatched); err != nil {
			log.Printf("failed to mark participant %s matched: %v", pid, err)
		}
		if err := a.audit.Record(ctx, p.RoundID, pid, models.AuditActionRematched, ""); err != nil {
			log.Printf("audit record failed for participant %s: %v", pid, err)
		}
	}

	log.Printf("Rematched %d participants into match %s after no-show report", len(newMatch.ParticipantIDs), newMatch.ID)
	return &NoShowResponse{NewMatch: newMatch}, nil
}

// rematchGroup builds the replacement group for displaced members: pull one
// waiting NO_MATCH participant when there is one, otherwise pair the
// displaced members with each other (possible after a triple breaks). A lone
// displaced member with an empty pool gets nil: no rematch possible.
func (a *App) rematchGroup(ctx context.Context, roundID uuid.UUID, displaced []uuid.UUID) ([]uuid.UUID, error) {
	waiting, err := a.participants.ListByStatus(ctx, roundID, models.ParticipantStatusNoMatch)
	if err != nil {
		return nil, fmt.Errorf("failed to list unmatched pool: %w", err)
	}
	if len(waiting) > 0 {
		return append(displaced, waiting[0].ID), nil
	}
	if len(displaced) >= 2 {
		return displaced, nil
	}
	return nil, nil
}

// SubmitContactPrefs stores the participant's per-partner opt-in decisions
// and publishes a contact exchange for every pair that became mutual.
func (a *App) SubmitContactPrefs(ctx context.Context, p *models.Participant, matchID uuid.UUID, prefs map[uuid.UUID]bool) error {
	match, err := a.repo.GetMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("failed to get match: %w", err)
	}
	if !match.Contains(p.ID) {
		return ErrNotPartner
	}
	if match.MeetConfirmedAt == nil {
		return ErrTooEarly
	}
	for partnerID := range prefs {
		if partnerID == p.ID || !match.Contains(partnerID) {
			return ErrNotPartner
		}
	}

	existing, err := a.repo.ListContactPrefs(ctx, matchID)
	if err != nil {
		return fmt.Errorf("failed to list contact prefs: %w", err)
	}

	now := a.clk.Now()
	rows := make([]models.ContactPref, 0, len(prefs))
	var evts []outbox.Event
	for partnerID, share := range prefs {
		rows = append(rows, models.ContactPref{
			ParticipantID: p.ID,
			PartnerID:     partnerID,
			Share:         share,
			SubmittedAt:   now,
		})
		// Mutual when the partner already opted in toward us and our new
		// answer is yes and was not yes before.
		if share && prefShared(existing, partnerID, p.ID) && !prefShared(existing, p.ID, partnerID) {
			evts = append(evts, outbox.NewEvent(events.TypeContactExchanged, match.RoundID, events.ContactExchanged{
				MatchID:        matchID,
				ParticipantIDs: []uuid.UUID{p.ID, partnerID},
			}))
		}
	}

	if err := a.repo.SubmitContactPrefs(ctx, matchID, rows, evts); err != nil {
		return fmt.Errorf("failed to store contact prefs: %w", err)
	}

	if len(evts) > 0 {
		if err := a.audit.Record(ctx, match.RoundID, p.ID, models.AuditActionContactsShared, ""); err != nil {
			log.Printf("audit record failed for participant %s: %v", p.ID, err)
		}
	}
	return nil
}

// CompleteNetworking closes out a match at the end of its networking window.
// Called by the orchestrator; replays are no-ops once the match left ACTIVE.
func (a *App) CompleteNetworking(ctx context.Context, matchID uuid.UUID) error {
	match, err := a.repo.GetMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("failed to get match: %w", err)
	}
	if match.Status != models.MatchStatusActive {
		return nil
	}

	now := a.clk.Now()
	evts := []outbox.Event{
		outbox.NewEvent(events.TypeNetworkingEnded, match.RoundID, events.NetworkingEnded{
			RoundID: match.RoundID,
			MatchID: matchID,
			EndedAt: now,
		}),
	}
	if err := a.repo.UpdateMatchStatus(ctx, matchID, models.MatchStatusCompleted, evts); err != nil {
		return fmt.Errorf("failed to complete match: %w", err)
	}

	for _, pid := range match.ParticipantIDs {
		p, err := a.participants.GetParticipant(ctx, pid)
		if err != nil {
			log.Printf("failed to load participant %s: %v", pid, err)
			continue
		}
		if p.Status == models.ParticipantStatusNetworking {
			if _, err := a.participants.Transition(ctx, pid, models.ParticipantStatusCompleted); err != nil {
				log.Printf("failed to complete participant %s: %v", pid, err)
			}
		}
	}

	a.maybeCompleteRound(ctx, match.RoundID)

	log.Printf("Networking ended for match %s", matchID)
	return nil
}

// maybeCompleteRound marks the round COMPLETED once no ACTIVE matches remain.
// Participants without a live match are already terminal by this point.
func (a *App) maybeCompleteRound(ctx context.Context, roundID uuid.UUID) {
	ms, err := a.repo.ListMatchesByRound(ctx, roundID)
	if err != nil {
		log.Printf("failed to list matches for round %s: %v", roundID, err)
		return
	}
	for _, m := range ms {
		if m.Status == models.MatchStatusActive {
			return
		}
	}

	round, err := a.rounds.GetRound(ctx, roundID)
	if err != nil {
		log.Printf("failed to get round %s: %v", roundID, err)
		return
	}
	if round.Status != models.RoundStatusInProgress {
		return
	}
	if _, err := a.rounds.UpdateRoundStatus(ctx, roundID, models.RoundStatusCompleted); err != nil {
		log.Printf("failed to complete round %s: %v", roundID, err)
	}
}

// ListMatchesByRound lists a round's matches for the admin view.
func (a *App) ListMatchesByRound(ctx context.Context, roundID uuid.UUID) ([]models.Match, error) {
	ms, err := a.repo.ListMatchesByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return ms, nil
}

// ActiveMatchForParticipant returns the participant's current ACTIVE match,
// or nil when there is none. Implements the status endpoint's provider.
func (a *App) ActiveMatchForParticipant(ctx context.Context, roundID, participantID uuid.UUID) (*models.Match, error) {
	match, err := a.repo.GetActiveMatchByParticipant(ctx, roundID, participantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active match: %w", err)
	}
	return match, nil
}

// ContactPrefsFor returns the participant's own submitted opt-in map.
func (a *App) ContactPrefsFor(ctx context.Context, match *models.Match, participantID uuid.UUID) (map[uuid.UUID]bool, error) {
	prefs, err := a.repo.ListContactPrefs(ctx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact prefs: %w", err)
	}
	out := make(map[uuid.UUID]bool)
	for _, pref := range prefs {
		if pref.ParticipantID == participantID {
			out[pref.PartnerID] = pref.Share
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// SharedContactsFor returns partner contact details for every mutual opt-in.
func (a *App) SharedContactsFor(ctx context.Context, match *models.Match, participantID uuid.UUID) ([]participants.SharedContact, error) {
	prefs, err := a.repo.ListContactPrefs(ctx, match.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact prefs: %w", err)
	}

	var out []participants.SharedContact
	for _, partnerID := range match.Partners(participantID) {
		if !prefShared(prefs, participantID, partnerID) || !prefShared(prefs, partnerID, participantID) {
			continue
		}
		partner, err := a.participants.GetParticipant(ctx, partnerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load partner %s: %w", partnerID, err)
		}
		out = append(out, participants.SharedContact{
			ParticipantID: partner.ID,
			Name:          partner.Name,
			Email:         partner.Email,
			Phone:         partner.Phone,
		})
	}
	return out, nil
}

// requireActiveMatch loads the participant's ACTIVE match, mapping absence to
// the two distinguishable not-found cases.
func (a *App) requireActiveMatch(ctx context.Context, p *models.Participant) (*models.Match, error) {
	match, err := a.repo.GetActiveMatchByParticipant(ctx, p.RoundID, p.ID)
	if err == nil {
		return match, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get active match: %w", err)
	}

	round, rerr := a.rounds.GetRound(ctx, p.RoundID)
	if rerr == nil {
		switch round.Status {
		case models.RoundStatusScheduled, models.RoundStatusConfirmation, models.RoundStatusMatching:
			return nil, ErrMatchingNotRun
		}
	}
	return nil, ErrNoActiveMatch
}

// sessionExclusions rebuilds the have-met set from every prior match in the
// session so repeat pairings across rounds are avoided.
func (a *App) sessionExclusions(ctx context.Context, sessionID uuid.UUID) (matching.ExclusionSet, error) {
	prior, err := a.repo.ListMatchesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session matches: %w", err)
	}
	exclusions := make(matching.ExclusionSet)
	for _, m := range prior {
		ids := m.ParticipantIDs
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				exclusions.Add(ids[i], ids[j])
			}
		}
	}
	return exclusions, nil
}

func prefShared(prefs []models.ContactPref, from, to uuid.UUID) bool {
	for _, pref := range prefs {
		if pref.ParticipantID == from && pref.PartnerID == to {
			return pref.Share
		}
	}
	return false
}
