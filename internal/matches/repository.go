package matches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wonderelo/wonderelo/internal/models"
	"github.com/wonderelo/wonderelo/internal/outbox"
)

// Repository is the Postgres implementation of MatchesRepository. Writes
// that publish events run in a single transaction with the outbox insert.
type Repository struct {
	pool   *pgxpool.Pool
	outbox *outbox.Repository
}

// NewRepository creates a matches repository over a pgx pool.
func NewRepository(pool *pgxpool.Pool, ob *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: ob}
}

const matchColumns = `
	m.id, m.round_id, m.participant_ids, m.meeting_point_id, COALESCE(m.image_url, ''),
	m.status, m.created_at, m.revealed_at, m.meet_confirmed_at, m.networking_end_at,
	mp.id, mp.session_id, mp.name, COALESCE(mp.description, ''), COALESCE(mp.image_url, '')`

const matchFrom = `
	FROM matches m
	LEFT JOIN meeting_points mp ON mp.id = m.meeting_point_id`

func (r *Repository) CreateMatchesForRound(ctx context.Context, roundID uuid.UUID, ms []*models.Match, evts []outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, m := range ms {
		var pointID *uuid.UUID
		if m.MeetingPointID != uuid.Nil {
			pointID = &m.MeetingPointID
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO matches (id, round_id, participant_ids, meeting_point_id, image_url, status, revealed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.ID, roundID, m.ParticipantIDs, pointID, m.ImageURL, m.Status, m.RevealedAt)
		if err != nil {
			return fmt.Errorf("insert match: %w", err)
		}
	}

	if err := r.outbox.InsertTx(ctx, tx, evts...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+matchColumns+matchFrom+` WHERE m.id = $1`, id)
	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.hydrate(ctx, m)
}

func (r *Repository) GetActiveMatchByParticipant(ctx context.Context, roundID, participantID uuid.UUID) (*models.Match, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+matchColumns+matchFrom+`
		WHERE m.round_id = $1 AND m.status = $2 AND $3 = ANY(m.participant_ids)
		ORDER BY m.created_at DESC
		LIMIT 1`,
		roundID, models.MatchStatusActive, participantID)
	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.hydrate(ctx, m)
}

func (r *Repository) ListMatchesByRound(ctx context.Context, roundID uuid.UUID) ([]models.Match, error) {
	return r.list(ctx, `
		SELECT `+matchColumns+matchFrom+`
		WHERE m.round_id = $1
		ORDER BY m.created_at`, roundID)
}

func (r *Repository) ListMatchesBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Match, error) {
	return r.list(ctx, `
		SELECT `+matchColumns+matchFrom+`
		JOIN rounds rd ON rd.id = m.round_id
		WHERE rd.session_id = $1
		ORDER BY m.created_at`, sessionID)
}

func (r *Repository) AddCheckIn(ctx context.Context, matchID uuid.UUID, ci models.MatchCheckIn) (*models.Match, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO match_check_ins (match_id, participant_id, scanned_code, checked_in_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id, participant_id) DO NOTHING`,
		matchID, ci.ParticipantID, ci.ScannedCode, ci.CheckedInAt)
	if err != nil {
		return nil, fmt.Errorf("insert check-in: %w", err)
	}
	return r.GetMatch(ctx, matchID)
}

func (r *Repository) ConfirmMeet(ctx context.Context, matchID uuid.UUID, meetAt, networkingEnd time.Time, evts []outbox.Event) (*models.Match, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// meet_confirmed_at IS NULL keeps a concurrent confirm from re-arming
	// the networking window.
	tag, err := tx.Exec(ctx, `
		UPDATE matches SET meet_confirmed_at = $2, networking_end_at = $3
		WHERE id = $1 AND meet_confirmed_at IS NULL`,
		matchID, meetAt, networkingEnd)
	if err != nil {
		return nil, fmt.Errorf("confirm meet: %w", err)
	}

	if tag.RowsAffected() > 0 {
		if err := r.outbox.InsertTx(ctx, tx, evts...); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return r.GetMatch(ctx, matchID)
}

func (r *Repository) UpdateMatchStatus(ctx context.Context, matchID uuid.UUID, status models.MatchStatus, evts []outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `UPDATE matches SET status = $2 WHERE id = $1`, matchID, status)
	if err != nil {
		return fmt.Errorf("update match status: %w", err)
	}

	if err := r.outbox.InsertTx(ctx, tx, evts...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) SubmitContactPrefs(ctx context.Context, matchID uuid.UUID, prefs []models.ContactPref, evts []outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, pref := range prefs {
		_, err := tx.Exec(ctx, `
			INSERT INTO contact_prefs (match_id, participant_id, partner_id, share, submitted_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (match_id, participant_id, partner_id)
			DO UPDATE SET share = EXCLUDED.share, submitted_at = EXCLUDED.submitted_at`,
			matchID, pref.ParticipantID, pref.PartnerID, pref.Share, pref.SubmittedAt)
		if err != nil {
			return fmt.Errorf("upsert contact pref: %w", err)
		}
	}

	if err := r.outbox.InsertTx(ctx, tx, evts...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) ListContactPrefs(ctx context.Context, matchID uuid.UUID) ([]models.ContactPref, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT participant_id, partner_id, share, submitted_at
		FROM contact_prefs
		WHERE match_id = $1`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list contact prefs: %w", err)
	}
	defer rows.Close()

	var out []models.ContactPref
	for rows.Next() {
		var pref models.ContactPref
		if err := rows.Scan(&pref.ParticipantID, &pref.PartnerID, &pref.Share, &pref.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan contact pref: %w", err)
		}
		out = append(out, pref)
	}
	return out, rows.Err()
}

func (r *Repository) list(ctx context.Context, query string, arg any) ([]models.Match, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		hydrated, err := r.hydrate(ctx, &out[i])
		if err != nil {
			return nil, err
		}
		out[i] = *hydrated
	}
	return out, nil
}

// hydrate loads the match's check-ins and contact prefs.
func (r *Repository) hydrate(ctx context.Context, m *models.Match) (*models.Match, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT participant_id, scanned_code, checked_in_at
		FROM match_check_ins
		WHERE match_id = $1
		ORDER BY checked_in_at`, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ci models.MatchCheckIn
		if err := rows.Scan(&ci.ParticipantID, &ci.ScannedCode, &ci.CheckedInAt); err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		m.CheckIns = append(m.CheckIns, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prefs, err := r.ListContactPrefs(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	m.ContactPrefs = prefs
	return m, nil
}

func scanMatch(row pgx.Row) (*models.Match, error) {
	var m models.Match
	var pointID *uuid.UUID
	var mpID *uuid.UUID
	var mpSession *uuid.UUID
	var mpName, mpDesc, mpImage *string
	err := row.Scan(
		&m.ID, &m.RoundID, &m.ParticipantIDs, &pointID, &m.ImageURL,
		&m.Status, &m.CreatedAt, &m.RevealedAt, &m.MeetConfirmedAt, &m.NetworkingEndAt,
		&mpID, &mpSession, &mpName, &mpDesc, &mpImage,
	)
	if err != nil {
		return nil, err
	}
	if pointID != nil {
		m.MeetingPointID = *pointID
	}
	if mpID != nil {
		m.MeetingPoint = &models.MeetingPoint{
			ID:        *mpID,
			SessionID: *mpSession,
		}
		if mpName != nil {
			m.MeetingPoint.Name = *mpName
		}
		if mpDesc != nil {
			m.MeetingPoint.Description = *mpDesc
		}
		if mpImage != nil {
			m.MeetingPoint.ImageURL = *mpImage
		}
	}
	return &m, nil
}
