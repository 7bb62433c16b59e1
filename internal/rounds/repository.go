package rounds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wonderelo/wonderelo/internal/models"
	"github.com/wonderelo/wonderelo/internal/outbox"
)

// Repository is the Postgres implementation of RoundsRepository.
type Repository struct {
	pool   *pgxpool.Pool
	outbox *outbox.Repository
}

// NewRepository creates a rounds repository over a pgx pool.
func NewRepository(pool *pgxpool.Pool, ob *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: ob}
}

const roundColumns = `
	r.id, r.session_id, r.name, r.starts_at, r.duration_min, r.status,
	r.params, r.next_deadline, r.created_at, r.updated_at,
	(SELECT count(*) FROM participants p WHERE p.round_id = r.id) AS registrations`

func (r *Repository) CreateRound(ctx context.Context, round *models.Round, evts []outbox.Event) (*models.Round, error) {
	params, err := marshalParams(round.Params)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO rounds (id, session_id, name, starts_at, duration_min, status, params)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, session_id, name, starts_at, duration_min, status,
		          params, next_deadline, created_at, updated_at, 0`,
		round.ID, round.SessionID, round.Name, round.StartsAt, round.DurationMin, round.Status, params,
	)
	created, err := scanRound(row)
	if err != nil {
		return nil, err
	}

	if err := r.outbox.InsertTx(ctx, tx, evts...); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return created, nil
}

func (r *Repository) GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+roundColumns+` FROM rounds r WHERE r.id = $1`, id)
	round, err := scanRound(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return round, nil
}

func (r *Repository) UpdateRound(ctx context.Context, id uuid.UUID, req UpdateRoundRequest, evts []outbox.Event) (*models.Round, error) {
	params, err := marshalParams(req.Params)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// A new starts_at puts the round back to SCHEDULED so the orchestrator
	// re-arms off the replayed round_scheduled event.
	row := tx.QueryRow(ctx, `
		UPDATE rounds SET
			name = COALESCE($2, name),
			starts_at = COALESCE($3, starts_at),
			duration_min = COALESCE($4, duration_min),
			params = COALESCE($5, params),
			status = CASE WHEN $3::timestamptz IS NOT NULL THEN 'SCHEDULED' ELSE status END,
			updated_at = now()
		WHERE id = $1
		RETURNING id, session_id, name, starts_at, duration_min, status,
		          params, next_deadline, created_at, updated_at,
		          (SELECT count(*) FROM participants p WHERE p.round_id = rounds.id)`,
		id, req.Name, req.StartsAt, req.DurationMin, params,
	)
	round, err := scanRound(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := r.outbox.InsertTx(ctx, tx, evts...); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return round, nil
}

func (r *Repository) UpdateRoundStatus(ctx context.Context, id uuid.UUID, status models.RoundStatus, evts []outbox.Event) (*models.Round, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE rounds SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, session_id, name, starts_at, duration_min, status,
		          params, next_deadline, created_at, updated_at,
		          (SELECT count(*) FROM participants p WHERE p.round_id = rounds.id)`,
		id, status,
	)
	round, err := scanRound(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := r.outbox.InsertTx(ctx, tx, evts...); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return round, nil
}

func (r *Repository) DeleteRound(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rounds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete round: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListRoundsBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Round, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roundColumns+` FROM rounds r WHERE r.session_id = $1 ORDER BY r.starts_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var out []models.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *round)
	}
	return out, rows.Err()
}

// FetchRoundsDueForMatching finds rounds whose matching instant has passed
// while still in a pre-matching status. Recovery path for the orchestrator.
func (r *Repository) FetchRoundsDueForMatching(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM rounds
		WHERE starts_at <= $1 AND status IN ($2, $3)
		ORDER BY starts_at
		LIMIT $4`,
		now, models.RoundStatusScheduled, models.RoundStatusConfirmation, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due rounds: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan round id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) UpdateNextDeadline(ctx context.Context, id uuid.UUID, deadline *time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE rounds SET next_deadline = $2, updated_at = now() WHERE id = $1`, id, deadline)
	if err != nil {
		return fmt.Errorf("update next deadline: %w", err)
	}
	return nil
}

func (r *Repository) ClearNextDeadline(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE rounds SET next_deadline = NULL, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clear next deadline: %w", err)
	}
	return nil
}

func (r *Repository) ListMeetingPoints(ctx context.Context, sessionID uuid.UUID) ([]models.MeetingPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, name, COALESCE(description, ''), COALESCE(image_url, '')
		FROM meeting_points WHERE session_id = $1 ORDER BY name`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list meeting points: %w", err)
	}
	defer rows.Close()

	var out []models.MeetingPoint
	for rows.Next() {
		var mp models.MeetingPoint
		if err := rows.Scan(&mp.ID, &mp.SessionID, &mp.Name, &mp.Description, &mp.ImageURL); err != nil {
			return nil, fmt.Errorf("scan meeting point: %w", err)
		}
		out = append(out, mp)
	}
	return out, rows.Err()
}

func marshalParams(p *models.RoundParams) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal round params: %w", err)
	}
	return data, nil
}

func scanRound(row pgx.Row) (*models.Round, error) {
	var (
		round  models.Round
		params []byte
	)
	err := row.Scan(
		&round.ID, &round.SessionID, &round.Name, &round.StartsAt, &round.DurationMin,
		&round.Status, &params, &round.NextDeadline, &round.CreatedAt, &round.UpdatedAt,
		&round.Registrations,
	)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		round.Params = &models.RoundParams{}
		if err := json.Unmarshal(params, round.Params); err != nil {
			return nil, fmt.Errorf("unmarshal round params: %w", err)
		}
	}
	return &round, nil
}
