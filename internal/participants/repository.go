package participants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wonderelo/wonderelo/internal/models"
)

// Repository is the Postgres implementation of ParticipantsRepository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a participants repository over a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const participantColumns = `
	id, round_id, name, email, COALESCE(phone, ''), token, check_in_code,
	status, confirmed_at, created_at, updated_at`

func (r *Repository) CreateParticipant(ctx context.Context, p *models.Participant) (*models.Participant, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO participants (id, round_id, name, email, phone, token, check_in_code, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+participantColumns,
		p.ID, p.RoundID, p.Name, p.Email, p.Phone, p.Token, p.CheckInCode, p.Status,
	)
	return scanParticipant(row)
}

func (r *Repository) GetParticipant(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = $1`, id)
	return r.one(row)
}

func (r *Repository) GetParticipantByToken(ctx context.Context, token string) (*models.Participant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE token = $1`, token)
	return r.one(row)
}

func (r *Repository) GetParticipantByCheckInCode(ctx context.Context, roundID uuid.UUID, code string) (*models.Participant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE round_id = $1 AND check_in_code = $2`,
		roundID, code)
	return r.one(row)
}

func (r *Repository) UpdateParticipantStatus(ctx context.Context, id uuid.UUID, status models.ParticipantStatus, confirmedAt *time.Time) (*models.Participant, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE participants SET
			status = $2,
			confirmed_at = COALESCE($3, confirmed_at),
			updated_at = now()
		WHERE id = $1
		RETURNING `+participantColumns,
		id, status, confirmedAt,
	)
	return r.one(row)
}

func (r *Repository) ListParticipantsByRound(ctx context.Context, roundID uuid.UUID) ([]models.Participant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE round_id = $1 ORDER BY created_at`, roundID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func (r *Repository) ListParticipantsByStatus(ctx context.Context, roundID uuid.UUID, statuses ...models.ParticipantStatus) ([]models.Participant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE round_id = $1 AND status = ANY($2) ORDER BY created_at`,
		roundID, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("list participants by status: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// MarkUnconfirmed flips still-REGISTERED participants to UNCONFIRMED in one
// statement so a concurrent confirm cannot be lost.
func (r *Repository) MarkUnconfirmed(ctx context.Context, roundID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE participants SET status = $3, updated_at = now()
		WHERE round_id = $1 AND status = $2`,
		roundID, models.ParticipantStatusRegistered, models.ParticipantStatusUnconfirmed)
	if err != nil {
		return 0, fmt.Errorf("mark unconfirmed: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) one(row pgx.Row) (*models.Participant, error) {
	p, err := scanParticipant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func collect(rows pgx.Rows) ([]models.Participant, error) {
	var out []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	var p models.Participant
	err := row.Scan(
		&p.ID, &p.RoundID, &p.Name, &p.Email, &p.Phone, &p.Token, &p.CheckInCode,
		&p.Status, &p.ConfirmedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func statusStrings(statuses []models.ParticipantStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
