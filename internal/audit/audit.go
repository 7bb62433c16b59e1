// Package audit records append-only entries of actions taken against
// participants. Consumed by admin display only; flow logic never reads it.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wonderelo/wonderelo/internal/models"
)

// Recorder is what producing packages need from the audit log.
type Recorder interface {
	Record(ctx context.Context, roundID, participantID uuid.UUID, action models.AuditAction, detail string) error
}

// Repository is the Postgres-backed audit log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record appends one entry.
func (r *Repository) Record(ctx context.Context, roundID, participantID uuid.UUID, action models.AuditAction, detail string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_entries (id, round_id, participant_id, action, detail)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), roundID, participantID, action, detail)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByRound returns a round's entries, newest first.
func (r *Repository) ListByRound(ctx context.Context, roundID uuid.UUID, limit int32) ([]models.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, round_id, participant_id, action, COALESCE(detail, ''), created_at
		FROM audit_entries
		WHERE round_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		roundID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.RoundID, &e.ParticipantID, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// NoOp discards entries; used where an audit sink is optional.
type NoOp struct{}

func (NoOp) Record(ctx context.Context, roundID, participantID uuid.UUID, action models.AuditAction, detail string) error {
	return nil
}
