package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when an outbox event does not exist.
var ErrNotFound = errors.New("outbox event not found")

// Repository persists outbox events. Inserts ride the caller's transaction;
// relay reads go through the pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an outbox repository over a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const outboxColumns = `id, round_id, event_type, payload, created_at, sent_at`

// InsertTx inserts events within the caller's transaction. An AFTER INSERT
// trigger NOTIFYs the relay with each event ID.
func (r *Repository) InsertTx(ctx context.Context, tx pgx.Tx, events ...Event) error {
	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", e.Type, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO outbox_events (id, round_id, event_type, payload)
			VALUES ($1, $2, $3, $4)`,
			uuid.New(), e.RoundID, e.Type, payload)
		if err != nil {
			return fmt.Errorf("insert outbox event %s: %w", e.Type, err)
		}
	}
	return nil
}

// FetchUnsentOutbox returns up to limit unsent events, oldest first. Reads
// are not claims: concurrent relay instances may fetch the same rows, and
// the publisher's per-event MsgID dedupe absorbs the double publish.
func (r *Repository) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+outboxColumns+`
		FROM outbox_events
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var out []OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.RoundID, &e.EventType, &e.Payload, &e.CreatedAt, &e.SentAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FetchOutboxByID loads one event; used by the LISTEN/NOTIFY path.
func (r *Repository) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	var e OutboxEvent
	err := r.pool.QueryRow(ctx,
		`SELECT `+outboxColumns+` FROM outbox_events WHERE id = $1`, id).
		Scan(&e.ID, &e.RoundID, &e.EventType, &e.Payload, &e.CreatedAt, &e.SentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch outbox event: %w", err)
	}
	return &e, nil
}

// MarkOutboxSent stamps sent_at on the given events.
func (r *Repository) MarkOutboxSent(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox_events SET sent_at = now()
		WHERE id = ANY($1) AND sent_at IS NULL`, ids)
	if err != nil {
		return fmt.Errorf("mark outbox sent: %w", err)
	}
	return nil
}
