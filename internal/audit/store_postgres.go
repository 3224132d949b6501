package audit

import (
	"context"
	"database/sql"
	"fmt"

	id "sigrh/pkg/domain"
	txcontext "sigrh/pkg/platform/tx"
)

// PostgresStore implements the transactional outbox: events land in
// audit_events inside the caller's transaction and the relay publishes
// unrelayed rows to Kafka afterwards. The table doubles as the queryable
// history for per-agent trails.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events
			(id, occurred_at, entity, entity_id, ministry_id, action, actor_id, previous_status, new_status, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID.String(),
		event.Timestamp,
		string(event.Entity),
		event.EntityID,
		event.MinistryID,
		string(event.Action),
		event.ActorID,
		nullable(event.PreviousStatus),
		nullable(event.NewStatus),
		nullable(event.Comment),
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entity Entity, entityID string) ([]Event, error) {
	query := `
		SELECT id, occurred_at, entity, entity_id, ministry_id, action, actor_id, previous_status, new_status, comment
		FROM audit_events
		WHERE entity = $1 AND entity_id = $2
		ORDER BY occurred_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(entity), entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *PostgresStore) Unpublished(ctx context.Context, limit int) ([]Event, error) {
	query := `
		SELECT id, occurred_at, entity, entity_id, ministry_id, action, actor_id, previous_status, new_status, comment
		FROM audit_events
		WHERE published_at IS NULL
		ORDER BY occurred_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *PostgresStore) MarkPublished(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	query := `
		UPDATE audit_events
		SET published_at = NOW()
		WHERE id = ANY($1)
	`
	if _, err := s.db.ExecContext(ctx, query, eventIDs); err != nil {
		return fmt.Errorf("mark audit events published: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var e Event
		var entity, action string
		var previous, next, comment sql.NullString
		var ministryID id.MinistryID
		var actorID id.ProfileID
		if err := rows.Scan(&e.ID, &e.Timestamp, &entity, &e.EntityID, &ministryID, &action, &actorID, &previous, &next, &comment); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Entity = Entity(entity)
		e.Action = Action(action)
		e.MinistryID = ministryID
		e.ActorID = actorID
		e.PreviousStatus = previous.String
		e.NewStatus = next.String
		e.Comment = comment.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
