package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kycportal/internal/audit"
	id "kycportal/pkg/domain"
)

// SchemaSQL creates the audit_events table.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS audit_events (
	id           TEXT PRIMARY KEY,
	category     TEXT NOT NULL,
	timestamp    TIMESTAMPTZ NOT NULL,
	user_id      TEXT NOT NULL DEFAULT '',
	actor_id     TEXT NOT NULL DEFAULT '',
	action       TEXT NOT NULL,
	subject      TEXT NOT NULL DEFAULT '',
	decision     TEXT NOT NULL DEFAULT '',
	reason       TEXT NOT NULL DEFAULT '',
	request_id   TEXT NOT NULL DEFAULT '',
	workspace_id TEXT NOT NULL DEFAULT '',
	ip           TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_user_idx ON audit_events (user_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS audit_events_actor_idx ON audit_events (actor_id, timestamp DESC);
`

// Store implements audit.Sink and audit.Reader on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Append inserts the event. Re-appending the same id is ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, user_id, actor_id, action,
			subject, decision, reason, request_id, workspace_id, ip
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.pool.Exec(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		string(event.UserID),
		string(event.ActorID),
		string(event.Action),
		event.Subject,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.WorkspaceID,
		event.IP,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByUser returns events affecting or performed by userID, newest first.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, category, timestamp, user_id, actor_id, action,
			   subject, decision, reason, request_id, workspace_id, ip
		FROM audit_events
		WHERE user_id = $1 OR actor_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, string(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("scan audit events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.CollectableRow) (audit.Event, error) {
	var (
		e                         audit.Event
		category, userID, actorID string
		action                    string
	)
	err := row.Scan(
		&e.ID,
		&category,
		&e.Timestamp,
		&userID,
		&actorID,
		&action,
		&e.Subject,
		&e.Decision,
		&e.Reason,
		&e.RequestID,
		&e.WorkspaceID,
		&e.IP,
	)
	if err != nil {
		return audit.Event{}, err
	}
	e.Category = audit.EventCategory(category)
	e.UserID = id.UserID(userID)
	e.ActorID = id.UserID(actorID)
	e.Action = audit.Action(action)
	return e, nil
}
