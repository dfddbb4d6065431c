package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "kycportal/pkg/domain"
	"kycportal/pkg/platform/sentinel"
)

// SchemaSQL creates the table used by PostgresPersister.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS workspace_sessions (
	workspace_id UUID PRIMARY KEY,
	record       JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	expires_at   TIMESTAMPTZ NOT NULL
)`

// PostgresPersister stores records in workspace_sessions. Expired rows are
// treated as absent.
type PostgresPersister struct {
	db    *sql.DB
	ttl   time.Duration
	clock func() time.Time
}

type PostgresOption func(*PostgresPersister)

// WithPostgresClock overrides the time source used for expiry.
func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(p *PostgresPersister) {
		p.clock = clock
	}
}

func NewPostgresPersister(db *sql.DB, ttl time.Duration, opts ...PostgresOption) *PostgresPersister {
	p := &PostgresPersister{db: db, ttl: ttl, clock: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureSchema creates the backing table when missing.
func (p *PostgresPersister) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("create workspace_sessions: %w", err)
	}
	return nil
}

func (p *PostgresPersister) Load(ctx context.Context, ws id.WorkspaceID) (*Record, error) {
	query := `SELECT record FROM workspace_sessions WHERE workspace_id = $1 AND expires_at > $2`
	var raw []byte
	err := p.db.QueryRowContext(ctx, query, uuid.UUID(ws), p.clock()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session for workspace %s: %w", ws, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	return decodeRecord(raw)
}

func (p *PostgresPersister) Save(ctx context.Context, ws id.WorkspaceID, rec Record) error {
	b, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	now := p.clock()
	query := `
		INSERT INTO workspace_sessions (workspace_id, record, updated_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (workspace_id) DO UPDATE
		SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at
	`
	if _, err := p.db.ExecContext(ctx, query, uuid.UUID(ws), b, now, now.Add(p.ttl)); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (p *PostgresPersister) Delete(ctx context.Context, ws id.WorkspaceID) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM workspace_sessions WHERE workspace_id = $1`, uuid.UUID(ws)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
