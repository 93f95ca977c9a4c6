package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlink-web/internal/analytics"
)

const analyticsSchema = `
CREATE TABLE IF NOT EXISTS resolution_events (
	id          UUID PRIMARY KEY,
	slug        TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	target      TEXT,
	reason      TEXT,
	request_id  TEXT,
	client_ip   TEXT,
	user_agent  TEXT,
	referrer    TEXT,
	resolved_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS resolution_events_slug_idx ON resolution_events (slug, resolved_at);

CREATE TABLE IF NOT EXISTS submission_events (
	id           UUID PRIMARY KEY,
	slug         TEXT,
	destination  TEXT NOT NULL,
	custom_alias BOOLEAN NOT NULL,
	outcome      TEXT NOT NULL,
	status       INTEGER,
	request_id   TEXT,
	client_ip    TEXT,
	user_agent   TEXT,
	submitted_at TIMESTAMPTZ NOT NULL
);
`

// AnalyticsPostgresStore persists usage events with pgx. Inserts are
// idempotent on the event id, so redelivered messages are harmless.
type AnalyticsPostgresStore struct {
	pool *pgxpool.Pool
}

func NewAnalyticsPostgresStore(pool *pgxpool.Pool) *AnalyticsPostgresStore {
	return &AnalyticsPostgresStore{pool: pool}
}

// Migrate creates the event tables if they do not exist.
func (p *AnalyticsPostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, analyticsSchema); err != nil {
		return fmt.Errorf("migrate analytics schema: %w", err)
	}

	return nil
}

func (p *AnalyticsPostgresStore) SaveResolution(ctx context.Context, event *analytics.ResolutionEvent) error {
	query := `
		INSERT INTO resolution_events
			(id, slug, outcome, target, reason, request_id, client_ip, user_agent, referrer, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query,
		event.ID,
		event.Slug,
		event.Outcome,
		nullable(event.Target),
		nullable(event.Reason),
		nullable(event.RequestID),
		nullable(event.IP),
		nullable(event.UserAgent),
		nullable(event.Referrer),
		event.ResolvedAt,
	)

	return err
}

func (p *AnalyticsPostgresStore) SaveSubmission(ctx context.Context, event *analytics.SubmissionEvent) error {
	query := `
		INSERT INTO submission_events
			(id, slug, destination, custom_alias, outcome, status, request_id, client_ip, user_agent, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	var status *int
	if event.Status != 0 {
		status = &event.Status
	}

	_, err := p.pool.Exec(ctx, query,
		event.ID,
		nullable(event.Slug),
		event.Destination,
		event.CustomAlias,
		event.Outcome,
		status,
		nullable(event.RequestID),
		nullable(event.IP),
		nullable(event.UserAgent),
		event.SubmittedAt,
	)

	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
