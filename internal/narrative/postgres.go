package narrative

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the durable narrative sink, used when the project config
// carries a database DSN.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Log = (*Postgres)(nil)

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close(ctx context.Context) error {
	p.pool.Close()
	return nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS narrative_entries (
    id          TEXT PRIMARY KEY,
    report_id   TEXT NOT NULL,
    kind        TEXT NOT NULL,
    title       TEXT NOT NULL,
    body        TEXT NOT NULL DEFAULT '',
    created_by  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
)
`
	if _, err := p.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensuring narrative schema: %w", err)
	}
	return nil
}

func (p *Postgres) Append(ctx context.Context, entry Entry) error {
	query := `
INSERT INTO narrative_entries (id, report_id, kind, title, body, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING
`
	_, err := p.pool.Exec(ctx, query,
		entry.ID,
		entry.ReportID,
		entry.Kind,
		entry.Title,
		entry.Body,
		entry.CreatedBy,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending narrative entry: %w", err)
	}
	return nil
}
