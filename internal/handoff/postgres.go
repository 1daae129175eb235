package handoff

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5/pgxpool"

	"destination_assistant/pkg"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS destination_handoffs (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT        NOT NULL,
	destination TEXT        NOT NULL,
	preferences TEXT[]      NOT NULL DEFAULT '{}',
	payload     JSONB       NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresPublisher records handoffs in the destination_handoffs table, which
// the booking system polls.
type PostgresPublisher struct {
	db *pgxpool.Pool
}

func NewPostgresPublisher(ctx context.Context, dsn string) (*PostgresPublisher, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	p := &PostgresPublisher{db: db}
	if err := p.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresPublisherFromPool wraps an existing pool.
func NewPostgresPublisherFromPool(db *pgxpool.Pool) *PostgresPublisher {
	return &PostgresPublisher{db: db}
}

func (p *PostgresPublisher) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create destination_handoffs: %w", err)
	}
	return nil
}

func (p *PostgresPublisher) Publish(ctx context.Context, sessionID string, payload pkg.HandoffPayload) error {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal handoff: %w", err)
	}

	prefs := payload.Preferences
	if prefs == nil {
		prefs = []string{}
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO destination_handoffs (session_id, destination, preferences, payload)
		VALUES ($1, $2, $3, $4)
	`, sessionID, payload.Destination, prefs, string(data))
	if err != nil {
		return fmt.Errorf("failed to insert handoff: %w", err)
	}
	return nil
}

func (p *PostgresPublisher) Close() error {
	p.db.Close()
	return nil
}
