package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// schemaStatements bootstraps the chat and directory tables.
// The unique index over the sorted participant pair is what makes
// conversation creation a find-or-create under concurrent first contact.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS chat`,
	`CREATE TABLE IF NOT EXISTS chat.conversation (
		id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		sender_id   text        NOT NULL,
		receiver_id text        NOT NULL,
		created_at  timestamptz NOT NULL,
		updated_at  timestamptz NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS conversation_pair_uidx
		ON chat.conversation (LEAST(sender_id, receiver_id), GREATEST(sender_id, receiver_id))`,
	`CREATE TABLE IF NOT EXISTS chat.message (
		id              bigserial PRIMARY KEY,
		conversation_id uuid        NOT NULL REFERENCES chat.conversation (id) ON DELETE CASCADE,
		sender_id       text        NOT NULL,
		body            text        NOT NULL,
		created_at      timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS message_conversation_idx ON chat.message (conversation_id, id)`,
	`CREATE SCHEMA IF NOT EXISTS directory`,
	`CREATE TABLE IF NOT EXISTS directory.company (
		id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		name       text        NOT NULL UNIQUE,
		created_by text        NOT NULL,
		hrs        text[]      NOT NULL DEFAULT '{}',
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS company_created_by_idx ON directory.company (created_by)`,
	`CREATE INDEX IF NOT EXISTS company_hrs_idx ON directory.company USING gin (hrs)`,
}

// Migrate creates the tables and indexes used by the Postgres adapters if they do not exist.
func Migrate(ctx context.Context, db execer) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
