package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jinford/hybrid-rag/internal/platform/database"
)

const schemaTemplate = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS corpus_entries (
    id          BIGSERIAL PRIMARY KEY,
    collection  TEXT        NOT NULL,
    source      TEXT        NOT NULL,
    content     TEXT        NOT NULL,
    metadata    JSONB       NOT NULL DEFAULT '{}'::jsonb,
    embedding   vector(%d)  NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS corpus_entries_collection_source_idx
    ON corpus_entries (collection, source);

CREATE TABLE IF NOT EXISTS dataset_items (
    id        UUID PRIMARY KEY,
    position  INTEGER NOT NULL,
    question  TEXT    NOT NULL,
    answer    TEXT    NOT NULL,
    keywords  TEXT[]  NOT NULL DEFAULT '{}',
    category  TEXT    NOT NULL,
    source    TEXT    NOT NULL
);
`

// EnsureSchema はテーブルが無ければ作成する。
// embedding 列の次元は最初の作成時に固定され、以後 dimension を変えても反映されない。
func EnsureSchema(ctx context.Context, txp *database.TransactionProvider, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", dimension)
	}

	_, err := database.Transact(ctx, txp, func(tx pgx.Tx) (struct{}, error) {
		if err := database.AcquireXactLock(ctx, tx, database.LockID("schema")); err != nil {
			return struct{}{}, err
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(schemaTemplate, dimension)); err != nil {
			return struct{}{}, fmt.Errorf("failed to create schema: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}
