package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Beaulewis1977/synthesis-sub002/internal/errs"
)

// Postgres implements Gateway over a pooled pgx connection, with pgvector
// providing C6's ANN index in the same store as everything else.
type Postgres struct {
	pool *pgxpool.Pool
}

// Open connects a pgxpool to dsn and returns a ready Gateway.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, "connecting to storage", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.Wrap(errs.ProviderUnavailable, "storage unreachable", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

// withTx runs fn inside a transaction acquired from the pool, guaranteeing
// rollback on any error and release of the handle on every exit path
// (success, error, or panic) — the scoped-transaction contract from §4.1.
func (p *Postgres) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return errs.Wrap(errs.InternalError, "beginning transaction", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errs.Wrap(errs.InternalError, "rolling back after error", fmt.Errorf("%w (rollback: %v)", err, rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.Wrap(errs.InternalError, "committing transaction", err)
	}
	return nil
}

// Schema is the DDL this module expects to exist (applied by whatever
// migration tool the embedding application uses; not executed by this
// package). Kept here as the single source of truth for column shapes.
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS collections (
	id          text PRIMARY KEY,
	name        text NOT NULL,
	description text NOT NULL DEFAULT '',
	created_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	id            text PRIMARY KEY,
	collection_id text NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	title         text NOT NULL,
	source_url    text NOT NULL DEFAULT '',
	file_path     text NOT NULL DEFAULT '',
	content_type  text NOT NULL DEFAULT '',
	byte_size     bigint NOT NULL DEFAULT 0,
	status        text NOT NULL DEFAULT 'pending',
	error_message text NOT NULL DEFAULT '',
	metadata      jsonb NOT NULL DEFAULT '{}',
	created_at    timestamptz NOT NULL DEFAULT now(),
	updated_at    timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chunks (
	id              bigserial PRIMARY KEY,
	document_id     text NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index     int NOT NULL,
	text            text NOT NULL,
	token_count     int NOT NULL DEFAULT 0,
	embedding       vector,
	embedding_model text NOT NULL DEFAULT '',
	metadata        jsonb NOT NULL DEFAULT '{}',
	UNIQUE (document_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS chunks_embedding_hnsw
	ON chunks USING hnsw (embedding vector_cosine_ops);

CREATE TABLE IF NOT EXISTS file_relationships (
	collection_id text NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	source_path   text NOT NULL,
	target_path   text NOT NULL,
	rel_type      text NOT NULL,
	metadata      jsonb NOT NULL DEFAULT '{}',
	UNIQUE (collection_id, source_path, target_path, rel_type)
);

CREATE TABLE IF NOT EXISTS api_usage (
	id            bigserial PRIMARY KEY,
	provider      text NOT NULL,
	operation     text NOT NULL,
	tokens        bigint NOT NULL DEFAULT 0,
	cost_usd      numeric NOT NULL DEFAULT 0,
	collection_id text NOT NULL DEFAULT '',
	user_id       text NOT NULL DEFAULT '',
	ts            timestamptz NOT NULL DEFAULT now(),
	metadata      jsonb NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS budget_alerts (
	id            bigserial PRIMARY KEY,
	alert_type    text NOT NULL,
	threshold     numeric NOT NULL,
	current_spend numeric NOT NULL,
	period        text NOT NULL,
	ts            timestamptz NOT NULL DEFAULT now(),
	acknowledged  bool NOT NULL DEFAULT false
);
`
