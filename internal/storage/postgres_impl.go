package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
	"github.com/Beaulewis1977/synthesis-sub002/internal/errs"
)

var _ Gateway = (*Postgres)(nil)

func (p *Postgres) CreateCollection(ctx context.Context, c domain.Collection) (domain.Collection, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO collections (id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, created_at
	`, c.ID, c.Name, c.Description)

	var out domain.Collection
	if err := row.Scan(&out.ID, &out.Name, &out.Description, &out.CreatedAt); err != nil {
		return domain.Collection{}, errs.Wrap(errs.InternalError, "creating collection", err)
	}
	return out, nil
}

func (p *Postgres) GetCollection(ctx context.Context, id string) (domain.Collection, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at FROM collections WHERE id = $1
	`, id)

	var out domain.Collection
	if err := row.Scan(&out.ID, &out.Name, &out.Description, &out.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Collection{}, errs.New(errs.NotFound, "collection not found")
		}
		return domain.Collection{}, errs.Wrap(errs.InternalError, "fetching collection", err)
	}
	return out, nil
}

func (p *Postgres) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, description, created_at FROM collections ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "listing collections", err)
	}
	defer rows.Close()

	var out []domain.Collection
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.InternalError, "scanning collection row", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteCollection(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return errs.Wrap(errs.InternalError, "deleting collection", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.New(errs.NotFound, "collection not found")
	}
	return nil
}

func (p *Postgres) CreateDocument(ctx context.Context, d domain.Document) (domain.Document, error) {
	meta, err := json.Marshal(d.Metadata)
	if err != nil {
		return domain.Document{}, errs.Wrap(errs.InvalidInput, "encoding document metadata", err)
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO documents
			(id, collection_id, title, source_url, file_path, content_type, byte_size, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, collection_id, title, source_url, file_path, content_type, byte_size,
			status, error_message, metadata, created_at, updated_at
	`, d.ID, d.CollectionID, d.Title, d.SourceURL, d.FilePath, d.ContentType, d.ByteSize, d.Status, meta)

	return scanDocument(row)
}

func (p *Postgres) UpdateDocument(ctx context.Context, d domain.Document) error {
	meta, err := json.Marshal(d.Metadata)
	if err != nil {
		return errs.Wrap(errs.InvalidInput, "encoding document metadata", err)
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE documents SET
			title = $2, source_url = $3, file_path = $4, content_type = $5, byte_size = $6,
			status = $7, error_message = $8, metadata = $9, updated_at = now()
		WHERE id = $1
	`, d.ID, d.Title, d.SourceURL, d.FilePath, d.ContentType, d.ByteSize, d.Status, d.ErrorMessage, meta)
	if err != nil {
		return errs.Wrap(errs.InternalError, "updating document", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.New(errs.NotFound, "document not found")
	}
	return nil
}

func (p *Postgres) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, collection_id, title, source_url, file_path, content_type, byte_size,
			status, error_message, metadata, created_at, updated_at
		FROM documents WHERE id = $1
	`, id)
	return scanDocument(row)
}

func (p *Postgres) ListDocuments(ctx context.Context, collectionID string) ([]domain.Document, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, collection_id, title, source_url, file_path, content_type, byte_size,
			status, error_message, metadata, created_at, updated_at
		FROM documents WHERE collection_id = $1 ORDER BY created_at DESC
	`, collectionID)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "listing documents", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		d, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteDocument(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return errs.Wrap(errs.InternalError, "deleting document", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.New(errs.NotFound, "document not found")
	}
	return nil
}

// InsertChunks replaces a document's chunk set inside one transaction:
// delete-then-insert so a re-chunked document never carries stale rows
// from a previous attempt (§4.4 atomic partial-failure semantics).
func (p *Postgres) InsertChunks(ctx context.Context, documentID string, chunks []ChunkInsert) error {
	return p.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
			return errs.Wrap(errs.InternalError, "clearing previous chunks", err)
		}

		for _, c := range chunks {
			meta, err := json.Marshal(c.Metadata)
			if err != nil {
				return errs.Wrap(errs.InvalidInput, "encoding chunk metadata", err)
			}

			var vec *pgvector.Vector
			if len(c.Embedding) > 0 {
				v := pgvector.NewVector(c.Embedding)
				vec = &v
			}

			if _, err := tx.Exec(ctx, `
				INSERT INTO chunks
					(document_id, chunk_index, text, token_count, embedding, embedding_model, metadata)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, documentID, c.Index, c.Text, c.TokenCount, vec, c.EmbeddingModel, meta); err != nil {
				return errs.Wrap(errs.InternalError, "inserting chunk", err)
			}
		}
		return nil
	})
}

func (p *Postgres) ListChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, document_id, chunk_index, text, token_count, embedding_model, metadata
		FROM chunks WHERE document_id = $1 ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "listing chunks", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (p *Postgres) AllChunksForLexicalIndex(ctx context.Context, collectionID string) ([]domain.Chunk, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT c.id, c.document_id, c.chunk_index, c.text, c.token_count, c.embedding_model, c.metadata
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.collection_id = $1 AND d.status = 'complete'
	`, collectionID)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "loading chunks for lexical index", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// VectorSearch runs the pgvector cosine-distance query C6 needs. hnsw.ef_search
// is set per-query via SET LOCAL inside a transaction that is rolled back
// afterwards, so it never leaks to other callers sharing the
// pooled connection. Similarity is 1 - cosine distance, clamped to [0,1].
func (p *Postgres) VectorSearch(ctx context.Context, params VectorSearchParams) ([]domain.SearchResult, error) {
	topK := params.TopK
	if topK <= 0 {
		topK = 10
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "beginning vector search transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if params.EfSearch > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", params.EfSearch)); err != nil {
			return nil, errs.Wrap(errs.InternalError, "setting ef_search", err)
		}
	}

	vec := pgvector.NewVector(params.QueryEmbedding)
	rows, err := tx.Query(ctx, `
		SELECT c.id, c.text, c.document_id, d.title, d.source_url, c.metadata, d.metadata,
			1 - (c.embedding <=> $2) AS similarity
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.collection_id = $1 AND c.embedding IS NOT NULL
		ORDER BY c.embedding <=> $2
		LIMIT $3
	`, params.CollectionID, vec, topK)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "running vector search", err)
	}
	defer rows.Close()

	var out []domain.SearchResult
	for rows.Next() {
		var (
			r          domain.SearchResult
			chunkMeta  []byte
			docMeta    []byte
			similarity float64
		)
		if err := rows.Scan(&r.ChunkID, &r.Text, &r.DocumentID, &r.DocumentTitle, &r.SourceURL,
			&chunkMeta, &docMeta, &similarity); err != nil {
			return nil, errs.Wrap(errs.InternalError, "scanning vector search row", err)
		}
		if err := json.Unmarshal(chunkMeta, &r.Metadata); err != nil {
			return nil, errs.Wrap(errs.InternalError, "decoding chunk metadata", err)
		}
		if err := json.Unmarshal(docMeta, &r.DocMetadata); err != nil {
			return nil, errs.Wrap(errs.InternalError, "decoding document metadata", err)
		}
		r.Score = similarity
		if r.Score < 0 {
			r.Score = 0
		}
		if params.MinSimilarity > 0 && r.Score < params.MinSimilarity {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) UpsertRelationship(ctx context.Context, r domain.FileRelationship) error {
	meta, err := json.Marshal(r.Metadata)
	if err != nil {
		return errs.Wrap(errs.InvalidInput, "encoding relationship metadata", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO file_relationships (collection_id, source_path, target_path, rel_type, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (collection_id, source_path, target_path, rel_type)
		DO UPDATE SET metadata = EXCLUDED.metadata
	`, r.CollectionID, r.SourcePath, r.TargetPath, r.Type, meta)
	if err != nil {
		return errs.Wrap(errs.InternalError, "upserting relationship", err)
	}
	return nil
}

func (p *Postgres) RelatedFiles(ctx context.Context, collectionID, path string) (forward, reverse map[domain.RelationshipType][]string, err error) {
	forward, err = p.relationshipEdges(ctx, `
		SELECT rel_type, target_path FROM file_relationships
		WHERE collection_id = $1 AND source_path = $2
	`, collectionID, path)
	if err != nil {
		return nil, nil, err
	}

	reverse, err = p.relationshipEdges(ctx, `
		SELECT rel_type, source_path FROM file_relationships
		WHERE collection_id = $1 AND target_path = $2
	`, collectionID, path)
	if err != nil {
		return nil, nil, err
	}
	return forward, reverse, nil
}

func (p *Postgres) relationshipEdges(ctx context.Context, query, collectionID, path string) (map[domain.RelationshipType][]string, error) {
	rows, err := p.pool.Query(ctx, query, collectionID, path)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "querying related files", err)
	}
	defer rows.Close()

	out := map[domain.RelationshipType][]string{}
	for rows.Next() {
		var relType domain.RelationshipType
		var other string
		if err := rows.Scan(&relType, &other); err != nil {
			return nil, errs.Wrap(errs.InternalError, "scanning relationship row", err)
		}
		out[relType] = append(out[relType], other)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertApiUsage(ctx context.Context, u domain.ApiUsage) error {
	meta, err := json.Marshal(u.Metadata)
	if err != nil {
		return errs.Wrap(errs.InvalidInput, "encoding usage metadata", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO api_usage (provider, operation, tokens, cost_usd, collection_id, user_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.Provider, u.Operation, u.Tokens, u.CostUSD, u.CollectionID, u.UserID, meta)
	if err != nil {
		return errs.Wrap(errs.InternalError, "recording api usage", err)
	}
	return nil
}

func (p *Postgres) MonthlySpend(ctx context.Context, at time.Time) (float64, error) {
	return p.spendSince(ctx, time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, at.Location()))
}

func (p *Postgres) DailySpend(ctx context.Context, at time.Time) (float64, error) {
	return p.spendSince(ctx, time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location()))
}

func (p *Postgres) spendSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := p.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(cost_usd), 0) FROM api_usage WHERE ts >= $1
	`, since).Scan(&total)
	if err != nil {
		return 0, errs.Wrap(errs.InternalError, "summing spend", err)
	}
	return total, nil
}

func (p *Postgres) SpendBreakdown(ctx context.Context, since time.Time) ([]SpendBreakdown, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT provider, operation, COUNT(*), COALESCE(SUM(tokens), 0), COALESCE(SUM(cost_usd), 0)
		FROM api_usage
		WHERE ts >= $1
		GROUP BY provider, operation
		ORDER BY SUM(cost_usd) DESC
	`, since)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "querying spend breakdown", err)
	}
	defer rows.Close()

	var out []SpendBreakdown
	for rows.Next() {
		var b SpendBreakdown
		if err := rows.Scan(&b.Provider, &b.Operation, &b.RequestCount, &b.TotalTokens, &b.TotalCostUSD); err != nil {
			return nil, errs.Wrap(errs.InternalError, "scanning spend breakdown row", err)
		}
		if b.RequestCount > 0 {
			b.MeanCostPerRq = b.TotalCostUSD / float64(b.RequestCount)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertBudgetAlert(ctx context.Context, a domain.BudgetAlert) (domain.BudgetAlert, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO budget_alerts (alert_type, threshold, current_spend, period)
		VALUES ($1, $2, $3, $4)
		RETURNING id, alert_type, threshold, current_spend, period, ts, acknowledged
	`, a.Type, a.Threshold, a.CurrentSpend, a.Period)

	var out domain.BudgetAlert
	if err := row.Scan(&out.ID, &out.Type, &out.Threshold, &out.CurrentSpend, &out.Period, &out.Time, &out.Acknowledged); err != nil {
		return domain.BudgetAlert{}, errs.Wrap(errs.InternalError, "recording budget alert", err)
	}
	return out, nil
}

func (p *Postgres) HasUnacknowledgedAlert(ctx context.Context, t domain.AlertType, within time.Duration) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM budget_alerts
			WHERE alert_type = $1 AND ts >= $2 AND NOT acknowledged
		)
	`, t, time.Now().Add(-within)).Scan(&exists)
	if err != nil {
		return false, errs.Wrap(errs.InternalError, "checking recent alerts", err)
	}
	return exists, nil
}

func (p *Postgres) RecentAlerts(ctx context.Context, limit int) ([]domain.BudgetAlert, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, alert_type, threshold, current_spend, period, ts, acknowledged
		FROM budget_alerts ORDER BY ts DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "listing alerts", err)
	}
	defer rows.Close()

	var out []domain.BudgetAlert
	for rows.Next() {
		var a domain.BudgetAlert
		if err := rows.Scan(&a.ID, &a.Type, &a.Threshold, &a.CurrentSpend, &a.Period, &a.Time, &a.Acknowledged); err != nil {
			return nil, errs.Wrap(errs.InternalError, "scanning alert row", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanDocument(row pgx.Row) (domain.Document, error) {
	var d domain.Document
	var meta []byte
	if err := row.Scan(&d.ID, &d.CollectionID, &d.Title, &d.SourceURL, &d.FilePath, &d.ContentType,
		&d.ByteSize, &d.Status, &d.ErrorMessage, &meta, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Document{}, errs.New(errs.NotFound, "document not found")
		}
		return domain.Document{}, errs.Wrap(errs.InternalError, "scanning document", err)
	}
	if err := json.Unmarshal(meta, &d.Metadata); err != nil {
		return domain.Document{}, errs.Wrap(errs.InternalError, "decoding document metadata", err)
	}
	return d, nil
}

func scanDocumentRows(rows pgx.Rows) (domain.Document, error) {
	var d domain.Document
	var meta []byte
	if err := rows.Scan(&d.ID, &d.CollectionID, &d.Title, &d.SourceURL, &d.FilePath, &d.ContentType,
		&d.ByteSize, &d.Status, &d.ErrorMessage, &meta, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return domain.Document{}, errs.Wrap(errs.InternalError, "scanning document row", err)
	}
	if err := json.Unmarshal(meta, &d.Metadata); err != nil {
		return domain.Document{}, errs.Wrap(errs.InternalError, "decoding document metadata", err)
	}
	return d, nil
}

func scanChunks(rows pgx.Rows) ([]domain.Chunk, error) {
	var out []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var meta []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Text, &c.TokenCount, &c.EmbeddingModel, &meta); err != nil {
			return nil, errs.Wrap(errs.InternalError, "scanning chunk row", err)
		}
		if err := json.Unmarshal(meta, &c.Metadata); err != nil {
			return nil, errs.Wrap(errs.InternalError, "decoding chunk metadata", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
