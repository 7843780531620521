// Package storage implements C1, the Storage Gateway: a narrow, typed
// interface over collections/documents/chunks/relationships/usage, with a
// transaction helper that guarantees rollback on error and release of the
// underlying handle on every exit path. Modelled on the teacher's
// pkg/rag/database.Database interface shape, backed by PostgreSQL+pgvector
// instead of SQLite so C6's ANN index lives in the same transactional
// store as everything else.
package storage

import (
	"context"
	"time"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

// ChunkInsert is one chunk awaiting persistence, index already assigned
// by the caller (the Ingestion Orchestrator) before dispatch.
type ChunkInsert struct {
	Index          int
	Text           string
	TokenCount     int
	Embedding      []float32
	EmbeddingModel string
	Metadata       domain.ChunkMetadata
}

// VectorSearchParams bounds a C6 cosine-similarity query.
type VectorSearchParams struct {
	CollectionID   string
	QueryEmbedding []float32
	MinSimilarity  float64 // 0 means unset
	TopK           int
	EfSearch       int // pgvector hnsw.ef_search; 0 uses the server default
}

// SpendBreakdown is one (provider, operation) aggregate row.
type SpendBreakdown struct {
	Provider      string
	Operation     domain.ApiOperation
	RequestCount  int64
	TotalTokens   int64
	TotalCostUSD  float64
	MeanCostPerRq float64
}

// Gateway is the narrow, typed interface every other component talks to.
// Implementations must bind every dynamic value as a query parameter —
// string interpolation of untrusted data is forbidden (§4.1).
type Gateway interface {
	// Collections
	CreateCollection(ctx context.Context, c domain.Collection) (domain.Collection, error)
	GetCollection(ctx context.Context, id string) (domain.Collection, error)
	ListCollections(ctx context.Context) ([]domain.Collection, error)
	DeleteCollection(ctx context.Context, id string) error // cascades to documents/chunks

	// Documents
	CreateDocument(ctx context.Context, d domain.Document) (domain.Document, error)
	UpdateDocument(ctx context.Context, d domain.Document) error
	GetDocument(ctx context.Context, id string) (domain.Document, error)
	ListDocuments(ctx context.Context, collectionID string) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, id string) error // cascades to chunks

	// Chunks — bulk insert runs inside one transaction; the orchestrator
	// is responsible for not calling this until embedding has fully
	// succeeded for the batch (§4.4 atomic partial-failure semantics).
	InsertChunks(ctx context.Context, documentID string, chunks []ChunkInsert) error
	ListChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
	AllChunksForLexicalIndex(ctx context.Context, collectionID string) ([]domain.Chunk, error)

	// Vector search (C6)
	VectorSearch(ctx context.Context, p VectorSearchParams) ([]domain.SearchResult, error)

	// File relationships (C11)
	UpsertRelationship(ctx context.Context, r domain.FileRelationship) error
	// RelatedFiles returns edges where path is the source (forward) and
	// edges where path is the target (reverse), keyed by relationship
	// type, so callers can build both directions (imports/imported_by,
	// uses/used_by, tests/tested_by) without a second round trip.
	RelatedFiles(ctx context.Context, collectionID, path string) (forward, reverse map[domain.RelationshipType][]string, err error)

	// Cost tracking (C10)
	InsertApiUsage(ctx context.Context, u domain.ApiUsage) error
	MonthlySpend(ctx context.Context, at time.Time) (float64, error)
	DailySpend(ctx context.Context, at time.Time) (float64, error)
	SpendBreakdown(ctx context.Context, since time.Time) ([]SpendBreakdown, error)
	InsertBudgetAlert(ctx context.Context, a domain.BudgetAlert) (domain.BudgetAlert, error)
	HasUnacknowledgedAlert(ctx context.Context, t domain.AlertType, within time.Duration) (bool, error)
	RecentAlerts(ctx context.Context, limit int) ([]domain.BudgetAlert, error)

	Close()
}
