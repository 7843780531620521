package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

// Exercised against a real Postgres+pgvector instance named by
// TEST_DATABASE_URL. Skipped otherwise — no fake driver stands in for
// pgx here, so these stay integration-only.
func testGateway(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping storage integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pg, err := Open(ctx, dsn)
	require.NoError(t, err)
	_, err = pg.pool.Exec(ctx, Schema)
	require.NoError(t, err)
	t.Cleanup(pg.Close)
	return pg
}

func TestCollectionLifecycle(t *testing.T) {
	pg := testGateway(t)
	ctx := context.Background()

	c, err := pg.CreateCollection(ctx, domain.Collection{ID: uuid.NewString(), Name: "docs"})
	require.NoError(t, err)
	require.Equal(t, "docs", c.Name)

	got, err := pg.GetCollection(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)

	require.NoError(t, pg.DeleteCollection(ctx, c.ID))

	_, err = pg.GetCollection(ctx, c.ID)
	require.Error(t, err)
}

func TestDocumentAndChunkRoundTrip(t *testing.T) {
	pg := testGateway(t)
	ctx := context.Background()

	c, err := pg.CreateCollection(ctx, domain.Collection{ID: uuid.NewString(), Name: "docs"})
	require.NoError(t, err)

	d, err := pg.CreateDocument(ctx, domain.Document{
		ID:           uuid.NewString(),
		CollectionID: c.ID,
		Title:        "Getting Started",
		Status:       domain.StatusPending,
		Metadata:     domain.DocumentMetadata{SourceQuality: domain.QualityOfficial},
	})
	require.NoError(t, err)

	err = pg.InsertChunks(ctx, d.ID, []ChunkInsert{
		{Index: 0, Text: "first chunk", TokenCount: 2, Embedding: make([]float32, 1536)},
		{Index: 1, Text: "second chunk", TokenCount: 2, Embedding: make([]float32, 1536)},
	})
	require.NoError(t, err)

	chunks, err := pg.ListChunksByDocument(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, "first chunk", chunks[0].Text)
}

func TestVectorSearchOrdersBySimilarity(t *testing.T) {
	pg := testGateway(t)
	ctx := context.Background()

	c, err := pg.CreateCollection(ctx, domain.Collection{ID: uuid.NewString(), Name: "docs"})
	require.NoError(t, err)
	d, err := pg.CreateDocument(ctx, domain.Document{ID: uuid.NewString(), CollectionID: c.ID, Title: "t", Status: domain.StatusComplete})
	require.NoError(t, err)

	near := make([]float32, 4)
	near[0] = 1
	far := make([]float32, 4)
	far[3] = 1

	require.NoError(t, pg.InsertChunks(ctx, d.ID, []ChunkInsert{
		{Index: 0, Text: "near", Embedding: near},
		{Index: 1, Text: "far", Embedding: far},
	}))

	results, err := pg.VectorSearch(ctx, VectorSearchParams{
		CollectionID:   c.ID,
		QueryEmbedding: near,
		TopK:           10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "near", results[0].Text)
}

func TestSpendAggregation(t *testing.T) {
	pg := testGateway(t)
	ctx := context.Background()

	require.NoError(t, pg.InsertApiUsage(ctx, domain.ApiUsage{
		Provider: "openai", Operation: domain.OpEmbed, Tokens: 100, CostUSD: 0.01,
	}))

	total, err := pg.MonthlySpend(ctx, time.Now())
	require.NoError(t, err)
	require.GreaterOrEqual(t, total, 0.01)

	breakdown, err := pg.SpendBreakdown(ctx, time.Now().AddDate(0, -1, 0))
	require.NoError(t, err)
	require.NotEmpty(t, breakdown)
}
