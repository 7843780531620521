package hybrid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

type fakeVector struct{ results []domain.SearchResult }

func (f fakeVector) Search(_ context.Context, _ string, _ []float32, _ int, _ float64) ([]domain.SearchResult, error) {
	return f.results, nil
}

type fakeLexical struct{ results []domain.SearchResult }

func (f fakeLexical) Search(_ context.Context, _ string, _ int) ([]domain.SearchResult, error) {
	return f.results, nil
}

func TestQueryFusesBothListsInHybridMode(t *testing.T) {
	vector := fakeVector{results: []domain.SearchResult{
		{ChunkID: 1, DocumentID: "d1", Score: 0.9, DocMetadata: domain.DocumentMetadata{SourceQuality: domain.QualityOfficial}},
		{ChunkID: 2, DocumentID: "d1", Score: 0.5, DocMetadata: domain.DocumentMetadata{SourceQuality: domain.QualityOfficial}},
	}}
	lexical := fakeLexical{results: []domain.SearchResult{
		{ChunkID: 2, DocumentID: "d1", Score: 0.95, DocMetadata: domain.DocumentMetadata{SourceQuality: domain.QualityOfficial}},
	}}

	engine := NewEngine(vector, lexical, Weights{})
	results, err := engine.Query(context.Background(), "c1", "query", []float32{0.1}, ModeHybrid, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// chunk 2 appears in both lists, so it gets two weighted RRF contributions.
	var chunk2 domain.HybridSearchResult
	for _, r := range results {
		if r.ChunkID == 2 {
			chunk2 = r
		}
	}
	assert.Equal(t, domain.SourceBoth, chunk2.Source)
}

func TestQueryVectorModeSkipsLexical(t *testing.T) {
	vector := fakeVector{results: []domain.SearchResult{{ChunkID: 1, DocumentID: "d1", Score: 0.9}}}
	lexical := fakeLexical{results: []domain.SearchResult{{ChunkID: 99, DocumentID: "d1", Score: 1.0}}}

	engine := NewEngine(vector, lexical, Weights{})
	results, err := engine.Query(context.Background(), "c1", "query", []float32{0.1}, ModeVector, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ChunkID)
}

func TestTrustAndRecencyWeighting(t *testing.T) {
	assert.Equal(t, 1.0, trustWeight(domain.QualityOfficial))
	assert.Equal(t, 0.85, trustWeight(domain.QualityVerified))
	assert.Equal(t, 0.6, trustWeight(domain.QualityCommunity))
	assert.Equal(t, 0.5, trustWeight(domain.QualityUnknown))

	assert.Equal(t, 0.7, recencyWeight(nil))
	recent := time.Now().Add(-30 * 24 * time.Hour)
	assert.Equal(t, 1.0, recencyWeight(&recent))
	old := time.Now().Add(-400 * 24 * time.Hour)
	assert.Equal(t, 0.7, recencyWeight(&old))
}

func TestVersionAtLeastComparesNumerically(t *testing.T) {
	assert.True(t, versionAtLeast("2.9.0", "2.2.0"))
	assert.False(t, versionAtLeast("2.2.0", "2.9.0"))
	assert.True(t, versionAtLeast("3.0", "2.99"))
}

func TestFilterBySourceQuality(t *testing.T) {
	results := []domain.HybridSearchResult{
		{SearchResult: domain.SearchResult{ChunkID: 1, DocMetadata: domain.DocumentMetadata{SourceQuality: domain.QualityOfficial}}},
		{SearchResult: domain.SearchResult{ChunkID: 2, DocMetadata: domain.DocumentMetadata{SourceQuality: domain.QualityCommunity}}},
	}
	filtered := applyFilter(results, &Filter{SourceQuality: domain.QualityOfficial})
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(1), filtered[0].ChunkID)
}
