package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
	"github.com/Beaulewis1977/synthesis-sub002/internal/storage"
)

// fakeGateway embeds the Gateway interface unimplemented and overrides
// only VectorSearch, the one method this package's tests exercise.
type fakeGateway struct {
	storage.Gateway
	lastParams storage.VectorSearchParams
	results    []domain.SearchResult
}

func (f *fakeGateway) VectorSearch(_ context.Context, p storage.VectorSearchParams) ([]domain.SearchResult, error) {
	f.lastParams = p
	return f.results, nil
}

func TestSearchBoundsTopK(t *testing.T) {
	fg := &fakeGateway{results: []domain.SearchResult{{ChunkID: 1, DocumentTitle: "Doc"}}}
	s := NewSearcher(fg)

	_, err := s.Search(context.Background(), "c1", []float32{0.1}, 500, 0)
	require.NoError(t, err)
	assert.Equal(t, MaxTopK, fg.lastParams.TopK)

	_, err = s.Search(context.Background(), "c1", []float32{0.1}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, fg.lastParams.TopK)
}

func TestSearchBuildsCitationFromSourceURLOrTitle(t *testing.T) {
	fg := &fakeGateway{results: []domain.SearchResult{
		{ChunkID: 1, DocumentTitle: "Doc A", SourceURL: "https://example.com/a"},
		{ChunkID: 2, DocumentTitle: "Doc B"},
	}}
	s := NewSearcher(fg)

	results, err := s.Search(context.Background(), "c1", []float32{0.1}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://example.com/a", results[0].Citation)
	assert.Equal(t, "Doc B", results[1].Citation)
}
