package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

func TestSearchRanksExactMatchHigher(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: 1, DocumentID: "d1", Text: "Postgres connection pooling with pgxpool"},
		{ID: 2, DocumentID: "d1", Text: "A completely unrelated sentence about gardening"},
	}
	docs := map[string]domain.Document{"d1": {Title: "Storage guide"}}

	idx, err := Build("c1", chunks, docs)
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search(context.Background(), "pgxpool connection pooling", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(1), results[0].ChunkID)
	assert.LessOrEqual(t, results[0].Score, 1.0)
}

func TestSearchEmptyQueryReturnsEmpty(t *testing.T) {
	idx, err := Build("c1", nil, nil)
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchWhitespaceOnlyQueryReturnsEmpty(t *testing.T) {
	chunks := []domain.Chunk{{ID: 1, DocumentID: "d1", Text: "apples and oranges"}}
	idx, err := Build("c1", chunks, nil)
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchNoMatchesReturnsEmpty(t *testing.T) {
	chunks := []domain.Chunk{{ID: 1, DocumentID: "d1", Text: "apples and oranges"}}
	idx, err := Build("c1", chunks, nil)
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search(context.Background(), "xenomorph starship", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchPrefixExpandsToken(t *testing.T) {
	chunks := []domain.Chunk{{ID: 1, DocumentID: "d1", Text: "class StatefulWidget extends Widget"}}
	idx, err := Build("c1", chunks, nil)
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search(context.Background(), "Stateful", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ChunkID)
}

func TestSearchJoinsMultipleTokensWithAnd(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: 1, DocumentID: "d1", Text: "connection pooling with pgxpool"},
		{ID: 2, DocumentID: "d1", Text: "connection handling without pooling support"},
	}
	idx, err := Build("c1", chunks, nil)
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search(context.Background(), "pgxpool pooling", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ChunkID)
}
