package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextSingleChunk(t *testing.T) {
	text := "Alpha beta gamma. Delta epsilon zeta."

	results := ChunkText(text, TextOptions{TokenSize: 800, TokenOverlap: 150})

	require.Len(t, results, 1)
	assert.Contains(t, results[0].Text, "gamma")
	assert.Equal(t, 0, results[0].Index)
}

func TestChunkTextRespectsWordBoundaries(t *testing.T) {
	text := strings.Repeat("word ", 500)

	results := ChunkText(text, TextOptions{TokenSize: 50, TokenOverlap: 10})

	require.NotEmpty(t, results)
	for _, r := range results {
		assert.False(t, strings.HasPrefix(r.Text, "ord"), "chunk should not start mid-word")
	}
}

func TestChunkTextEmpty(t *testing.T) {
	results := ChunkText("", DefaultTextOptions())
	assert.Empty(t, results)
}

func TestChunkTextOverlapMakesProgress(t *testing.T) {
	text := strings.Repeat("a", 10000)

	results := ChunkText(text, TextOptions{TokenSize: 100, TokenOverlap: 99})

	require.NotEmpty(t, results)
	// Must terminate and make forward progress even with overlap close to size.
	assert.Less(t, len(results), 10000)
}
