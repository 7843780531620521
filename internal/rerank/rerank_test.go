package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	id     string
	scores []float64
	err    error
}

func (f fakeProvider) ID() string { return f.id }
func (f fakeProvider) Score(_ context.Context, _ string, documents []string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func TestRerankSortsByNewScore(t *testing.T) {
	chain := NewChain(Config{}, fakeProvider{id: "p", scores: []float64{0.2, 0.9, 0.5}})

	out, err := chain.Rerank(context.Background(), "q", []Candidate{
		{Text: "a"}, {Text: "b"}, {Text: "c"},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 1, out[0].Index)
	assert.Equal(t, 2, out[1].Index)
	assert.Equal(t, 0, out[2].Index)
}

func TestRerankFallsBackOnProviderFailure(t *testing.T) {
	failing := fakeProvider{id: "cloud", err: assert.AnError}
	working := fakeProvider{id: "local", scores: []float64{0.7}}

	chain := NewChain(Config{}, failing, working)
	out, err := chain.Rerank(context.Background(), "q", []Candidate{{Text: "a"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0.7, out[0].Score)
}

func TestRerankReturnsUnchangedWhenAllProvidersFail(t *testing.T) {
	chain := NewChain(Config{}, fakeProvider{id: "p", err: assert.AnError})
	out, err := chain.Rerank(context.Background(), "q", []Candidate{{Text: "a", Score: 0.42}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0.42, out[0].Score)
}

func TestRerankAppliesThreshold(t *testing.T) {
	chain := NewChain(Config{Threshold: 0.5}, fakeProvider{id: "p", scores: []float64{0.9, 0.1}})
	out, err := chain.Rerank(context.Background(), "q", []Candidate{{Text: "a"}, {Text: "b"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].Index)
}

func TestLocalProviderScoresTermOverlap(t *testing.T) {
	local := NewLocalProvider()
	scores, err := local.Score(context.Background(), "postgres connection pooling", []string{
		"pgxpool manages Postgres connection pooling",
		"a sentence about gardening",
	})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Greater(t, scores[0], scores[1])
}

func TestBuildProvidersSelectionPriority(t *testing.T) {
	cloud := fakeProvider{id: "cloud"}
	local := fakeProvider{id: "local"}

	withKey := BuildProviders("", cloud, local, true, false)
	require.Len(t, withKey, 2)
	assert.Equal(t, "cloud", withKey[0].ID())

	fallback := BuildProviders("", cloud, local, true, true)
	require.Len(t, fallback, 1)
	assert.Equal(t, "local", fallback[0].ID())

	noKey := BuildProviders("", cloud, local, false, false)
	require.Len(t, noKey, 1)
	assert.Equal(t, "local", noKey[0].ID())
}
