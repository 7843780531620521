package synthesis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

type fakeEmbedder struct {
	vectors [][]float32
}

func (f fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	return f.vectors[:len(texts)], nil
}

type fakeJudge struct {
	verdict Verdict
}

func (f fakeJudge) Judge(_ context.Context, _, _, _ string) (Verdict, error) {
	return f.verdict, nil
}

func makeCandidate(text, title string, quality domain.SourceQuality, verified *time.Time) domain.ReRankedResult {
	return domain.ReRankedResult{
		HybridSearchResult: domain.HybridSearchResult{
			SearchResult: domain.SearchResult{
				Text:          text,
				DocumentTitle: title,
				DocMetadata:   domain.DocumentMetadata{SourceQuality: quality, LastVerified: verified},
			},
		},
	}
}

func TestSynthesizeEmptyCandidatesReturnsEmptyResult(t *testing.T) {
	engine := NewEngine(fakeEmbedder{}, nil, Config{})
	result, err := engine.Synthesize(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Approaches)
	assert.Nil(t, result.Recommended)
}

func TestSynthesizeSingleClusterHasNoConflicts(t *testing.T) {
	now := time.Now()
	candidates := []domain.ReRankedResult{
		makeCandidate("Use connection pooling with pgxpool.", "guide a", domain.QualityOfficial, &now),
		makeCandidate("Connection pooling via pgxpool is recommended.", "guide b", domain.QualityVerified, &now),
	}
	vectors := [][]float32{{1, 0, 0}, {0.99, 0.01, 0}}
	engine := NewEngine(fakeEmbedder{vectors: vectors}, fakeJudge{}, Config{ContradictionsEnabled: true})

	result, err := engine.Synthesize(context.Background(), "pooling", candidates)
	require.NoError(t, err)
	require.Len(t, result.Approaches, 1)
	assert.Empty(t, result.Conflicts)
	require.NotNil(t, result.Recommended)
	assert.Equal(t, 2, result.Metadata.TotalSources)
}

func TestSynthesizeDetectsContradictionBetweenDistinctClusters(t *testing.T) {
	// Six candidates so clusterK(6) = min(3, floor(6/3)) = 2 clusters,
	// seeded from candidates 0 and 1. Each cluster's first candidate
	// supplies its approach summary, and the fake embedder answers the
	// two summaries with vectors[0] and vectors[1]: cosine 0.6, inside the
	// (0.2, 0.7) band that reaches the judge.
	candidates := []domain.ReRankedResult{
		makeCandidate("Always use synchronous writes for durability.", "sync guide", domain.QualityOfficial, nil),
		makeCandidate("Prefer asynchronous writes for throughput.", "async guide", domain.QualityCommunity, nil),
		makeCandidate("Synchronous writes are essential here.", "sync guide 2", domain.QualityOfficial, nil),
		makeCandidate("Durability requires synchronous commits.", "sync guide 3", domain.QualityOfficial, nil),
		makeCandidate("Async writes give much better throughput.", "async guide 2", domain.QualityCommunity, nil),
		makeCandidate("Throughput improves with asynchronous commits.", "async guide 3", domain.QualityCommunity, nil),
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0.6, 0.8, 0},
		{0.98, 0.02, 0},
		{0.97, 0.03, 0},
		{0.62, 0.78, 0},
		{0.58, 0.81, 0},
	}
	judge := fakeJudge{verdict: Verdict{
		Contradictory: true,
		Difference:    "sync vs async durability tradeoff",
		Severity:      "high",
		Prefer:        "sync guide",
		Confidence:    0.9,
	}}
	engine := NewEngine(fakeEmbedder{vectors: vectors}, judge, Config{ContradictionsEnabled: true})
	engine.pick = func(n int) []int { return []int{0, 1, 2, 3, 4, 5} }

	result, err := engine.Synthesize(context.Background(), "durability", candidates)
	require.NoError(t, err)
	require.Len(t, result.Approaches, 2)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, domain.SeverityHigh, result.Conflicts[0].Severity)
}

func TestRecommendPenalizesHighSeverityConflicts(t *testing.T) {
	approaches := []domain.Approach{
		{Method: "a", ConsensusScore: 0.9},
		{Method: "b", ConsensusScore: 0.85},
		{Method: "c", ConsensusScore: 0.5},
	}
	conflicts := []domain.Conflict{{SourceA: "a", SourceB: "c", Severity: domain.SeverityHigh}}

	idx := recommend(approaches, conflicts)
	assert.Equal(t, 1, idx)
}

func TestRecommendTieBreaksBySourceCountThenOfficial(t *testing.T) {
	approaches := []domain.Approach{
		{Method: "a", ConsensusScore: 0.7, Sources: []domain.ReRankedResult{{}, {}}},
		{Method: "b", ConsensusScore: 0.7, Sources: []domain.ReRankedResult{{}, {}, {}}},
	}
	idx := recommend(approaches, nil)
	assert.Equal(t, 1, idx)

	approaches = []domain.Approach{
		{Method: "a", ConsensusScore: 0.7, Sources: []domain.ReRankedResult{makeCandidate("", "", domain.QualityCommunity, nil)}},
		{Method: "b", ConsensusScore: 0.7, Sources: []domain.ReRankedResult{makeCandidate("", "", domain.QualityOfficial, nil)}},
	}
	idx = recommend(approaches, nil)
	assert.Equal(t, 1, idx)
}

func TestParseVerdictRejectsMalformedJSON(t *testing.T) {
	_, ok := parseVerdict("not json")
	assert.False(t, ok)

	v, ok := parseVerdict(`{"contradictory":true,"severity":"high","confidence":0.5}`)
	require.True(t, ok)
	assert.True(t, v.Contradictory)
}
