// Package hybrid implements C7: concurrent C5+C6 retrieval, weighted
// Reciprocal Rank Fusion, metadata filtering, and trust/recency
// weighting. The parallel-launch-then-collect shape is grounded on
// pkg/rag/manager.go's Query method (one goroutine per strategy,
// fan-in over a buffered channel); the fusion arithmetic is grounded on
// pkg/rag/fusion/rrf.go's formula, generalised from an equal-weight sum
// to the per-list-weighted sum the weighted RRF formula calls for.
package hybrid

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
)

// Mode selects which retrieval lists contribute.
type Mode string

const (
	ModeVector Mode = "vector"
	ModeHybrid Mode = "hybrid"
)

const (
	DefaultTopK = 10
	MaxTopK     = 50
)

// VectorSearcher and LexicalSearcher are the narrow interfaces this
// package needs from internal/vector and internal/lexical, kept local so
// hybrid doesn't import either package's full surface.
type VectorSearcher interface {
	Search(ctx context.Context, collectionID string, queryEmbedding []float32, topK int, minSimilarity float64) ([]domain.SearchResult, error)
}

type LexicalSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

// Weights configures the fusion and trust/recency pipeline.
type Weights struct {
	VectorWeight float64
	LexicalWeight float64
	RRFK         int
}

// Filter narrows results by recognised metadata fields after fusion.
type Filter struct {
	SourceQuality    domain.SourceQuality
	Framework        string
	MinFrameworkVer  string
	VerifiedWithin   time.Duration
}

// Engine orchestrates C5+C6 and the post-fusion pipeline.
type Engine struct {
	vector  VectorSearcher
	lexical LexicalSearcher
	weights Weights
}

func NewEngine(vector VectorSearcher, lexical LexicalSearcher, weights Weights) *Engine {
	if weights.RRFK <= 0 {
		weights.RRFK = 60
	}
	if weights.VectorWeight == 0 && weights.LexicalWeight == 0 {
		weights.VectorWeight, weights.LexicalWeight = 0.7, 0.3
	}
	return &Engine{vector: vector, lexical: lexical, weights: weights}
}

type strategyFetch struct {
	name    domain.SourceTag
	results []domain.SearchResult
	err     error
}

// Query runs C5+C6 concurrently (skipping C5 in ModeVector), fuses by
// weighted RRF, applies filter and trust/recency weighting, and returns
// the top-K results sorted by final score. topK is bounded to
// [1, MaxTopK], defaulting to DefaultTopK when unset.
func (e *Engine) Query(ctx context.Context, collectionID, query string, queryEmbedding []float32, mode Mode, topK int, filter *Filter) ([]domain.HybridSearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	fetchTopK := MaxTopK
	if topK > fetchTopK {
		fetchTopK = topK
	}

	strategies := 1
	if mode == ModeHybrid {
		strategies = 2
	}
	resultsChan := make(chan strategyFetch, strategies)

	go func() {
		res, err := e.vector.Search(ctx, collectionID, queryEmbedding, fetchTopK, 0)
		resultsChan <- strategyFetch{name: domain.SourceVector, results: res, err: err}
	}()

	if mode == ModeHybrid {
		go func() {
			res, err := e.lexical.Search(ctx, query, fetchTopK)
			resultsChan <- strategyFetch{name: domain.SourceLexical, results: res, err: err}
		}()
	}

	byStrategy := make(map[domain.SourceTag][]domain.SearchResult, strategies)
	for i := 0; i < strategies; i++ {
		fetch := <-resultsChan
		if fetch.err != nil {
			return nil, fetch.err
		}
		byStrategy[fetch.name] = fetch.results
	}

	fused := e.fuse(byStrategy)
	fused = applyFilter(fused, filter)
	for i := range fused {
		fused[i].FusedScore *= trustWeight(fused[i].DocMetadata.SourceQuality) * recencyWeight(fused[i].DocMetadata.LastVerified)
	}

	sort.SliceStable(fused, func(i, j int) bool { return fused[i].FusedScore > fused[j].FusedScore })
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

func (e *Engine) fuse(byStrategy map[domain.SourceTag][]domain.SearchResult) []domain.HybridSearchResult {
	type accum struct {
		base   domain.SearchResult
		vector float64
		lexical float64
		fused  float64
		inVector bool
		inLexical bool
	}
	byChunk := make(map[string]*accum)

	addList := func(tag domain.SourceTag, results []domain.SearchResult, weight float64) {
		for rank, r := range results {
			key := chunkKey(r)
			a, ok := byChunk[key]
			if !ok {
				a = &accum{base: r}
				byChunk[key] = a
			}
			rrf := weight * (1.0 / float64(e.weights.RRFK+rank+1))
			a.fused += rrf
			switch tag {
			case domain.SourceVector:
				a.vector = r.Score
				a.inVector = true
			case domain.SourceLexical:
				a.lexical = r.Score
				a.inLexical = true
			}
		}
	}

	addList(domain.SourceVector, byStrategy[domain.SourceVector], e.weights.VectorWeight)
	addList(domain.SourceLexical, byStrategy[domain.SourceLexical], e.weights.LexicalWeight)

	out := make([]domain.HybridSearchResult, 0, len(byChunk))
	for _, a := range byChunk {
		source := domain.SourceVector
		switch {
		case a.inVector && a.inLexical:
			source = domain.SourceBoth
		case a.inLexical:
			source = domain.SourceLexical
		}
		out = append(out, domain.HybridSearchResult{
			SearchResult: a.base,
			VectorScore:  a.vector,
			LexicalScore: a.lexical,
			FusedScore:   a.fused,
			Source:       source,
		})
	}
	return out
}

func chunkKey(r domain.SearchResult) string {
	return r.DocumentID + "_" + strconv.FormatInt(r.ChunkID, 10)
}

func trustWeight(q domain.SourceQuality) float64 {
	switch q {
	case domain.QualityOfficial:
		return 1.0
	case domain.QualityVerified:
		return 0.85
	case domain.QualityCommunity:
		return 0.6
	default:
		return 0.5
	}
}

func recencyWeight(lastVerified *time.Time) float64 {
	if lastVerified == nil {
		return 0.7
	}
	age := time.Since(*lastVerified)
	switch {
	case age < 6*30*24*time.Hour:
		return 1.0
	case age < 12*30*24*time.Hour:
		return 0.9
	default:
		return 0.7
	}
}

func applyFilter(results []domain.HybridSearchResult, f *Filter) []domain.HybridSearchResult {
	if f == nil {
		return results
	}
	out := results[:0]
	for _, r := range results {
		if f.SourceQuality != "" && r.DocMetadata.SourceQuality != f.SourceQuality {
			continue
		}
		if f.Framework != "" && !strings.EqualFold(r.DocMetadata.Framework, f.Framework) {
			continue
		}
		if f.MinFrameworkVer != "" && !versionAtLeast(r.DocMetadata.FrameworkVersion, f.MinFrameworkVer) {
			continue
		}
		if f.VerifiedWithin > 0 {
			if r.DocMetadata.LastVerified == nil || time.Since(*r.DocMetadata.LastVerified) > f.VerifiedWithin {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// versionAtLeast compares dotted numeric versions component-wise
// (never lexicographically, per §4.7) — "2.10" must outrank "2.9".
func versionAtLeast(version, min string) bool {
	if version == "" {
		return false
	}
	vParts := parseVersion(version)
	mParts := parseVersion(min)
	for i := 0; i < len(mParts); i++ {
		var v int
		if i < len(vParts) {
			v = vParts[i]
		}
		if v != mParts[i] {
			return v > mParts[i]
		}
	}
	return true
}

func parseVersion(v string) []int {
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == '.' || r == '-' || r == '+' })
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			break
		}
		out = append(out, n)
	}
	return out
}
