// Package vector implements C6, cosine-similarity ANN search over
// pgvector's HNSW index. The similarity/sort helpers the teacher hand-
// rolled in pkg/rag/database.go (CosineSimilarity, SortByScore) are
// pushed server-side by the `<=>` operator and `ORDER BY` in
// storage.Gateway.VectorSearch; this package only owns the ef_search
// tuning default and top-K bounding that sit in front of that query.
package vector

import (
	"context"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
	"github.com/Beaulewis1977/synthesis-sub002/internal/storage"
)

// DefaultTopK and DefaultEfSearch mirror §4.6's tuning defaults.
const (
	DefaultTopK      = 10
	MaxTopK          = 50
	DefaultEfSearch  = 100
)

// Searcher runs ANN queries against a storage.Gateway.
type Searcher struct {
	gateway storage.Gateway
}

func NewSearcher(gateway storage.Gateway) *Searcher {
	return &Searcher{gateway: gateway}
}

// Search bounds topK to [1, MaxTopK], applies the default ef_search
// when unset, and delegates to the storage layer's pgvector query.
func (s *Searcher) Search(ctx context.Context, collectionID string, queryEmbedding []float32, topK int, minSimilarity float64) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	results, err := s.gateway.VectorSearch(ctx, storage.VectorSearchParams{
		CollectionID:   collectionID,
		QueryEmbedding: queryEmbedding,
		MinSimilarity:  minSimilarity,
		TopK:           topK,
		EfSearch:       DefaultEfSearch,
	})
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Citation = buildCitation(results[i])
	}
	return results, nil
}

func buildCitation(r domain.SearchResult) string {
	if r.SourceURL != "" {
		return r.SourceURL
	}
	return r.DocumentTitle
}
