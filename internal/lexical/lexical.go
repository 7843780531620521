// Package lexical implements C5, BM25-style keyword search, backed by an
// in-memory bleve index rather than a hand-rolled BM25 scorer. Index
// construction and the English analyzer field mapping are grounded on
// pkg/model/provider/rulebased/client.go's createIndex; bleve's scorer
// already implements BM25 under the hood, so there's no separate ranking
// formula to port — just the document shape and query construction.
package lexical

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
	"github.com/Beaulewis1977/synthesis-sub002/internal/errs"
)

// DefaultTopK is the default result count for a lexical query (§4.5).
const DefaultTopK = 30

// indexedChunk is the document shape bleve indexes. Only Text is
// analyzed; everything else rides along for result hydration.
type indexedChunk struct {
	ChunkID      int64  `json:"chunk_id"`
	Text         string `json:"text"`
	DocumentID   string `json:"document_id"`
	CollectionID string `json:"collection_id"`
}

// Index is a per-collection in-memory bleve index, rebuilt from storage
// whenever a collection's chunk set changes (§4.5 notes this index is
// not persisted — it's a cache over the source of truth in Postgres).
type Index struct {
	mu           sync.RWMutex
	bleveIdx     bleve.Index
	byChunkID    map[string]domain.SearchResult
	collectionID string
}

func newMapping() *mapping.IndexMappingImpl {
	indexMapping := mapping.NewIndexMapping()

	textField := mapping.NewTextFieldMapping()
	textField.Analyzer = "en"

	docMapping := mapping.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("text", textField)
	docMapping.AddFieldMappingsAt("chunk_id", mapping.NewNumericFieldMapping())
	docMapping.AddFieldMappingsAt("document_id", mapping.NewTextFieldMapping())

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Build constructs a fresh in-memory index over chunks. Chunks lacking
// text are skipped; an empty chunk slice yields a usable, empty index.
func Build(collectionID string, chunks []domain.Chunk, docs map[string]domain.Document) (*Index, error) {
	bleveIdx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "creating lexical index", err)
	}

	idx := &Index{
		bleveIdx:     bleveIdx,
		byChunkID:    make(map[string]domain.SearchResult, len(chunks)),
		collectionID: collectionID,
	}

	for _, c := range chunks {
		if c.Text == "" {
			continue
		}
		key := strconv.FormatInt(c.ID, 10)
		if err := bleveIdx.Index(key, indexedChunk{
			ChunkID:      c.ID,
			Text:         c.Text,
			DocumentID:   c.DocumentID,
			CollectionID: collectionID,
		}); err != nil {
			return nil, errs.Wrap(errs.InternalError, fmt.Sprintf("indexing chunk %d", c.ID), err)
		}

		doc := docs[c.DocumentID]
		idx.byChunkID[key] = domain.SearchResult{
			ChunkID:       c.ID,
			Text:          c.Text,
			DocumentID:    c.DocumentID,
			DocumentTitle: doc.Title,
			SourceURL:     doc.SourceURL,
			Metadata:      c.Metadata,
			DocMetadata:   doc.Metadata,
		}
	}

	return idx, nil
}

// Search runs the per-token query buildQuery constructs against the index
// and returns results scored
// into [0, 1] by normalising against the top hit's raw bleve score, with
// at most topK results. An empty query returns an empty result set
// rather than matching everything.
func (idx *Index) Search(_ context.Context, query string, topK int) ([]domain.SearchResult, error) {
	q := buildQuery(query)
	if q == nil {
		return nil, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	req := bleve.NewSearchRequest(q)
	req.Size = topK

	res, err := idx.bleveIdx.Search(req)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "lexical search failed", err)
	}
	if res.Total == 0 {
		return nil, nil
	}

	maxScore := res.Hits[0].Score
	if maxScore == 0 {
		maxScore = 1
	}

	out := make([]domain.SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		base, ok := idx.byChunkID[hit.ID]
		if !ok {
			continue
		}
		base.Score = hit.Score / maxScore
		out = append(out, base)
	}
	return out, nil
}

// buildQuery splits q on whitespace and AND-joins one query per token.
// Each token matches either through a match query, analysed by the
// field's "en" analyzer so "pooling" finds the indexed stem "pool", or
// through a prefix-expansion wildcard query (§4.5: "Stateful" must also
// match "StatefulWidget"); wildcard terms are not analysed, so the
// wildcard alone misses stemmed terms. This departs from bleve's bare
// match query over the whole string, whose default operator is OR and
// which does no prefix expansion.
func buildQuery(q string) blevequery.Query {
	tokens := strings.Fields(strings.ToLower(q))
	if len(tokens) == 0 {
		return nil
	}
	terms := make([]blevequery.Query, 0, len(tokens))
	for _, tok := range tokens {
		mq := bleve.NewMatchQuery(tok)
		mq.SetField("text")
		wq := bleve.NewWildcardQuery(tok + "*")
		wq.SetField("text")
		terms = append(terms, bleve.NewDisjunctionQuery(mq, wq))
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return bleve.NewConjunctionQuery(terms...)
}

func (idx *Index) Close() error {
	return idx.bleveIdx.Close()
}
