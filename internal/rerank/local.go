package rerank

import (
	"context"
	"strings"
	"sync"
)

// LocalProvider is the free fallback: a lexical term-overlap heuristic
// standing in for a cross-encoder, since no such inference library
// exists anywhere in the retrieval pack. It lazily builds its stopword
// set on first use behind a sync.Once and reuses it afterwards — the
// same lazy-singleton shape §4.8 describes for a locally loaded model,
// even though what's loaded here is a small static set rather than
// model weights.
type LocalProvider struct {
	once      sync.Once
	stopwords map[string]bool
}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) ID() string { return "local" }

func (l *LocalProvider) load() {
	l.stopwords = map[string]bool{
		"the": true, "a": true, "an": true, "is": true, "are": true, "of": true,
		"to": true, "and": true, "in": true, "on": true, "for": true, "with": true,
		"this": true, "that": true, "it": true, "be": true, "as": true, "by": true,
	}
}

func (l *LocalProvider) Score(_ context.Context, query string, documents []string) ([]float64, error) {
	l.once.Do(l.load)

	queryTerms := l.termSet(query)
	scores := make([]float64, len(documents))
	for i, doc := range documents {
		scores[i] = l.overlapScore(queryTerms, doc)
	}
	return scores, nil
}

func (l *LocalProvider) termSet(text string) map[string]bool {
	terms := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()[]{}")
		if w == "" || l.stopwords[w] {
			continue
		}
		terms[w] = true
	}
	return terms
}

// overlapScore returns |query ∩ doc| / |query| as a [0,1] relevance
// proxy — cheap, deterministic, and good enough to rank candidates that
// already passed hybrid retrieval.
func (l *LocalProvider) overlapScore(queryTerms map[string]bool, doc string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	docTerms := l.termSet(doc)
	matches := 0
	for t := range queryTerms {
		if docTerms[t] {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTerms))
}
