// Package rerank implements C8: cross-encoder-style re-scoring with a
// cloud/local fallback chain. The interface shape, TopK/threshold
// handling, and score-stat logging are grounded on
// pkg/rag/rerank/rerank.go's LLMReranker; the structured-JSON scoring
// call for the cloud provider is grounded on
// pkg/model/provider/openai/client.go's Rerank method.
package rerank

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
)

// Provider scores query/document pairs. Implementations return one
// score per document, in input order.
type Provider interface {
	ID() string
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

// Candidate is the minimal shape Rerank needs from a hybrid result —
// defined locally so this package doesn't import domain's full surface
// beyond what it scores.
type Candidate struct {
	Text  string
	Score float64
}

// Config mirrors pkg/rag/rerank.Config's knobs.
type Config struct {
	TopK      int
	Threshold float64
}

// Chain tries providers in order and falls back to the next on failure;
// if every provider fails, the input is returned unchanged with a
// logged warning (§4.8).
type Chain struct {
	providers []Provider
	cfg       Config
}

func NewChain(cfg Config, providers ...Provider) *Chain {
	return &Chain{providers: providers, cfg: cfg}
}

// Rerank scores the top cfg.TopK candidates (all of them if TopK<=0),
// drops any below cfg.Threshold, appends untouched tail candidates, and
// returns indices into the original slice sorted by new score
// descending, paired with the new score.
type Reranked struct {
	Index int
	Score float64
}

func (c *Chain) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Reranked, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	numToRerank := len(candidates)
	if c.cfg.TopK > 0 && c.cfg.TopK < numToRerank {
		numToRerank = c.cfg.TopK
	}

	texts := make([]string, numToRerank)
	for i := 0; i < numToRerank; i++ {
		texts[i] = candidates[i].Text
	}

	scores, providerID, err := c.scoreWithFallback(ctx, query, texts)
	if err != nil {
		slog.Warn("rerank: all providers failed, returning input unchanged", "error", err)
		out := make([]Reranked, len(candidates))
		for i, cand := range candidates {
			out[i] = Reranked{Index: i, Score: cand.Score}
		}
		return out, nil
	}
	slog.Debug("rerank: scored candidates", "provider", providerID, "count", len(scores))

	out := make([]Reranked, 0, len(candidates))
	for i := 0; i < numToRerank; i++ {
		if c.cfg.Threshold > 0 && scores[i] < c.cfg.Threshold {
			continue
		}
		out = append(out, Reranked{Index: i, Score: scores[i]})
	}
	for i := numToRerank; i < len(candidates); i++ {
		out = append(out, Reranked{Index: i, Score: candidates[i].Score})
	}

	slices.SortFunc(out, func(a, b Reranked) int { return cmp.Compare(b.Score, a.Score) })
	return out, nil
}

func (c *Chain) scoreWithFallback(ctx context.Context, query string, texts []string) ([]float64, string, error) {
	var lastErr error
	for _, p := range c.providers {
		scores, err := p.Score(ctx, query, texts)
		if err != nil {
			slog.Warn("rerank: provider failed, trying next", "provider", p.ID(), "error", err)
			lastErr = err
			continue
		}
		if len(scores) != len(texts) {
			lastErr = errScoreMismatch(p.ID(), len(texts), len(scores))
			continue
		}
		return scores, p.ID(), nil
	}
	return nil, "", lastErr
}
