// Package embedding implements C2, the Embedding Provider Router: content-
// type classification, per-provider dimension pinning, and budget-gated
// fallback to a free local model. Provider interface and registry pattern
// grounded on pkg/model/provider.Provider/New; the batch-call shape
// (single text as a one-element batch) follows pkg/model/provider/openai's
// CreateEmbedding/CreateBatchEmbedding split.
package embedding

import (
	"context"
	"fmt"
)

// ContentType is the coarse classification the router uses to pick a
// provider (§3 embedding_provider/embedding_model/embedding_dimensions
// metadata fields are derived from this choice).
type ContentType string

const (
	ContentCode          ContentType = "code"
	ContentWriting       ContentType = "writing"
	ContentDocumentation ContentType = "documentation"
)

// Result is one batch embedding call's output.
type Result struct {
	Embeddings  [][]float32
	Model       string
	InputTokens int64
	TotalTokens int64

	// Degraded is true when this result did not come from the route's
	// preferred provider — either because budget fallback mode was
	// active, or a transient provider error forced a retry through the
	// free local route (§4.2/§7 degraded-success contract).
	Degraded bool
}

// Provider embeds a batch of texts with one backend.
type Provider interface {
	ID() string
	Dimensions() int
	Embed(ctx context.Context, texts []string) (Result, error)
}

// Registry resolves a provider by its configured name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers, keyed by ID().
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.ID()] = p
	}
	return r
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown embedding provider %q", name)
	}
	return p, nil
}
