package embedding

import (
	"context"
)

// FallbackSignal reports whether the budget-exhausted fallback mode is
// active. Satisfied by *cost.Tracker without embedding importing cost.
type FallbackSignal interface {
	Fallback() bool
}

// Router picks a provider per ContentType and degrades every route to the
// free local provider once FallbackSignal reports the budget is
// exhausted (§5 fallback-mode semantics).
type Router struct {
	registry *Registry
	routes   map[ContentType]string
	fallback string
	signal   FallbackSignal
}

// RouterConfig names which provider ID serves each content type, and
// which provider ID to degrade to (normally "ollama", the only free
// route).
type RouterConfig struct {
	Code          string
	Writing       string
	Documentation string
	Fallback      string
}

func NewRouter(registry *Registry, cfg RouterConfig, signal FallbackSignal) *Router {
	return &Router{
		registry: registry,
		routes: map[ContentType]string{
			ContentCode:          cfg.Code,
			ContentWriting:       cfg.Writing,
			ContentDocumentation: cfg.Documentation,
		},
		fallback: cfg.Fallback,
		signal:   signal,
	}
}

// Resolve returns the provider that should handle embedding for
// contentType right now, honouring fallback mode.
func (r *Router) Resolve(contentType ContentType) (Provider, error) {
	if r.signal != nil && r.signal.Fallback() {
		return r.registry.Get(r.fallback)
	}
	return r.registry.Get(r.preferredRoute(contentType))
}

// preferredRoute is the route's configured provider ID regardless of
// fallback mode, used to tell whether a result came from the route the
// caller actually asked for.
func (r *Router) preferredRoute(contentType ContentType) string {
	name, ok := r.routes[contentType]
	if !ok || name == "" {
		return r.fallback
	}
	return name
}

// Embed classifies filePath/sample and embeds texts through the resolved
// provider, returning the provider ID actually used alongside the result
// so callers can stamp domain.DocumentMetadata.EmbeddingProvider. On a
// provider error it retries once through the fallback route (unless that
// route was already the one that failed) and marks the result degraded,
// per §4.2/§7: a transient cloud failure degrades to Ollama rather than
// failing the request.
func (r *Router) Embed(ctx context.Context, filePath, sample string, texts []string) (string, Result, error) {
	return r.EmbedAs(ctx, Classify(filePath, sample), texts)
}

// EmbedAs embeds texts through the provider resolved for an explicit
// content type, bypassing Classify — for callers that already know which
// route applies (e.g. queries, which always go through the documentation
// route regardless of their content). Carries the same error-retry and
// degraded-flag behaviour as Embed.
func (r *Router) EmbedAs(ctx context.Context, contentType ContentType, texts []string) (string, Result, error) {
	preferred := r.preferredRoute(contentType)

	provider, err := r.Resolve(contentType)
	if err != nil {
		return "", Result{}, err
	}

	res, err := provider.Embed(ctx, texts)
	if err == nil {
		res.Degraded = provider.ID() != preferred
		return provider.ID(), res, nil
	}

	if provider.ID() == r.fallback {
		return "", Result{}, err
	}

	fallback, ferr := r.registry.Get(r.fallback)
	if ferr != nil {
		return "", Result{}, err
	}
	res, err = fallback.Embed(ctx, texts)
	if err != nil {
		return "", Result{}, err
	}
	res.Degraded = true
	return fallback.ID(), res, nil
}
