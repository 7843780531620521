package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	id   string
	dims int
	err  error
}

func (f fakeProvider) ID() string      { return f.id }
func (f fakeProvider) Dimensions() int { return f.dims }
func (f fakeProvider) Embed(_ context.Context, texts []string) (Result, error) {
	if f.err != nil {
		return Result{}, f.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = make([]float32, f.dims)
	}
	return Result{Embeddings: embeddings, Model: f.id}, nil
}

type staticSignal bool

func (s staticSignal) Fallback() bool { return bool(s) }

func TestClassifyByExtension(t *testing.T) {
	assert.Equal(t, ContentCode, Classify("main.go", ""))
	assert.Equal(t, ContentDocumentation, Classify("README.md", ""))
	assert.Equal(t, ContentDocumentation, Classify("notes.txt", "just some prose"))
	assert.Equal(t, ContentDocumentation, Classify("notes.txt", "## Installation\nrun this"))
	assert.Equal(t, ContentWriting, Classify("notes.txt", "Dear diary, today was a long day."))
	assert.Equal(t, ContentCode, Classify("script", "import os\nimport sys\n\ndef main():\n    pass"))
}

func TestRouterResolvesByContentType(t *testing.T) {
	registry := NewRegistry(
		fakeProvider{id: "openai", dims: 1536},
		fakeProvider{id: "voyage", dims: 1024},
		fakeProvider{id: "ollama", dims: 768},
	)
	router := NewRouter(registry, RouterConfig{
		Code: "voyage", Writing: "openai", Documentation: "ollama", Fallback: "ollama",
	}, staticSignal(false))

	provider, err := router.Resolve(ContentCode)
	require.NoError(t, err)
	assert.Equal(t, "voyage", provider.ID())

	id, res, err := router.Embed(context.Background(), "main.go", "", []string{"func main() {}"})
	require.NoError(t, err)
	assert.Equal(t, "voyage", id)
	require.Len(t, res.Embeddings, 1)
	assert.Len(t, res.Embeddings[0], 1024)
}

func TestRouterFallsBackWhenBudgetExhausted(t *testing.T) {
	registry := NewRegistry(
		fakeProvider{id: "openai", dims: 1536},
		fakeProvider{id: "ollama", dims: 768},
	)
	router := NewRouter(registry, RouterConfig{
		Code: "openai", Writing: "openai", Documentation: "openai", Fallback: "ollama",
	}, staticSignal(true))

	provider, err := router.Resolve(ContentWriting)
	require.NoError(t, err)
	assert.Equal(t, "ollama", provider.ID())
}

func TestRouterDegradesToFallbackOnProviderError(t *testing.T) {
	registry := NewRegistry(
		fakeProvider{id: "openai", dims: 1536, err: errors.New("rate limited")},
		fakeProvider{id: "ollama", dims: 768},
	)
	router := NewRouter(registry, RouterConfig{
		Code: "openai", Writing: "openai", Documentation: "openai", Fallback: "ollama",
	}, staticSignal(false))

	id, res, err := router.Embed(context.Background(), "notes.md", "", []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", id)
	assert.True(t, res.Degraded)
	require.Len(t, res.Embeddings, 1)
	assert.Len(t, res.Embeddings[0], 768)
}

func TestRouterPropagatesErrorWhenFallbackAlreadyFailed(t *testing.T) {
	registry := NewRegistry(
		fakeProvider{id: "ollama", dims: 768, err: errors.New("connection refused")},
	)
	router := NewRouter(registry, RouterConfig{
		Code: "ollama", Writing: "ollama", Documentation: "ollama", Fallback: "ollama",
	}, staticSignal(false))

	_, _, err := router.Embed(context.Background(), "main.go", "", []string{"func main() {}"})
	require.Error(t, err)
}

func TestRouterMarksBudgetFallbackDegraded(t *testing.T) {
	registry := NewRegistry(
		fakeProvider{id: "openai", dims: 1536},
		fakeProvider{id: "ollama", dims: 768},
	)
	router := NewRouter(registry, RouterConfig{
		Code: "openai", Writing: "openai", Documentation: "openai", Fallback: "ollama",
	}, staticSignal(true))

	id, res, err := router.Embed(context.Background(), "main.go", "", []string{"func main() {}"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", id)
	assert.True(t, res.Degraded)
}
