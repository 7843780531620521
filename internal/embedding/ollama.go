package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Beaulewis1977/synthesis-sub002/internal/errs"
)

// Ollama is the free/local fallback provider the Cost Tracker routes to
// once the monthly budget is exhausted (§5). No Go SDK for Ollama exists
// in the pack either; same bearer-less net/http shape as Voyage but one
// request per text since Ollama's /api/embeddings endpoint isn't batched.
type Ollama struct {
	httpClient *http.Client
	baseURL    string
	model      string
	dims       int
}

func NewOllama(baseURL, model string, dims int) *Ollama {
	if model == "" {
		model = "nomic-embed-text"
	}
	if dims == 0 {
		dims = 768
	}
	return &Ollama{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		dims:       dims,
	}
}

func (o *Ollama) ID() string      { return "ollama" }
func (o *Ollama) Dimensions() int { return o.dims }

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (o *Ollama) Embed(ctx context.Context, texts []string) (Result, error) {
	if len(texts) == 0 {
		return Result{Model: o.model}, nil
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := o.embedOne(ctx, text)
		if err != nil {
			return Result{}, err
		}
		out[i] = vec
	}

	return Result{Embeddings: out, Model: o.model}, nil
}

func (o *Ollama) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaRequest{Model: o.model, Prompt: text})
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "encoding ollama request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "building ollama request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, "ollama embedding request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, "reading ollama response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.ProviderUnavailable, fmt.Sprintf("ollama returned %d: %s", resp.StatusCode, string(raw)))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, "decoding ollama response", err)
	}
	return parsed.Embedding, nil
}
