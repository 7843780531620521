package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Beaulewis1977/synthesis-sub002/internal/errs"
)

// Voyage embeds code via Voyage AI's voyage-code-3 model. No Go SDK for
// Voyage exists anywhere in the retrieval pack, so this is a small
// net/http client, grounded on manifold's clientEmbedder pattern: a
// bearer-token POST with a typed request/response pair and no retry
// logic of its own (retries are the caller's concern).
type Voyage struct {
	httpClient *http.Client
	apiKey     string
	model      string
	dims       int
	baseURL    string
}

func NewVoyage(apiKey, model string, dims int) *Voyage {
	if model == "" {
		model = "voyage-code-3"
	}
	if dims == 0 {
		dims = 1024
	}
	return &Voyage{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		model:      model,
		dims:       dims,
		baseURL:    "https://api.voyageai.com/v1/embeddings",
	}
}

func (v *Voyage) ID() string      { return "voyage" }
func (v *Voyage) Dimensions() int { return v.dims }

type voyageRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type,omitempty"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		TotalTokens int64 `json:"total_tokens"`
	} `json:"usage"`
}

func (v *Voyage) Embed(ctx context.Context, texts []string) (Result, error) {
	if len(texts) == 0 {
		return Result{Model: v.model}, nil
	}

	body, err := json.Marshal(voyageRequest{Input: texts, Model: v.model, InputType: "document"})
	if err != nil {
		return Result{}, errs.Wrap(errs.InternalError, "encoding voyage request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, errs.Wrap(errs.InternalError, "building voyage request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Result{}, errs.Wrap(errs.ProviderUnavailable, "voyage embedding request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, errs.Wrap(errs.ProviderUnavailable, "reading voyage response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, errs.New(errs.ProviderUnavailable, fmt.Sprintf("voyage returned %d: %s", resp.StatusCode, string(raw)))
	}

	var parsed voyageResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Result{}, errs.Wrap(errs.ProviderUnavailable, "decoding voyage response", err)
	}
	if len(parsed.Data) != len(texts) {
		return Result{}, errs.New(errs.ProviderUnavailable, fmt.Sprintf("voyage returned %d embeddings for %d inputs", len(parsed.Data), len(texts)))
	}

	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		out[i] = d.Embedding
	}

	return Result{
		Embeddings:  out,
		Model:       v.model,
		TotalTokens: parsed.Usage.TotalTokens,
		InputTokens: parsed.Usage.TotalTokens,
	}, nil
}
