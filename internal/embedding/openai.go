package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Beaulewis1977/synthesis-sub002/internal/errs"
)

// OpenAI embeds writing/documentation content via text-embedding-3-small,
// the cloud route for content the classifier doesn't route to Voyage's
// code-specialised model. Client construction mirrors
// pkg/model/provider/openai/client.go's lazy clientFn pattern, collapsed
// here since embeddings don't need the base/responses API split.
type OpenAI struct {
	client openai.Client
	model  string
	dims   int
}

func NewOpenAI(apiKey, model string, dims int) *OpenAI {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dims == 0 {
		dims = 1536
	}
	return &OpenAI{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		dims:   dims,
	}
}

func (o *OpenAI) ID() string      { return "openai" }
func (o *OpenAI) Dimensions() int { return o.dims }

func (o *OpenAI) Embed(ctx context.Context, texts []string) (Result, error) {
	if len(texts) == 0 {
		return Result{Model: o.model}, nil
	}

	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: o.model,
	})
	if err != nil {
		return Result{}, errs.Wrap(errs.ProviderUnavailable, "openai embedding request failed", err)
	}
	if len(resp.Data) != len(texts) {
		return Result{}, errs.New(errs.ProviderUnavailable, fmt.Sprintf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		out[i] = vec
	}

	return Result{
		Embeddings:  out,
		Model:       o.model,
		InputTokens: resp.Usage.PromptTokens,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}
