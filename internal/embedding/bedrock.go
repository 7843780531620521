package embedding

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/Beaulewis1977/synthesis-sub002/internal/errs"
)

// Bedrock embeds via Amazon Titan Embeddings through bedrockruntime's
// InvokeModel, an alternate cloud route alongside OpenAI/Voyage for
// deployments that standardise on AWS credentials instead of per-vendor
// API keys. Client bootstrap follows the bedrock provider's
// config.LoadDefaultConfig + bedrockruntime.NewFromConfig pattern; the
// Converse API machinery that provider uses for chat doesn't apply here,
// InvokeModel is Titan Embeddings' own interface.
type Bedrock struct {
	client *bedrockruntime.Client
	model  string
	dims   int
}

func NewBedrock(ctx context.Context, region, model string, dims int) (*Bedrock, error) {
	if model == "" {
		model = "amazon.titan-embed-text-v2:0"
	}
	if dims == 0 {
		dims = 1024
	}

	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, "loading aws config", err)
	}

	return &Bedrock{
		client: bedrockruntime.NewFromConfig(awsCfg),
		model:  model,
		dims:   dims,
	}, nil
}

func (b *Bedrock) ID() string      { return "bedrock" }
func (b *Bedrock) Dimensions() int { return b.dims }

type titanEmbedRequest struct {
	InputText   string `json:"inputText"`
	Dimensions  int    `json:"dimensions,omitempty"`
	Normalize   bool   `json:"normalize"`
}

type titanEmbedResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int64     `json:"inputTextTokenCount"`
}

// Embed issues one InvokeModel call per text; Titan Embeddings has no
// batch endpoint.
func (b *Bedrock) Embed(ctx context.Context, texts []string) (Result, error) {
	if len(texts) == 0 {
		return Result{Model: b.model}, nil
	}

	out := make([][]float32, len(texts))
	var totalTokens int64

	for i, text := range texts {
		body, err := json.Marshal(titanEmbedRequest{InputText: text, Dimensions: b.dims, Normalize: true})
		if err != nil {
			return Result{}, errs.Wrap(errs.InternalError, "encoding titan request", err)
		}

		resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(b.model),
			ContentType: aws.String("application/json"),
			Body:        body,
		})
		if err != nil {
			return Result{}, errs.Wrap(errs.ProviderUnavailable, "bedrock invoke model failed", err)
		}

		var parsed titanEmbedResponse
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return Result{}, errs.Wrap(errs.ProviderUnavailable, "decoding titan response", err)
		}
		out[i] = parsed.Embedding
		totalTokens += parsed.InputTextTokenCount
	}

	return Result{
		Embeddings:  out,
		Model:       b.model,
		InputTokens: totalTokens,
		TotalTokens: totalTokens,
	}, nil
}
