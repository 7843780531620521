package rerank

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Beaulewis1977/synthesis-sub002/internal/errs"
)

// CloudProvider submits the query and every document in a single chat
// completion request, constrained to a `{"scores":[...]}` JSON schema —
// the exact structured-output contract
// pkg/model/provider/openai/client.go's Rerank method uses, generalised
// here to a standalone provider instead of a method on the chat client.
type CloudProvider struct {
	client openai.Client
	model  string
}

func NewCloudProvider(apiKey, model string) *CloudProvider {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &CloudProvider{client: openai.NewClient(option.WithAPIKey(apiKey)), model: model}
}

func (c *CloudProvider) ID() string { return "cloud" }

var rerankScoresSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"scores": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "number"},
		},
	},
	"required":             []string{"scores"},
	"additionalProperties": false,
}

func (c *CloudProvider) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	userPrompt := buildRerankPrompt(query, documents)
	systemPrompt := "You score how relevant each numbered document is to the query on a 0-1 scale. " +
		`Respond with ONLY valid JSON: {"scores":[s0,s1,...]}, one numeric score per document, in order.`

	schemaJSON, err := json.Marshal(rerankScoresSchema)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "encoding rerank schema", err)
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0.0),
	}
	params.ResponseFormat.OfJSONSchema = &openai.ResponseFormatJSONSchemaParam{
		JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:        "rerank_scores",
			Description: openai.String("Relevance scores for each document, in input order."),
			Schema:      json.RawMessage(schemaJSON),
			Strict:      openai.Bool(false),
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, "cloud rerank request failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errs.New(errs.ProviderUnavailable, "cloud rerank response had no choices")
	}

	var parsed struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, "decoding cloud rerank scores", err)
	}
	if len(parsed.Scores) != len(documents) {
		return nil, errScoreMismatch(c.ID(), len(documents), len(parsed.Scores))
	}
	return parsed.Scores, nil
}

func buildRerankPrompt(query string, documents []string) string {
	prompt := fmt.Sprintf("Query: %s\n\nDocuments:\n", query)
	for i, d := range documents {
		prompt += fmt.Sprintf("[%d] %s\n", i, d)
	}
	return prompt
}
