package synthesis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Beaulewis1977/synthesis-sub002/internal/errs"
)

// OpenAIJudge asks a chat model for a contradiction verdict between two
// approach summaries, constrained to a JSON schema — the same
// structured-output shape rerank.CloudProvider uses for scoring.
type OpenAIJudge struct {
	client openai.Client
	model  string
}

func NewOpenAIJudge(apiKey, model string) *OpenAIJudge {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIJudge{client: openai.NewClient(option.WithAPIKey(apiKey)), model: model}
}

var verdictSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"contradictory": map[string]any{"type": "boolean"},
		"difference":    map[string]any{"type": "string"},
		"severity":      map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}},
		"prefer":        map[string]any{"type": "string"},
		"reasoning":     map[string]any{"type": "string"},
		"confidence":    map[string]any{"type": "number"},
	},
	"required":             []string{"contradictory", "difference", "severity", "prefer", "reasoning", "confidence"},
	"additionalProperties": false,
}

func (j *OpenAIJudge) Judge(ctx context.Context, topic, summaryA, summaryB string) (Verdict, error) {
	systemPrompt := "You compare two documented approaches to the same topic and decide whether they " +
		"genuinely contradict each other (not just phrased differently). Respond with ONLY valid JSON " +
		"matching the given schema."
	userPrompt := fmt.Sprintf("Topic: %s\n\nApproach A:\n%s\n\nApproach B:\n%s", topic, summaryA, summaryB)

	schemaJSON, err := json.Marshal(verdictSchema)
	if err != nil {
		return Verdict{}, errs.Wrap(errs.InternalError, "encoding verdict schema", err)
	}

	params := openai.ChatCompletionNewParams{
		Model: j.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0.0),
	}
	params.ResponseFormat.OfJSONSchema = &openai.ResponseFormatJSONSchemaParam{
		JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:        "contradiction_verdict",
			Description: openai.String("Whether two approaches contradict each other."),
			Schema:      json.RawMessage(schemaJSON),
			Strict:      openai.Bool(false),
		},
	}

	resp, err := j.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Verdict{}, errs.Wrap(errs.ProviderUnavailable, "contradiction judge request failed", err)
	}
	if len(resp.Choices) == 0 {
		return Verdict{}, errs.New(errs.ProviderUnavailable, "contradiction judge response had no choices")
	}

	verdict, ok := parseVerdict(resp.Choices[0].Message.Content)
	if !ok {
		return Verdict{}, errs.New(errs.ProviderUnavailable, "malformed contradiction verdict JSON")
	}
	return verdict, nil
}
