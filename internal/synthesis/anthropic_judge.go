package synthesis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Beaulewis1977/synthesis-sub002/internal/errs"
)

// AnthropicJudge is the Claude-backed alternative to OpenAIJudge, selected
// by JUDGE_PROVIDER=anthropic. Structured output is obtained by forcing a
// single tool call whose input schema is the Verdict shape, the same
// tool-use machinery pkg/model/provider/anthropic.convertTools builds for
// agent tool calling, applied here to force one structured response
// instead of a conversational one.
type AnthropicJudge struct {
	client anthropic.Client
	model  string
}

func NewAnthropicJudge(apiKey, model string) *AnthropicJudge {
	if model == "" {
		model = "claude-3-5-haiku-20241022"
	}
	return &AnthropicJudge{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

const verdictToolName = "report_contradiction_verdict"

var verdictToolProperties = map[string]any{
	"contradictory": map[string]any{"type": "boolean"},
	"difference":    map[string]any{"type": "string"},
	"severity":      map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}},
	"prefer":        map[string]any{"type": "string"},
	"reasoning":     map[string]any{"type": "string"},
	"confidence":    map[string]any{"type": "number"},
}

func (j *AnthropicJudge) Judge(ctx context.Context, topic, summaryA, summaryB string) (Verdict, error) {
	systemPrompt := "You compare two documented approaches to the same topic and decide whether they " +
		"genuinely contradict each other (not just phrased differently). Always respond by calling " +
		verdictToolName + " exactly once."
	userPrompt := fmt.Sprintf("Topic: %s\n\nApproach A:\n%s\n\nApproach B:\n%s", topic, summaryA, summaryB)

	tool := anthropic.ToolParam{
		Name:        verdictToolName,
		Description: anthropic.String("Report whether two approaches contradict each other."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: verdictToolProperties,
		},
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(j.model),
		MaxTokens: 1024,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
		Tools: []anthropic.ToolUnionParam{{OfTool: &tool}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: verdictToolName},
		},
	}

	msg, err := j.client.Messages.New(ctx, params)
	if err != nil {
		return Verdict{}, errs.Wrap(errs.ProviderUnavailable, "contradiction judge request failed", err)
	}

	for _, block := range msg.Content {
		use, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok || use.Name != verdictToolName {
			continue
		}
		verdict, ok := parseVerdict(string(use.Input))
		if !ok {
			return Verdict{}, errs.New(errs.ProviderUnavailable, "malformed contradiction verdict JSON")
		}
		return verdict, nil
	}
	return Verdict{}, errs.New(errs.ProviderUnavailable, "contradiction judge did not call the verdict tool")
}
