package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hyperengineering/pulse/internal/types"
)

// Compile-time interface check
var _ Coach = (*OpenAI)(nil)

// CompletionsService defines the interface for making chat completion calls.
// This abstraction enables testing without calling the real OpenAI API.
type CompletionsService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

const systemPrompt = "You write one short, encouraging sentence reminding a person to log " +
	"a check-in for a health goal. Mention the goal by name. No medical advice. No emoji."

// maxPromptLen bounds the reminder description stored on a schedule, in runes.
const maxPromptLen = 280

// OpenAI phrases reminders with a chat completion model.
type OpenAI struct {
	completions CompletionsService
	model       openai.ChatModel
}

// NewOpenAI creates a new OpenAI coach
func NewOpenAI(apiKey, model string) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAI{
		completions: client.Chat.Completions,
		model:       openai.ChatModel(model),
	}
}

// CheckInPrompt asks the model for a reminder sentence about goal.
func (o *OpenAI) CheckInPrompt(ctx context.Context, goal types.HealthGoal) (string, error) {
	resp, err := o.completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(Describe(goal)),
		}),
		Model: openai.F(o.model),
	})
	if err != nil {
		return "", fmt.Errorf("check-in prompt generation failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("check-in prompt generation failed: no choices returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("check-in prompt generation failed: empty content")
	}
	if r := []rune(text); len(r) > maxPromptLen {
		text = strings.TrimSpace(string(r[:maxPromptLen]))
	}
	return text, nil
}

// ModelName returns the chat model name
func (o *OpenAI) ModelName() string {
	return string(o.model)
}
