package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyCompletion indicates the generation API returned no choices.
var ErrEmptyCompletion = errors.New("llm: completion returned no choices")

// Completer is a single-turn text completion seam. Implementations return
// free-form text that is expected, not guaranteed, to embed one JSON object.
type Completer interface {
	Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error)
}

// OpenAIClient implements Completer on the OpenAI chat completion API.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient constructs a Completer backed by OpenAI.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{client: openai.NewClient(apiKey)}
}

func (c *OpenAIClient) Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	response, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
