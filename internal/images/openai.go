package images

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIImageClient implements ImageAPI on the OpenAI image generation API.
type OpenAIImageClient struct {
	client *openai.Client
}

// NewOpenAIImageClient constructs an ImageAPI backed by OpenAI.
func NewOpenAIImageClient(apiKey string) *OpenAIImageClient {
	return &OpenAIImageClient{client: openai.NewClient(apiKey)}
}

func (c *OpenAIImageClient) GenerateImage(ctx context.Context, model, prompt string) (string, error) {
	response, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Model:  model,
		Prompt: prompt,
		N:      1,
		Size:   openai.CreateImageSize1024x1024,
	})
	if err != nil {
		return "", err
	}
	if len(response.Data) == 0 {
		return "", ErrInvalidImageURL
	}
	return response.Data[0].URL, nil
}
