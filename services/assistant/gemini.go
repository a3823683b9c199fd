package assistantsvc

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/assistant"
)

// GeminiClient completes prompts with a Gemini model.
type GeminiClient struct {
	client *genai.Client
	conf   core.AssistantConfig
}

var _ assistant.Client = (*GeminiClient)(nil)

// NewGeminiClient returns a nil client when no API key is configured; the assistant then answers with its fallback.
func NewGeminiClient(ctx context.Context, conf core.AssistantConfig) (assistant.Client, error) {
	if conf.APIKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  conf.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating gemini client")
	}
	return &GeminiClient{client: client, conf: conf}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.conf.Timeout)
		defer cancel()
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.conf.Model, genai.Text(prompt), nil)
	if err != nil {
		return "", errors.Wrap(err, "generating content")
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("empty completion")
	}
	return text, nil
}
