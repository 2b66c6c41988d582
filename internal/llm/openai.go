package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"lyra/internal/apperr"
)

// OpenAI is the alternate chat-completions backend.
type OpenAI struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI builds a client for the given API key and model. httpClient may
// be nil; pass one to route the SDK through a proxy.
func NewOpenAI(apiKey, model string, timeout time.Duration, httpClient *http.Client) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAI{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}
}

func (c *OpenAI) Generate(ctx context.Context, prompt, system string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}
	if system != "" {
		messages = append([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
		}, messages...)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(c.model),
	})
	if err != nil {
		return "", fmt.Errorf("llm: %w: %v", apperr.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: %w: no choices in response", apperr.ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
