package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"lyra/internal/apperr"
)

// Ollama calls an Ollama-compatible generate endpoint.
type Ollama struct {
	Host    string
	Model   string
	Timeout time.Duration
	HTTP    *http.Client
}

// NewOllama returns a client for host (e.g. http://localhost:11434).
// httpClient may be nil.
func NewOllama(host, model string, timeout time.Duration, httpClient *http.Client) *Ollama {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Ollama{
		Host:    strings.TrimRight(host, "/"),
		Model:   model,
		Timeout: timeout,
		HTTP:    httpClient,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// Generate posts to /api/generate and extracts the reply text. The system
// prompt, when given, is prepended to the user prompt.
func (o *Ollama) Generate(ctx context.Context, prompt, system string) (string, error) {
	if system != "" {
		prompt = system + "\n\n" + prompt
	}

	body, err := json.Marshal(generateRequest{
		Model:  o.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: %w: %v", apperr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("llm: %w: status %s", apperr.ErrUnavailable, resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("llm: %w: read response: %v", apperr.ErrUnavailable, err)
	}

	return extractText(raw), nil
}

// extractText pulls the reply out of a generate response. The canonical
// field is "response"; some compatible backends answer with an OpenAI-style
// choices array instead.
func extractText(raw []byte) string {
	if v := gjson.GetBytes(raw, "response"); v.Exists() && v.String() != "" {
		return strings.TrimSpace(v.String())
	}
	first := gjson.GetBytes(raw, "choices.0")
	if first.Exists() {
		for _, key := range []string{"message", "text", "content"} {
			if v := first.Get(key); v.Exists() && v.String() != "" {
				return strings.TrimSpace(v.String())
			}
		}
	}
	return strings.TrimSpace(string(raw))
}
