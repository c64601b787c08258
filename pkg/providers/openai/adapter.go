package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/llm"
	"github.com/harunnryd/halo/pkg/resilience"
)

// Adapter serves OpenAI-compatible chat-completions endpoints. Tool use goes
// through the directive grammar in the system prompt, not native tool calls,
// so the adapter only maps text in and text out.
type Adapter struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewAdapter(apiKey string) *Adapter {
	return &Adapter{
		APIKey:  apiKey,
		BaseURL: "https://api.openai.com/v1",
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *Adapter) Name() string { return "openai" }

func (a *Adapter) Generate(ctx context.Context, in llm.Request) (llm.Reply, error) {
	messages := []map[string]any{}
	if in.System != "" {
		messages = append(messages, map[string]any{"role": "system", "content": in.System})
	}
	messages = append(messages, map[string]any{"role": "user", "content": in.Prompt})
	body, err := json.Marshal(map[string]any{
		"model":    in.Model,
		"stream":   false,
		"messages": messages,
	})
	if err != nil {
		return llm.Reply{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return llm.Reply{}, errorsx.Wrap(err, errorsx.ReasonConnection)
	}
	a.applyHeaders(req)
	resp, err := a.client().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return llm.Reply{}, errorsx.Wrap(ctx.Err(), errorsx.ReasonCancelled)
		}
		return llm.Reply{}, errorsx.Wrap(err, errorsx.ReasonConnection)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		raw, _ := io.ReadAll(resp.Body)
		return llm.Reply{}, errorsx.Wrap(resilience.RateLimitError{Provider: "openai", Message: string(raw)}, errorsx.ReasonRateLimit)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		raw, _ := io.ReadAll(resp.Body)
		return llm.Reply{}, errorsx.Wrap(errors.New(string(raw)), errorsx.ReasonAuth)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		raw, _ := io.ReadAll(resp.Body)
		return llm.Reply{}, errorsx.Wrap(errors.New(string(raw)), errorsx.ReasonConnection)
	}
	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return llm.Reply{}, errorsx.Wrap(err, errorsx.ReasonConnection)
	}
	if len(payload.Choices) == 0 {
		return llm.Reply{}, errorsx.Wrap(errors.New("no choices"), errorsx.ReasonConnection)
	}
	return llm.Reply{Text: payload.Choices[0].Message.Content}, nil
}

func (a *Adapter) applyHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if a.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.APIKey)
	}
}

func (a *Adapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}
