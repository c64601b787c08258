package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/llm"
	"github.com/harunnryd/halo/pkg/resilience"
)

// Client talks to a local Ollama-compatible model server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Breaker *resilience.CircuitBreaker
}

// New builds a client for the server at host:port.
func New(host string, port int) *Client {
	return &Client{
		BaseURL: fmt.Sprintf("http://%s:%d/api", host, port),
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Name() string { return "ollama" }

// Ping probes server availability via the version endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/version", nil)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonConnection)
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return wrapTransport(ctx, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp, "version probe failed")
	}
	return nil
}

// Models lists the models the server currently serves.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/tags", nil)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConnection)
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return nil, wrapTransport(ctx, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "model listing failed")
	}
	var payload struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConnection)
	}
	if payload.Models == nil {
		return nil, errorsx.Wrap(errors.New("invalid response from model server"), errorsx.ReasonConnection)
	}
	out := make([]string, 0, len(payload.Models))
	for _, m := range payload.Models {
		out = append(out, m.Name)
	}
	return out, nil
}

// Generate posts a non-streaming generate request and returns the reply text.
func (c *Client) Generate(ctx context.Context, in llm.Request) (llm.Reply, error) {
	if c.Breaker != nil && !c.Breaker.Allow() {
		return llm.Reply{}, errorsx.Wrap(resilience.RateLimitError{Provider: "ollama", Message: "circuit open"}, errorsx.ReasonRateLimit)
	}
	body, err := json.Marshal(map[string]any{
		"model":  in.Model,
		"prompt": in.Prompt,
		"system": in.System,
		"stream": false,
	})
	if err != nil {
		return llm.Reply{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return llm.Reply{}, errorsx.Wrap(err, errorsx.ReasonConnection)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client().Do(req)
	if err != nil {
		err = wrapTransport(ctx, err)
		c.onError(err)
		return llm.Reply{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err = statusError(resp, "generate failed")
		c.onError(err)
		return llm.Reply{}, err
	}
	var payload struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return llm.Reply{}, errorsx.Wrap(err, errorsx.ReasonConnection)
	}
	if c.Breaker != nil {
		c.Breaker.OnSuccess()
	}
	return llm.Reply{Text: payload.Response}, nil
}

func (c *Client) onError(err error) {
	if c.Breaker != nil {
		c.Breaker.OnError(err)
	}
}

func (c *Client) client() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func wrapTransport(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errorsx.Wrap(ctx.Err(), errorsx.ReasonCancelled)
	}
	return errorsx.Wrap(err, errorsx.ReasonConnection)
}

func statusError(resp *http.Response, msg string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	err := fmt.Errorf("%s: status %d: %s", msg, resp.StatusCode, bytes.TrimSpace(body))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errorsx.Wrap(err, errorsx.ReasonAuth)
	case http.StatusTooManyRequests:
		return errorsx.Wrap(resilience.RateLimitError{Provider: "ollama", Message: err.Error()}, errorsx.ReasonRateLimit)
	default:
		return errorsx.Wrap(err, errorsx.ReasonConnection)
	}
}
