package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/halo/pkg/llm"
)

// Client replays scripted replies and records every request it receives.
type Client struct {
	mu       sync.Mutex
	Replies  []string
	Err      error
	Requests []llm.Request
	next     int
}

func NewClient(replies ...string) *Client {
	return &Client{Replies: replies}
}

func (c *Client) Name() string { return "mock" }

func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Reply, error) {
	if err := ctx.Err(); err != nil {
		return llm.Reply{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests = append(c.Requests, req)
	if c.Err != nil {
		return llm.Reply{}, c.Err
	}
	if c.next >= len(c.Replies) {
		return llm.Reply{Text: ""}, nil
	}
	reply := c.Replies[c.next]
	c.next++
	return llm.Reply{Text: reply}, nil
}

func (c *Client) Ping(ctx context.Context) error { return ctx.Err() }

// Recorded returns a copy of the requests seen so far.
func (c *Client) Recorded() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.Request, len(c.Requests))
	copy(out, c.Requests)
	return out
}
