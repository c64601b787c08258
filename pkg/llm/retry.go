package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"time"
)

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
	IsRetryable func(error) bool
	Sleep       func(time.Duration)
}

// Retry runs fn with exponential backoff. The conversation loop itself never
// retries; this is for callers that want a retrying client wrapper.
func Retry(ctx context.Context, cfg RetryConfig, fn func(context.Context) (Reply, error)) (Reply, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 2 * time.Second
	}
	if cfg.IsRetryable == nil {
		cfg.IsRetryable = DefaultIsRetryable
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	var lastErr error
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < cfg.MaxAttempts; i++ {
		if ctx.Err() != nil {
			return Reply{}, ctx.Err()
		}
		reply, err := fn(ctx)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !cfg.IsRetryable(err) || i == cfg.MaxAttempts-1 {
			break
		}
		delay := backoffDelay(cfg.BaseDelay, cfg.MaxDelay, cfg.Jitter, i, r)
		select {
		case <-ctx.Done():
			return Reply{}, ctx.Err()
		default:
			cfg.Sleep(delay)
		}
	}
	return Reply{}, fmt.Errorf("model retry failed: %w", lastErr)
}

// WithRetry wraps a client so every Generate call runs under Retry. Ping and
// Models pass straight through; only generation is retried.
func WithRetry(inner Client, cfg RetryConfig) Client {
	return &retryingClient{inner: inner, cfg: cfg}
}

type retryingClient struct {
	inner Client
	cfg   RetryConfig
}

func (c *retryingClient) Name() string { return c.inner.Name() }

func (c *retryingClient) Generate(ctx context.Context, req Request) (Reply, error) {
	return Retry(ctx, c.cfg, func(ctx context.Context) (Reply, error) {
		return c.inner.Generate(ctx, req)
	})
}

func (c *retryingClient) Ping(ctx context.Context) error {
	if p, ok := c.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *retryingClient) Models(ctx context.Context) ([]string, error) {
	if l, ok := c.inner.(ModelLister); ok {
		return l.Models(ctx)
	}
	return nil, nil
}

func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	return true
}

func backoffDelay(base, max time.Duration, jitter float64, attempt int, r *rand.Rand) time.Duration {
	pow := math.Pow(2, float64(attempt))
	d := time.Duration(float64(base) * pow)
	if d > max {
		d = max
	}
	if jitter > 0 {
		j := time.Duration(float64(d) * jitter * r.Float64())
		return d + j
	}
	return d
}
