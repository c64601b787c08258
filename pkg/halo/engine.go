package halo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/harunnryd/halo/pkg/convo"
	"github.com/harunnryd/halo/pkg/format"
	"github.com/harunnryd/halo/pkg/llm"
	"github.com/harunnryd/halo/pkg/logging"
	"github.com/harunnryd/halo/pkg/metrics"
	"github.com/harunnryd/halo/pkg/prompt"
	"github.com/harunnryd/halo/pkg/redact"
	"github.com/harunnryd/halo/pkg/runner"
	"github.com/harunnryd/halo/pkg/session"
	"github.com/harunnryd/halo/pkg/tools"
	"github.com/harunnryd/halo/pkg/transports"
)

// Engine wires the model client, tool registry, conversation loop, sessions,
// and transport into one runnable unit.
type Engine struct {
	cfg       Config
	sessions  *session.Registry
	transport transports.Transport
	providers *ProviderRegistry
	runner    *runner.LifecycleRunner
	asyncObs  *metrics.AsyncObserver
	client    llm.Client
	loop      *convo.Loop
	formatter *format.Formatter

	sem         chan struct{}
	metricsFile *os.File

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	Transport transports.Transport
	Tools     *tools.Registry
	// Observer receives metric events in addition to the built-in sinks.
	Observer metrics.Observer
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	logging.SetDefault(cfg.LogLevel, cfg.LogFormat)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	slog.Info("halo_init",
		"environment", cfg.Environment,
		"model_provider", cfg.Model.Provider,
		"model", cfg.Model.Name,
		"transport", cfg.Transports.Provider,
	)

	// A broken prompt set must abort setup, not mislead the model at runtime.
	builder, err := prompt.NewBuilder(cfg.Templates())
	if err != nil {
		return nil, err
	}

	obsList := []metrics.Observer{metrics.NewLoggerObserver(slog.Default())}
	var metricsFile *os.File
	if cfg.Observability.MetricsFile != "" {
		metricsFile, err = os.OpenFile(cfg.Observability.MetricsFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open metrics file: %w", err)
		}
		obsList = append(obsList, metrics.NewJSONLObserver(metricsFile))
	}
	if opts.Observer != nil {
		obsList = append(obsList, opts.Observer)
	}
	asyncObs := metrics.NewAsyncObserver(metrics.NewMultiObserver(obsList...), 2048)

	providers := opts.Providers
	if providers == nil {
		providers = NewProviderRegistry()
	}
	client, err := providers.Build(cfg.Model.Provider, cfg)
	if err != nil {
		if metricsFile != nil {
			_ = metricsFile.Close()
		}
		asyncObs.Close()
		return nil, err
	}

	if cfg.Loop.MaxRetries > 1 {
		client = llm.WithRetry(client, llm.RetryConfig{
			MaxAttempts: cfg.Loop.MaxRetries,
			BaseDelay:   time.Duration(cfg.Loop.RetryBackoffMS) * time.Millisecond,
		})
	}

	registry := opts.Tools
	if registry == nil {
		registry = tools.NewRegistry()
	}
	formatter := format.New(cfg.Templates())

	loop := &convo.Loop{
		Client:    client,
		Registry:  registry,
		Prompts:   builder,
		Exec:      tools.NewExecutor(time.Duration(cfg.Tools.TimeoutMS) * time.Millisecond),
		Formatter: formatter,
		Obs:       asyncObs,
		Log:       slog.Default(),
		Cfg: convo.Config{
			Model:             cfg.Model.Name,
			SystemOverride:    cfg.SystemPrompt,
			MaxToolIterations: cfg.Loop.MaxToolIterations,
			ModelTimeout:      time.Duration(cfg.Loop.RequestTimeoutMS) * time.Millisecond,
		},
	}

	sessions := session.NewRegistryWithLimits(cfg.Context.MaxHistory, cfg.Context.PruneThreshold)

	maxConcurrent := cfg.Loop.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:         cfg,
		sessions:    sessions,
		transport:   opts.Transport,
		providers:   providers,
		asyncObs:    asyncObs,
		client:      client,
		loop:        loop,
		formatter:   formatter,
		sem:         make(chan struct{}, maxConcurrent),
		metricsFile: metricsFile,
		ctx:         ctx,
		cancel:      cancel,
	}

	hooks := runner.Hooks{
		OnStart: func() {
			fields := []any{"message", "Halo Engine Ready"}
			if rr, ok := opts.Transport.(transports.ReadyReporter); ok {
				for k, v := range rr.ReadyFields() {
					fields = append(fields, k, v)
				}
			}
			slog.Info("engine_ready", fields...)
		},
		OnStop: func() {
			asyncObs.Close()
			if metricsFile != nil {
				_ = metricsFile.Close()
			}
			slog.Info("shutdown", "goroutines", runtime.NumGoroutine(), "active_sessions", sessions.Count())
		},
	}

	steps := []runner.DrainStep{
		{Name: "refuse_new_sessions", Run: func() error {
			sessions.SetDraining(true)
			return nil
		}},
		{Name: "stop_transport", Run: func() error {
			if e.transport == nil {
				return nil
			}
			return e.transport.Stop()
		}},
		{Name: "cancel_turns", Run: func() error {
			e.cancel()
			return nil
		}},
		{Name: "wait_handlers", Run: func() error {
			e.wg.Wait()
			return nil
		}},
		{Name: "drop_sessions", Run: func() error {
			sessions.CloseAll()
			return nil
		}},
	}

	e.runner = runner.NewLifecycleRunner(steps, hooks, 30*time.Second)
	return e, nil
}

// Run starts the engine and blocks until Stop or ctx cancellation. The model
// server is probed first so a dead server fails fast.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.healthCheck(ctx); err != nil {
		return err
	}
	if e.transport != nil {
		if err := e.transport.Start(e.ctx); err != nil {
			return err
		}
		e.wg.Add(1)
		go e.route()
	}
	return e.runner.Run(ctx)
}

func (e *Engine) Stop() error {
	return e.runner.Stop()
}

func (e *Engine) healthCheck(ctx context.Context) error {
	pinger, ok := e.client.(llm.Pinger)
	if !ok {
		return nil
	}
	timeout := time.Duration(e.cfg.Loop.HealthCheckTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pinger.Ping(pingCtx); err != nil {
		return fmt.Errorf("model server health check: %w", err)
	}
	slog.Info("model_server_healthy", "provider", e.client.Name())
	return nil
}

// route pumps inbound envelopes into conversation turns.
func (e *Engine) route() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case env, ok := <-e.transport.Recv():
			if !ok {
				return
			}
			e.wg.Add(1)
			go func(env transports.Envelope) {
				defer e.wg.Done()
				e.handle(env)
			}(env)
		}
	}
}

func (e *Engine) handle(env transports.Envelope) {
	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-e.ctx.Done():
		return
	}
	sess, ok := e.sessions.GetOrCreate(env.ConversationID)
	if !ok {
		_ = e.transport.Send(transports.Envelope{
			ConversationID: env.ConversationID,
			Err:            "shutting down",
		})
		return
	}
	out := sess.Turn(e.ctx, func(cc *convo.Context) convo.Outcome {
		return e.loop.Turn(e.ctx, cc, env.Text)
	})
	reply := transports.Envelope{ConversationID: sess.ID, Text: out.Answer}
	if out.Err != nil {
		reply.Err = out.Err.Error()
	}
	if err := e.transport.Send(reply); err != nil {
		slog.Warn("reply_send_failed", "conversation_id", sess.ID, "error", err.Error())
	}
}

// Process runs one turn directly, for embedding the engine without a
// transport.
func (e *Engine) Process(ctx context.Context, conversationID, text string) (string, error) {
	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}
	sess, ok := e.sessions.GetOrCreate(conversationID)
	if !ok {
		return "", errors.New("engine is shutting down")
	}
	out := sess.Turn(ctx, func(cc *convo.Context) convo.Outcome {
		return e.loop.Turn(ctx, cc, text)
	})
	return out.Answer, out.Err
}

// Session exposes a session for snapshot and restore.
func (e *Engine) Session(conversationID string) (*session.Session, bool) {
	return e.sessions.Get(conversationID)
}

// Diagnostics reports engine health for operators.
func (e *Engine) Diagnostics(ctx context.Context) map[string]any {
	out := map[string]any{
		"provider":        e.client.Name(),
		"model":           e.cfg.Model.Name,
		"active_sessions": e.sessions.Count(),
		"dropped_metrics": e.asyncObs.Dropped(),
	}
	if lister, ok := e.client.(llm.ModelLister); ok {
		timeout := time.Duration(e.cfg.Loop.HealthCheckTimeoutMS) * time.Millisecond
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		listCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if models, err := lister.Models(listCtx); err == nil {
			out["available_models"] = models
		} else {
			out["models_error"] = err.Error()
		}
	}
	return out
}
