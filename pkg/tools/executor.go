package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/redact"
)

// Result is the outcome of one tool invocation.
type Result struct {
	Tool   string
	OK     bool
	Value  string
	Status string
	Err    error
}

const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Executor runs bound tool invocations with a per-call timeout and panic
// isolation. A panicking handler fails its own invocation only.
type Executor struct {
	Timeout time.Duration
	Log     *slog.Logger
}

func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{Timeout: timeout, Log: slog.Default()}
}

// Execute runs the named tool with already-bound args.
func (e *Executor) Execute(ctx context.Context, snap *Snapshot, name string, args Args) Result {
	tool, ok := snap.Lookup(name)
	if !ok {
		return Result{
			Tool:   name,
			Status: StatusError,
			Err:    errorsx.Wrap(fmt.Errorf("unknown tool %q", name), errorsx.ReasonUnknownTool),
		}
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	start := time.Now()
	value, err := e.run(ctx, tool, args)
	elapsed := time.Since(start)
	if err != nil {
		status := StatusError
		reason := errorsx.ReasonToolExecution
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			status = StatusTimeout
		case errors.Is(err, context.Canceled):
			reason = errorsx.ReasonCancelled
		}
		e.logger().Error("tool_execute_error",
			slog.String("tool", name),
			slog.String("status", status),
			slog.Duration("elapsed", elapsed),
			slog.Any("args", redact.Args(args)),
			slog.String("error", err.Error()))
		return Result{Tool: name, Status: status, Err: errorsx.Wrap(err, reason)}
	}
	e.logger().Debug("tool_executed",
		slog.String("tool", name),
		slog.Duration("elapsed", elapsed))
	return Result{Tool: name, OK: true, Value: value, Status: StatusOK}
}

func (e *Executor) run(ctx context.Context, tool Tool, args Args) (string, error) {
	type outcome struct {
		value string
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("tool %q panicked: %v", tool.Name, r)}
			}
		}()
		value, err := tool.Handler(ctx, args)
		done <- outcome{value: value, err: err}
	}()
	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (e *Executor) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}
