package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// LifecycleRunner drives the engine through start, run, and an ordered drain.
// Run blocks until the context ends or Stop is called; shutdown then walks the
// drain steps in order so the shutdown sequence is visible in the logs rather
// than buried in one opaque callback.
type LifecycleRunner struct {
	state    int32
	ctx      context.Context
	cancel   context.CancelFunc
	onceStop sync.Once
	hooks    Hooks
	steps    []DrainStep
	log      *slog.Logger
	stopErr  error
	timeout  time.Duration
}

func NewLifecycleRunner(steps []DrainStep, hooks Hooks, timeout time.Duration) *LifecycleRunner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LifecycleRunner{
		state:   int32(StateNew),
		ctx:     ctx,
		cancel:  cancel,
		hooks:   hooks,
		steps:   steps,
		timeout: timeout,
	}
}

func (r *LifecycleRunner) Run(ctx context.Context) error {
	if !r.casState(StateNew, StateStarting) {
		return errors.New("invalid state transition")
	}
	PrintBanner()
	if ctx != nil {
		r.ctx, r.cancel = context.WithCancel(ctx)
	}
	if r.hooks.OnStart != nil {
		r.hooks.OnStart()
	}
	r.setState(StateRunning)
	<-r.ctx.Done()
	return r.stop()
}

func (r *LifecycleRunner) Stop() error {
	r.cancel()
	return r.stop()
}

func (r *LifecycleRunner) State() State {
	return State(atomic.LoadInt32(&r.state))
}

// stop drains once. The timeout bounds the whole step sequence, not each step;
// a drain that overruns reports the step it was stuck on.
func (r *LifecycleRunner) stop() error {
	r.onceStop.Do(func() {
		r.setState(StateDraining)
		if len(r.steps) > 0 {
			var current atomic.Value
			current.Store("")
			done := make(chan error, 1)
			go func() { done <- r.drain(&current) }()
			select {
			case err := <-done:
				r.stopErr = err
			case <-time.After(r.timeout):
				r.logger().Error("drain_timeout", "stuck_step", current.Load())
				r.stopErr = errors.New("drain timeout")
			}
		}
		if r.hooks.OnStop != nil {
			r.hooks.OnStop()
		}
		r.setState(StateStopped)
	})
	return r.stopErr
}

func (r *LifecycleRunner) drain(current *atomic.Value) error {
	var firstErr error
	for _, step := range r.steps {
		current.Store(step.Name)
		r.logger().Debug("drain_step", "step", step.Name)
		if step.Run == nil {
			continue
		}
		if err := step.Run(); err != nil {
			r.logger().Warn("drain_step_failed", "step", step.Name, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *LifecycleRunner) logger() *slog.Logger {
	if r.log != nil {
		return r.log
	}
	return slog.Default()
}

func (r *LifecycleRunner) casState(from, to State) bool {
	return atomic.CompareAndSwapInt32(&r.state, int32(from), int32(to))
}

func (r *LifecycleRunner) setState(s State) {
	atomic.StoreInt32(&r.state, int32(s))
}
