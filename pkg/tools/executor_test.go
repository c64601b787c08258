package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harunnryd/halo/pkg/errorsx"
)

func TestExecuteSuccess(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Tool{
		Name: "climate.get_temperature",
		Handler: func(ctx context.Context, args Args) (string, error) {
			return "21.5", nil
		},
	})
	res := NewExecutor(time.Second).Execute(context.Background(), r.Snapshot(), "climate.get_temperature", Args{})
	if !res.OK || res.Value != "21.5" || res.Status != StatusOK {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	res := NewExecutor(time.Second).Execute(context.Background(), r.Snapshot(), "nope", Args{})
	if res.OK {
		t.Fatal("expected failure")
	}
	if !errorsx.HasReason(res.Err, errorsx.ReasonUnknownTool) {
		t.Fatalf("expected unknown_tool reason, got %v", res.Err)
	}
}

func TestExecuteHandlerError(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Tool{
		Name: "media.play",
		Handler: func(ctx context.Context, args Args) (string, error) {
			return "", errors.New("device offline")
		},
	})
	res := NewExecutor(time.Second).Execute(context.Background(), r.Snapshot(), "media.play", Args{})
	if res.OK || res.Status != StatusError {
		t.Fatalf("unexpected result %+v", res)
	}
	if !errorsx.HasReason(res.Err, errorsx.ReasonToolExecution) {
		t.Fatalf("expected tool_execution reason, got %v", res.Err)
	}
}

func TestExecutePanicIsolated(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Tool{
		Name: "boom",
		Handler: func(ctx context.Context, args Args) (string, error) {
			panic("handler bug")
		},
	})
	res := NewExecutor(time.Second).Execute(context.Background(), r.Snapshot(), "boom", Args{})
	if res.OK {
		t.Fatal("expected failure")
	}
	if !errorsx.HasReason(res.Err, errorsx.ReasonToolExecution) {
		t.Fatalf("expected tool_execution reason, got %v", res.Err)
	}
}

func TestExecuteTimeout(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Tool{
		Name: "slow",
		Handler: func(ctx context.Context, args Args) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return "late", nil
			}
		},
	})
	res := NewExecutor(10 * time.Millisecond).Execute(context.Background(), r.Snapshot(), "slow", Args{})
	if res.OK || res.Status != StatusTimeout {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestExecuteCancellation(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Tool{
		Name: "waits",
		Handler: func(ctx context.Context, args Args) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	res := NewExecutor(time.Minute).Execute(ctx, r.Snapshot(), "waits", Args{})
	if res.OK {
		t.Fatal("expected failure")
	}
	if !errorsx.HasReason(res.Err, errorsx.ReasonCancelled) {
		t.Fatalf("expected cancelled reason, got %v", res.Err)
	}
}
