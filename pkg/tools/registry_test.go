package tools

import (
	"context"
	"testing"
)

func noopHandler(ctx context.Context, args Args) (string, error) { return "", nil }

func TestRegisterRejectsInvalidName(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Tool{Name: "1bad", Handler: noopHandler})
	if err == nil {
		t.Fatal("expected error for invalid name")
	}
	err = r.Register(Tool{Name: "weather get", Handler: noopHandler})
	if err == nil {
		t.Fatal("expected error for name with space")
	}
}

func TestRegisterAcceptsDottedName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Tool{Name: "weather.get_forecast", Handler: noopHandler}); err != nil {
		t.Fatalf("register error: %v", err)
	}
	if _, ok := r.Snapshot().Lookup("weather.get_forecast"); !ok {
		t.Fatal("tool not found after register")
	}
}

func TestRegisterReplacesSameName(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Tool{Name: "light.set_state", Description: "first", Handler: noopHandler})
	_ = r.Register(Tool{Name: "light.set_state", Description: "second", Handler: noopHandler})
	tool, _ := r.Snapshot().Lookup("light.set_state")
	if tool.Description != "second" {
		t.Fatalf("expected replacement, got %q", tool.Description)
	}
	if r.Snapshot().Len() != 1 {
		t.Fatalf("expected 1 tool, got %d", r.Snapshot().Len())
	}
}

func TestSnapshotIsStableAcrossRegistration(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Tool{Name: "a", Handler: noopHandler})
	snap := r.Snapshot()
	_ = r.Register(Tool{Name: "b", Handler: noopHandler})
	if snap.Len() != 1 {
		t.Fatalf("old snapshot mutated: %d tools", snap.Len())
	}
	if r.Snapshot().Len() != 2 {
		t.Fatalf("new snapshot missing tool: %d", r.Snapshot().Len())
	}
}

func TestToolsOrderedByName(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Tool{Name: "zeta", Handler: noopHandler})
	_ = r.Register(Tool{Name: "alpha", Handler: noopHandler})
	list := r.Snapshot().Tools()
	if len(list) != 2 || list[0].Name != "alpha" || list[1].Name != "zeta" {
		t.Fatalf("unexpected order: %v", list)
	}
}

func TestValidateRejectsDuplicateParams(t *testing.T) {
	tool := Tool{
		Name:    "x",
		Handler: noopHandler,
		Params: []Param{
			{Name: "a", Type: TypeString},
			{Name: "a", Type: TypeNumber},
		},
	}
	if err := tool.Validate(); err == nil {
		t.Fatal("expected duplicate param error")
	}
}
