package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/llm"
)

func newTestClient(srv *httptest.Server) *Client {
	return &Client{BaseURL: srv.URL + "/api", HTTP: srv.Client()}
}

func TestGenerateReturnsResponseField(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "sunny, 22 degrees"})
	}))
	defer srv.Close()

	reply, err := newTestClient(srv).Generate(context.Background(), llm.Request{
		Model:  "mistral",
		System: "you are a home assistant",
		Prompt: "what is the weather",
	})
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if reply.Text != "sunny, 22 degrees" {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
	if captured["stream"] != false {
		t.Fatalf("expected stream=false, got %v", captured["stream"])
	}
	if captured["system"] != "you are a home assistant" {
		t.Fatalf("system prompt not forwarded: %v", captured["system"])
	}
}

func TestGenerateMapsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), llm.Request{Model: "mistral", Prompt: "hi"})
	if !errorsx.HasReason(err, errorsx.ReasonAuth) {
		t.Fatalf("expected auth reason, got %v (%s)", err, errorsx.Reason(err))
	}
}

func TestGenerateMapsRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), llm.Request{Model: "mistral", Prompt: "hi"})
	if !errorsx.HasReason(err, errorsx.ReasonRateLimit) {
		t.Fatalf("expected rate_limit reason, got %v (%s)", err, errorsx.Reason(err))
	}
}

func TestGenerateMapsConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := &Client{BaseURL: srv.URL + "/api"}
	_, err := c.Generate(context.Background(), llm.Request{Model: "mistral", Prompt: "hi"})
	if !errorsx.HasReason(err, errorsx.ReasonConnection) {
		t.Fatalf("expected connection reason, got %v (%s)", err, errorsx.Reason(err))
	}
}

func TestPingAndModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/version":
			_ = json.NewEncoder(w).Encode(map[string]string{"version": "0.5.0"})
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]string{{"name": "mistral"}, {"name": "llama2"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping error: %v", err)
	}
	models, err := c.Models(context.Background())
	if err != nil {
		t.Fatalf("models error: %v", err)
	}
	if strings.Join(models, ",") != "mistral,llama2" {
		t.Fatalf("unexpected models %v", models)
	}
}

func TestGenerateMapsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(srv).Generate(ctx, llm.Request{Model: "mistral", Prompt: "hi"})
	if !errorsx.HasReason(err, errorsx.ReasonCancelled) {
		t.Fatalf("expected cancelled reason, got %v (%s)", err, errorsx.Reason(err))
	}
}
