package halo

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "environment: test\n"))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Model.Provider != "ollama" || cfg.Model.Host != "localhost" || cfg.Model.Port != 11434 {
		t.Fatalf("unexpected model defaults %+v", cfg.Model)
	}
	if cfg.Model.Name != "mistral" {
		t.Fatalf("unexpected model name %q", cfg.Model.Name)
	}
	if cfg.Loop.MaxToolIterations != 3 || cfg.Loop.RequestTimeoutMS != 30000 {
		t.Fatalf("unexpected loop defaults %+v", cfg.Loop)
	}
	if cfg.Loop.HealthCheckTimeoutMS != 10000 || cfg.Loop.MaxConcurrentRequests != 5 {
		t.Fatalf("unexpected loop defaults %+v", cfg.Loop)
	}
	if cfg.Context.MaxHistory != 100 || cfg.Context.PruneThreshold != 80 {
		t.Fatalf("unexpected context defaults %+v", cfg.Context)
	}
	if !cfg.Privacy.RedactPII {
		t.Fatal("redaction must default on")
	}
}

func TestLoadConfigOverridesAndEnvExpansion(t *testing.T) {
	t.Setenv("MODEL_HOST", "models.internal")
	cfg, err := LoadConfig(writeConfig(t, `
model:
  host: ${MODEL_HOST}
  name: llama2
loop:
  max_tool_iterations: 5
prompts:
  no_tools: "Custom persona."
`))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Model.Host != "models.internal" {
		t.Fatalf("env not expanded: %q", cfg.Model.Host)
	}
	if cfg.Model.Name != "llama2" || cfg.Loop.MaxToolIterations != 5 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	tpl := cfg.Templates()
	if tpl.NoTools != "Custom persona." {
		t.Fatalf("prompt override not merged: %q", tpl.NoTools)
	}
	if tpl.WithTools == "" {
		t.Fatal("unnamed prompt fields must keep defaults")
	}
}

func TestLoadConfigRejectsBadPruneThreshold(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
context:
  max_history: 10
  prune_threshold: 10
`))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadConfigRejectsMissingModelName(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "model:\n  name: \"\"\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidateDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
