package configutil

import (
	"strings"
	"testing"
)

func TestValidateSettingsAccepts(t *testing.T) {
	err := ValidateSettings(map[string]any{
		"api_key":  "sk-123",
		"Base-URL": "https://example.test",
	}, Schema{
		Required: []string{"api_key"},
		Optional: []string{"base_url"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateSettingsMissingRequired(t *testing.T) {
	err := ValidateSettings(map[string]any{"api_key": "  "}, Schema{
		Required: []string{"api_key"},
	})
	if err == nil || !strings.Contains(err.Error(), "missing: api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateSettingsUnknownKey(t *testing.T) {
	err := ValidateSettings(map[string]any{"extra": 1}, Schema{
		Optional: []string{"base_url"},
	})
	if err == nil || !strings.Contains(err.Error(), "unknown: extra") {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateSettings(map[string]any{"extra": 1}, Schema{AllowUnknown: true}); err != nil {
		t.Fatalf("AllowUnknown must accept extras: %v", err)
	}
}
