package directive

import (
	"testing"

	"github.com/harunnryd/halo/pkg/errorsx"
)

func TestParsePlainText(t *testing.T) {
	inv, plain, err := Parse("The weather is sunny today.")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if inv != nil {
		t.Fatalf("unexpected invocation %+v", inv)
	}
	if plain != "The weather is sunny today." {
		t.Fatalf("unexpected plain text %q", plain)
	}
}

func TestParseDirective(t *testing.T) {
	inv, plain, err := Parse(`Using tool: weather.get_forecast(location="Paris", days=3)`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if inv == nil || inv.Tool != "weather.get_forecast" {
		t.Fatalf("unexpected invocation %+v", inv)
	}
	if inv.RawParams != `location="Paris", days=3` {
		t.Fatalf("unexpected raw params %q", inv.RawParams)
	}
	if plain != "" {
		t.Fatalf("unexpected leading text %q", plain)
	}
}

func TestParseDirectiveWithLeadingText(t *testing.T) {
	inv, plain, err := Parse("Let me check that.\nUsing tool: light.set_state(entity=\"kitchen\", on=true)")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if inv == nil || inv.Tool != "light.set_state" {
		t.Fatalf("unexpected invocation %+v", inv)
	}
	if plain != "Let me check that." {
		t.Fatalf("unexpected leading text %q", plain)
	}
}

func TestParseFirstDirectiveWins(t *testing.T) {
	text := "Using tool: a(x=1)\nUsing tool: b(y=2)"
	inv, _, err := Parse(text)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if inv.Tool != "a" || inv.RawParams != "x=1" {
		t.Fatalf("expected first directive, got %+v", inv)
	}
}

func TestParseQuotedParenthesis(t *testing.T) {
	inv, _, err := Parse(`Using tool: media.play(title="Intro (live)")`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if inv.RawParams != `title="Intro (live)"` {
		t.Fatalf("unexpected raw params %q", inv.RawParams)
	}
}

func TestParseEmptyParams(t *testing.T) {
	inv, _, err := Parse("Using tool: climate.get_temperature()")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if inv.Tool != "climate.get_temperature" || inv.RawParams != "" {
		t.Fatalf("unexpected invocation %+v", inv)
	}
}

func TestParseMissingCloseParen(t *testing.T) {
	_, _, err := Parse(`Using tool: weather.get_forecast(location="Paris"`)
	if !errorsx.HasReason(err, errorsx.ReasonParse) {
		t.Fatalf("expected parse reason, got %v", err)
	}
}

func TestParseMissingOpenParen(t *testing.T) {
	_, _, err := Parse("Using tool: weather.get_forecast")
	if !errorsx.HasReason(err, errorsx.ReasonParse) {
		t.Fatalf("expected parse reason, got %v", err)
	}
}

func TestParseMissingName(t *testing.T) {
	_, _, err := Parse("Using tool: (x=1)")
	if !errorsx.HasReason(err, errorsx.ReasonParse) {
		t.Fatalf("expected parse reason, got %v", err)
	}
}

func TestParseNewlineBeforeClose(t *testing.T) {
	_, _, err := Parse("Using tool: a(x=1\n)")
	if !errorsx.HasReason(err, errorsx.ReasonParse) {
		t.Fatalf("expected parse reason, got %v", err)
	}
}
