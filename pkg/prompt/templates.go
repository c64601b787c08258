package prompt

import (
	"fmt"
	"strings"

	"github.com/harunnryd/halo/pkg/directive"
	"github.com/harunnryd/halo/pkg/errorsx"
)

// Templates holds every customizable prompt fragment. Zero-value fields fall
// back to the defaults at render time, so a config only overrides what it
// names.
type Templates struct {
	NoTools               string `mapstructure:"no_tools"`
	WithTools             string `mapstructure:"with_tools"`
	Intro                 string `mapstructure:"intro"`
	ToolListHeader        string `mapstructure:"tool_list_header"`
	ListFormat            string `mapstructure:"list_format"`
	UsageInstructions     string `mapstructure:"usage_instructions"`
	ToolResponse          string `mapstructure:"tool_response"`
	ParametersFormat      string `mapstructure:"parameters_format"`
	ErrorFormat           string `mapstructure:"error_format"`
	SuccessAcknowledgment string `mapstructure:"success_acknowledgment"`
	OutputPrefix          string `mapstructure:"output_prefix"`
	OutputSuffix          string `mapstructure:"output_suffix"`
}

// DefaultTemplates returns the built-in prompt set.
func DefaultTemplates() Templates {
	return Templates{
		NoTools:               "You are a helpful home assistant designed to help users with their smart home needs. Provide clear, concise responses that are accurate and relevant to the user's requests.",
		WithTools:             "You are a helpful home assistant with access to tools that can control and monitor smart home devices. Use these tools when appropriate to help users accomplish their tasks.",
		Intro:                 "You have access to tools for interacting with the smart home:",
		ToolListHeader:        "Available Tools:",
		ListFormat:            "{name}: {description}",
		UsageInstructions:     "To use a tool, respond with: 'Using tool: <tool_name>(<parameters>)'",
		ToolResponse:          "After using tools, provide a natural response incorporating the results.",
		ParametersFormat:      "Parameters: {params}",
		ErrorFormat:           "I encountered an error while trying to help: {error}",
		SuccessAcknowledgment: "I've completed that action successfully.",
	}
}

// Merge overlays non-empty override fields on top of t.
func (t Templates) Merge(over Templates) Templates {
	apply := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	apply(&t.NoTools, over.NoTools)
	apply(&t.WithTools, over.WithTools)
	apply(&t.Intro, over.Intro)
	apply(&t.ToolListHeader, over.ToolListHeader)
	apply(&t.ListFormat, over.ListFormat)
	apply(&t.UsageInstructions, over.UsageInstructions)
	apply(&t.ToolResponse, over.ToolResponse)
	apply(&t.ParametersFormat, over.ParametersFormat)
	apply(&t.ErrorFormat, over.ErrorFormat)
	apply(&t.SuccessAcknowledgment, over.SuccessAcknowledgment)
	apply(&t.OutputPrefix, over.OutputPrefix)
	apply(&t.OutputSuffix, over.OutputSuffix)
	return t
}

// Validate rejects template sets that would break rendering or teach the
// model an invocation form the parser cannot read. Prefix and suffix may be
// empty; every other key is required.
func (t Templates) Validate() error {
	required := []struct {
		field, value string
	}{
		{"no_tools", t.NoTools},
		{"with_tools", t.WithTools},
		{"intro", t.Intro},
		{"tool_list_header", t.ToolListHeader},
		{"list_format", t.ListFormat},
		{"usage_instructions", t.UsageInstructions},
		{"tool_response", t.ToolResponse},
		{"parameters_format", t.ParametersFormat},
		{"error_format", t.ErrorFormat},
		{"success_acknowledgment", t.SuccessAcknowledgment},
	}
	for _, c := range required {
		if strings.TrimSpace(c.value) == "" {
			return errorsx.Wrap(
				fmt.Errorf("template %s must not be empty", c.field),
				errorsx.ReasonTemplate)
		}
	}
	checks := []struct {
		field, value, placeholder string
	}{
		{"list_format", t.ListFormat, "{name}"},
		{"list_format", t.ListFormat, "{description}"},
		{"parameters_format", t.ParametersFormat, "{params}"},
		{"error_format", t.ErrorFormat, "{error}"},
	}
	for _, c := range checks {
		if !strings.Contains(c.value, c.placeholder) {
			return errorsx.Wrap(
				fmt.Errorf("template %s must contain %s", c.field, c.placeholder),
				errorsx.ReasonTemplate)
		}
	}
	if !strings.Contains(t.UsageInstructions, strings.TrimSpace(directive.Keyword)) {
		return errorsx.Wrap(
			fmt.Errorf("template usage_instructions must teach the %q marker", strings.TrimSpace(directive.Keyword)),
			errorsx.ReasonTemplate)
	}
	return nil
}
