package prompt

import (
	"encoding/json"
	"strings"

	"github.com/harunnryd/halo/pkg/tools"
)

// Builder renders system and follow-up prompts from a template set.
type Builder struct {
	tpl Templates
}

// NewBuilder validates the template set before accepting it; a broken set
// must abort setup rather than mislead the model at runtime.
func NewBuilder(tpl Templates) (*Builder, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return &Builder{tpl: tpl}, nil
}

// System renders the system prompt for the current tool set. An override
// replaces the default persona but still advertises registered tools.
func (b *Builder) System(snap *tools.Snapshot, override string) string {
	if override != "" {
		if snap.Empty() {
			return override
		}
		return override + "\n\nAvailable tools:\n" + strings.Join(b.toolLines(snap), "\n")
	}
	if snap.Empty() {
		return b.tpl.NoTools
	}
	return b.tpl.WithTools + "\n\n" +
		b.tpl.Intro + "\n\n" +
		b.tpl.ToolListHeader + "\n" +
		strings.Join(b.toolLines(snap), "\n") + "\n\n" +
		b.tpl.UsageInstructions + "\n" +
		b.tpl.ToolResponse
}

// FollowUp renders the prompt that feeds tool results back to the model.
func (b *Builder) FollowUp(originalText string, results []string) string {
	return "Original request: " + originalText + "\n\n" +
		"Tool results:\n" + strings.Join(results, "\n") + "\n\n" +
		b.tpl.ToolResponse
}

// Templates returns the validated template set.
func (b *Builder) Templates() Templates { return b.tpl }

func (b *Builder) toolLines(snap *tools.Snapshot) []string {
	var lines []string
	for _, t := range snap.Tools() {
		desc := strings.NewReplacer(
			"{name}", t.Name,
			"{description}", t.Description,
		).Replace(b.tpl.ListFormat)
		params := strings.Replace(b.tpl.ParametersFormat, "{params}", paramsJSON(t), 1)
		lines = append(lines, desc+"\n"+params)
	}
	return lines
}

// paramsJSON renders a tool's parameter schema the way the model should echo
// values back: name, type, required flag, and any description or default.
func paramsJSON(t tools.Tool) string {
	schema := map[string]any{}
	for _, p := range t.Params {
		entry := map[string]any{"type": string(p.Type)}
		if p.Required {
			entry["required"] = true
		}
		if p.Description != "" {
			entry["description"] = p.Description
		}
		if p.Default != nil {
			entry["default"] = p.Default
		}
		schema[p.Name] = entry
	}
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}
