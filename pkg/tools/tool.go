package tools

import (
	"context"
	"fmt"
	"regexp"
)

// ParamType is the set of value types a tool parameter may declare.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
)

// Param describes a single named tool parameter.
type Param struct {
	Name        string
	Type        ParamType
	Required    bool
	Default     any
	Description string
}

// Args holds bound parameter values keyed by parameter name. Values are
// string, float64, or bool depending on the declared type.
type Args map[string]any

// Handler runs a tool invocation and returns its textual result.
type Handler func(ctx context.Context, args Args) (string, error)

// Tool couples a dotted name with its parameter schema and handler.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
}

var namePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// Validate rejects tools the registry must not accept.
func (t Tool) Validate() error {
	if !namePattern.MatchString(t.Name) {
		return fmt.Errorf("invalid tool name %q", t.Name)
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q has no handler", t.Name)
	}
	seen := map[string]bool{}
	for _, p := range t.Params {
		if p.Name == "" {
			return fmt.Errorf("tool %q has an unnamed parameter", t.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("tool %q declares parameter %q twice", t.Name, p.Name)
		}
		seen[p.Name] = true
		switch p.Type {
		case TypeString, TypeNumber, TypeBoolean:
		default:
			return fmt.Errorf("tool %q parameter %q has unknown type %q", t.Name, p.Name, p.Type)
		}
	}
	return nil
}

// Param looks up a declared parameter by name.
func (t Tool) Param(name string) (Param, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}
