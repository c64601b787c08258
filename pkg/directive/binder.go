package directive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/tools"
)

// Bind turns a directive's raw parameter text into typed arguments for the
// given tool. Unknown names, missing required values, and values that cannot
// coerce to the declared type all fail with their own reason code so the
// failure can be fed back to the model verbatim.
func Bind(raw string, tool tools.Tool) (tools.Args, error) {
	pairs, err := splitPairs(raw)
	if err != nil {
		return nil, err
	}
	args := tools.Args{}
	for _, pair := range pairs {
		key, value, err := splitKeyValue(pair)
		if err != nil {
			return nil, err
		}
		param, ok := tool.Param(key)
		if !ok {
			return nil, errorsx.Wrap(
				fmt.Errorf("tool %q has no parameter %q", tool.Name, key),
				errorsx.ReasonUnknownParameter)
		}
		if _, dup := args[key]; dup {
			return nil, errorsx.Wrap(
				fmt.Errorf("parameter %q given twice", key),
				errorsx.ReasonParse)
		}
		typed, err := coerce(value, param)
		if err != nil {
			return nil, err
		}
		args[key] = typed
	}
	for _, p := range tool.Params {
		if _, ok := args[p.Name]; ok {
			continue
		}
		if p.Default != nil {
			args[p.Name] = p.Default
			continue
		}
		if p.Required {
			return nil, errorsx.Wrap(
				fmt.Errorf("tool %q requires parameter %q", tool.Name, p.Name),
				errorsx.ReasonMissingParameter)
		}
	}
	return args, nil
}

// splitPairs splits on top-level commas, leaving commas inside quotes alone.
func splitPairs(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []string
	var quote byte
	start := 0
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ',':
			out = append(out, raw[start:i])
			start = i + 1
		}
	}
	if quote != 0 {
		return nil, errorsx.Wrap(fmt.Errorf("unterminated quote in parameters"), errorsx.ReasonParse)
	}
	out = append(out, raw[start:])
	return out, nil
}

func splitKeyValue(pair string) (string, string, error) {
	pair = strings.TrimSpace(pair)
	sep := -1
	var quote byte
	for i := 0; i < len(pair); i++ {
		c := pair[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '=', ':':
			sep = i
		}
		if sep >= 0 {
			break
		}
	}
	if sep <= 0 {
		return "", "", errorsx.Wrap(fmt.Errorf("parameter %q is not key=value", pair), errorsx.ReasonParse)
	}
	key := strings.TrimSpace(pair[:sep])
	value := strings.TrimSpace(pair[sep+1:])
	if key == "" {
		return "", "", errorsx.Wrap(fmt.Errorf("parameter %q has empty name", pair), errorsx.ReasonParse)
	}
	return key, value, nil
}

func coerce(value string, param tools.Param) (any, error) {
	unquoted := unquote(value)
	switch param.Type {
	case tools.TypeNumber:
		n, err := strconv.ParseFloat(unquoted, 64)
		if err != nil {
			return nil, typeMismatch(param, value, "number")
		}
		return n, nil
	case tools.TypeBoolean:
		switch strings.ToLower(unquoted) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, typeMismatch(param, value, "boolean")
	}
	return unquoted, nil
}

func typeMismatch(param tools.Param, value, want string) error {
	return errorsx.Wrap(
		fmt.Errorf("parameter %q wants %s, got %q", param.Name, want, value),
		errorsx.ReasonTypeMismatch)
}

// unquote strips one layer of matching single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
