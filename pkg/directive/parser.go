package directive

import (
	"fmt"
	"strings"

	"github.com/harunnryd/halo/pkg/errorsx"
)

// Keyword marks a tool invocation in model output. The system prompt teaches
// the model this exact form, so the marker and the parser must agree.
const Keyword = "Using tool: "

// Invocation is one parsed directive before argument binding.
type Invocation struct {
	Tool      string
	RawParams string
}

// Parse scans model output for the first tool directive. It returns the
// invocation (nil when the text is a plain answer) and the text preceding the
// directive, trimmed. Later directives in the same reply are ignored; the
// model gets one call per turn.
func Parse(text string) (*Invocation, string, error) {
	idx := strings.Index(text, Keyword)
	if idx < 0 {
		return nil, strings.TrimSpace(text), nil
	}
	lead := strings.TrimSpace(text[:idx])
	rest := text[idx+len(Keyword):]

	name, after, err := scanName(rest)
	if err != nil {
		return nil, lead, err
	}
	raw, err := scanParams(after, name)
	if err != nil {
		return nil, lead, err
	}
	return &Invocation{Tool: name, RawParams: raw}, lead, nil
}

func scanName(s string) (string, string, error) {
	end := 0
	for end < len(s) && isNameChar(s[end], end == 0) {
		end++
	}
	if end == 0 {
		return "", "", errorsx.Wrap(fmt.Errorf("directive has no tool name"), errorsx.ReasonParse)
	}
	name := s[:end]
	rest := strings.TrimLeft(s[end:], " \t")
	if !strings.HasPrefix(rest, "(") {
		return "", "", errorsx.Wrap(fmt.Errorf("directive for %q missing opening parenthesis", name), errorsx.ReasonParse)
	}
	return name, rest[1:], nil
}

// scanParams consumes up to the closing parenthesis, honoring quotes so
// parentheses inside quoted values do not terminate the scan.
func scanParams(s, name string) (string, error) {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ')':
			return strings.TrimSpace(s[:i]), nil
		case c == '\n':
			return "", errorsx.Wrap(fmt.Errorf("directive for %q not closed before end of line", name), errorsx.ReasonParse)
		}
	}
	return "", errorsx.Wrap(fmt.Errorf("directive for %q missing closing parenthesis", name), errorsx.ReasonParse)
}

func isNameChar(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		return true
	case !first && (c >= '0' && c <= '9' || c == '.'):
		return true
	}
	return false
}
