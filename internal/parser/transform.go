package parser

import (
	"fmt"
	"strings"
)

// LineTransformer rewrites one line of raw XMI text before projection.
// Transformers are pure and run in order; an error aborts the load.
type LineTransformer interface {
	Transform(line string) (string, error)
}

// TransformFunc adapts a function to LineTransformer.
type TransformFunc func(line string) (string, error)

// Transform implements LineTransformer.
func (f TransformFunc) Transform(line string) (string, error) {
	return f(line)
}

// Replacement is one literal old -> new substitution.
type Replacement struct {
	Old string `json:"old" mapstructure:"old"`
	New string `json:"new" mapstructure:"new"`
}

// Replace returns a transformer substituting every occurrence of old by new.
func Replace(old, new string) LineTransformer {
	return TransformFunc(func(line string) (string, error) {
		return strings.ReplaceAll(line, old, new), nil
	})
}

// Replacements returns one Replace transformer per pair, in order.
func Replacements(rs []Replacement) []LineTransformer {
	out := make([]LineTransformer, 0, len(rs))
	for _, r := range rs {
		if r.Old == "" {
			continue
		}
		out = append(out, Replace(r.Old, r.New))
	}
	return out
}

// StripInvalidChars drops characters that XML 1.0 does not allow, such as the
// vertical tab some modelling tools write into notes.
func StripInvalidChars() LineTransformer {
	return TransformFunc(func(line string) (string, error) {
		return strings.Map(func(r rune) rune {
			switch {
			case r == '\t', r == '\n', r == '\r':
				return r
			case r < 0x20, r == 0xFFFE, r == 0xFFFF:
				return -1
			case r >= 0xD800 && r <= 0xDFFF:
				return -1
			}
			return r
		}, line), nil
	})
}

// applyTransformers runs ts over every line of text.
func applyTransformers(text string, ts []LineTransformer) (string, error) {
	if len(ts) == 0 {
		return text, nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for _, t := range ts {
			out, err := t.Transform(line)
			if err != nil {
				return "", fmt.Errorf("line %d: %w", i+1, err)
			}
			line = out
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n"), nil
}
