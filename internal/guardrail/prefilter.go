package guardrail

import (
	"regexp"
	"strings"
	"unicode"
)

// prefilterResult contains details about detected policy violations.
type prefilterResult struct {
	Safe     bool     // True if no patterns detected
	Patterns []string // Detected patterns (empty if safe)
}

// prefilter detects prompt-injection attempts with regex patterns before any
// moderation model is consulted. It is a first line of defense; sophisticated
// attacks may bypass it, which is why the model verdict runs afterwards.
//
// Known limitation: homoglyph attacks are not detected. Attackers can use
// visually similar Unicode characters to bypass pattern matching; full
// normalization requires a Unicode confusables mapping.
type prefilter struct {
	patterns []*regexp.Regexp
}

// newPrefilter creates a prefilter with default patterns.
func newPrefilter() *prefilter {
	patterns := []string{
		// System prompt override attempts
		`(?i)ignore\s+(all\s+)?(previous|above|prior)\s+(instructions?|prompts?|rules?)`,
		`(?i)disregard\s+(all\s+)?(previous|above|prior)\s+(instructions?|prompts?)`,
		`(?i)forget\s+(all\s+)?(previous|above|prior)\s+(instructions?|context)`,
		`(?i)override\s+(all\s+)?(previous|above|prior)\s+(instructions?|rules?)`,

		// Role-playing attacks
		`(?i)^(pretend|act|behave|imagine)\s+(you\s+are|to\s+be|as\s+if|like)`,
		`(?i)^you\s+are\s+now\s+a`,
		`(?i)^from\s+now\s+on,?\s+you\s+(are|will|must)`,

		// Instruction injection
		`(?i)^\s*(important|critical|urgent|system)\s*:\s*`,
		`(?i)^new\s+(instruction|task|rule)\s*:`,
		`(?i)^admin\s*(mode|override|command)\s*:`,

		// Delimiter manipulation
		`(?i)\]\s*\[\s*(system|assistant|instruction)`,
		`(?i)</?(system|instruction|prompt)>`,
		`(?i)---+\s*(system|new\s+instruction)`,

		// Jailbreak attempts
		`(?i)do\s+anything\s+now`,
		`(?i)jailbreak`,
		`(?i)bypass\s+(safety|filter|restrictions?)`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		}
	}

	return &prefilter{patterns: compiled}
}

// check matches input against the injection patterns.
func (f *prefilter) check(input string) prefilterResult {
	normalized := normalizeInput(input)

	var detected []string
	for _, re := range f.patterns {
		if re.MatchString(normalized) {
			detected = append(detected, re.String())
		}
	}

	return prefilterResult{
		Safe:     len(detected) == 0,
		Patterns: detected,
	}
}

// normalizeInput prepares input for pattern matching: strips zero-width and
// combining characters that could evade detection and collapses whitespace.
func normalizeInput(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsSpace(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
