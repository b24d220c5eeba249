// Package security provides input heuristics for the chat boundary.
package security

import (
	"regexp"
	"strings"
	"unicode"
)

// PromptInjectionResult contains details about detected injection attempts.
type PromptInjectionResult struct {
	Safe     bool     // true if no injection indicators matched
	Patterns []string // matched patterns (empty if safe)
}

// PromptValidator detects prompt-injection style instructions in user input.
//
// No filter is perfect; this catches common indicator phrases as a first
// line of defense. The prompt composer's trust-boundary block is the second.
type PromptValidator struct {
	patterns []*regexp.Regexp
}

// NewPromptValidator creates a PromptValidator with the default indicators.
func NewPromptValidator() *PromptValidator {
	patterns := []string{
		`(?i)ignore\s+previous\s+instructions`,
		`(?i)act\s+as\s+system`,
		`(?i)override\s+system\s+prompt`,
		`(?i)reveal\s+system\s+prompt`,
		`(?i)show\s+me\s+your\s+instructions`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		}
	}

	return &PromptValidator{patterns: compiled}
}

// Validate checks input for prompt-injection indicators.
func (v *PromptValidator) Validate(input string) PromptInjectionResult {
	normalized := normalizeInput(input)

	var detected []string
	for _, re := range v.patterns {
		if re.MatchString(normalized) {
			detected = append(detected, re.String())
		}
	}

	return PromptInjectionResult{
		Safe:     len(detected) == 0,
		Patterns: detected,
	}
}

// IsSafe reports whether no indicators matched.
func (v *PromptValidator) IsSafe(input string) bool {
	return v.Validate(input).Safe
}

// normalizeInput prepares input for matching: strips zero-width and format
// characters that could evade detection and collapses all whitespace runs
// to single spaces.
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
