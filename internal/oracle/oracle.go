// Package oracle wraps the external text-completion service the extraction
// and dedup engines consult. The contract is deliberately loose: Ask takes
// a prompt and returns free text which may or may not contain JSON. Call
// sites extract the first balanced JSON substring and treat any failure as
// "no answer" — an unreachable or rambling oracle degrades behavior, it
// never breaks it.
package oracle

import (
	"context"
	"strings"
)

// Oracle is the request/response interface to the completion service.
type Oracle interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// ExtractJSONBlock returns the first balanced {...} or [...] substring of
// text, with markdown code fences stripped first. Returns "" when no
// balanced block exists.
//
// Taking the first brace-delimited substring from prose is fragile — an
// unrelated {...} would parse and pass silently — but replies in the wild
// wrap their JSON in explanations and fences, so the lenient scan stays.
func ExtractJSONBlock(text string) string {
	text = stripFences(text)

	start := -1
	for i, r := range text {
		if r == '{' || r == '[' {
			start = i
			break
		}
	}
	if start == -1 {
		return ""
	}

	open := text[start]
	closer := byte(']')
	if open == '{' {
		closer = '}'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// string contents are opaque
		case c == open:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// stripFences removes markdown code fences around a reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
