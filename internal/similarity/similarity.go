// Package similarity implements the text-similarity measures used by the
// deduplication engine and guide lookup.
//
// Both measures operate on word sets built from lower-cased,
// punctuation-stripped, whitespace-tokenized text. Short tokens and a fixed
// stop-word list are filtered out so that tool/session boilerplate shared by
// unrelated entries does not inflate scores.
package similarity

import (
	"strings"
	"unicode"
)

// stopWords are tokens that appear in nearly every captured entry
// (tool names, session phrasing, task filler) and carry no signal.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"was": {}, "were": {}, "are": {}, "from": {}, "into": {}, "when": {},
	"then": {}, "than": {}, "have": {}, "has": {}, "had": {}, "not": {},
	"but": {}, "all": {}, "can": {}, "will": {}, "would": {}, "should": {},
	"file": {}, "files": {}, "code": {}, "session": {}, "tool": {},
	"task": {}, "user": {}, "using": {}, "used": {}, "use": {},
	"new": {}, "added": {}, "add": {}, "update": {}, "updated": {},
	"change": {}, "changed": {}, "changes": {}, "fix": {}, "fixed": {},
	"work": {}, "working": {}, "now": {}, "also": {}, "some": {},
}

// Tokenize splits text into a filtered word set: lower-cased, punctuation
// stripped, tokens of length <= 2 and stop words removed.
func Tokenize(text string) map[string]struct{} {
	return tokenize(text, false)
}

// tokenize optionally splits camelCase/PascalCase identifiers into their
// component words before filtering. Identifier splitting is only used for
// the overlap coefficient — see Overlap for why Jaccard excludes it.
func tokenize(text string, splitIdentifiers bool) map[string]struct{} {
	set := make(map[string]struct{})

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	add := func(w string) {
		w = strings.ToLower(w)
		if len(w) <= 2 {
			return
		}
		if _, stop := stopWords[w]; stop {
			return
		}
		set[w] = struct{}{}
	}

	for _, w := range words {
		if splitIdentifiers {
			for _, part := range splitCamel(w) {
				add(part)
			}
		} else {
			add(w)
		}
	}
	return set
}

// splitCamel breaks camelCase and PascalCase identifiers into words.
// "parseHTTPResponse" -> ["parse", "HTTP", "Response"].
func splitCamel(s string) []string {
	var parts []string
	runes := []rune(s)
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) &&
			i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// End of an acronym run: "HTTPServer" -> "HTTP" | "Server"
			boundary = true
		case unicode.IsDigit(prev) != unicode.IsDigit(cur):
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}

// Jaccard returns |A∩B| / |A∪B| over the filtered word sets of a and b.
// Symmetric; 0 if either set is empty. Used for comparable-length dedup
// where the union-size penalty is the point: a short candidate should not
// match a long entry just because it is contained in it.
func Jaccard(a, b string) float64 {
	return jaccardSets(Tokenize(a), Tokenize(b))
}

func jaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Overlap returns the overlap coefficient |A∩B| / min(|A|,|B|), computed
// after additionally splitting camelCase/PascalCase identifiers.
//
// It tolerates large length differences: a 6-word query fully contained in
// a 90-word stored guide scores 1.0 here where Jaccard would bury it.
// Identifier splitting stays out of Jaccard on purpose — unrelated projects
// share common identifier fragments ("get", "handler", "config") and
// splitting would inflate dedup similarity between them.
func Overlap(query, document string) float64 {
	a := tokenize(query, true)
	b := tokenize(document, true)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	min := len(a)
	if len(b) < min {
		min = len(b)
	}
	return float64(inter) / float64(min)
}
