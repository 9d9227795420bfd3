// Package classify derives a session's working intent from its observation
// sequence. The intent selects which fallback template the synchronous
// extraction path uses when the oracle is unavailable.
package classify

import (
	"regexp"
	"strings"

	"github.com/devrecall/devrecall/internal/observe"
)

// Intent is the rule-based classification of a session's activity.
type Intent string

const (
	IntentBuild   Intent = "build"
	IntentDebug   Intent = "debug"
	IntentEnhance Intent = "enhance"
)

// Thresholds for the enhancement score. Net line delta must be strictly
// greater than enhanceLineDelta; a single new function or two new markup
// elements also qualify.
const (
	enhanceLineDelta   = 10
	enhanceNewFuncs    = 1
	enhanceNewElements = 2
)

// debugKeywords is the vocabulary matched against edit result text.
var debugKeywords = []string{
	"error", "bug", "fix", "fail", "crash", "exception", "panic",
	"broken", "undefined", "traceback", "stack trace", "segfault",
	"not working", "issue",
}

var (
	funcDefPattern = regexp.MustCompile(`(?m)^\s*(func\s+\w|def\s+\w|function\s+\w|const\s+\w+\s*=\s*(\(|async)|\w+\s*\([^)]*\)\s*\{\s*$)`)
	elementPattern = regexp.MustCompile(`<[A-Za-z][A-Za-z0-9-]*[\s/>]`)
)

// Classify maps an observation sequence to an intent.
//
// File creations with no debug signal mean new work is being built. Edits
// whose results mention failures mean debugging. Remaining edits are scored
// by how much they grow the file: net line delta, new function definitions,
// new markup elements. Small edits that clear none of the bars are treated
// as debugging touch-ups. An empty or read-only buffer defaults to build.
func Classify(observations []observe.Observation) Intent {
	var edits []observe.Observation
	hasCreate := false
	debugSignal := false

	for _, obs := range observations {
		switch obs.Args.Kind {
		case observe.ArgsFileWrite:
			hasCreate = true
		case observe.ArgsFileEdit:
			edits = append(edits, obs)
			if matchesDebugVocab(obs.Result) {
				debugSignal = true
			}
		}
	}

	if hasCreate && !debugSignal {
		return IntentBuild
	}
	if debugSignal {
		return IntentDebug
	}
	if len(edits) == 0 {
		return IntentBuild
	}

	netDelta, newFuncs, newElements := 0, 0, 0
	for _, e := range edits {
		netDelta += lineCount(e.Args.NewText) - lineCount(e.Args.OldText)
		newFuncs += countDelta(funcDefPattern, e.Args.NewText, e.Args.OldText)
		newElements += countDelta(elementPattern, e.Args.NewText, e.Args.OldText)
	}

	if netDelta > enhanceLineDelta || newFuncs >= enhanceNewFuncs || newElements >= enhanceNewElements {
		return IntentEnhance
	}
	return IntentDebug
}

func matchesDebugVocab(result string) bool {
	lower := strings.ToLower(result)
	for _, kw := range debugKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

func countDelta(re *regexp.Regexp, newText, oldText string) int {
	d := len(re.FindAllString(newText, -1)) - len(re.FindAllString(oldText, -1))
	if d < 0 {
		return 0
	}
	return d
}
