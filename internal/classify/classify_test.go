package classify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/devrecall/devrecall/internal/observe"
)

func editObs(old, new, result string) observe.Observation {
	return observe.NewObservation("Edit", observe.ToolArgs{
		Kind:     observe.ArgsFileEdit,
		FilePath: "src/app.go",
		OldText:  old,
		NewText:  new,
	}, result, false)
}

func plainLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("value %d assigned here", i)
	}
	return strings.Join(lines, "\n")
}

func TestClassify_WriteMeansBuild(t *testing.T) {
	obs := []observe.Observation{
		observe.NewObservation("Write", observe.ToolArgs{
			Kind: observe.ArgsFileWrite, FilePath: "new.go", NewText: "package new",
		}, "created", false),
	}
	if got := Classify(obs); got != IntentBuild {
		t.Errorf("Classify = %s, want build", got)
	}
}

func TestClassify_DebugKeywordWins(t *testing.T) {
	obs := []observe.Observation{
		editObs("a", "b", "fixed the bug in the session handler"),
	}
	if got := Classify(obs); got != IntentDebug {
		t.Errorf("Classify = %s, want debug", got)
	}
}

func TestClassify_DebugKeywordBeatsCreate(t *testing.T) {
	obs := []observe.Observation{
		observe.NewObservation("Write", observe.ToolArgs{
			Kind: observe.ArgsFileWrite, FilePath: "new.go",
		}, "ok", false),
		editObs("a", "b", "error: nil dereference"),
	}
	if got := Classify(obs); got != IntentDebug {
		t.Errorf("Classify = %s, want debug when a debug signal is present", got)
	}
}

func TestClassify_NetDeltaBoundary(t *testing.T) {
	// 15 new lines over 2 old: net +13, strictly greater than 10.
	enhance := []observe.Observation{editObs(plainLines(2), plainLines(15), "ok")}
	if got := Classify(enhance); got != IntentEnhance {
		t.Errorf("net +13: Classify = %s, want enhance", got)
	}

	// 12 new lines over 2 old: net +10, not strictly greater.
	debug := []observe.Observation{editObs(plainLines(2), plainLines(12), "ok")}
	if got := Classify(debug); got != IntentDebug {
		t.Errorf("net +10: Classify = %s, want debug (boundary)", got)
	}
}

func TestClassify_NewFunctionMeansEnhance(t *testing.T) {
	obs := []observe.Observation{
		editObs("x := 1", "x := 1\nfunc helper() int { return x }", "ok"),
	}
	if got := Classify(obs); got != IntentEnhance {
		t.Errorf("Classify = %s, want enhance for a new function", got)
	}
}

func TestClassify_NewElementsMeanEnhance(t *testing.T) {
	obs := []observe.Observation{
		editObs("<p>hi</p>", "<p>hi</p>\n<section>\n<Button label=\"go\"/>\n<Input name=\"q\"/>\n</section>", "ok"),
	}
	if got := Classify(obs); got != IntentEnhance {
		t.Errorf("Classify = %s, want enhance for >=2 new elements", got)
	}
}

func TestClassify_EmptyOrReadOnlyDefaultsToBuild(t *testing.T) {
	if got := Classify(nil); got != IntentBuild {
		t.Errorf("empty: Classify = %s, want build", got)
	}
	readOnly := []observe.Observation{
		observe.NewObservation("Read", observe.ToolArgs{Kind: observe.ArgsUnstructured}, "contents", false),
		observe.NewObservation("Grep", observe.ToolArgs{Kind: observe.ArgsSearch, Query: "x"}, "3 matches", false),
	}
	if got := Classify(readOnly); got != IntentBuild {
		t.Errorf("read-only: Classify = %s, want build", got)
	}
}
