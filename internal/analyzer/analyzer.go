// Package analyzer produces human-readable structural summaries of file
// contents for the rule-based extraction path. Dispatch is table-driven by
// file extension; each entry is a pure content -> (summary, tags) function
// so analyzers can be tested and extended without touching the dedup or
// flush core.
package analyzer

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Insight is the analysis result for one file: a short summary of what the
// content declares, and tags describing its nature. An empty summary is a
// legitimate result — not every file has something to say.
type Insight struct {
	Summary string
	Tags    []string
}

// analyzeFunc is one table entry: pure function from content to insight.
type analyzeFunc func(content string) Insight

// table maps file extensions to their analyzer. Extensions not present
// fall through to the generic analyzer.
var table = map[string]analyzeFunc{
	".go":   analyzeGo,
	".js":   analyzeJS,
	".jsx":  analyzeJS,
	".ts":   analyzeJS,
	".tsx":  analyzeJS,
	".py":   analyzePython,
	".md":   analyzeMarkdown,
	".json": analyzeConfigFile,
	".yaml": analyzeConfigFile,
	".yml":  analyzeConfigFile,
	".toml": analyzeConfigFile,
	".sql":  analyzeSQL,
}

// Analyze dispatches on the file's extension and returns its insight.
func Analyze(filePath, content string) Insight {
	ext := strings.ToLower(filepath.Ext(filePath))
	if fn, ok := table[ext]; ok {
		return fn(content)
	}
	return analyzeGeneric(content)
}

// ─── Per-language analyzers ──────────────────────────────────────────────────

var (
	goFuncPattern   = regexp.MustCompile(`(?m)^func\s+(\(\s*\w+\s+\*?\w+\s*\)\s*)?(\w+)`)
	goTypePattern   = regexp.MustCompile(`(?m)^type\s+(\w+)\s+(struct|interface)`)
	goTestPattern   = regexp.MustCompile(`(?m)^func\s+Test(\w+)`)
	jsFuncPattern   = regexp.MustCompile(`(?m)(?:^|\s)(?:function\s+(\w+)|const\s+(\w+)\s*=\s*(?:async\s*)?\()`)
	jsClassPattern  = regexp.MustCompile(`(?m)class\s+(\w+)`)
	jsExportPattern = regexp.MustCompile(`(?m)^export\s`)
	pyDefPattern    = regexp.MustCompile(`(?m)^(?:\s*)def\s+(\w+)`)
	pyClassPattern  = regexp.MustCompile(`(?m)^class\s+(\w+)`)
	mdHeadPattern   = regexp.MustCompile(`(?m)^#{1,3}\s+(.+)`)
	sqlStmtPattern  = regexp.MustCompile(`(?im)^\s*(CREATE TABLE|CREATE INDEX|ALTER TABLE|DROP TABLE)\s+(?:IF (?:NOT )?EXISTS\s+)?([\w.]+)`)
)

func analyzeGo(content string) Insight {
	var parts []string
	tags := []string{"go"}

	if tests := goTestPattern.FindAllStringSubmatch(content, -1); len(tests) > 0 {
		parts = append(parts, fmt.Sprintf("%d test functions (%s)", len(tests), firstNames(tests, 1, 3)))
		tags = append(tags, "tests")
	} else if funcs := goFuncPattern.FindAllStringSubmatch(content, -1); len(funcs) > 0 {
		parts = append(parts, fmt.Sprintf("%d functions (%s)", len(funcs), firstNames(funcs, 2, 3)))
	}
	if types := goTypePattern.FindAllStringSubmatch(content, -1); len(types) > 0 {
		parts = append(parts, fmt.Sprintf("%d types (%s)", len(types), firstNames(types, 1, 3)))
	}
	if strings.Contains(content, "go func(") || strings.Contains(content, "chan ") {
		tags = append(tags, "concurrency")
	}

	return Insight{Summary: strings.Join(parts, "; "), Tags: tags}
}

func analyzeJS(content string) Insight {
	var parts []string
	tags := []string{"javascript"}

	funcCount := 0
	var names []string
	for _, m := range jsFuncPattern.FindAllStringSubmatch(content, -1) {
		funcCount++
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name != "" && len(names) < 3 {
			names = append(names, name)
		}
	}
	if funcCount > 0 {
		parts = append(parts, fmt.Sprintf("%d functions (%s)", funcCount, strings.Join(names, ", ")))
	}
	if classes := jsClassPattern.FindAllStringSubmatch(content, -1); len(classes) > 0 {
		parts = append(parts, fmt.Sprintf("%d classes (%s)", len(classes), firstNames(classes, 1, 3)))
	}
	if jsExportPattern.MatchString(content) {
		tags = append(tags, "module")
	}
	if strings.Contains(content, "useState") || strings.Contains(content, "useEffect") {
		tags = append(tags, "react")
	}

	return Insight{Summary: strings.Join(parts, "; "), Tags: tags}
}

func analyzePython(content string) Insight {
	var parts []string
	tags := []string{"python"}

	if defs := pyDefPattern.FindAllStringSubmatch(content, -1); len(defs) > 0 {
		parts = append(parts, fmt.Sprintf("%d functions (%s)", len(defs), firstNames(defs, 1, 3)))
	}
	if classes := pyClassPattern.FindAllStringSubmatch(content, -1); len(classes) > 0 {
		parts = append(parts, fmt.Sprintf("%d classes (%s)", len(classes), firstNames(classes, 1, 3)))
	}

	return Insight{Summary: strings.Join(parts, "; "), Tags: tags}
}

func analyzeMarkdown(content string) Insight {
	heads := mdHeadPattern.FindAllStringSubmatch(content, -1)
	if len(heads) == 0 {
		return Insight{Tags: []string{"docs"}}
	}
	return Insight{
		Summary: fmt.Sprintf("documentation sections: %s", firstNames(heads, 1, 4)),
		Tags:    []string{"docs"},
	}
}

func analyzeConfigFile(content string) Insight {
	tags := []string{"config"}
	var summary string
	switch {
	case strings.Contains(content, "\"dependencies\""):
		summary = "package manifest with dependency changes"
		tags = append(tags, "dependencies")
	case strings.Contains(content, "services:"):
		summary = "service composition config"
	}
	return Insight{Summary: summary, Tags: tags}
}

func analyzeSQL(content string) Insight {
	stmts := sqlStmtPattern.FindAllStringSubmatch(content, -1)
	if len(stmts) == 0 {
		return Insight{Tags: []string{"sql"}}
	}
	var parts []string
	for i, m := range stmts {
		if i == 3 {
			break
		}
		parts = append(parts, strings.ToLower(m[1])+" "+m[2])
	}
	return Insight{
		Summary: "schema changes: " + strings.Join(parts, ", "),
		Tags:    []string{"sql", "schema"},
	}
}

func analyzeGeneric(content string) Insight {
	// Nothing structural to say about unknown formats; tags only.
	if strings.TrimSpace(content) == "" {
		return Insight{}
	}
	return Insight{Tags: []string{"misc"}}
}

// firstNames joins up to max capture-group values from regex submatches.
func firstNames(matches [][]string, group, max int) string {
	var names []string
	for _, m := range matches {
		if len(m) > group && m[group] != "" {
			names = append(names, strings.TrimSpace(m[group]))
		}
		if len(names) == max {
			break
		}
	}
	return strings.Join(names, ", ")
}
