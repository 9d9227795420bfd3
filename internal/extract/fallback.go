package extract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/devrecall/devrecall/internal/analyzer"
	"github.com/devrecall/devrecall/internal/classify"
	"github.com/devrecall/devrecall/internal/knowledge"
	"github.com/devrecall/devrecall/internal/observe"
)

// intentVerbs and intentTypes select the title template and entry type for
// each classified intent.
var (
	intentVerbs = map[classify.Intent]string{
		classify.IntentBuild:   "Built",
		classify.IntentDebug:   "Debugged",
		classify.IntentEnhance: "Enhanced",
	}
	intentTypes = map[classify.Intent]string{
		classify.IntentBuild:   "feature",
		classify.IntentDebug:   "bugfix",
		classify.IntentEnhance: "feature",
	}
)

// topicPriority orders analyzer insight lines inside the fallback entry
// body. Lower comes first; tags not listed sort last.
var topicPriority = map[string]int{
	"tests":        0,
	"schema":       1,
	"sql":          2,
	"concurrency":  3,
	"go":           4,
	"javascript":   4,
	"python":       4,
	"react":        4,
	"dependencies": 5,
	"config":       6,
	"docs":         7,
	"misc":         8,
}

// errorLinePattern picks the first line of a failed result worth keeping.
var errorLinePattern = regexp.MustCompile(`(?im)^.*(error|fail|panic|exception|fatal|undefined).*$`)

// fallbackCandidates builds candidates without any oracle involvement:
// a classified session summary, plus a second error entry when failures
// occurred during non-debugging work.
func fallbackCandidates(snap observe.SessionBuffer) []knowledge.Candidate {
	intent := classify.Classify(snap.Observations)
	files := editedFiles(snap.Observations)

	summary := knowledge.Candidate{
		Type:    intentTypes[intent],
		Title:   fallbackTitle(intent, files, snap.Observations),
		Content: fallbackContent(intent, files, snap),
		Tags:    fallbackTags(intent, files),
	}
	candidates := []knowledge.Candidate{summary}

	if intent != classify.IntentDebug {
		if file, line := firstErrorDetail(snap.Observations); line != "" {
			candidates = append(candidates, errorCandidate(intent, file, line))
		}
	}
	return candidates
}

// editedFile pairs a path with the last content written to it.
type editedFile struct {
	path    string
	content string
}

// editedFiles collects the files touched by edits and writes, keeping first
// touch order and the latest content per file.
func editedFiles(observations []observe.Observation) []editedFile {
	index := map[string]int{}
	var files []editedFile
	for _, obs := range observations {
		if obs.EditedFile == "" {
			continue
		}
		if i, ok := index[obs.EditedFile]; ok {
			if obs.Args.NewText != "" {
				files[i].content = obs.Args.NewText
			}
			continue
		}
		index[obs.EditedFile] = len(files)
		files = append(files, editedFile{path: obs.EditedFile, content: obs.Args.NewText})
	}
	return files
}

func fallbackTitle(intent classify.Intent, files []editedFile, observations []observe.Observation) string {
	verb := intentVerbs[intent]

	if len(files) > 0 {
		names := make([]string, 0, 3)
		for _, f := range files {
			if len(names) == 3 {
				break
			}
			names = append(names, filepath.Base(f.path))
		}
		title := verb + " " + strings.Join(names, ", ")
		if extra := len(files) - len(names); extra > 0 {
			title += fmt.Sprintf(" +%d more", extra)
		}
		return title
	}

	for _, obs := range observations {
		if obs.Args.Kind == observe.ArgsShell {
			return fmt.Sprintf("Ran `%s`", firstLine(obs.Args.Command))
		}
	}
	return verb + " session activity"
}

func fallbackContent(intent classify.Intent, files []editedFile, snap observe.SessionBuffer) string {
	var lines []string
	if snap.DelegationContext != "" {
		lines = append(lines, "Goal: "+snap.DelegationContext)
	}
	lines = append(lines, fmt.Sprintf("Session intent: %s. %d tool actions recorded.",
		intent, len(snap.Observations)))

	type scoredInsight struct {
		line     string
		priority int
	}
	var insights []scoredInsight
	for _, f := range files {
		in := analyzer.Analyze(f.path, f.content)
		if in.Summary == "" {
			continue
		}
		insights = append(insights, scoredInsight{
			line:     f.path + ": " + in.Summary,
			priority: insightPriority(in.Tags),
		})
	}
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].priority < insights[j].priority
	})
	for _, in := range insights {
		lines = append(lines, in.line)
	}

	if cmds := shellCommands(snap.Observations, 3); len(cmds) > 0 {
		lines = append(lines, "Commands: "+strings.Join(cmds, "; "))
	}
	return strings.Join(lines, "\n")
}

func insightPriority(tags []string) int {
	best := len(topicPriority) + 1
	for _, t := range tags {
		if p, ok := topicPriority[t]; ok && p < best {
			best = p
		}
	}
	return best
}

func shellCommands(observations []observe.Observation, max int) []string {
	var cmds []string
	for _, obs := range observations {
		if obs.Args.Kind != observe.ArgsShell {
			continue
		}
		cmds = append(cmds, firstLine(obs.Args.Command))
		if len(cmds) == max {
			break
		}
	}
	return cmds
}

// fallbackTags derives tags from file extensions, top-level directories and
// the analyzer. Normalization and the cap happen at entry creation.
func fallbackTags(intent classify.Intent, files []editedFile) []string {
	tags := []string{string(intent)}
	for _, f := range files {
		if ext := strings.TrimPrefix(filepath.Ext(f.path), "."); ext != "" {
			tags = append(tags, ext)
		}
		if dir := topDir(f.path); dir != "" {
			tags = append(tags, dir)
		}
		tags = append(tags, analyzer.Analyze(f.path, f.content).Tags...)
	}
	return tags
}

// topDir returns the first path element of a relative path, or nothing for
// bare filenames and absolute paths.
func topDir(path string) string {
	path = filepath.ToSlash(path)
	if strings.HasPrefix(path, "/") {
		return ""
	}
	if i := strings.IndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return ""
}

func errorCandidate(intent classify.Intent, file, line string) knowledge.Candidate {
	title := "Error encountered during " + string(intent)
	if file != "" {
		title = "Error in " + filepath.Base(file)
	}
	content := line
	if file != "" {
		content = file + ": " + line
	}
	return knowledge.Candidate{
		Type:     "lesson",
		Category: "error",
		Title:    title,
		Content:  content,
		Tags:     []string{"error", string(intent)},
	}
}

// firstErrorDetail finds the first failed observation and extracts the file
// it touched and the most informative line of its result.
func firstErrorDetail(observations []observe.Observation) (file, line string) {
	for _, obs := range observations {
		if !obs.IsError {
			continue
		}
		file = obs.EditedFile
		if file == "" {
			file = obs.Args.FilePath
		}
		if m := errorLinePattern.FindString(obs.Result); m != "" {
			return file, strings.TrimSpace(m)
		}
		if obs.Result != "" {
			return file, firstLine(obs.Result)
		}
		return file, obs.Tool + " failed"
	}
	return "", ""
}
