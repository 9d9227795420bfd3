// Package extract turns a session's observation snapshot into candidate
// knowledge entries and submits them to the dedup engine. The oracle writes
// the entries when it can; a rule-based path built on the content analyzer
// covers oracle failures and the synchronous exit-time flush.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/devrecall/devrecall/internal/knowledge"
	"github.com/devrecall/devrecall/internal/observe"
	"github.com/devrecall/devrecall/internal/oracle"
)

// maxEntriesPerFlush caps how many candidates one snapshot can produce.
const maxEntriesPerFlush = 4

// Extractor owns one extraction pipeline instance.
type Extractor struct {
	oracle   oracle.Oracle // nil disables the primary path
	store    *knowledge.Store
	log      *slog.Logger
	fullAuto bool
}

// New creates an Extractor. fullAuto selects multi-entry extraction; when
// false the oracle is asked for a single session summary entry instead.
func New(orc oracle.Oracle, store *knowledge.Store, fullAuto bool, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{oracle: orc, store: store, log: log, fullAuto: fullAuto}
}

// ExtractAndStore runs the primary (oracle-capable) path over one session
// snapshot. Oracle and parse failures degrade to the rule-based candidates
// internally; the returned error is reserved for failures the flush
// coordinator must recover from by restoring the snapshot.
func (e *Extractor) ExtractAndStore(ctx context.Context, snap observe.SessionBuffer) ([]knowledge.DedupResult, error) {
	if len(snap.Observations) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	candidates := e.oracleCandidates(ctx, snap)
	if len(candidates) == 0 {
		candidates = fallbackCandidates(snap)
	}

	var results []knowledge.DedupResult
	for _, c := range candidates {
		res := e.store.AddEntry(ctx, c, false)
		results = append(results, res)
		e.recordMistakeIfError(c, snap)
	}
	return results, nil
}

// ExtractSync is the shutdown variant: rule-based candidates only, the
// lower-capability dedup merge, no suspending calls of any kind.
func (e *Extractor) ExtractSync(snap observe.SessionBuffer) []knowledge.DedupResult {
	if len(snap.Observations) == 0 {
		return nil
	}

	var results []knowledge.DedupResult
	for _, c := range fallbackCandidates(snap) {
		res := e.store.AddEntrySync(c, false)
		results = append(results, res)
		e.recordMistakeIfError(c, snap)
	}
	return results
}

// oracleCandidates asks the oracle for entries. Every failure mode —
// missing oracle, transport error, unparsable or empty reply — returns nil
// so the caller falls back to rule-based construction.
func (e *Extractor) oracleCandidates(ctx context.Context, snap observe.SessionBuffer) []knowledge.Candidate {
	if e.oracle == nil {
		return nil
	}

	reply, err := e.oracle.Ask(ctx, e.buildPrompt(snap))
	if err != nil {
		e.log.Debug("extract: oracle unavailable, using rule-based path", "error", err)
		return nil
	}

	candidates := parseCandidates(reply)
	if len(candidates) == 0 {
		e.log.Debug("extract: oracle reply yielded no entries")
		return nil
	}
	if len(candidates) > maxEntriesPerFlush {
		candidates = candidates[:maxEntriesPerFlush]
	}
	return candidates
}

// parseCandidates accepts the three reply shapes seen in the wild: an
// {intent, entries} wrapper, a bare array, or a single unwrapped object.
func parseCandidates(reply string) []knowledge.Candidate {
	block := oracle.ExtractJSONBlock(reply)
	if block == "" {
		return nil
	}

	var wrapper struct {
		Intent  string                `json:"intent"`
		Entries []knowledge.Candidate `json:"entries"`
	}
	if err := json.Unmarshal([]byte(block), &wrapper); err == nil && len(wrapper.Entries) > 0 {
		return usable(wrapper.Entries)
	}

	var list []knowledge.Candidate
	if err := json.Unmarshal([]byte(block), &list); err == nil && len(list) > 0 {
		return usable(list)
	}

	var single knowledge.Candidate
	if err := json.Unmarshal([]byte(block), &single); err == nil {
		return usable([]knowledge.Candidate{single})
	}
	return nil
}

// usable drops candidates with no content to store.
func usable(in []knowledge.Candidate) []knowledge.Candidate {
	var out []knowledge.Candidate
	for _, c := range in {
		if strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.Content) == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// recordMistakeIfError mirrors error-category candidates with structured
// detail into the mistakes collection.
func (e *Extractor) recordMistakeIfError(c knowledge.Candidate, snap observe.SessionBuffer) {
	if c.Category != "error" {
		return
	}
	file, line := firstErrorDetail(snap.Observations)
	if line == "" {
		return
	}
	e.store.RecordMistake(knowledge.Mistake{
		SessionID: snap.SessionID,
		File:      file,
		ErrorLine: line,
		Summary:   c.Title,
	})
}

// buildPrompt renders the snapshot for the oracle.
func (e *Extractor) buildPrompt(snap observe.SessionBuffer) string {
	var b strings.Builder
	b.WriteString("You summarize a coding session into knowledge entries worth remembering ")
	b.WriteString("across sessions: decisions made, bugs fixed, patterns established, lessons learned.\n\n")

	if snap.DelegationContext != "" {
		fmt.Fprintf(&b, "Session goal: %s\n\n", snap.DelegationContext)
	}

	b.WriteString("Tool activity, oldest first:\n")
	for _, obs := range snap.Observations {
		fmt.Fprintf(&b, "- [%s] %s", obs.Timestamp.Format("15:04:05"), obs.Tool)
		switch obs.Args.Kind {
		case observe.ArgsFileEdit, observe.ArgsFileWrite:
			fmt.Fprintf(&b, " %s", obs.Args.FilePath)
		case observe.ArgsShell:
			fmt.Fprintf(&b, " `%s`", obs.Args.Command)
		case observe.ArgsSearch:
			fmt.Fprintf(&b, " %q", obs.Args.Query)
		}
		if obs.IsError {
			b.WriteString(" (FAILED)")
		}
		if obs.Result != "" {
			fmt.Fprintf(&b, "\n  result: %s", firstLine(obs.Result))
		}
		b.WriteString("\n")
	}

	if e.fullAuto {
		b.WriteString(`
Reply with only JSON:
{"intent": "build|debug|enhance", "entries": [{"type": "decision|pattern|bugfix|lesson|feature|note", "title": "...", "content": "...", "tags": ["..."]}]}
Write 1 to 4 entries. Skip routine activity; only record what a future
session would want to know. Titles at most 60 characters.`)
	} else {
		b.WriteString(`
Reply with only JSON:
{"intent": "build|debug|enhance", "entries": [{"type": "note", "title": "...", "content": "...", "tags": ["..."]}]}
Write exactly one entry summarizing the session. Title at most 60 characters.`)
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 160 {
		s = s[:160] + "..."
	}
	return s
}
