package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/devrecall/devrecall/internal/oracle"
	"github.com/devrecall/devrecall/internal/similarity"
)

// Placeholder literals used in the merge prompt's example. A reply that
// echoes them back was not a real merge and is rejected.
const (
	placeholderTitle   = "merged title here"
	placeholderContent = "merged content here"
)

// AddEntry runs a candidate through the two-tier dedup engine.
//
//   - forceSave creates unconditionally, bypassing both tiers.
//   - Tier 1 compares the candidate lexically against every stored entry;
//     a non-empty match set is authoritative and tier 2 never runs.
//   - Tier 2 asks the oracle (when present) to judge the most recently
//     stored entries; an oracle failure counts as "not similar".
//   - Zero matches create; exactly one match with an oracle merges; one
//     match without an oracle, or two or more matches regardless, are
//     reported as skipped — ambiguity is never silently resolved.
func (s *Store) AddEntry(ctx context.Context, c Candidate, forceSave bool) DedupResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if forceSave {
		entry := *s.appendLocked(c)
		return DedupResult{
			Action:  ActionCreated,
			Entry:   &entry,
			Message: "saved without dedup (forced)",
		}
	}

	matches, tier := s.findMatchesLocked(ctx, c)

	switch {
	case len(matches) == 0:
		entry := *s.appendLocked(c)
		return DedupResult{
			Action:  ActionCreated,
			Entry:   &entry,
			Message: "no similar entries found",
		}

	case len(matches) == 1 && s.oracle != nil:
		matched := *matches[0] // the match as it stood before merging
		entry := *s.mergeLocked(ctx, matches[0], c)
		return DedupResult{
			Action:  ActionMerged,
			Entry:   &entry,
			Similar: []MemoryEntry{matched},
			Tier:    tier,
			Message: fmt.Sprintf("merged into existing entry %q", matched.Title),
		}

	default:
		similar := make([]MemoryEntry, len(matches))
		for i, m := range matches {
			similar[i] = *m
		}
		return DedupResult{
			Action:  ActionSkipped,
			Similar: similar,
			Tier:    tier,
			Message: fmt.Sprintf("%d similar entries found; save explicitly to keep anyway", len(similar)),
		}
	}
}

// AddEntrySync is the lower-capability variant used only by the exit-time
// fallback path: no oracle calls are possible at shutdown, so it runs
// tier 1 alone at the exit threshold and merges directly on any match —
// there is no follow-up interaction in which a skip could be resolved.
func (s *Store) AddEntrySync(c Candidate, forceSave bool) DedupResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !forceSave {
		if matches := s.lexicalMatchesLocked(c, s.cfg.ExitLexicalThreshold); len(matches) > 0 {
			target := matches[0]
			target.Title = clampTitle(c.Title)
			target.Content = c.Content // new content always wins at exit time
			target.Tags = unionTags(target.Tags, c.Tags, s.cfg.MaxTags)
			target.Timestamp = now()
			s.persistEntriesLocked()
			merged := *target
			return DedupResult{
				Action:  ActionMerged,
				Entry:   &merged,
				Tier:    TierLexical,
				Message: "merged at shutdown",
			}
		}
	}

	entry := *s.appendLocked(c)
	return DedupResult{Action: ActionCreated, Entry: &entry, Message: "saved at shutdown"}
}

// appendLocked creates and persists a new entry. Callers must hold s.mu.
func (s *Store) appendLocked(c Candidate) *MemoryEntry {
	s.entries = append(s.entries, s.newEntry(c))
	s.persistEntriesLocked()
	return &s.entries[len(s.entries)-1]
}

// findMatchesLocked runs tier 1 and, only when tier 1 is empty, tier 2.
func (s *Store) findMatchesLocked(ctx context.Context, c Candidate) ([]*MemoryEntry, Tier) {
	if matches := s.lexicalMatchesLocked(c, s.cfg.LexicalThreshold); len(matches) > 0 {
		return matches, TierLexical
	}
	if s.oracle == nil {
		return nil, ""
	}
	return s.semanticMatchesLocked(ctx, c), TierSemantic
}

func (s *Store) lexicalMatchesLocked(c Candidate, threshold float64) []*MemoryEntry {
	text := c.Title + " " + c.Content
	var matches []*MemoryEntry
	for i := range s.entries {
		if similarity.Jaccard(text, s.entries[i].text()) >= threshold {
			matches = append(matches, &s.entries[i])
		}
	}
	return matches
}

// semanticMatchesLocked asks the oracle to judge the candidate against the
// most recently stored entries. Any transport or parse failure is treated
// as "not similar", never as an engine failure.
func (s *Store) semanticMatchesLocked(ctx context.Context, c Candidate) []*MemoryEntry {
	recent := s.recentLocked(s.cfg.SemanticCandidates)
	if len(recent) == 0 {
		return nil
	}

	reply, err := s.oracle.Ask(ctx, semanticJudgePrompt(c, recent))
	if err != nil {
		s.log.Debug("knowledge: semantic judge unavailable", "error", err)
		return nil
	}

	block := oracle.ExtractJSONBlock(reply)
	if block == "" {
		s.log.Debug("knowledge: semantic judge reply had no JSON")
		return nil
	}

	var judgments []struct {
		Index   int     `json:"index"`
		Similar bool    `json:"similar"`
		Score   float64 `json:"score"`
		Reason  string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(block), &judgments); err != nil {
		s.log.Debug("knowledge: semantic judge reply unparsable", "error", err)
		return nil
	}

	var matches []*MemoryEntry
	for _, j := range judgments {
		if !j.Similar || j.Score < s.cfg.SemanticThreshold {
			continue
		}
		if j.Index < 0 || j.Index >= len(recent) {
			continue
		}
		matches = append(matches, recent[j.Index])
	}
	return matches
}

// recentLocked returns pointers to the n most recently stored entries.
func (s *Store) recentLocked(n int) []*MemoryEntry {
	idx := make([]int, len(s.entries))
	for i := range idx {
		idx[i] = i
	}
	// Stable sort newest-first by timestamp; ties keep append order.
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && s.entries[idx[j]].Timestamp.After(s.entries[idx[j-1]].Timestamp); j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	if n > 0 && len(idx) > n {
		idx = idx[:n]
	}
	out := make([]*MemoryEntry, len(idx))
	for i, k := range idx {
		out[i] = &s.entries[k]
	}
	return out
}

// mergeLocked folds a candidate into its single match, in place. The
// oracle writes the merged title/content; a placeholder echo or missing
// fields fall back to concatenation.
func (s *Store) mergeLocked(ctx context.Context, target *MemoryEntry, c Candidate) *MemoryEntry {
	title, content, ok := s.oracleMerge(ctx, target, c)
	if !ok {
		// Concatenation fallback: new title wins, old content is kept
		// under a [Previous] tag ahead of the new content.
		title = c.Title
		content = "[Previous] " + target.Content + "\n\n" + c.Content
	}

	target.Title = clampTitle(title)
	target.Content = content
	target.Tags = unionTags(target.Tags, c.Tags, s.cfg.MaxTags)
	target.Timestamp = now()
	s.persistEntriesLocked()
	return target
}

func (s *Store) oracleMerge(ctx context.Context, target *MemoryEntry, c Candidate) (string, string, bool) {
	reply, err := s.oracle.Ask(ctx, mergePrompt(target, c))
	if err != nil {
		s.log.Debug("knowledge: merge oracle unavailable", "error", err)
		return "", "", false
	}

	block := oracle.ExtractJSONBlock(reply)
	if block == "" {
		return "", "", false
	}

	var merged struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(block), &merged); err != nil {
		return "", "", false
	}

	title := strings.TrimSpace(merged.Title)
	content := strings.TrimSpace(merged.Content)
	if title == "" || content == "" {
		return "", "", false
	}
	if strings.EqualFold(title, placeholderTitle) ||
		strings.Contains(strings.ToLower(content), placeholderContent) {
		s.log.Debug("knowledge: merge reply echoed placeholders, using concatenation")
		return "", "", false
	}
	return title, content, true
}

// ─── Prompts ─────────────────────────────────────────────────────────────────

func semanticJudgePrompt(c Candidate, recent []*MemoryEntry) string {
	var b strings.Builder
	b.WriteString("You deduplicate knowledge entries. Decide whether the NEW entry ")
	b.WriteString("describes the same fact or fix as any EXISTING entry.\n\n")
	b.WriteString("NEW entry:\n")
	fmt.Fprintf(&b, "title: %s\ncontent: %s\n\nEXISTING entries:\n", c.Title, c.Content)
	for i, e := range recent {
		fmt.Fprintf(&b, "[%d] title: %s\n    content: %s\n", i, e.Title, e.Content)
	}
	b.WriteString(`
Reply with a JSON array, one element per existing entry:
[{"index": 0, "similar": false, "score": 0.0, "reason": "short reason"}]
score is 0.0-1.0 confidence that the entries are duplicates. No other text.`)
	return b.String()
}

func mergePrompt(target *MemoryEntry, c Candidate) string {
	return fmt.Sprintf(`Merge two knowledge entries about the same topic into one.
Keep every concrete detail (paths, names, numbers); prefer the newer entry
where they conflict. Reply with only JSON in this shape:
{"title": "%s", "content": "%s"}

EXISTING entry:
title: %s
content: %s

NEW entry:
title: %s
content: %s`,
		placeholderTitle, placeholderContent,
		target.Title, target.Content, c.Title, c.Content)
}
