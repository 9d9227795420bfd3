// Package knowledge owns the persistent knowledge store: the MemoryEntry
// model, the two-tier deduplication/merge engine, the mistakes collection,
// and guide lookup.
package knowledge

import (
	"strings"
	"time"
)

// maxTitleLength caps entry titles, both on create and after merges.
const maxTitleLength = 60

// EntryType is the semantic type of a knowledge entry.
type EntryType string

const (
	TypeDecision EntryType = "decision"
	TypePattern  EntryType = "pattern"
	TypeBugfix   EntryType = "bugfix"
	TypeLesson   EntryType = "lesson"
	TypeFeature  EntryType = "feature"
	TypeNote     EntryType = "note"
)

// ValidateType maps arbitrary oracle-supplied type strings onto the fixed
// enumeration, defaulting to note.
func ValidateType(s string) EntryType {
	switch EntryType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeDecision, TypePattern, TypeBugfix, TypeLesson, TypeFeature, TypeNote:
		return EntryType(strings.ToLower(strings.TrimSpace(s)))
	}
	return TypeNote
}

// Category groups entry types for retrieval: concrete solutions vs general
// knowledge.
type Category string

const (
	CategorySolution  Category = "solution"
	CategoryKnowledge Category = "knowledge"
)

// CategoryFor derives the category from the entry type. Bugfixes, features
// and patterns describe how something was made to work; decisions, lessons
// and notes describe what was learned.
func CategoryFor(t EntryType) Category {
	switch t {
	case TypeBugfix, TypeFeature, TypePattern:
		return CategorySolution
	default:
		return CategoryKnowledge
	}
}

// MemoryEntry is one stored knowledge record. Created whole; mutated in
// place (title, content, timestamp, tags) only by a merge; never deleted
// by this core.
type MemoryEntry struct {
	ID        string    `json:"id"`
	Type      EntryType `json:"type"`
	Category  Category  `json:"category"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// text returns the similarity corpus for an entry.
func (e *MemoryEntry) text() string {
	return e.Title + " " + e.Content
}

// Candidate is an extraction result not yet admitted to the store.
type Candidate struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags,omitempty"`
	Category string   `json:"category,omitempty"` // overrides the derived category when set
}

// Action is the dedup outcome for one candidate.
type Action string

const (
	ActionCreated Action = "created"
	ActionMerged  Action = "merged"
	ActionSkipped Action = "skipped"
)

// Tier names the dedup pass that produced a match.
type Tier string

const (
	TierLexical  Tier = "lexical"
	TierSemantic Tier = "semantic"
)

// DedupResult reports what the engine did with a candidate.
type DedupResult struct {
	Action  Action
	Entry   *MemoryEntry  // created or merged entry
	Similar []MemoryEntry // populated on skipped (and merged, the match before merging)
	Tier    Tier
	Message string
}

// Mistake is one structured error record kept apart from knowledge entries
// so error history does not pollute similarity matching.
type Mistake struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	File      string    `json:"file,omitempty"`
	ErrorLine string    `json:"error_line"`
	Summary   string    `json:"summary,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// clampTitle enforces the title cap, counted in runes so multi-byte
// characters are never split mid-sequence.
func clampTitle(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxTitleLength {
		return s
	}
	return strings.TrimSpace(string(runes[:maxTitleLength-3])) + "..."
}

// unionTags merges two tag sets, preserving first-seen order, dropping
// duplicates and empties, capped at max.
func unionTags(a, b []string, max int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range append(append([]string(nil), a...), b...) {
		t = strings.TrimSpace(strings.ToLower(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == max {
			break
		}
	}
	return out
}
