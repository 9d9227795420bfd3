package knowledge

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devrecall/devrecall/internal/memstore"
	"github.com/devrecall/devrecall/internal/oracle"
	"github.com/devrecall/devrecall/internal/similarity"
)

// Document names within the backing memstore.
const (
	entriesDoc  = "memories"
	mistakesDoc = "mistakes"
)

// Config holds the dedup engine's thresholds. The general-purpose and
// exit-time lexical thresholds are deliberately separate constants: exit
// merges are irreversible (no ambiguity-skip path exists there), so their
// sensitivity is tuned independently.
type Config struct {
	LexicalThreshold     float64 // tier-1 Jaccard cutoff
	ExitLexicalThreshold float64 // sync-variant Jaccard cutoff
	SemanticThreshold    float64 // tier-2 oracle score cutoff
	SemanticCandidates   int     // how many recent entries tier 2 consults
	GuideThreshold       float64 // overlap cutoff for guide lookup
	MaxTags              int     // tag cap after merge
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		LexicalThreshold:     0.70,
		ExitLexicalThreshold: 0.65,
		SemanticThreshold:    0.80,
		SemanticCandidates:   10,
		GuideThreshold:       0.50,
		MaxTags:              10,
	}
}

// Store is the shared persistent knowledge store. Entries and mistakes are
// held in memory and mirrored to the memstore on every mutation; a failed
// write is logged and the in-memory state stays authoritative for the rest
// of the session.
//
// The mutex is the actor boundary: dedup runs read-modify-write cycles over
// the entries slice and concurrent handlers must not interleave them.
type Store struct {
	mu     sync.Mutex
	cfg    Config
	store  memstore.Store
	oracle oracle.Oracle // nil when no oracle is configured
	log    *slog.Logger

	entries  []MemoryEntry
	mistakes []Mistake
}

// now is a package-level var to allow test injection.
var now = time.Now

// NewStore loads existing entries and mistakes from the backing store.
// orc may be nil; the engine then runs lexical-only.
func NewStore(cfg Config, backing memstore.Store, orc oracle.Oracle, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{cfg: cfg, store: backing, oracle: orc, log: log}
	_ = backing.Read(entriesDoc, &s.entries)
	_ = backing.Read(mistakesDoc, &s.mistakes)
	return s
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a copy of all stored entries, newest first.
func (s *Store) Entries() []MemoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]MemoryEntry(nil), s.entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Mistakes returns a copy of the mistakes collection, newest first.
func (s *Store) Mistakes() []Mistake {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]Mistake(nil), s.mistakes...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// RecordMistake appends a structured error record and persists the
// collection.
func (s *Store) RecordMistake(m Mistake) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = now()
	}
	s.mistakes = append(s.mistakes, m)
	s.persistMistakesLocked()
}

// Guides returns stored entries whose content overlaps the query, ranked
// by overlap coefficient. The asymmetric measure is the point: the query
// is a handful of words (a file path, a task phrase) matched against long
// stored content, where Jaccard's union penalty would suppress true hits.
func (s *Store) Guides(query string, limit int) []MemoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	type scored struct {
		entry MemoryEntry
		score float64
	}
	var hits []scored
	for _, e := range s.entries {
		score := similarity.Overlap(query, e.text())
		if score >= s.cfg.GuideThreshold {
			hits = append(hits, scored{entry: e, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]MemoryEntry, len(hits))
	for i, h := range hits {
		out[i] = h.entry
	}
	return out
}

// Search ranks stored entries against a query by Jaccard similarity,
// returning up to limit entries with a non-zero score.
func (s *Store) Search(query string, limit int) []MemoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	type scored struct {
		entry MemoryEntry
		score float64
	}
	var hits []scored
	for _, e := range s.entries {
		if score := similarity.Jaccard(query, e.text()); score > 0 {
			hits = append(hits, scored{entry: e, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]MemoryEntry, len(hits))
	for i, h := range hits {
		out[i] = h.entry
	}
	return out
}

// persistEntriesLocked mirrors the entries list to the backing store.
// Callers must hold s.mu.
func (s *Store) persistEntriesLocked() {
	if err := s.store.Write(entriesDoc, s.entries); err != nil {
		s.log.Warn("knowledge: persist entries failed, in-memory state stays authoritative", "error", err)
	}
}

func (s *Store) persistMistakesLocked() {
	if err := s.store.Write(mistakesDoc, s.mistakes); err != nil {
		s.log.Warn("knowledge: persist mistakes failed", "error", err)
	}
}

// newEntry materializes a candidate as a stored entry.
func (s *Store) newEntry(c Candidate) MemoryEntry {
	typ := ValidateType(c.Type)
	cat := CategoryFor(typ)
	if c.Category != "" {
		cat = Category(c.Category)
	}
	return MemoryEntry{
		ID:        uuid.NewString(),
		Type:      typ,
		Category:  cat,
		Title:     clampTitle(c.Title),
		Content:   c.Content,
		Tags:      unionTags(c.Tags, nil, s.cfg.MaxTags),
		Timestamp: now(),
	}
}
