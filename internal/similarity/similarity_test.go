package similarity

import (
	"math"
	"strings"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestJaccard_Reflexive(t *testing.T) {
	texts := []string{
		"refactored database connection pooling",
		"JWT middleware rejects expired tokens",
	}
	for _, text := range texts {
		if got := Jaccard(text, text); !almostEqual(got, 1.0) {
			t.Errorf("Jaccard(%q, same) = %v, want 1.0", text, got)
		}
	}
}

func TestJaccard_Symmetric(t *testing.T) {
	a := "migrated auth handlers to middleware chain"
	b := "middleware chain handles request logging"
	if Jaccard(a, b) != Jaccard(b, a) {
		t.Errorf("Jaccard not symmetric: %v vs %v", Jaccard(a, b), Jaccard(b, a))
	}
}

func TestJaccard_Disjoint(t *testing.T) {
	a := "postgres migration schema versioning"
	b := "websocket reconnect backoff jitter"
	if got := Jaccard(a, b); got != 0 {
		t.Errorf("Jaccard of disjoint vocabularies = %v, want 0", got)
	}
}

func TestJaccard_EmptyAndStopwordOnly(t *testing.T) {
	cases := []struct{ a, b string }{
		{"", ""},
		{"the and for", "this that was"},
		{"", "real content here"},
		{"a an it", "database pooling"},
	}
	for _, c := range cases {
		if got := Jaccard(c.a, c.b); got != 0 {
			t.Errorf("Jaccard(%q, %q) = %v, want 0", c.a, c.b, got)
		}
	}
}

func TestJaccard_PartialOverlap(t *testing.T) {
	a := "connection pooling postgres"
	b := "connection pooling redis"
	// sets: {connection, pooling, postgres} and {connection, pooling, redis}
	// intersection 2, union 4
	if got := Jaccard(a, b); !almostEqual(got, 0.5) {
		t.Errorf("Jaccard = %v, want 0.5", got)
	}
}

func TestOverlap_ShortQueryInLongDocument(t *testing.T) {
	query := "retry backoff oracle transport timeout budget"
	var doc strings.Builder
	doc.WriteString(query)
	filler := []string{
		"database", "migration", "handler", "middleware", "routing",
		"parser", "tokenizer", "scheduler", "snapshot", "eviction",
		"metrics", "tracing", "grpc", "protobuf", "serialization",
	}
	for i := 0; i < 6; i++ {
		for _, w := range filler {
			doc.WriteString(" " + w + "x" + string(rune('a'+i)))
		}
	}

	ov := Overlap(query, doc.String())
	jc := Jaccard(query, doc.String())
	if !almostEqual(ov, 1.0) {
		t.Errorf("Overlap = %v, want 1.0 for fully-contained query", ov)
	}
	if jc > 0.15 {
		t.Errorf("Jaccard = %v, want small value dominated by union size", jc)
	}
	if ov < jc {
		t.Errorf("Overlap (%v) should be >= Jaccard (%v) for size-skewed sets", ov, jc)
	}
}

func TestOverlap_SplitsIdentifiers(t *testing.T) {
	// The query uses plain words; the document only has them fused inside
	// camelCase identifiers. Overlap should still match.
	query := "flush coordinator snapshot"
	doc := "FlushCoordinator calls snapshotAndClear before extraction"
	if got := Overlap(query, doc); got < 0.99 {
		t.Errorf("Overlap = %v, want ~1.0 after identifier splitting", got)
	}
	// Jaccard does not split, so the fused identifiers stay opaque.
	if got := Jaccard(query, doc); got > 0.5 {
		t.Errorf("Jaccard = %v, expected identifier-splitting to be excluded", got)
	}
}

func TestOverlap_EmptySets(t *testing.T) {
	if got := Overlap("", "content here"); got != 0 {
		t.Errorf("Overlap with empty query = %v, want 0", got)
	}
	if got := Overlap("query words", ""); got != 0 {
		t.Errorf("Overlap with empty document = %v, want 0", got)
	}
}

func TestSplitCamel(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"parseHTTPResponse", []string{"parse", "HTTP", "Response"}},
		{"FlushCoordinator", []string{"Flush", "Coordinator"}},
		{"plain", []string{"plain"}},
		{"v2Handler", []string{"v", "2", "Handler"}},
	}
	for _, c := range cases {
		got := splitCamel(c.in)
		if len(got) != len(c.want) {
			t.Errorf("splitCamel(%q) = %v, want %v", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("splitCamel(%q) = %v, want %v", c.in, got, c.want)
				break
			}
		}
	}
}

func TestTokenize_Filters(t *testing.T) {
	set := Tokenize("The DB is ok; migration-scripts run now!")
	if _, ok := set["the"]; ok {
		t.Error("stop word 'the' not filtered")
	}
	if _, ok := set["db"]; ok {
		t.Error("2-char token 'db' not filtered")
	}
	if _, ok := set["migration"]; !ok {
		t.Error("expected token 'migration' after punctuation split")
	}
	if _, ok := set["scripts"]; !ok {
		t.Error("expected token 'scripts' after punctuation split")
	}
}
