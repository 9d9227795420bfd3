package knowledge

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// memStore is an in-memory memstore.Store for tests.
type memStore struct {
	docs     map[string][]byte
	failNext bool
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string][]byte)}
}

func (m *memStore) Read(name string, v any) error {
	data, ok := m.docs[name]
	if !ok {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (m *memStore) Write(name string, v any) error {
	if m.failNext {
		m.failNext = false
		return errWrite
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.docs[name] = data
	return nil
}

// fakeOracle returns canned replies in order; empty reply slice means error.
type fakeOracle struct {
	replies []string
	err     error
	prompts []string
}

func (f *fakeOracle) Ask(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errNoReply
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

// newTestStore builds a Store over an in-memory backing store. A nil orc
// means no oracle at all (typed-nil interfaces would defeat the nil check).
func newTestStore(t *testing.T, orc *fakeOracle) *Store {
	t.Helper()
	if orc == nil {
		return NewStore(DefaultConfig(), newMemStore(), nil, nil)
	}
	return NewStore(DefaultConfig(), newMemStore(), orc, nil)
}

func TestAddEntry_EmptyStoreCreates(t *testing.T) {
	s := newTestStore(t, nil)
	before := time.Now()

	res := s.AddEntry(context.Background(), Candidate{
		Type: "decision", Title: "Use pgx over database/sql", Content: "Connection pooling built in",
	}, false)

	if res.Action != ActionCreated {
		t.Fatalf("action = %s, want created", res.Action)
	}
	if res.Entry == nil || res.Entry.ID == "" {
		t.Fatal("created entry missing id")
	}
	if res.Entry.Timestamp.Before(before) || res.Entry.Timestamp.After(time.Now().Add(time.Second)) {
		t.Errorf("timestamp %v not current", res.Entry.Timestamp)
	}
	if res.Entry.Category != CategoryKnowledge {
		t.Errorf("category = %s, want knowledge for decision", res.Entry.Category)
	}
	if s.Len() != 1 {
		t.Errorf("store len = %d, want 1", s.Len())
	}
}

func TestAddEntry_OneLexicalMatchWithOracleMerges(t *testing.T) {
	orc := &fakeOracle{replies: []string{
		`{"title": "Retry wrapper around flaky webhook delivery", "content": "Exponential backoff, max five attempts, jitter added."}`,
	}}
	s := newTestStore(t, orc)

	first := s.AddEntry(context.Background(), Candidate{
		Type: "pattern", Title: "Retry wrapper for webhook delivery",
		Content: "Webhook delivery retries use exponential backoff with five attempts",
		Tags:    []string{"webhooks", "retry"},
	}, false)
	if first.Action != ActionCreated {
		t.Fatalf("setup create failed: %s", first.Action)
	}

	res := s.AddEntry(context.Background(), Candidate{
		Type: "pattern", Title: "Webhook delivery retry wrapper",
		Content: "Webhook delivery retries use exponential backoff with five attempts and jitter",
		Tags:    []string{"retry", "backoff"},
	}, false)

	if res.Action != ActionMerged {
		t.Fatalf("action = %s, want merged", res.Action)
	}
	if res.Tier != TierLexical {
		t.Errorf("tier = %s, want lexical", res.Tier)
	}
	wantTags := map[string]bool{"webhooks": true, "retry": true, "backoff": true}
	if len(res.Entry.Tags) != len(wantTags) {
		t.Fatalf("tags = %v, want union of both entries' tags", res.Entry.Tags)
	}
	for _, tag := range res.Entry.Tags {
		if !wantTags[tag] {
			t.Errorf("unexpected tag %q", tag)
		}
	}
	if s.Len() != 1 {
		t.Errorf("store len = %d, want 1 after in-place merge", s.Len())
	}
	if !strings.Contains(res.Entry.Content, "jitter") {
		t.Errorf("merged content lost oracle result: %q", res.Entry.Content)
	}
	if len(res.Similar) != 1 || res.Similar[0].Title != "Retry wrapper for webhook delivery" {
		t.Errorf("similar = %+v, want the matched entry as it stood before the merge", res.Similar)
	}
	if res.Similar[0].Content == res.Entry.Content {
		t.Error("similar entry carries post-merge content")
	}
}

func TestAddEntry_TagUnionCappedAtTen(t *testing.T) {
	orc := &fakeOracle{replies: []string{
		`{"title": "t", "content": "real merged body"}`,
	}}
	s := newTestStore(t, orc)

	manyTags := []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7"}
	s.AddEntry(context.Background(), Candidate{
		Type: "note", Title: "Shared vocabulary entry alpha beta gamma",
		Content: "alpha beta gamma delta epsilon zeta", Tags: manyTags,
	}, false)

	res := s.AddEntry(context.Background(), Candidate{
		Type: "note", Title: "Shared vocabulary entry alpha beta gamma",
		Content: "alpha beta gamma delta epsilon zeta",
		Tags:    []string{"t8", "t9", "t10", "t11", "t12"},
	}, false)

	if res.Action != ActionMerged {
		t.Fatalf("action = %s, want merged", res.Action)
	}
	if len(res.Entry.Tags) != 10 {
		t.Errorf("tags = %d, want capped at 10: %v", len(res.Entry.Tags), res.Entry.Tags)
	}
}

func TestAddEntry_TwoMatchesSkipsRegardlessOfOracle(t *testing.T) {
	for _, withOracle := range []bool{true, false} {
		var orc *fakeOracle
		if withOracle {
			orc = &fakeOracle{}
		}
		s := newTestStore(t, orc)

		base := Candidate{Type: "note", Title: "Scheduler tick interval tuning",
			Content: "Scheduler tick interval lowered for faster drain cycles"}
		s.AddEntry(context.Background(), base, true)
		s.AddEntry(context.Background(), base, true)

		res := s.AddEntry(context.Background(), base, false)
		if res.Action != ActionSkipped {
			t.Fatalf("oracle=%v: action = %s, want skipped", withOracle, res.Action)
		}
		if len(res.Similar) < 2 {
			t.Errorf("oracle=%v: similar = %d, want >= 2", withOracle, len(res.Similar))
		}
		if s.Len() != 2 {
			t.Errorf("oracle=%v: store len = %d, want 2", withOracle, s.Len())
		}
	}
}

func TestAddEntry_ForceSaveAlwaysCreates(t *testing.T) {
	s := newTestStore(t, nil)
	base := Candidate{Type: "note", Title: "Duplicate forced entry",
		Content: "identical content that would otherwise match lexically"}

	s.AddEntry(context.Background(), base, false)
	res := s.AddEntry(context.Background(), base, true)

	if res.Action != ActionCreated {
		t.Errorf("action = %s, want created with forceSave", res.Action)
	}
	if s.Len() != 2 {
		t.Errorf("store len = %d, want 2", s.Len())
	}
}

func TestAddEntry_OneMatchNoOracleSkips(t *testing.T) {
	s := newTestStore(t, nil)
	base := Candidate{Type: "note", Title: "Single match without oracle",
		Content: "content that matches itself exactly for the lexical tier"}

	s.AddEntry(context.Background(), base, false)
	res := s.AddEntry(context.Background(), base, false)

	if res.Action != ActionSkipped {
		t.Fatalf("action = %s, want skipped without oracle", res.Action)
	}
	if len(res.Similar) != 1 {
		t.Errorf("similar = %d, want 1", len(res.Similar))
	}
}

func TestAddEntry_SemanticTierMatches(t *testing.T) {
	// Lexically disjoint entries the oracle judges as duplicates.
	orc := &fakeOracle{replies: []string{
		`[{"index": 0, "similar": true, "score": 0.92, "reason": "same fix"}]`,
		`{"title": "Auth timeout root cause", "content": "Session TTL was shorter than the refresh interval."}`,
	}}
	s := newTestStore(t, orc)

	s.AddEntry(context.Background(), Candidate{
		Type: "bugfix", Title: "Login drops after an hour",
		Content: "Session TTL shorter than refresh interval caused forced logouts",
	}, false)

	res := s.AddEntry(context.Background(), Candidate{
		Type: "bugfix", Title: "Hourly disconnect mystery solved",
		Content: "Renewal cadence exceeded cookie lifetime, producing surprise signouts",
	}, false)

	if res.Action != ActionMerged {
		t.Fatalf("action = %s, want merged via semantic tier", res.Action)
	}
	if res.Tier != TierSemantic {
		t.Errorf("tier = %s, want semantic", res.Tier)
	}
	if len(orc.prompts) != 2 {
		t.Errorf("oracle calls = %d, want judge + merge", len(orc.prompts))
	}
}

func TestAddEntry_SemanticBelowThresholdCreates(t *testing.T) {
	orc := &fakeOracle{replies: []string{
		`[{"index": 0, "similar": true, "score": 0.5, "reason": "vaguely related"}]`,
	}}
	s := newTestStore(t, orc)

	s.AddEntry(context.Background(), Candidate{Type: "note", Title: "Completely different topic one",
		Content: "gateway routing rules rewritten"}, false)
	res := s.AddEntry(context.Background(), Candidate{Type: "note", Title: "Unrelated subject two",
		Content: "spreadsheet export alignment corrected"}, false)

	if res.Action != ActionCreated {
		t.Errorf("action = %s, want created when score below threshold", res.Action)
	}
}

func TestAddEntry_OracleFailureCountsAsNotSimilar(t *testing.T) {
	orc := &fakeOracle{err: errNoReply}
	s := newTestStore(t, orc)

	s.AddEntry(context.Background(), Candidate{Type: "note", Title: "First distinct topic",
		Content: "queue consumer rebalancing strategy"}, false)
	res := s.AddEntry(context.Background(), Candidate{Type: "note", Title: "Second distinct topic",
		Content: "palette tokens moved into theme file"}, false)

	if res.Action != ActionCreated {
		t.Errorf("action = %s, want created when oracle fails", res.Action)
	}
}

func TestMerge_PlaceholderEchoFallsBackToConcatenation(t *testing.T) {
	orc := &fakeOracle{replies: []string{
		`{"title": "merged title here", "content": "merged content here"}`,
	}}
	s := newTestStore(t, orc)

	s.AddEntry(context.Background(), Candidate{
		Type: "note", Title: "Cache invalidation ordering",
		Content: "Invalidate cache entries before touching the write-through layer",
	}, false)
	res := s.AddEntry(context.Background(), Candidate{
		Type: "note", Title: "Cache invalidation ordering rules",
		Content: "Invalidate cache entries before touching the write-through layer, always",
	}, false)

	if res.Action != ActionMerged {
		t.Fatalf("action = %s, want merged", res.Action)
	}
	if res.Entry.Title != "Cache invalidation ordering rules" {
		t.Errorf("title = %q, want new title to win in fallback", res.Entry.Title)
	}
	if !strings.Contains(res.Entry.Content, "[Previous]") {
		t.Errorf("content missing [Previous] tag: %q", res.Entry.Content)
	}
	if !strings.Contains(res.Entry.Content, "always") {
		t.Errorf("content missing new text: %q", res.Entry.Content)
	}
}

func TestAddEntrySync_MergesInPlaceNewContentWins(t *testing.T) {
	s := newTestStore(t, nil)
	s.AddEntrySync(Candidate{
		Type: "note", Title: "Deploy script env ordering",
		Content: "Deploy script env ordering matters for staging rollout",
		Tags:    []string{"deploy"},
	}, false)

	res := s.AddEntrySync(Candidate{
		Type: "note", Title: "Deploy script env ordering",
		Content: "Deploy script env ordering matters for staging rollout and production",
		Tags:    []string{"release"},
	}, false)

	if res.Action != ActionMerged {
		t.Fatalf("action = %s, want merged", res.Action)
	}
	if !strings.Contains(res.Entry.Content, "production") {
		t.Errorf("new content should win: %q", res.Entry.Content)
	}
	if strings.Contains(res.Entry.Content, "[Previous]") {
		t.Errorf("sync merge must not concatenate: %q", res.Entry.Content)
	}
	if len(res.Entry.Tags) != 2 {
		t.Errorf("tags = %v, want union", res.Entry.Tags)
	}
	if s.Len() != 1 {
		t.Errorf("store len = %d, want 1", s.Len())
	}
}

func TestAddEntrySync_NoMatchCreates(t *testing.T) {
	s := newTestStore(t, nil)
	res := s.AddEntrySync(Candidate{Type: "lesson", Title: "Fresh shutdown entry",
		Content: "captured by the exit hook"}, false)
	if res.Action != ActionCreated {
		t.Errorf("action = %s, want created", res.Action)
	}
}

func TestValidateType_DefaultsToNote(t *testing.T) {
	cases := map[string]EntryType{
		"decision":  TypeDecision,
		"BUGFIX":    TypeBugfix,
		" pattern ": TypePattern,
		"insight":   TypeNote,
		"":          TypeNote,
	}
	for in, want := range cases {
		if got := ValidateType(in); got != want {
			t.Errorf("ValidateType(%q) = %s, want %s", in, got, want)
		}
	}
}
