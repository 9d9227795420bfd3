package observe

import (
	"fmt"
	"testing"
)

func testObs(tool, result string) Observation {
	return NewObservation(tool, ToolArgs{Kind: ArgsUnstructured}, result, false)
}

func TestPush_CreatesSessionAndAppends(t *testing.T) {
	b := NewBuffer()
	b.Push("s1", testObs("Read", "ok"))
	b.Push("s1", testObs("Bash", "done"))

	if got := b.Len("s1"); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
	if got := b.Len("missing"); got != 0 {
		t.Errorf("Len(missing) = %d, want 0", got)
	}
}

func TestPush_EvictsOldestPast50(t *testing.T) {
	b := NewBuffer()
	for i := 0; i < 60; i++ {
		b.Push("s1", testObs("Read", fmt.Sprintf("result-%d", i)))
	}

	if got := b.Len("s1"); got != 50 {
		t.Fatalf("Len = %d, want 50", got)
	}
	snaps := b.SnapshotAndClear("s1")
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snaps))
	}
	first := snaps[0].Observations[0].Result
	if first != "result-10" {
		t.Errorf("oldest surviving result = %q, want %q (front eviction)", first, "result-10")
	}
	last := snaps[0].Observations[49].Result
	if last != "result-59" {
		t.Errorf("newest result = %q, want %q", last, "result-59")
	}
}

func TestSnapshotAndClear_SingleSession(t *testing.T) {
	b := NewBuffer()
	b.Push("s1", testObs("Read", "a"))
	b.Push("s2", testObs("Read", "b"))

	snaps := b.SnapshotAndClear("s1")
	if len(snaps) != 1 || snaps[0].SessionID != "s1" {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}
	if b.Len("s1") != 0 {
		t.Error("s1 not cleared")
	}
	if b.Len("s2") != 1 {
		t.Error("s2 should be untouched")
	}

	// A second snapshot of the cleared session yields nothing.
	if again := b.SnapshotAndClear("s1"); again != nil {
		t.Errorf("second snapshot = %+v, want nil", again)
	}
}

func TestSnapshotAndClear_AllSessions(t *testing.T) {
	b := NewBuffer()
	b.Push("s2", testObs("Read", "b"))
	b.Push("s1", testObs("Read", "a"))
	b.Push("s1", testObs("Bash", "c"))

	snaps := b.SnapshotAndClear("")
	if len(snaps) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(snaps))
	}
	// First-seen order: s2 before s1.
	if snaps[0].SessionID != "s2" || snaps[1].SessionID != "s1" {
		t.Errorf("snapshot order = %s,%s; want s2,s1", snaps[0].SessionID, snaps[1].SessionID)
	}
	if b.TotalLen() != 0 {
		t.Errorf("TotalLen after clear = %d, want 0", b.TotalLen())
	}
}

func TestRestore_PrependsSnapshot(t *testing.T) {
	b := NewBuffer()
	b.Push("s1", testObs("Read", "old"))
	snaps := b.SnapshotAndClear("s1")

	// Something new arrives while the failed flush was in flight.
	b.Push("s1", testObs("Read", "new"))
	b.Restore(snaps)

	out := b.SnapshotAndClear("s1")
	obs := out[0].Observations
	if len(obs) != 2 {
		t.Fatalf("observations = %d, want 2", len(obs))
	}
	if obs[0].Result != "old" || obs[1].Result != "new" {
		t.Errorf("restore order wrong: %q then %q", obs[0].Result, obs[1].Result)
	}
}

func TestAggregate_SessionThenTimeOrder(t *testing.T) {
	b := NewBuffer()
	b.Push("s1", testObs("Read", "s1-1"))
	b.Push("s2", testObs("Read", "s2-1"))
	b.Push("s1", testObs("Read", "s1-2"))

	all := b.Aggregate()
	want := []string{"s1-1", "s1-2", "s2-1"}
	if len(all) != len(want) {
		t.Fatalf("Aggregate len = %d, want %d", len(all), len(want))
	}
	for i, w := range want {
		if all[i].Result != w {
			t.Errorf("Aggregate[%d] = %q, want %q", i, all[i].Result, w)
		}
	}
}

func TestDelegationContext_SurvivesSnapshot(t *testing.T) {
	b := NewBuffer()
	b.SetDelegationContext("s1", "research auth options")
	b.Push("s1", testObs("Read", "x"))

	snaps := b.SnapshotAndClear("s1")
	if snaps[0].DelegationContext != "research auth options" {
		t.Errorf("DelegationContext = %q", snaps[0].DelegationContext)
	}
}

func TestDrop(t *testing.T) {
	b := NewBuffer()
	b.Push("s1", testObs("Read", "x"))
	b.Drop("s1")
	if b.TotalLen() != 0 {
		t.Error("Drop did not remove session")
	}
	if ids := b.SessionIDs(); len(ids) != 0 {
		t.Errorf("SessionIDs = %v, want empty", ids)
	}
}
