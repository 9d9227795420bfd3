// Package flush owns the lifecycle of turning buffered observations into
// persisted knowledge: the idle/started/completed state machine, the
// snapshot-and-clear handoff to extraction, and the exit-time safety hook.
package flush

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/devrecall/devrecall/internal/extract"
	"github.com/devrecall/devrecall/internal/knowledge"
	"github.com/devrecall/devrecall/internal/observe"
)

// State is the coordinator's cycle position. A flush begins only from
// StateIdle; a new observation re-arms StateCompleted back to StateIdle.
type State string

const (
	StateIdle      State = "idle"
	StateStarted   State = "started"
	StateCompleted State = "completed"
)

// Config carries the host-facing flush knobs.
type Config struct {
	// MinActions is the smallest buffer worth flushing. Smaller buffers
	// are left in place (idle trigger) or ignored (exit hook).
	MinActions int
	// RequireEdit discards buffers holding neither a write action nor an
	// error before extraction runs.
	RequireEdit bool
}

// Coordinator is the single process-wide flush state machine. At most one
// extraction pass is in flight at a time; concurrent triggers observe
// StateStarted and back off.
type Coordinator struct {
	mu    sync.Mutex
	state State

	buffer    *observe.Buffer
	extractor *extract.Extractor
	cfg       Config
	log       *slog.Logger

	exitOnce sync.Once
}

// New creates a Coordinator in StateIdle.
func New(buffer *observe.Buffer, extractor *extract.Extractor, cfg Config, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		state:     StateIdle,
		buffer:    buffer,
		extractor: extractor,
		cfg:       cfg,
		log:       log,
	}
}

// State returns the current cycle position.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// NoteObservation re-arms a completed coordinator for the next cycle. Called
// after every buffered observation; a no-op in any other state.
func (c *Coordinator) NoteObservation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCompleted {
		c.state = StateIdle
	}
}

// OnSessionIdle flushes one session's buffer through the primary path.
// Repeated idle notifications while a flush is in flight are no-ops.
func (c *Coordinator) OnSessionIdle(ctx context.Context, sessionID string) ([]knowledge.DedupResult, error) {
	if c.buffer.Len(sessionID) < c.cfg.MinActions {
		c.log.Debug("flush: below minimum actions, keeping buffer",
			"session", sessionID, "buffered", c.buffer.Len(sessionID))
		return nil, nil
	}
	results, _, err := c.flush(ctx, sessionID)
	return results, err
}

// OnSessionDeleted flushes the session one last time, then drops its buffer
// entirely. The minimum-action threshold does not apply: the buffer is about
// to disappear either way. When a cycle is already running or completed the
// primary path cannot pick this session up again, so its observations go
// through the synchronous extractor before the drop.
func (c *Coordinator) OnSessionDeleted(ctx context.Context, sessionID string) ([]knowledge.DedupResult, error) {
	results, ran, err := c.flush(ctx, sessionID)
	if !ran {
		for _, snap := range c.buffer.SnapshotAndClear(sessionID) {
			if !c.recordable(snap) {
				continue
			}
			results = append(results, c.extractor.ExtractSync(snap)...)
		}
	}
	c.buffer.Drop(sessionID)
	return results, err
}

// OnProcessExit is the safety hook covering termination before an
// idle-triggered flush completed. It runs at most once, acts only when the
// last cycle did not reach StateCompleted, and performs no suspending work:
// rule-based extraction and the lower-capability sync merge only.
func (c *Coordinator) OnProcessExit() {
	c.exitOnce.Do(func() {
		c.mu.Lock()
		if c.state == StateCompleted {
			c.mu.Unlock()
			return
		}
		c.state = StateStarted
		snaps := c.buffer.SnapshotAndClear("")
		c.mu.Unlock()

		for _, snap := range snaps {
			if len(snap.Observations) < c.cfg.MinActions {
				continue
			}
			if !c.recordable(snap) {
				continue
			}
			c.extractor.ExtractSync(snap)
		}

		c.mu.Lock()
		c.state = StateCompleted
		c.mu.Unlock()
	})
}

// flush runs one full cycle: atomically enter StateStarted and snapshot,
// extract, end in StateCompleted. A failure inside the primary path restores
// the snapshot and retries through the sync fallback, so the batch survives
// anything short of the fallback itself failing. The second return reports
// whether a cycle actually ran; it is false when the coordinator was not
// idle and the buffer was left untouched.
func (c *Coordinator) flush(ctx context.Context, sessionID string) ([]knowledge.DedupResult, bool, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		c.log.Debug("flush: cycle already running or completed", "state", string(c.state))
		return nil, false, nil
	}
	c.state = StateStarted
	snaps := c.buffer.SnapshotAndClear(sessionID)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = StateCompleted
		c.mu.Unlock()
	}()

	var all []knowledge.DedupResult
	for _, snap := range snaps {
		if !c.recordable(snap) {
			continue
		}

		results, err := c.extractor.ExtractAndStore(ctx, snap)
		if err != nil {
			c.log.Warn("flush: primary extraction failed, retrying via sync fallback",
				"session", snap.SessionID, "error", err)
			c.buffer.Restore([]observe.SessionBuffer{snap})
			// Re-snapshot so observations pushed during the failed
			// attempt join the batch.
			for _, redo := range c.buffer.SnapshotAndClear(snap.SessionID) {
				results = append(results, c.extractor.ExtractSync(redo)...)
			}
		}
		all = append(all, results...)
	}

	c.log.Info("flush: cycle completed",
		"session", sessionID, "sessions_flushed", len(snaps), "entries", countPersisted(all))
	return all, true, nil
}

// recordable applies the pre-flush gate: with RequireEdit set, a buffer
// holding neither a write action nor an error is discarded, logged only.
func (c *Coordinator) recordable(snap observe.SessionBuffer) bool {
	if !c.cfg.RequireEdit {
		return true
	}
	for _, obs := range snap.Observations {
		if obs.WriteAction || obs.IsError {
			return true
		}
	}
	c.log.Info("flush: discarding read-only buffer",
		"session", snap.SessionID, "observations", len(snap.Observations))
	return false
}

func countPersisted(results []knowledge.DedupResult) int {
	n := 0
	for _, r := range results {
		if r.Action == knowledge.ActionCreated || r.Action == knowledge.ActionMerged {
			n++
		}
	}
	return n
}

// Describe renders a result list for host-facing tool output.
func Describe(results []knowledge.DedupResult) string {
	if len(results) == 0 {
		return "nothing to record"
	}
	created, merged, skipped := 0, 0, 0
	for _, r := range results {
		switch r.Action {
		case knowledge.ActionCreated:
			created++
		case knowledge.ActionMerged:
			merged++
		case knowledge.ActionSkipped:
			skipped++
		}
	}
	return fmt.Sprintf("%d created, %d merged, %d skipped", created, merged, skipped)
}
