package observe

import (
	"sort"
	"sync"
)

// maxPerSession bounds each session's buffer; the oldest observation is
// evicted first once the bound is reached.
const maxPerSession = 50

// SessionBuffer is one session's ordered observation log plus the optional
// delegation context the host supplied when it spawned the session.
type SessionBuffer struct {
	SessionID         string
	Observations      []Observation
	DelegationContext string
}

// Buffer owns all session buffers. mcp-go handlers run concurrently, so the
// mutex is the actor boundary around every read-modify-write on the session
// map.
type Buffer struct {
	mu       sync.Mutex
	sessions map[string]*SessionBuffer
	order    []string // session ids in first-seen order, for aggregate()
}

// NewBuffer creates an empty multi-session buffer.
func NewBuffer() *Buffer {
	return &Buffer{sessions: make(map[string]*SessionBuffer)}
}

// Push appends an observation to the named session's buffer, creating the
// buffer on first use and evicting from the front past the per-session cap.
func (b *Buffer) Push(sessionID string, obs Observation) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sb := b.sessions[sessionID]
	if sb == nil {
		sb = &SessionBuffer{SessionID: sessionID}
		b.sessions[sessionID] = sb
		b.order = append(b.order, sessionID)
	}
	sb.Observations = append(sb.Observations, obs)
	if len(sb.Observations) > maxPerSession {
		sb.Observations = sb.Observations[len(sb.Observations)-maxPerSession:]
	}
}

// SetDelegationContext attaches the host's delegation context string to a
// session, creating the buffer if needed.
func (b *Buffer) SetDelegationContext(sessionID, context string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sb := b.sessions[sessionID]
	if sb == nil {
		sb = &SessionBuffer{SessionID: sessionID}
		b.sessions[sessionID] = sb
		b.order = append(b.order, sessionID)
	}
	sb.DelegationContext = context
}

// Len returns the number of buffered observations for one session.
func (b *Buffer) Len(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sb := b.sessions[sessionID]; sb != nil {
		return len(sb.Observations)
	}
	return 0
}

// TotalLen returns the number of buffered observations across all sessions.
func (b *Buffer) TotalLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, sb := range b.sessions {
		total += len(sb.Observations)
	}
	return total
}

// Aggregate returns every session's observations concatenated in
// session-then-time order. Used only for cross-session guide lookups;
// flushes always work from a snapshot instead.
func (b *Buffer) Aggregate() []Observation {
	b.mu.Lock()
	defer b.mu.Unlock()

	var all []Observation
	for _, id := range b.order {
		sb := b.sessions[id]
		if sb == nil {
			continue
		}
		all = append(all, sb.Observations...)
	}
	return all
}

// SnapshotAndClear atomically copies out and empties the named session's
// buffer. An empty session id snapshots and clears every session at once.
// The snapshot-then-clear pair happens under one lock acquisition so a
// concurrent push lands either wholly before or wholly after the flush.
func (b *Buffer) SnapshotAndClear(sessionID string) []SessionBuffer {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sessionID != "" {
		sb := b.sessions[sessionID]
		if sb == nil || len(sb.Observations) == 0 {
			return nil
		}
		snap := *sb
		snap.Observations = append([]Observation(nil), sb.Observations...)
		sb.Observations = nil
		return []SessionBuffer{snap}
	}

	var snaps []SessionBuffer
	for _, id := range b.order {
		sb := b.sessions[id]
		if sb == nil || len(sb.Observations) == 0 {
			continue
		}
		snap := *sb
		snap.Observations = append([]Observation(nil), sb.Observations...)
		sb.Observations = nil
		snaps = append(snaps, snap)
	}
	return snaps
}

// Restore puts a snapshot back at the front of its session's buffer.
// Used when the primary flush path fails so the sync fallback still sees
// the batch; observations pushed meanwhile stay behind the restored ones.
func (b *Buffer) Restore(snaps []SessionBuffer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, snap := range snaps {
		sb := b.sessions[snap.SessionID]
		if sb == nil {
			sb = &SessionBuffer{SessionID: snap.SessionID, DelegationContext: snap.DelegationContext}
			b.sessions[snap.SessionID] = sb
			b.order = append(b.order, snap.SessionID)
		}
		merged := append([]Observation(nil), snap.Observations...)
		merged = append(merged, sb.Observations...)
		if len(merged) > maxPerSession {
			merged = merged[len(merged)-maxPerSession:]
		}
		sb.Observations = merged
	}
}

// SessionIDs returns the ids of sessions holding at least one observation,
// sorted for deterministic iteration.
func (b *Buffer) SessionIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ids []string
	for id, sb := range b.sessions {
		if len(sb.Observations) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Drop removes a session's buffer entirely (session-deleted cleanup after
// its flush has run).
func (b *Buffer) Drop(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
	for i, id := range b.order {
		if id == sessionID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}
