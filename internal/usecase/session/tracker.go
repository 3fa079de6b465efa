// Package session guards each search session against stale responses.
// A new query cancels the in-flight one and only the latest sequence may complete.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/storefront-search/internal/domain/view"
)

// Snapshot is the observable state of a session.
type Snapshot struct {
	Phase view.Phase
	Seq   uint64
}

type entry struct {
	seq     uint64
	cancel  context.CancelFunc
	phase   view.Phase
	touched time.Time
}

// Tracker holds per-session sequence numbers and cancellation tokens.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
	idleTTL time.Duration
	now     func() time.Time
}

// NewTracker creates a tracker that forgets sessions idle for longer than idleTTL.
func NewTracker(idleTTL time.Duration) *Tracker {
	return &Tracker{
		entries: make(map[string]*entry),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Begin issues the next sequence number for the session and cancels the previous query.
// The returned context is cancelled as soon as a newer query begins.
func (t *Tracker) Begin(ctx context.Context, sessionID string) (context.Context, uint64) {
	qctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[sessionID]
	if !ok {
		e = &entry{}
		t.entries[sessionID] = e
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.seq++
	e.cancel = cancel
	e.phase = view.Loading
	e.touched = t.now()
	return qctx, e.seq
}

// Finish completes the query with the given sequence number.
// It reports false when a newer query superseded it; the caller must discard the response.
func (t *Tracker) Finish(sessionID string, seq uint64, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[sessionID]
	if !ok || e.seq != seq {
		return false
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if err != nil {
		e.phase = view.Error
	} else {
		e.phase = view.Ready
	}
	e.touched = t.now()
	return true
}

// State returns the current phase of a session. Unknown sessions are idle.
func (t *Tracker) State(sessionID string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[sessionID]
	if !ok {
		return Snapshot{Phase: view.Idle}
	}
	return Snapshot{Phase: e.phase, Seq: e.seq}
}

// Sweep forgets sessions idle past the TTL that have no query in flight.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for id, e := range t.entries {
		if e.phase != view.Loading && now.Sub(e.touched) > t.idleTTL {
			delete(t.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps idle sessions on every tick until ctx is done.
func (t *Tracker) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}
