package services

import (
	"sync"
	"time"

	"github.com/borgframework/borg/internal/borg"
)

// EventRecord is a sequenced engine event stored in the per-run buffer.
// The sequence number doubles as the SSE event id for replay.
type EventRecord struct {
	Seq     int            `json:"seq"`
	Type    string         `json:"type"`
	NodeID  string         `json:"node_id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// runEntry holds the in-memory state for a single run: buffered events,
// completion status, and subscriber notification channels.
type runEntry struct {
	mu          sync.RWMutex
	events      []EventRecord
	done        bool
	donePayload map[string]any  // final payload (status, error)
	subs        []chan struct{} // closed-and-replaced on each new event (fan-out wakeup)
	completedAt time.Time
}

// snapshot returns a copy of events from startSeq onward, registers a
// subscriber notification channel, and reports the run's done state.
func (e *runEntry) snapshot(startSeq int) (events []EventRecord, notify <-chan struct{}, done bool, donePayload map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if startSeq < len(e.events) {
		events = make([]EventRecord, len(e.events)-startSeq)
		copy(events, e.events[startSeq:])
	}

	ch := make(chan struct{})
	e.subs = append(e.subs, ch)

	return events, ch, e.done, e.donePayload
}

// RunManager tracks in-progress and recently-completed runs with an
// in-memory per-run event buffer and subscriber fan-out. It implements
// the engine's observer interface, so wiring it into an Engine is enough
// to make every run streamable.
type RunManager struct {
	mu   sync.RWMutex
	runs map[string]*runEntry
	ttl  time.Duration
	stop chan struct{}
}

// NewRunManager creates a RunManager that keeps completed run buffers
// for the given TTL before garbage-collecting them.
func NewRunManager(ttl time.Duration) *RunManager {
	rm := &RunManager{
		runs: make(map[string]*runEntry),
		ttl:  ttl,
		stop: make(chan struct{}),
	}
	go rm.gc()
	return rm
}

// Stop terminates the GC goroutine.
func (rm *RunManager) Stop() {
	close(rm.stop)
}

// Register creates a new run entry. Call this before starting a run so
// subscribers arriving early still find it.
func (rm *RunManager) Register(runID string) {
	rm.mu.Lock()
	if _, ok := rm.runs[runID]; !ok {
		rm.runs[runID] = &runEntry{}
	}
	rm.mu.Unlock()
}

// OnEvent buffers an engine event under its run and completes the entry
// on the final run event.
func (rm *RunManager) OnEvent(ev borg.Event) {
	switch ev.Type {
	case borg.EventRunStarted:
		rm.Register(ev.RunID)
		rm.Append(ev.RunID, EventRecord{Type: ev.Type, Payload: ev.Payload})
	case borg.EventRunFinished:
		rm.Append(ev.RunID, EventRecord{Type: ev.Type, Payload: ev.Payload})
		rm.Complete(ev.RunID, ev.Payload)
	default:
		rm.Append(ev.RunID, EventRecord{Type: ev.Type, NodeID: ev.NodeID, Payload: ev.Payload})
	}
}

// Append adds an event to the run's buffer and notifies all subscribers.
func (rm *RunManager) Append(runID string, ev EventRecord) {
	rm.mu.RLock()
	entry, ok := rm.runs[runID]
	rm.mu.RUnlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	ev.Seq = len(entry.events)
	entry.events = append(entry.events, ev)
	subs := entry.subs
	entry.subs = nil
	entry.mu.Unlock()

	// Wake all subscribers by closing their channels.
	for _, ch := range subs {
		close(ch)
	}
}

// Complete marks a run as done with the given payload and notifies
// subscribers.
func (rm *RunManager) Complete(runID string, payload map[string]any) {
	rm.mu.RLock()
	entry, ok := rm.runs[runID]
	rm.mu.RUnlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	entry.done = true
	entry.donePayload = payload
	entry.completedAt = time.Now()
	subs := entry.subs
	entry.subs = nil
	entry.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}

// Fail marks a run as done with an error and notifies subscribers.
func (rm *RunManager) Fail(runID string, errMsg string) {
	rm.Complete(runID, map[string]any{
		"status": string(borg.RunStatusFailed),
		"error":  errMsg,
	})
}

// Subscribe returns all buffered events from startSeq onward, a
// notification channel that is closed when new events arrive, and the
// run's done state. Returns found=false if the runID is not tracked.
func (rm *RunManager) Subscribe(runID string, startSeq int) (events []EventRecord, notify <-chan struct{}, done bool, donePayload map[string]any, found bool) {
	rm.mu.RLock()
	entry, ok := rm.runs[runID]
	rm.mu.RUnlock()
	if !ok {
		return nil, nil, false, nil, false
	}

	events, notify, done, donePayload = entry.snapshot(startSeq)
	return events, notify, done, donePayload, true
}

// gc periodically removes completed run entries that have exceeded the TTL.
func (rm *RunManager) gc() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stop:
			return
		case <-ticker.C:
			rm.collectExpired()
		}
	}
}

func (rm *RunManager) collectExpired() {
	now := time.Now()
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for id, entry := range rm.runs {
		entry.mu.RLock()
		expired := entry.done && now.Sub(entry.completedAt) > rm.ttl
		entry.mu.RUnlock()
		if expired {
			delete(rm.runs, id)
		}
	}
}
