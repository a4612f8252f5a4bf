package conv

import "sync"

// Thread is a named group of text ranges: a user- or extractor-assigned
// label (e.g. "budget discussion") over one or more spans of the
// conversation. Threads are optional and orthogonal to the seven
// cross-referencing indexes — nothing else in the engine reads them except
// by explicit lookup.
type Thread struct {
	Description string
	Ranges      []TextRange
}

// ThreadOrdinal identifies a thread within a ThreadsIndex, assigned at add
// time and never reused.
type ThreadOrdinal = int

// ThreadsIndex holds the conversation's named threads. It mirrors
// TimestampIndex's shape (append-only slice guarded by a single mutex)
// since threads see the same write-once-read-many access pattern as
// timestamps once a conversation is built.
type ThreadsIndex struct {
	mu      sync.RWMutex
	threads []Thread
}

// NewThreadsIndex returns an empty threads index.
func NewThreadsIndex() *ThreadsIndex {
	return &ThreadsIndex{}
}

// Add appends a thread and returns its ordinal.
func (ti *ThreadsIndex) Add(t Thread) ThreadOrdinal {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.threads = append(ti.threads, t)
	return len(ti.threads) - 1
}

// Get returns the thread at ordinal, or false if out of range.
func (ti *ThreadsIndex) Get(ordinal ThreadOrdinal) (Thread, bool) {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	if ordinal < 0 || ordinal >= len(ti.threads) {
		return Thread{}, false
	}
	return ti.threads[ordinal], true
}

// All returns every thread in insertion order.
func (ti *ThreadsIndex) All() []Thread {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	out := make([]Thread, len(ti.threads))
	copy(out, ti.threads)
	return out
}

// Size returns the number of threads recorded.
func (ti *ThreadsIndex) Size() int {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	return len(ti.threads)
}

// Clear removes every thread.
func (ti *ThreadsIndex) Clear() {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.threads = nil
}

// Serialize returns a snapshot of every thread, in insertion order.
func (ti *ThreadsIndex) Serialize() []Thread {
	return ti.All()
}

// Deserialize replaces the index's contents with threads, in the given order.
func (ti *ThreadsIndex) Deserialize(threads []Thread) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	out := make([]Thread, len(threads))
	copy(out, threads)
	ti.threads = out
}
