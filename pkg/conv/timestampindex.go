package conv

import (
	"sort"
	"sync"
)

// DateRange is a half-open timestamp range [Start, End). If End is nil the
// range denotes a point query: exact-equality match on Start (not nearest).
type DateRange struct {
	Start string
	End   *string
}

// TimestampedTextRange pairs a message ordinal with its timestamp, returned
// by range/point lookups sorted ascending by timestamp.
type TimestampedTextRange struct {
	MessageOrdinal MessageOrdinal
	Timestamp      string
}

// TimestampIndex supports range and point queries over message timestamps.
// ISO-8601 strings compare lexicographically in chronological order once
// timezones are normalized, so this index never parses dates.
type TimestampIndex struct {
	mu      sync.RWMutex
	entries []TimestampedTextRange // kept sorted by Timestamp
}

// NewTimestampIndex returns an empty timestamp index.
func NewTimestampIndex() *TimestampIndex {
	return &TimestampIndex{}
}

// AddTimestamp records ordinal's timestamp. Returns false without recording
// anything if iso is empty.
func (ti *TimestampIndex) AddTimestamp(ordinal MessageOrdinal, iso string) bool {
	if iso == "" {
		return false
	}
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.insertLocked(ordinal, iso)
	return true
}

// AddTimestamps records several (ordinal, iso) pairs, skipping empty timestamps.
func (ti *TimestampIndex) AddTimestamps(pairs []TimestampedTextRange) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	for _, p := range pairs {
		if p.Timestamp == "" {
			continue
		}
		ti.insertLocked(p.MessageOrdinal, p.Timestamp)
	}
}

// insertLocked requires ti.mu held for writing. Entries are kept sorted by
// timestamp via insertion at the correct position.
func (ti *TimestampIndex) insertLocked(ordinal MessageOrdinal, iso string) {
	entry := TimestampedTextRange{MessageOrdinal: ordinal, Timestamp: iso}
	i := sort.Search(len(ti.entries), func(i int) bool { return ti.entries[i].Timestamp >= iso })
	ti.entries = append(ti.entries, TimestampedTextRange{})
	copy(ti.entries[i+1:], ti.entries[i:])
	ti.entries[i] = entry
}

// LookupRange returns every entry matching r. A point query (r.End == nil)
// returns exact-equality matches on r.Start; otherwise matches are
// start-inclusive, end-exclusive. Results are sorted ascending by timestamp.
func (ti *TimestampIndex) LookupRange(r DateRange) []TimestampedTextRange {
	ti.mu.RLock()
	defer ti.mu.RUnlock()

	if r.End == nil {
		lo := sort.Search(len(ti.entries), func(i int) bool { return ti.entries[i].Timestamp >= r.Start })
		hi := sort.Search(len(ti.entries), func(i int) bool { return ti.entries[i].Timestamp > r.Start })
		return cloneEntries(ti.entries[lo:hi])
	}

	lo := sort.Search(len(ti.entries), func(i int) bool { return ti.entries[i].Timestamp >= r.Start })
	hi := sort.Search(len(ti.entries), func(i int) bool { return ti.entries[i].Timestamp >= *r.End })
	if hi < lo {
		hi = lo
	}
	return cloneEntries(ti.entries[lo:hi])
}

func cloneEntries(src []TimestampedTextRange) []TimestampedTextRange {
	out := make([]TimestampedTextRange, len(src))
	copy(out, src)
	return out
}

// Size returns the number of timestamped entries.
func (ti *TimestampIndex) Size() int {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	return len(ti.entries)
}

// Clear removes every entry.
func (ti *TimestampIndex) Clear() {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.entries = nil
}

// Serialize returns a snapshot of every entry, sorted by timestamp.
func (ti *TimestampIndex) Serialize() []TimestampedTextRange {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	return cloneEntries(ti.entries)
}

// Deserialize replaces the index's contents, re-sorting by timestamp.
func (ti *TimestampIndex) Deserialize(entries []TimestampedTextRange) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.entries = cloneEntries(entries)
	sort.Slice(ti.entries, func(i, j int) bool { return ti.entries[i].Timestamp < ti.entries[j].Timestamp })
}
