package conv

import "sync"

// ScoredSemref pairs a semref ordinal with the score it accumulated under a
// particular term.
type ScoredSemref struct {
	SemrefOrdinal SemRefOrdinal
	Score         float64
}

// PrimaryIndex maps a normalized term to the semrefs it was registered
// against, each with a score. Insertion defaults a new pair's score to 1.0;
// re-adding the same (term, semref) pair is a no-op (at-most-one entry).
type PrimaryIndex struct {
	mu      sync.RWMutex
	entries map[string][]ScoredSemref
}

// NewPrimaryIndex returns an empty primary index.
func NewPrimaryIndex() *PrimaryIndex {
	return &PrimaryIndex{entries: make(map[string][]ScoredSemref)}
}

// AddTerm registers semref under term's normalized text with score 1.0,
// unless that exact (term, semref) pair is already present.
func (p *PrimaryIndex) AddTerm(term string, semref SemRefOrdinal) {
	p.AddTermScored(term, semref, 1.0)
}

// AddTermScored registers semref under term's normalized text with an
// explicit score.
func (p *PrimaryIndex) AddTermScored(term string, semref SemRefOrdinal, score float64) {
	key := NormalizeTermText(term)
	if key == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries[key] {
		if e.SemrefOrdinal == semref {
			return
		}
	}
	p.entries[key] = append(p.entries[key], ScoredSemref{SemrefOrdinal: semref, Score: score})
}

// RemoveTerm removes the (term, semref) entry if present.
func (p *PrimaryIndex) RemoveTerm(term string, semref SemRefOrdinal) {
	key := NormalizeTermText(term)
	p.mu.Lock()
	defer p.mu.Unlock()
	entries, ok := p.entries[key]
	if !ok {
		return
	}
	out := entries[:0]
	for _, e := range entries {
		if e.SemrefOrdinal != semref {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		delete(p.entries, key)
	} else {
		p.entries[key] = out
	}
}

// LookupTerm returns the scored semrefs registered under term, or nil, ok=false.
func (p *PrimaryIndex) LookupTerm(term string) ([]ScoredSemref, bool) {
	key := NormalizeTermText(term)
	p.mu.RLock()
	defer p.mu.RUnlock()
	entries, ok := p.entries[key]
	if !ok {
		return nil, false
	}
	out := make([]ScoredSemref, len(entries))
	copy(out, entries)
	return out, true
}

// GetTerms returns every term currently registered, in no particular order.
func (p *PrimaryIndex) GetTerms() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.entries))
	for k := range p.entries {
		out = append(out, k)
	}
	return out
}

// Clear removes every entry.
func (p *PrimaryIndex) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = make(map[string][]ScoredSemref)
}

// PrimaryIndexRow is the serialized shape of one term's postings list.
type PrimaryIndexRow struct {
	Term    string
	Entries []ScoredSemref
}

// Serialize returns a snapshot of every (term, postings) row for a storage
// provider to persist.
func (p *PrimaryIndex) Serialize() []PrimaryIndexRow {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PrimaryIndexRow, 0, len(p.entries))
	for term, entries := range p.entries {
		cp := make([]ScoredSemref, len(entries))
		copy(cp, entries)
		out = append(out, PrimaryIndexRow{Term: term, Entries: cp})
	}
	return out
}

// Deserialize replaces the index's contents with the given rows.
func (p *PrimaryIndex) Deserialize(rows []PrimaryIndexRow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = make(map[string][]ScoredSemref, len(rows))
	for _, r := range rows {
		p.entries[r.Term] = r.Entries
	}
}
