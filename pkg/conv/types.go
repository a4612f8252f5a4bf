// Package conv holds the conversational memory engine's data model: ordered
// messages and semantic references anchored to text ranges, plus the seven
// indexes that cross-reference them. The package intentionally keeps
// ownership simple: indexes hold only ordinals, never pointers into the
// message/semref collections, so there are no reference cycles to manage.
package conv

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MessageOrdinal and SemRefOrdinal are dense, non-negative identifiers
// assigned at append time. They are never reused.
type MessageOrdinal = int
type SemRefOrdinal = int

// ChunkOrdinal indexes a chunk within a single message's Chunks slice.
type ChunkOrdinal = int

// CharOrdinal indexes a character offset within a chunk.
type CharOrdinal = int

// TextLocation is (message_ordinal, chunk_ordinal, char_ordinal) with total
// order: lexicographic over the triple.
type TextLocation struct {
	MessageOrdinal MessageOrdinal
	ChunkOrdinal   ChunkOrdinal
	CharOrdinal    CharOrdinal
}

// Compare returns -1, 0, or 1 per the lexicographic total order.
func (a TextLocation) Compare(b TextLocation) int {
	if a.MessageOrdinal != b.MessageOrdinal {
		return cmpInt(a.MessageOrdinal, b.MessageOrdinal)
	}
	if a.ChunkOrdinal != b.ChunkOrdinal {
		return cmpInt(a.ChunkOrdinal, b.ChunkOrdinal)
	}
	return cmpInt(a.CharOrdinal, b.CharOrdinal)
}

func (a TextLocation) Less(b TextLocation) bool { return a.Compare(b) < 0 }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// TextRange is (start, end?). If End is nil the range denotes a single
// point at Start (start inclusive).
type TextRange struct {
	Start TextLocation
	End   *TextLocation
}

// NewPointRange builds a single-point TextRange.
func NewPointRange(start TextLocation) TextRange {
	return TextRange{Start: start}
}

// TextRangeFromMessageChunk builds the single-chunk TextRange spanning an
// entire chunk of a message: [ (msg,chunk,0), (msg,chunk+1,0) ).
func TextRangeFromMessageChunk(msgOrdinal MessageOrdinal, chunkOrdinal ChunkOrdinal) TextRange {
	end := TextLocation{MessageOrdinal: msgOrdinal, ChunkOrdinal: chunkOrdinal + 1, CharOrdinal: 0}
	return TextRange{
		Start: TextLocation{MessageOrdinal: msgOrdinal, ChunkOrdinal: chunkOrdinal, CharOrdinal: 0},
		End:   &end,
	}
}

// TextRangeForMessage builds the TextRange spanning an entire message of
// numChunks chunks: [ (msg,0,0), (msg,numChunks,0) ). Used by scope
// selectors that restrict matches to a set of whole messages.
func TextRangeForMessage(msgOrdinal MessageOrdinal, numChunks int) TextRange {
	end := TextLocation{MessageOrdinal: msgOrdinal, ChunkOrdinal: numChunks, CharOrdinal: 0}
	return TextRange{
		Start: TextLocation{MessageOrdinal: msgOrdinal, ChunkOrdinal: 0, CharOrdinal: 0},
		End:   &end,
	}
}

// end returns the effective end location, defaulting to Start for point ranges.
func (r TextRange) end() TextLocation {
	if r.End == nil {
		return r.Start
	}
	return *r.End
}

// Contains reports whether r contains other: r.Start <= other.Start and
// other.end() <= r.end().
func (r TextRange) Contains(other TextRange) bool {
	return r.Start.Compare(other.Start) <= 0 && other.end().Compare(r.end()) <= 0
}

// Term is a normalized text token plus an optional advisory weight.
type Term struct {
	Text   string
	Weight *float64
}

// NewTerm builds a Term with normalized text and no weight.
func NewTerm(text string) Term {
	return Term{Text: NormalizeTermText(text)}
}

// NewWeightedTerm builds a Term with normalized text and an explicit weight.
func NewWeightedTerm(text string, weight float64) Term {
	return Term{Text: NormalizeTermText(text), Weight: &weight}
}

// WeightOr returns the term's weight, or def if unset.
func (t Term) WeightOr(def float64) float64 {
	if t.Weight == nil {
		return def
	}
	return *t.Weight
}

// IsWildcard reports whether this term is the match-anything sentinel "*".
func (t Term) IsWildcard() bool { return t.Text == "*" }

// Equal reports whether two terms have equal normalized text. Weight is
// advisory only and is not part of term identity.
func (t Term) Equal(o Term) bool { return t.Text == o.Text }

// NormalizeTermText is the authoritative term normalization: Unicode NFC,
// trim leading/trailing whitespace, collapse internal whitespace runs to a
// single space, then lowercase. It is idempotent: normalizing twice is the
// same as normalizing once.
func NormalizeTermText(s string) string {
	s = norm.NFC.String(s)
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
