package conv

import (
	"sync"

	"github.com/convmem/convmem"
)

// MessageCollection is an ordered, append-only container of Messages keyed
// by dense integer ordinal. Appends are single-writer and serialize in
// order; ordinals returned by Append are the pre-append size.
type MessageCollection struct {
	mu         sync.RWMutex
	messages   []Message
	persistent bool
}

// NewMessageCollection returns an empty in-memory message collection.
// IsPersistent reports false for it, matching the in-memory-backend
// capability hint in the spec's collection contract.
func NewMessageCollection() *MessageCollection {
	return &MessageCollection{}
}

// Size returns the number of messages appended so far.
func (c *MessageCollection) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// IsPersistent is a capability hint: false for the in-memory collection.
func (c *MessageCollection) IsPersistent() bool { return c.persistent }

// Append adds one message and returns its assigned ordinal.
func (c *MessageCollection) Append(m Message) MessageOrdinal {
	c.mu.Lock()
	defer c.mu.Unlock()
	ord := len(c.messages)
	m.Ordinal = ord
	c.messages = append(c.messages, m)
	return ord
}

// Extend appends several messages in order, returning the ordinal of the
// first one appended.
func (c *MessageCollection) Extend(ms []Message) MessageOrdinal {
	c.mu.Lock()
	defer c.mu.Unlock()
	first := len(c.messages)
	for i, m := range ms {
		m.Ordinal = first + i
		c.messages = append(c.messages, m)
	}
	return first
}

// Get returns the message at ordinal i, or ErrIntegrity-shaped ok=false if
// out of range.
func (c *MessageCollection) Get(i MessageOrdinal) (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.messages) {
		return Message{}, false
	}
	return c.messages[i], true
}

// GetSlice returns messages in [a, b).
func (c *MessageCollection) GetSlice(a, b MessageOrdinal) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if a < 0 {
		a = 0
	}
	if b > len(c.messages) {
		b = len(c.messages)
	}
	if a >= b {
		return nil
	}
	out := make([]Message, b-a)
	copy(out, c.messages[a:b])
	return out
}

// GetMultiple returns the messages at the given ordinals, in the order requested.
func (c *MessageCollection) GetMultiple(ordinals []MessageOrdinal) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, 0, len(ordinals))
	for _, i := range ordinals {
		if i >= 0 && i < len(c.messages) {
			out = append(out, c.messages[i])
		}
	}
	return out
}

// All returns a snapshot of every message currently appended, for iteration.
func (c *MessageCollection) All() []Message {
	return c.GetSlice(0, c.Size())
}

// SemanticRefCollection is an ordered, append-only container of
// SemanticRefs keyed by dense integer ordinal.
type SemanticRefCollection struct {
	mu         sync.RWMutex
	refs       []SemanticRef
	persistent bool
}

// NewSemanticRefCollection returns an empty in-memory semref collection.
func NewSemanticRefCollection() *SemanticRefCollection {
	return &SemanticRefCollection{}
}

func (c *SemanticRefCollection) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.refs)
}

func (c *SemanticRefCollection) IsPersistent() bool { return c.persistent }

// Append adds one semref and returns its assigned ordinal. The ordinal field
// on the passed-in value is overwritten with the assigned ordinal.
func (c *SemanticRefCollection) Append(r SemanticRef) SemRefOrdinal {
	c.mu.Lock()
	defer c.mu.Unlock()
	ord := len(c.refs)
	r.Ordinal = ord
	c.refs = append(c.refs, r)
	return ord
}

func (c *SemanticRefCollection) Get(i SemRefOrdinal) (SemanticRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.refs) {
		return SemanticRef{}, false
	}
	return c.refs[i], true
}

// MustGet panics with ErrIntegrity semantics surfaced to the caller: used by
// code paths where an out-of-range ordinal is a programming error, never
// expected in normal operation (the engine never returns partial results).
func (c *SemanticRefCollection) MustGet(i SemRefOrdinal) SemanticRef {
	r, ok := c.Get(i)
	if !ok {
		panic(convmem.WrapError("semanticRefCollection.get", convmem.ErrIntegrity))
	}
	return r
}

func (c *SemanticRefCollection) GetMultiple(ordinals []SemRefOrdinal) []SemanticRef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]SemanticRef, 0, len(ordinals))
	for _, i := range ordinals {
		if i >= 0 && i < len(c.refs) {
			out = append(out, c.refs[i])
		}
	}
	return out
}

func (c *SemanticRefCollection) All() []SemanticRef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]SemanticRef, len(c.refs))
	copy(out, c.refs)
	return out
}
