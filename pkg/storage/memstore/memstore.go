// Package memstore is the in-memory storage provider: it wraps pkg/conv's
// collections and indexes directly, adding only conversation metadata and a
// writer-serializing mutex on top. No data crosses a process boundary.
package memstore

import (
	"context"
	"sync"

	"github.com/convmem/convmem/pkg/conv"
	"github.com/convmem/convmem/pkg/storage"
)

// Store is the in-memory implementation of storage.Provider. Every method
// other than SetMetadata is safe for concurrent readers against a frozen
// (no in-flight writer) conversation; the mu field only serializes the
// metadata accessors — the underlying conv types carry their own
// sync.RWMutex guards, so the facade itself needs no lock around them.
type Store struct {
	mu       sync.RWMutex
	metadata storage.ConversationMetadata

	messages     *conv.MessageCollection
	semrefs      *conv.SemanticRefCollection
	primary      *conv.PrimaryIndex
	property     *conv.PropertyIndex
	timestamp    *conv.TimestampIndex
	messageText  *conv.MessageTextIndex
	relatedTerms *conv.RelatedTermsIndex
	threads      *conv.ThreadsIndex

	closed bool
}

// New returns an empty in-memory store. embedder supplies vectors for the
// message-text and fuzzy related-terms indexes; nameTag becomes the
// conversation's initial metadata NameTag.
func New(embedder conv.Embedder, nameTag string) *Store {
	return &Store{
		metadata:     storage.NewConversationMetadata(nameTag),
		messages:     conv.NewMessageCollection(),
		semrefs:      conv.NewSemanticRefCollection(),
		primary:      conv.NewPrimaryIndex(),
		property:     conv.NewPropertyIndex(),
		timestamp:    conv.NewTimestampIndex(),
		messageText:  conv.NewMessageTextIndex(embedder),
		relatedTerms: conv.NewRelatedTermsIndex(embedder),
		threads:      conv.NewThreadsIndex(),
	}
}

func (s *Store) MessageCollection() *conv.MessageCollection         { return s.messages }
func (s *Store) SemanticRefCollection() *conv.SemanticRefCollection { return s.semrefs }
func (s *Store) SemanticRefIndex() *conv.PrimaryIndex                { return s.primary }
func (s *Store) PropertyIndex() *conv.PropertyIndex                  { return s.property }
func (s *Store) TimestampIndex() *conv.TimestampIndex                { return s.timestamp }
func (s *Store) MessageTextIndex() *conv.MessageTextIndex            { return s.messageText }
func (s *Store) RelatedTermsIndex() *conv.RelatedTermsIndex          { return s.relatedTerms }
func (s *Store) ConversationThreads() *conv.ThreadsIndex             { return s.threads }

// Metadata returns a copy of the store's current conversation metadata.
func (s *Store) Metadata() storage.ConversationMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}

// SetMetadata replaces the store's conversation metadata.
func (s *Store) SetMetadata(m storage.ConversationMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = m
}

// Close marks the store closed. The in-memory backend holds no external
// resources, so this only flips the flag future calls may check.
func (s *Store) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

var _ storage.Provider = (*Store)(nil)
