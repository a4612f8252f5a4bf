package sqlitestore

import (
	"context"
	"testing"

	"github.com/convmem/convmem"
	"github.com/convmem/convmem/pkg/conv"
)

func TestOpenCreatesEmptyStore(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:", conv.NewHashEmbedder(16), convmem.DefaultConfig(), "test-convo")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close(ctx)

	if s.MessageCollection().Size() != 0 {
		t.Fatalf("expected empty message collection, got %d", s.MessageCollection().Size())
	}
	if got := s.Metadata().NameTag; got != "test-convo" {
		t.Fatalf("expected NameTag 'test-convo', got %q", got)
	}
}

func TestFlushThenRehydrateRoundTrips(t *testing.T) {
	ctx := context.Background()
	embedder := conv.NewHashEmbedder(16)
	s, err := Open(ctx, ":memory:", embedder, convmem.DefaultConfig(), "podcast-1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close(ctx)

	s.MessageCollection().Append(conv.Message{Chunks: []string{"Alice asked Bob about the budget"}, Timestamp: "2026-01-01T00:00:00Z"})
	ix := &conv.SemanticRefIndexer{Semrefs: s.SemanticRefCollection(), Primary: s.SemanticRefIndex(), Property: s.PropertyIndex()}
	ix.AddKnowledgeToSemanticRefIndex(0, 0, conv.ExtractionResult{
		Entities: []conv.Entity{{Name: "Alice", Types: []string{"person"}}},
		Topics:   []string{"budget"},
	})
	s.TimestampIndex().AddTimestamp(0, "2026-01-01T00:00:00Z")
	if err := s.MessageTextIndex().AddMessages(ctx, s.MessageCollection().All()); err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}
	s.ConversationThreads().Add(conv.Thread{Description: "budget talk"})

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	// Rehydrate a second in-process view from the same (in-memory-but-shared)
	// connection state by re-running rehydrate directly, simulating what
	// Open would do against a real file-backed database.
	fresh := &Store{
		db:           s.db,
		embedder:     embedder,
		messages:     conv.NewMessageCollection(),
		semrefs:      conv.NewSemanticRefCollection(),
		primary:      conv.NewPrimaryIndex(),
		property:     conv.NewPropertyIndex(),
		timestamp:    conv.NewTimestampIndex(),
		messageText:  conv.NewMessageTextIndex(embedder),
		relatedTerms: conv.NewRelatedTermsIndex(embedder),
		threads:      conv.NewThreadsIndex(),
	}
	if err := fresh.rehydrate(ctx, "podcast-1"); err != nil {
		t.Fatalf("rehydrate failed: %v", err)
	}

	if fresh.MessageCollection().Size() != 1 {
		t.Fatalf("expected 1 rehydrated message, got %d", fresh.MessageCollection().Size())
	}
	msg, ok := fresh.MessageCollection().Get(0)
	if !ok || msg.Chunks[0] != "Alice asked Bob about the budget" {
		t.Fatalf("expected rehydrated message chunk to round-trip, got %+v ok=%v", msg, ok)
	}
	if matches, ok := fresh.SemanticRefIndex().LookupTerm("alice"); !ok || len(matches) != 1 {
		t.Fatalf("expected rehydrated primary index to contain 'alice', got %v ok=%v", matches, ok)
	}
	if fresh.MessageTextIndex().Size() != 1 {
		t.Fatalf("expected 1 rehydrated message-text chunk, got %d", fresh.MessageTextIndex().Size())
	}
	if fresh.ConversationThreads().Size() != 1 {
		t.Fatalf("expected 1 rehydrated thread, got %d", fresh.ConversationThreads().Size())
	}
	entries := fresh.TimestampIndex().LookupRange(conv.DateRange{Start: "2026-01-01T00:00:00Z"})
	if len(entries) != 1 {
		t.Fatalf("expected 1 rehydrated timestamp entry, got %d", len(entries))
	}
}

func TestSplitPropertyKeyRoundTrips(t *testing.T) {
	name, value := splitPropertyKey("prop.name@@alice")
	if name != "name" || value != "alice" {
		t.Fatalf("expected (name, alice), got (%q, %q)", name, value)
	}
}
