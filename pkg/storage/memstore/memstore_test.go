package memstore

import (
	"context"
	"testing"

	"github.com/convmem/convmem/pkg/conv"
)

func TestNewStoreAccessorsAreUsable(t *testing.T) {
	s := New(conv.NewHashEmbedder(16), "podcast-1")

	ord := s.MessageCollection().Append(conv.Message{Chunks: []string{"hello"}})
	if ord != 0 {
		t.Fatalf("expected first message ordinal 0, got %d", ord)
	}
	if s.MessageCollection().Size() != 1 {
		t.Fatalf("expected 1 message, got %d", s.MessageCollection().Size())
	}

	s.SemanticRefIndex().AddTerm("alice", 0)
	matches, ok := s.SemanticRefIndex().LookupTerm("alice")
	if !ok || len(matches) != 1 {
		t.Fatalf("expected 1 primary index match, got %d ok=%v", len(matches), ok)
	}
}

func TestMetadataRoundTrips(t *testing.T) {
	s := New(conv.NewHashEmbedder(16), "email-1")
	m := s.Metadata()
	if m.NameTag != "email-1" {
		t.Fatalf("expected NameTag to default to constructor arg, got %q", m.NameTag)
	}
	m.Tags = []string{"support"}
	s.SetMetadata(m)
	if got := s.Metadata(); len(got.Tags) != 1 || got.Tags[0] != "support" {
		t.Fatalf("expected SetMetadata to persist tags, got %+v", got)
	}
}

func TestCloseMarksClosed(t *testing.T) {
	s := New(conv.NewHashEmbedder(16), "x")
	if s.Closed() {
		t.Fatal("expected fresh store to be open")
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error from Close: %v", err)
	}
	if !s.Closed() {
		t.Fatal("expected Close to mark the store closed")
	}
}

func TestConversationThreadsAccessor(t *testing.T) {
	s := New(conv.NewHashEmbedder(16), "x")
	ord := s.ConversationThreads().Add(conv.Thread{Description: "budget talk"})
	th, ok := s.ConversationThreads().Get(ord)
	if !ok || th.Description != "budget talk" {
		t.Fatalf("expected thread to round-trip, got %+v ok=%v", th, ok)
	}
}
