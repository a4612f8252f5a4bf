package build

import (
	"context"
	"testing"

	"github.com/convmem/convmem/pkg/conv"
	"github.com/convmem/convmem/pkg/extract"
	"github.com/convmem/convmem/pkg/storage/memstore"
)

func TestAddMessagesBuildsEveryIndex(t *testing.T) {
	ctx := context.Background()
	provider := memstore.New(conv.NewHashEmbedder(16), "test-convo")
	b := New(provider, extract.StubExtractor{}, 0)

	msgs := []conv.Message{
		{
			Chunks:    []string{"Alice asked Bob about the budget"},
			Timestamp: "2026-01-01T00:00:00Z",
			Metadata:  conv.PodcastMetadata{Speaker: "Alice", Listeners: []string{"Bob"}},
		},
		{
			Chunks: []string{"Bob replied with the numbers"},
		},
	}

	if err := b.AddMessages(ctx, msgs); err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}

	if got := provider.MessageCollection().Size(); got != 2 {
		t.Fatalf("expected 2 messages, got %d", got)
	}
	if provider.SemanticRefCollection().Size() == 0 {
		t.Fatalf("expected semrefs from metadata + extraction, got 0")
	}
	if _, ok := provider.SemanticRefIndex().LookupTerm("alice"); !ok {
		t.Fatalf("expected 'alice' registered in the primary index from podcast metadata")
	}
	entries := provider.TimestampIndex().LookupRange(conv.DateRange{Start: "2026-01-01T00:00:00Z"})
	if len(entries) != 1 {
		t.Fatalf("expected 1 timestamped message, got %d", len(entries))
	}
	if provider.MessageTextIndex().Size() != 2 {
		t.Fatalf("expected 2 message-text chunks, got %d", provider.MessageTextIndex().Size())
	}
}

func TestAddMessagesEmptyIsNoop(t *testing.T) {
	provider := memstore.New(conv.NewHashEmbedder(16), "test-convo")
	b := New(provider, extract.StubExtractor{}, 0)
	if err := b.AddMessages(context.Background(), nil); err != nil {
		t.Fatalf("expected no error on empty input, got %v", err)
	}
	if provider.MessageCollection().Size() != 0 {
		t.Fatalf("expected no messages appended")
	}
}
