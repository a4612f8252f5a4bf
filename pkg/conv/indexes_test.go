package conv

import (
	"context"
	"testing"
)

func TestPrimaryIndexAddLookupRemove(t *testing.T) {
	idx := NewPrimaryIndex()
	idx.AddTerm("Dog", 1)
	idx.AddTerm("dog", 1) // duplicate (term, semref): collapsed
	idx.AddTerm("dog", 2)

	entries, ok := idx.LookupTerm("DOG")
	if !ok {
		t.Fatal("expected lookup to find normalized term")
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after dedup, got %d", len(entries))
	}

	idx.RemoveTerm("dog", 1)
	entries, ok = idx.LookupTerm("dog")
	if !ok || len(entries) != 1 || entries[0].SemrefOrdinal != 2 {
		t.Fatalf("expected only semref 2 to remain, got %+v", entries)
	}
}

func TestPropertyIndexRemoveAllForSemref(t *testing.T) {
	idx := NewPropertyIndex()
	idx.AddProperty("name", "Alice", 5)
	idx.AddProperty("type", "person", 5)
	idx.AddProperty("name", "Bob", 6)

	idx.RemoveAllForSemref(5)

	if _, ok := idx.LookupProperty("name", "Alice"); ok {
		t.Error("expected name=Alice entry for semref 5 to be removed")
	}
	if _, ok := idx.LookupProperty("type", "person"); ok {
		t.Error("expected type=person entry for semref 5 to be removed")
	}
	entries, ok := idx.LookupProperty("name", "Bob")
	if !ok || len(entries) != 1 {
		t.Fatalf("expected semref 6's entry to survive, got %+v", entries)
	}
}

func TestTimestampIndexPointQueryIsExact(t *testing.T) {
	idx := NewTimestampIndex()
	idx.AddTimestamp(0, "2024-01-01T00:00:00Z")
	idx.AddTimestamp(1, "2024-01-02T00:00:00Z")
	idx.AddTimestamp(2, "2024-01-02T00:00:00Z")
	idx.AddTimestamp(3, "2024-01-03T00:00:00Z")

	hits := idx.LookupRange(DateRange{Start: "2024-01-02T00:00:00Z"})
	if len(hits) != 2 {
		t.Fatalf("expected exactly 2 point-query hits, got %d", len(hits))
	}

	hits = idx.LookupRange(DateRange{Start: "2024-01-01T12:00:00Z"})
	if len(hits) != 0 {
		t.Fatalf("expected point query between stored timestamps to return nothing, got %d", len(hits))
	}
}

func TestTimestampIndexRangeIsStartInclusiveEndExclusive(t *testing.T) {
	idx := NewTimestampIndex()
	idx.AddTimestamp(0, "2024-01-01T00:00:00Z")
	idx.AddTimestamp(1, "2024-01-02T00:00:00Z")
	idx.AddTimestamp(2, "2024-01-03T00:00:00Z")

	end := "2024-01-03T00:00:00Z"
	hits := idx.LookupRange(DateRange{Start: "2024-01-01T00:00:00Z", End: &end})
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits (end exclusive), got %d", len(hits))
	}
	if hits[0].Timestamp > hits[1].Timestamp {
		t.Error("expected results sorted ascending by timestamp")
	}
}

func TestFuzzyTermIndexFiltersExactSelfMatch(t *testing.T) {
	ctx := context.Background()
	fi := NewFuzzyTermIndex(NewHashEmbedder(32))
	if err := fi.AddTerms(ctx, []string{"dog", "cat", "puppy"}); err != nil {
		t.Fatalf("AddTerms: %v", err)
	}

	hits, err := fi.LookupTerm(ctx, "dog", 5, 0)
	if err != nil {
		t.Fatalf("LookupTerm: %v", err)
	}
	for _, h := range hits {
		if h.Text == "dog" {
			t.Errorf("expected exact self-match to be filtered, got it in results: %+v", hits)
		}
	}
}

func TestAliasIndexLoadSeedAndLookup(t *testing.T) {
	ai := NewAliasIndex()
	ai.LoadSeed(map[string][]string{
		"say": {"tell", "mention"},
	})
	related, ok := ai.LookupTerm("SAY")
	if !ok {
		t.Fatal("expected lookup to find seeded alias under normalized term")
	}
	if len(related) != 2 {
		t.Fatalf("expected 2 related terms, got %d", len(related))
	}
}

func TestMessageTextIndexLookupMessagesAggregatesByMax(t *testing.T) {
	ctx := context.Background()
	idx := NewMessageTextIndex(NewHashEmbedder(32))
	msgs := []Message{
		{Chunks: []string{"the weather today", "is quite sunny"}},
		{Chunks: []string{"stock market news"}},
	}
	if err := idx.AddMessages(ctx, msgs); err != nil {
		t.Fatalf("AddMessages: %v", err)
	}

	results, err := idx.LookupMessages(ctx, "sunny weather", 5, -1)
	if err != nil {
		t.Fatalf("LookupMessages: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one message match")
	}
	if results[0].MessageOrdinal != 0 {
		t.Errorf("expected message 0 (weather chunks) to rank first, got %d", results[0].MessageOrdinal)
	}
}

func TestMessageTextIndexLookupMessagesInSubset(t *testing.T) {
	ctx := context.Background()
	idx := NewMessageTextIndex(NewHashEmbedder(32))
	msgs := []Message{
		{Chunks: []string{"alpha"}},
		{Chunks: []string{"beta"}},
		{Chunks: []string{"gamma"}},
	}
	if err := idx.AddMessages(ctx, msgs); err != nil {
		t.Fatalf("AddMessages: %v", err)
	}

	results, err := idx.LookupMessagesInSubset(ctx, "alpha", []MessageOrdinal{1, 2}, 5, -1)
	if err != nil {
		t.Fatalf("LookupMessagesInSubset: %v", err)
	}
	for _, r := range results {
		if r.MessageOrdinal == 0 {
			t.Error("expected subset filter to exclude message 0")
		}
	}
}
