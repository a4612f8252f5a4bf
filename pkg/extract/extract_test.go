package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/convmem/convmem/pkg/conv"
)

func TestStubExtractorDerivesTopicFromChunk(t *testing.T) {
	e := StubExtractor{}
	res, err := e.Extract(context.Background(), "the weather was sunny")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Topics) != 1 || res.Topics[0] != "the weather was sunny" {
		t.Fatalf("expected chunk text as topic, got %+v", res.Topics)
	}
}

func TestStubExtractorTruncatesTopic(t *testing.T) {
	e := StubExtractor{MaxTopicLen: 5}
	res, err := e.Extract(context.Background(), "the weather was sunny")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Topics[0] != "the w" {
		t.Fatalf("expected truncated topic, got %q", res.Topics[0])
	}
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, string) (conv.ExtractionResult, error) {
	return conv.ExtractionResult{}, errors.New("boom")
}

func TestExtractBatchesPropagatesFailure(t *testing.T) {
	_, err := ExtractBatches(context.Background(), failingExtractor{}, []string{"a", "b"}, 1)
	if err == nil {
		t.Fatal("expected an error to propagate from a failing extractor")
	}
}

func TestExtractBatchesPreservesOrder(t *testing.T) {
	results, err := ExtractBatches(context.Background(), StubExtractor{}, []string{"one", "two", "three"}, 2)
	if err != nil {
		t.Fatalf("ExtractBatches: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"one", "two", "three"} {
		if results[i].Topics[0] != want {
			t.Errorf("result %d: expected topic %q, got %q", i, want, results[i].Topics[0])
		}
	}
}
