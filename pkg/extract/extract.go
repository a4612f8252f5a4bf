// Package extract defines the knowledge extractor contract: turning a raw
// text chunk into entities, actions, and topics. The engine treats every
// implementation as an opaque, retryable call — it never inspects how an
// extractor arrives at its answer.
package extract

import (
	"context"

	"github.com/convmem/convmem"
	"github.com/convmem/convmem/pkg/conv"
)

// Extractor turns one chunk of text into an ExtractionResult.
type Extractor interface {
	Extract(ctx context.Context, text string) (conv.ExtractionResult, error)
}

// DefaultBatchSize is the extraction batch size the core chooses absent an
// explicit override, matching Config.BatchSize's default.
const DefaultBatchSize = 10

// ExtractBatches walks chunks in groups of batchSize (or DefaultBatchSize if
// batchSize <= 0), calling extractor once per chunk, and returns one
// ExtractionResult per input chunk in order. The chunks of a group are not
// sent to the extractor in a single call. A failure on any chunk aborts the
// whole call and no results are returned, whatever the batch size.
func ExtractBatches(ctx context.Context, extractor Extractor, chunks []string, batchSize int) ([]conv.ExtractionResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	results := make([]conv.ExtractionResult, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		for _, chunk := range chunks[start:end] {
			res, err := extractor.Extract(ctx, chunk)
			if err != nil {
				return nil, convmem.WrapError("extract.extractBatches", convmem.ErrExtractionFailed)
			}
			results = append(results, res)
		}
	}
	return results, nil
}

// StubExtractor is a no-LLM extractor for tests and offline use: it derives
// a single topic per chunk (the chunk's own text, truncated) and no
// entities or actions. Real deployments provide their own Extractor backed
// by an LLM call; StubExtractor exists so the rest of the engine is
// exercisable without one.
type StubExtractor struct {
	// MaxTopicLen truncates the derived topic text; 0 means unbounded.
	MaxTopicLen int
}

// Extract implements Extractor.
func (s StubExtractor) Extract(_ context.Context, text string) (conv.ExtractionResult, error) {
	topic := text
	if s.MaxTopicLen > 0 && len(topic) > s.MaxTopicLen {
		topic = topic[:s.MaxTopicLen]
	}
	if topic == "" {
		return conv.ExtractionResult{}, nil
	}
	return conv.ExtractionResult{Topics: []string{topic}}, nil
}
