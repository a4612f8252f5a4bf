// Package build is the index-building pipeline: it takes newly-appended
// messages, runs knowledge extraction over their chunks and
// metadata-to-knowledge derivation, and registers the results in the
// primary, property, timestamp and message-text indexes of a
// storage.Provider. The related-terms index is not built here: AddMessages
// leaves it unchanged.
package build

import (
	"context"

	"github.com/convmem/convmem"
	"github.com/convmem/convmem/pkg/conv"
	"github.com/convmem/convmem/pkg/extract"
	"github.com/convmem/convmem/pkg/storage"
)

// Builder holds the extractor used for new chunks and a batch size;
// everything else comes from its storage.Provider. AddMessages calls the
// extractor once per chunk and does not read BatchSize.
type Builder struct {
	Provider  storage.Provider
	Extractor extract.Extractor
	BatchSize int
	Validator conv.KnowledgeValidator
}

// New returns a Builder with batchSize (or extract.DefaultBatchSize if <= 0).
func New(provider storage.Provider, extractor extract.Extractor, batchSize int) *Builder {
	if batchSize <= 0 {
		batchSize = extract.DefaultBatchSize
	}
	return &Builder{Provider: provider, Extractor: extractor, BatchSize: batchSize}
}

// AddMessages appends msgs to the provider's message collection and builds
// every downstream index over them: knowledge extraction per chunk,
// metadata-derived knowledge, the timestamp index (for messages carrying a
// timestamp), and the message-text vector index. Knowledge extraction
// failures abort the whole call per the "extraction failure" error kind;
// messages already appended to the collection remain (mirrors how a
// per-batch SQLite transaction only rolls back the current batch's index
// writes, not the message rows already committed by an earlier call).
func (b *Builder) AddMessages(ctx context.Context, msgs []conv.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	startOrdinal := b.Provider.MessageCollection().Extend(msgs)
	stored := b.Provider.MessageCollection().GetSlice(startOrdinal, startOrdinal+len(msgs))

	ix := &conv.SemanticRefIndexer{
		Semrefs:  b.Provider.SemanticRefCollection(),
		Primary:  b.Provider.SemanticRefIndex(),
		Property: b.Provider.PropertyIndex(),
	}

	conv.AddMetadataToIndex(stored, ix.Semrefs, ix.Primary, ix.Property, b.Validator)

	for _, msg := range stored {
		for chunkOrdinal, chunk := range msg.Chunks {
			result, err := b.Extractor.Extract(ctx, chunk)
			if err != nil {
				return convmem.WrapError("build.addMessages", convmem.ErrExtractionFailed)
			}
			ix.AddKnowledgeToSemanticRefIndex(msg.Ordinal, chunkOrdinal, result)
		}
		if msg.Timestamp != "" {
			b.Provider.TimestampIndex().AddTimestamp(msg.Ordinal, msg.Timestamp)
		}
	}

	if err := b.Provider.MessageTextIndex().AddMessagesStartingAt(ctx, startOrdinal, stored); err != nil {
		return convmem.WrapError("build.addMessages", convmem.ErrEmbeddingFailed)
	}

	return nil
}
