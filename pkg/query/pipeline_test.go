package query

import (
	"context"
	"testing"

	"github.com/convmem/convmem/pkg/conv"
)

func TestRunTranslatedQueryEndToEnd(t *testing.T) {
	ctx := context.Background()
	embedder := conv.NewHashEmbedder(16)

	messages := conv.NewMessageCollection()
	semrefs := conv.NewSemanticRefCollection()
	primary := conv.NewPrimaryIndex()
	property := conv.NewPropertyIndex()
	timestamp := conv.NewTimestampIndex()
	related := conv.NewRelatedTermsIndex(embedder)
	msgText := conv.NewMessageTextIndex(embedder)

	messages.Append(conv.Message{Chunks: []string{"Alice asked Bob about the budget"}})
	ix := &conv.SemanticRefIndexer{Semrefs: semrefs, Primary: primary, Property: property}
	ix.AddKnowledgeToSemanticRefIndex(0, 0, conv.ExtractionResult{
		Entities: []conv.Entity{{Name: "Alice", Types: []string{"person"}}},
		Topics:   []string{"budget"},
	})
	if err := msgText.AddMessages(ctx, messages.All()); err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}

	evalCtx := NewQueryEvalContext(messages, semrefs, primary, property, timestamp, related, msgText)
	compiler := &Compiler{Resolver: &TermResolver{Related: related, DefaultTermMatchWeight: 10.0, RelatedIsExactThreshold: 0.95}}

	results, err := RunTranslatedQuery(ctx, evalCtx, compiler, SimpleTranslator{}, embedder, "alice", CompileOptions{MaxKnowledgeMatches: 10, MaxMessageMatches: 10})
	if err != nil {
		t.Fatalf("RunTranslatedQuery failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result for the single SimpleTranslator filter, got %d", len(results))
	}
	if len(results[0].MessageMatches) != 1 {
		t.Fatalf("expected the one message to match, got %v", results[0].MessageMatches)
	}
}

func TestRunTranslatedQueryEmptyInputYieldsNoResults(t *testing.T) {
	ctx := context.Background()
	embedder := conv.NewHashEmbedder(16)
	evalCtx := NewQueryEvalContext(conv.NewMessageCollection(), conv.NewSemanticRefCollection(), conv.NewPrimaryIndex(), conv.NewPropertyIndex(), conv.NewTimestampIndex(), conv.NewRelatedTermsIndex(embedder), conv.NewMessageTextIndex(embedder))
	compiler := &Compiler{}

	results, err := RunTranslatedQuery(ctx, evalCtx, compiler, SimpleTranslator{}, embedder, "   ", CompileOptions{})
	if err != nil {
		t.Fatalf("RunTranslatedQuery failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for empty translated query, got %d", len(results))
	}
}
