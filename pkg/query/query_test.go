package query

import (
	"context"
	"testing"

	"github.com/convmem/convmem/pkg/conv"
)

func buildFixture(t *testing.T) (*QueryEvalContext, conv.SemRefOrdinal, conv.SemRefOrdinal) {
	t.Helper()
	messages := conv.NewMessageCollection()
	messages.Append(conv.Message{Chunks: []string{"Alice asked Bob about the budget"}})
	messages.Append(conv.Message{Chunks: []string{"Bob replied with numbers"}})

	semrefs := conv.NewSemanticRefCollection()
	primary := conv.NewPrimaryIndex()
	property := conv.NewPropertyIndex()
	ix := &conv.SemanticRefIndexer{Semrefs: semrefs, Primary: primary, Property: property}

	ix.AddKnowledgeToSemanticRefIndex(0, 0, conv.ExtractionResult{
		Entities: []conv.Entity{{Name: "Alice", Types: []string{"person"}}},
		Actions: []conv.Action{{
			Verbs: []string{"ask"}, SubjectEntityName: "Alice", ObjectEntityName: "Bob",
			IndirectObjectName: conv.NoneEntity,
		}},
		Topics: []string{"budget"},
	})
	aliceEntityOrd := 0

	ix.AddKnowledgeToSemanticRefIndex(1, 0, conv.ExtractionResult{
		Entities: []conv.Entity{{Name: "Bob", Types: []string{"person"}}},
		Actions: []conv.Action{{
			Verbs: []string{"reply"}, SubjectEntityName: "Bob", ObjectEntityName: "Alice",
			IndirectObjectName: conv.NoneEntity,
		}},
	})
	bobEntityOrd := 3

	timestamp := conv.NewTimestampIndex()
	related := conv.NewRelatedTermsIndex(conv.NewHashEmbedder(16))
	msgText := conv.NewMessageTextIndex(conv.NewHashEmbedder(16))

	ctx := NewQueryEvalContext(messages, semrefs, primary, property, timestamp, related, msgText)
	return ctx, aliceEntityOrd, bobEntityOrd
}

func TestMatchSearchTermFindsEntityByName(t *testing.T) {
	ctx, aliceOrd, _ := buildFixture(t)
	node := MatchSearchTerm{SearchTerm: NewSearchTerm("alice").WithExactMatch()}
	acc := node.Eval(ctx)
	if !acc.Has(aliceOrd) {
		t.Fatalf("expected entity semref %d to match term 'alice', got %v", aliceOrd, acc.Values())
	}
}

func TestMatchSearchTermAppliesEntityScoreBooster(t *testing.T) {
	ctx, aliceOrd, _ := buildFixture(t)
	node := MatchSearchTerm{SearchTerm: NewSearchTerm("alice").WithExactMatch()}
	acc := node.Eval(ctx)
	m, ok := acc.Get(aliceOrd)
	if !ok {
		t.Fatal("expected a match")
	}
	// base score 1.0 * (100/10) booster = 10.0
	if m.Score < 9.9 {
		t.Errorf("expected boosted score near 10.0 for entity-name match, got %f", m.Score)
	}
}

func TestMatchTermsAndIntersects(t *testing.T) {
	ctx, aliceOrd, _ := buildFixture(t)
	and := MatchTermsAnd{Children: []MatchNode{
		MatchSearchTerm{SearchTerm: NewSearchTerm("alice").WithExactMatch()},
		MatchSearchTerm{SearchTerm: NewSearchTerm("person").WithExactMatch()},
	}}
	acc := and.Eval(ctx)
	if !acc.Has(aliceOrd) {
		t.Fatalf("expected AND of alice & person to include shared semref %d", aliceOrd)
	}
}

func TestMatchTermsOrMaxKeepsOnlyMaxHitCount(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(1, 5) // hit_count 1
	acc.Add(2, 5)
	acc.Add(2, 5) // hit_count 2
	filtered := acc.FilterByMaxHitCount()
	if filtered.Has(1) {
		t.Error("expected value with lower hit count to be filtered out")
	}
	if !filtered.Has(2) {
		t.Error("expected value with max hit count to survive")
	}
}

func TestAccumulatorAddSemantics(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(7, 2.0)
	m, _ := acc.Get(7)
	if m.HitCount != 1 || m.Score != 2.0 {
		t.Fatalf("expected first add to set hit_count=1 score=2.0, got %+v", m)
	}
	acc.Add(7, 3.0)
	m, _ = acc.Get(7)
	if m.HitCount != 2 || m.Score != 5.0 {
		t.Fatalf("expected second add to increment hit_count and sum score, got %+v", m)
	}
}

func TestGetSortedByScoreStableDescending(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(1, 3.0)
	acc.Add(2, 5.0)
	acc.Add(3, 5.0)
	sorted := acc.GetSortedByScore(0)
	if sorted[0].Score != 5.0 || sorted[1].Score != 5.0 || sorted[2].Score != 3.0 {
		t.Fatalf("expected descending sort by score, got %+v", sorted)
	}
	if sorted[0].Value != 2 || sorted[1].Value != 3 {
		t.Errorf("expected stable tie order preserving insertion order, got %+v", sorted)
	}
}

func TestWildcardTermMatchesEverythingInScope(t *testing.T) {
	ctx, aliceOrd, bobOrd := buildFixture(t)
	node := MatchSearchTerm{SearchTerm: NewSearchTerm("*")}
	acc := node.Eval(ctx)
	if acc.Size() != ctx.Semrefs.Size() {
		t.Errorf("expected wildcard term to match every in-scope semref (%d), got %d", ctx.Semrefs.Size(), acc.Size())
	}
	if !acc.Has(aliceOrd) || !acc.Has(bobOrd) {
		t.Errorf("expected wildcard term to include both entity semrefs, got %v", acc.Values())
	}
}

func TestWildcardPropertyTermMatchesEveryValueUnderName(t *testing.T) {
	ctx, aliceOrd, _ := buildFixture(t)
	node := MatchPropertySearchTerm{PST: PropertySearchTerm{
		PropertyName: conv.PropName,
		PropertyTerm: NewSearchTerm("*"),
	}}
	acc := node.Eval(ctx)
	if !acc.Has(aliceOrd) {
		t.Errorf("expected wildcard property term to match every semref tagged under %q, got %v", conv.PropName, acc.Values())
	}
}

func TestCompileKnowledgeQueryEndToEnd(t *testing.T) {
	ctx, aliceOrd, _ := buildFixture(t)
	compiler := &Compiler{}
	group := SearchTermGroup{
		BooleanOp: OpOr,
		Terms:     []SearchExpr{NewSearchTerm("alice").WithExactMatch()},
	}
	expr := compiler.CompileKnowledgeQuery(context.Background(), group, nil, nil, CompileOptions{ExactMatch: true, MaxKnowledgeMatches: 10})
	results := RunQuery(ctx, expr)
	entityResult, ok := results[conv.KnowledgeEntity]
	if !ok {
		t.Fatal("expected an entity-type result group")
	}
	found := false
	for _, ord := range entityResult.SemrefOrdinals {
		if ord == aliceOrd {
			found = true
		}
	}
	if !found {
		t.Errorf("expected alice's entity semref in results, got %v", entityResult.SemrefOrdinals)
	}
}

func TestSearchConversationDerivesMessages(t *testing.T) {
	ctx, _, _ := buildFixture(t)
	compiler := &Compiler{}
	group := SearchTermGroup{
		BooleanOp: OpOr,
		Terms:     []SearchExpr{NewSearchTerm("alice").WithExactMatch()},
	}
	result := SearchConversation(context.Background(), ctx, compiler, group, nil, nil, "alice", nil, CompileOptions{ExactMatch: true})
	if len(result.MessageMatches) == 0 {
		t.Fatal("expected at least one message match derived from knowledge matches")
	}
	if result.MessageMatches[0] != 0 {
		t.Errorf("expected message 0 (Alice's message) to be derived, got %v", result.MessageMatches)
	}
}
