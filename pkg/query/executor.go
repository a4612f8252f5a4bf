package query

import (
	"context"

	"github.com/convmem/convmem/pkg/conv"
)

// KnowledgeSearchResult is one knowledge type's matches: semref ordinals and
// the term texts that contributed them.
type KnowledgeSearchResult struct {
	SemrefOrdinals []conv.SemRefOrdinal
	MatchedTerms   []string
}

// ConversationSearchResult is the top-level result of a conversation search:
// matched messages, matched knowledge grouped by type, and the raw query
// text that produced them (empty for a pure knowledge-term search).
type ConversationSearchResult struct {
	MessageMatches  []conv.MessageOrdinal
	KnowledgeMatches map[conv.KnowledgeType]KnowledgeSearchResult
	RawQueryText    string
}

// RunQuery evaluates a compiled knowledge expression against ctx and
// returns its per-type results in the shape a ConversationSearchResult needs.
func RunQuery(ctx *QueryEvalContext, expr GroupedNode) map[conv.KnowledgeType]KnowledgeSearchResult {
	grouped := expr.Eval(ctx)
	out := make(map[conv.KnowledgeType]KnowledgeSearchResult, len(grouped))
	for kt, acc := range grouped {
		sorted := acc.GetSortedByScore(0)
		ordinals := make([]conv.SemRefOrdinal, len(sorted))
		for i, m := range sorted {
			ordinals[i] = m.Value
		}
		out[kt] = KnowledgeSearchResult{SemrefOrdinals: ordinals}
	}
	return out
}

// SearchConversationKnowledge compiles and runs a pure knowledge-term query,
// with no message stage.
func SearchConversationKnowledge(reqCtx context.Context, ctx *QueryEvalContext, compiler *Compiler, group SearchTermGroup, filter *KnowledgeTypeFilter, when *WhenFilter, opts CompileOptions) map[conv.KnowledgeType]KnowledgeSearchResult {
	expr := compiler.CompileKnowledgeQuery(reqCtx, group, filter, when, opts)
	matched := RunQuery(ctx, expr)
	for kt, res := range matched {
		res.MatchedTerms = append([]string(nil), ctx.MatchedTerms...)
		matched[kt] = res
	}
	return matched
}

// SearchConversation runs the full pipeline: compile the knowledge
// expression, derive messages from it, optionally re-rank by similarity to
// queryEmbedding, and return both message and knowledge matches.
func SearchConversation(reqCtx context.Context, ctx *QueryEvalContext, compiler *Compiler, group SearchTermGroup, filter *KnowledgeTypeFilter, when *WhenFilter, queryText string, queryEmbedding []float32, opts CompileOptions) ConversationSearchResult {
	knowledgeExpr := compiler.CompileKnowledgeQuery(reqCtx, group, filter, when, opts)
	knowledgeMatches := RunQuery(ctx, knowledgeExpr)
	for kt, res := range knowledgeMatches {
		res.MatchedTerms = append([]string(nil), ctx.MatchedTerms...)
		knowledgeMatches[kt] = res
	}

	messageExpr := compiler.CompileMessageQuery(knowledgeExpr, queryEmbedding, opts)
	messageAcc := messageExpr.Eval(ctx)
	sorted := messageAcc.GetSortedByScore(0)
	messages := make([]conv.MessageOrdinal, len(sorted))
	for i, m := range sorted {
		messages[i] = m.Value
	}

	return ConversationSearchResult{
		MessageMatches:   messages,
		KnowledgeMatches: knowledgeMatches,
		RawQueryText:     queryText,
	}
}
