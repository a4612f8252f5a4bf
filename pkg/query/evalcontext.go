package query

import "github.com/convmem/convmem/pkg/conv"

// QueryEvalContext is the operator tree's shared evaluation state: the
// collections and indexes it reads from, plus per-evaluation scope and
// term-resolution tracking.
type QueryEvalContext struct {
	Messages     *conv.MessageCollection
	Semrefs      *conv.SemanticRefCollection
	Primary      *conv.PrimaryIndex
	Property     *conv.PropertyIndex
	Timestamp    *conv.TimestampIndex
	RelatedTerms *conv.RelatedTermsIndex
	MessageText  *conv.MessageTextIndex

	EntityTermMatchWeight  float64
	DefaultTermMatchWeight float64

	// TextRangesInScope, when non-nil, restricts MatchSearchTerm and
	// MatchPropertySearchTerm to semrefs whose range falls within one of
	// these ranges. nil means unrestricted.
	TextRangesInScope []conv.TextRange

	// MatchedTerms / MatchedPropertyTerms record which terms actually
	// contributed matches during this evaluation, for reporting back in the
	// ConversationSearchResult.
	MatchedTerms         []string
	MatchedPropertyTerms []string
}

// NewQueryEvalContext builds a context from the storage provider's index
// accessors, with spec-default score weights.
func NewQueryEvalContext(messages *conv.MessageCollection, semrefs *conv.SemanticRefCollection, primary *conv.PrimaryIndex, property *conv.PropertyIndex, timestamp *conv.TimestampIndex, related *conv.RelatedTermsIndex, msgText *conv.MessageTextIndex) *QueryEvalContext {
	return &QueryEvalContext{
		Messages: messages, Semrefs: semrefs, Primary: primary, Property: property,
		Timestamp: timestamp, RelatedTerms: related, MessageText: msgText,
		EntityTermMatchWeight: 100.0, DefaultTermMatchWeight: 10.0,
	}
}

// inScope reports whether rng falls within the current scope restriction
// (always true when no scope is set).
func (ctx *QueryEvalContext) inScope(rng conv.TextRange) bool {
	if ctx.TextRangesInScope == nil {
		return true
	}
	for _, scope := range ctx.TextRangesInScope {
		if scope.Contains(rng) {
			return true
		}
	}
	return false
}
