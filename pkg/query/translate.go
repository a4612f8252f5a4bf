package query

import (
	"context"
	"strings"

	"github.com/convmem/convmem/pkg/conv"
)

// TranslatedFilter is one filter within a translated SearchExpr, mirroring
// the query translator's wire shape: an optional action search term, a list
// of entity search terms, a list of plain search terms, and an optional
// time range. All fields are optional; an empty filter matches nothing.
type TranslatedFilter struct {
	ActionSearchTerm  string
	EntitySearchTerms []string
	SearchTerms       []string
	TimeRange         *conv.DateRange
}

// TranslatedExpr is one SearchExpr returned by a translator: a
// human-readable rewritten form of the query plus one or more filters, each
// an independent interpretation of it (see TranslatedExpr.ToCompileArgs).
type TranslatedExpr struct {
	RewrittenQuery string
	Filters        []TranslatedFilter
}

// TranslatedQuery is a translator's full output: a SearchQuery is one or
// more SearchExprs, each independently compiled and executed, with results
// combined by the caller.
type TranslatedQuery struct {
	Exprs []TranslatedExpr
}

// Translator turns free-form user text into a TranslatedQuery. The engine
// treats every implementation as an opaque, retryable call — it never
// inspects how a translator arrives at its answer, matching how an
// extract.Extractor is treated. A real deployment's Translator is an LLM
// call with a schema-constrained prompt; that call is out of scope here.
type Translator interface {
	Translate(ctx context.Context, text string) (TranslatedQuery, error)
}

// SimpleTranslator is a no-LLM translator for tests and offline use: it
// treats the entire input as a single rewritten query with one filter whose
// search_terms are the input's lowercased, whitespace-split tokens. It never
// populates ActionSearchTerm, EntitySearchTerms, or TimeRange — those need
// real language understanding a stub can't provide. Real deployments supply
// their own Translator backed by an LLM call; SimpleTranslator exists so the
// rest of the pipeline is exercisable without one.
type SimpleTranslator struct{}

// Translate implements Translator.
func (SimpleTranslator) Translate(_ context.Context, text string) (TranslatedQuery, error) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return TranslatedQuery{}, nil
	}
	return TranslatedQuery{
		Exprs: []TranslatedExpr{
			{RewrittenQuery: text, Filters: []TranslatedFilter{{SearchTerms: fields}}},
		},
	}, nil
}

// CompileArgs is what a TranslatedFilter converts into: the arguments
// CompileKnowledgeQuery needs, ready to pass straight through.
type CompileArgs struct {
	Group SearchTermGroup
	When  *WhenFilter
}

// ToCompileArgs converts one TranslatedFilter into the SearchTermGroup and
// WhenFilter shapes CompileKnowledgeQuery expects. Action, entity, and plain
// search terms all become leaf SearchExprs ANDed together: action terms
// become PropertySearchTerms over PropVerb (matching how the compiler finds
// action terms via conv.PropVerb/PropSubject/PropObject/PropIndirectObject),
// entity and plain terms become unresolved SearchTerms.
func (f TranslatedFilter) ToCompileArgs() CompileArgs {
	var terms []SearchExpr

	if f.ActionSearchTerm != "" {
		terms = append(terms, PropertySearchTerm{
			PropertyName: conv.PropVerb,
			PropertyTerm: NewSearchTerm(f.ActionSearchTerm),
		})
	}
	for _, e := range f.EntitySearchTerms {
		if e == "" {
			continue
		}
		terms = append(terms, NewSearchTerm(e))
	}
	for _, t := range f.SearchTerms {
		if t == "" {
			continue
		}
		terms = append(terms, NewSearchTerm(t))
	}

	group := SearchTermGroup{BooleanOp: OpAnd, Terms: terms}

	var when *WhenFilter
	if f.TimeRange != nil {
		when = &WhenFilter{DateRange: f.TimeRange}
	}
	return CompileArgs{Group: group, When: when}
}

// ToCompileArgs converts every filter of a TranslatedExpr into CompileArgs.
// Filters within one SearchExpr are independent alternative interpretations
// of the same rewritten query: callers typically compile and execute each
// and union or pick the best-scoring result.
func (e TranslatedExpr) ToCompileArgs() []CompileArgs {
	out := make([]CompileArgs, len(e.Filters))
	for i, f := range e.Filters {
		out[i] = f.ToCompileArgs()
	}
	return out
}
