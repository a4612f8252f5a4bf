// Package query compiles and executes search term expressions over a
// conversation's indexes: an operator tree walks scored accumulators
// through boolean combination, scoping, filtering, grouping, and
// similarity re-ranking to produce a ConversationSearchResult.
package query

import "github.com/convmem/convmem/pkg/conv"

// BooleanOp selects how a SearchTermGroup's children combine.
type BooleanOp string

const (
	OpAnd   BooleanOp = "and"
	OpOr    BooleanOp = "or"
	OpOrMax BooleanOp = "or_max"
)

// SearchTerm is a leaf term plus optionally-resolved related terms.
// A term built by NewSearchTerm is unresolved: the compiler will try the
// alias map, then fuzzy. Once RelatedTerms has been assigned through
// WithExactMatch or WithRelatedTerms (even to nil or an empty slice), no
// further resolution runs; an empty list then means "exact match only".
type SearchTerm struct {
	Term         conv.Term
	RelatedTerms []conv.Term
	relatedSet   bool // true once RelatedTerms has been explicitly assigned, even to empty
}

// NewSearchTerm builds an unresolved SearchTerm (RelatedTerms nil: "resolve later").
func NewSearchTerm(text string) SearchTerm {
	return SearchTerm{Term: conv.NewTerm(text)}
}

// WithExactMatch marks a SearchTerm as exact-only: no related-term resolution.
func (st SearchTerm) WithExactMatch() SearchTerm {
	st.RelatedTerms = []conv.Term{}
	st.relatedSet = true
	return st
}

// NeedsResolution reports whether related-term resolution should still run
// for this term (RelatedTerms was never explicitly set).
func (st SearchTerm) NeedsResolution() bool {
	return !st.relatedSet
}

// WithRelatedTerms assigns explicit related terms, short-circuiting resolution.
func (st SearchTerm) WithRelatedTerms(related []conv.Term) SearchTerm {
	st.RelatedTerms = related
	st.relatedSet = true
	return st
}

// PropertySearchTerm matches a (property name, property value) pair. The
// property name is a literal string: only the value term goes through
// related-term resolution, and synonyms of a property name are not resolved.
type PropertySearchTerm struct {
	PropertyName  string
	PropertyTerm  SearchTerm
}

// SearchExpr is any node valid as a SearchTermGroup child: SearchTerm,
// PropertySearchTerm, or a nested SearchTermGroup.
type SearchExpr interface {
	isSearchExpr()
}

func (SearchTerm) isSearchExpr()         {}
func (PropertySearchTerm) isSearchExpr() {}
func (SearchTermGroup) isSearchExpr()    {}

// SearchTermGroup combines child expressions with a boolean operator.
type SearchTermGroup struct {
	BooleanOp BooleanOp
	Terms     []SearchExpr
}

// KnowledgeTypeFilter restricts a knowledge query to one knowledge type, if set.
type KnowledgeTypeFilter struct {
	KnowledgeType *conv.KnowledgeType
}

// WhenFilter scopes a query: an optional date range, and/or explicit
// scope-defining terms.
type WhenFilter struct {
	DateRange    *conv.DateRange
	ScopeTerms   []SearchExpr
}

// CompileOptions tunes a compilation pass.
type CompileOptions struct {
	ExactMatch            bool
	MaxKnowledgeMatches   int
	MaxMessageMatches     int
	ThresholdScore        float64
	MaxCharsInBudget      int
	EnsureSingleOccurrence bool
}
