package query

import (
	"context"

	"github.com/convmem/convmem/pkg/conv"
)

// TermResolver resolves a SearchTerm's related terms: first the alias map,
// then (if the term should resolve fuzzy) the fuzzy index. Terms whose
// resolved weight is >= relatedIsExactThreshold are promoted to the
// default-match weight.
type TermResolver struct {
	Related                *conv.RelatedTermsIndex
	RelatedIsExactThreshold float64
	DefaultTermMatchWeight  float64
	FuzzyMaxHits            int
	FuzzyMinScore           float64
	ShouldResolveFuzzy      func(term conv.Term) bool
}

func (r *TermResolver) resolve(ctx context.Context, st SearchTerm) SearchTerm {
	if !st.NeedsResolution() || st.Term.IsWildcard() {
		return st
	}
	if related, ok := r.Related.Aliases.LookupTerm(st.Term.Text); ok && len(related) > 0 {
		return st.WithRelatedTerms(related)
	}
	shouldFuzzy := r.ShouldResolveFuzzy == nil || r.ShouldResolveFuzzy(st.Term)
	if !shouldFuzzy {
		return st.WithRelatedTerms(nil)
	}
	hits, err := r.Related.FuzzyIndex.LookupTerm(ctx, st.Term.Text, r.FuzzyMaxHits, r.FuzzyMinScore)
	if err != nil {
		return st.WithRelatedTerms(nil)
	}
	related := make([]conv.Term, len(hits))
	for i, h := range hits {
		weight := h.Score
		if weight >= r.RelatedIsExactThreshold {
			weight = r.DefaultTermMatchWeight
		}
		related[i] = conv.NewWeightedTerm(h.Text, weight)
	}
	return st.WithRelatedTerms(related)
}

// dedupRelatedAcrossSelect implements "a related term appearing under
// multiple search terms is assigned only to the term that gave it its
// maximum weight", scoped to the select term pool of a non-AND group.
func dedupRelatedAcrossSelect(terms []SearchTerm) []SearchTerm {
	bestOwner := make(map[string]int) // related text -> index of owning term
	bestWeight := make(map[string]float64)
	for i, st := range terms {
		for _, rt := range st.RelatedTerms {
			w := rt.WeightOr(0)
			if cur, ok := bestWeight[rt.Text]; !ok || w > cur {
				bestWeight[rt.Text] = w
				bestOwner[rt.Text] = i
			}
		}
	}
	out := make([]SearchTerm, len(terms))
	for i, st := range terms {
		kept := make([]conv.Term, 0, len(st.RelatedTerms))
		for _, rt := range st.RelatedTerms {
			if bestOwner[rt.Text] == i {
				kept = append(kept, rt)
			}
		}
		st.RelatedTerms = kept
		out[i] = st
	}
	return out
}

// Compiler builds operator trees from search term groups, using a
// TermResolver for related-term resolution.
type Compiler struct {
	Resolver *TermResolver
}

// CompileKnowledgeQuery implements §4.L's knowledge compilation steps.
func (c *Compiler) CompileKnowledgeQuery(ctx context.Context, group SearchTermGroup, filter *KnowledgeTypeFilter, when *WhenFilter, opts CompileOptions) GroupedNode {
	if !opts.ExactMatch && c.Resolver != nil {
		group = c.resolveGroup(ctx, group, opts)
	}

	var matchNode MatchNode = c.compileGroup(group)

	var selectors []ScopeSelector
	if when != nil && when.DateRange != nil {
		selectors = append(selectors, DateRangeSelector{Range: *when.DateRange})
	}
	var scopeTerms []SearchExpr
	if when != nil && len(when.ScopeTerms) > 0 {
		scopeTerms = when.ScopeTerms
	} else {
		scopeTerms = extractActionTerms(group)
	}
	if len(scopeTerms) > 0 {
		scopeNode := c.compileGroup(SearchTermGroup{BooleanOp: OpOr, Terms: scopeTerms})
		selectors = append(selectors, MessagesSelector{Source: messageNodeFromMatch(scopeNode)})
	}
	if len(selectors) > 0 {
		matchNode = GetScope{Selectors: selectors, Child: matchNode}
	}

	if filter != nil && filter.KnowledgeType != nil {
		matchNode = WhereSemanticRef{Child: matchNode, Predicates: []Predicate{KnowledgeTypePredicate(*filter.KnowledgeType)}}
	}

	grouped := GroupByKnowledgeType{Child: matchNode}
	return SelectTopNKnowledgeGroup{Grouped: grouped, K: opts.MaxKnowledgeMatches}
}

// CompileMessageQuery implements §4.L's message compilation steps.
func (c *Compiler) CompileMessageQuery(knowledgeExpr GroupedNode, queryEmbedding []float32, opts CompileOptions) MessageNode {
	var node MessageNode = MessagesFromKnowledge{Grouped: knowledgeExpr}
	if queryEmbedding != nil {
		node = RankMessagesBySimilarity{Child: node, QueryEmbedding: queryEmbedding, K: opts.MaxMessageMatches, Threshold: opts.ThresholdScore}
	} else if opts.MaxMessageMatches > 0 {
		node = topNMessageNode{child: node, k: opts.MaxMessageMatches}
	}
	if opts.MaxCharsInBudget > 0 {
		node = charBudgetNode{child: node, maxChars: opts.MaxCharsInBudget}
	}
	return node
}

// topNMessageNode truncates a message accumulator to its top K by score.
type topNMessageNode struct {
	child MessageNode
	k     int
}

func (n topNMessageNode) Eval(ctx *QueryEvalContext) *MessageAccumulator {
	return topNAccumulator(n.child.Eval(ctx), n.k)
}

// charBudgetNode stops accumulating messages once the cumulative chunk
// length (summed over each message's Chunks) would exceed maxChars,
// processing messages in descending score order. Messages are kept while the
// running total is still zero, so the highest-scoring message is kept even
// when it alone exceeds maxChars.
type charBudgetNode struct {
	child    MessageNode
	maxChars int
}

func (n charBudgetNode) Eval(ctx *QueryEvalContext) *MessageAccumulator {
	src := n.child.Eval(ctx)
	sorted := src.GetSortedByScore(0)
	out := NewAccumulator()
	total := 0
	for _, m := range sorted {
		msg, ok := ctx.Messages.Get(m.Value)
		size := 0
		if ok {
			for _, chunk := range msg.Chunks {
				size += len(chunk)
			}
		}
		if total > 0 && total+size > n.maxChars {
			break
		}
		total += size
		out.Add(m.Value, m.Score)
	}
	return out
}

func (c *Compiler) compileGroup(group SearchTermGroup) MatchNode {
	children := make([]MatchNode, 0, len(group.Terms))
	for _, expr := range group.Terms {
		children = append(children, c.compileExpr(expr))
	}
	switch group.BooleanOp {
	case OpAnd:
		return MatchTermsAnd{Children: children}
	case OpOrMax:
		return MatchTermsOrMax{Children: children}
	default:
		return MatchTermsOr{Children: children}
	}
}

func (c *Compiler) compileExpr(expr SearchExpr) MatchNode {
	switch e := expr.(type) {
	case SearchTerm:
		return MatchSearchTerm{SearchTerm: e}
	case PropertySearchTerm:
		return MatchPropertySearchTerm{PST: e}
	case SearchTermGroup:
		return c.compileGroup(e)
	default:
		return MatchTermsOr{}
	}
}

// messageNodeFromMatch wraps a MatchNode as a MessageNode by deriving
// messages from its matches directly (single implicit knowledge group).
func messageNodeFromMatch(m MatchNode) MessageNode {
	return MessagesFromKnowledge{Grouped: singleGroup{child: m}}
}

type singleGroup struct{ child MatchNode }

func (s singleGroup) Eval(ctx *QueryEvalContext) map[conv.KnowledgeType]*Accumulator {
	return map[conv.KnowledgeType]*Accumulator{"": s.child.Eval(ctx)}
}

// resolveGroup returns a new SearchTermGroup with every leaf SearchTerm's
// related terms resolved via c.Resolver, recursively. When
// EnsureSingleOccurrence is set and group.BooleanOp is not AND, the direct
// SearchTerm children of this group (not nested groups) are deduplicated
// against each other per §4.K's dedup rule before recursing.
func (c *Compiler) resolveGroup(ctx context.Context, group SearchTermGroup, opts CompileOptions) SearchTermGroup {
	resolvedTerms := make([]SearchExpr, len(group.Terms))

	var directLeaves []SearchTerm
	var directLeafIdx []int
	for i, expr := range group.Terms {
		if st, ok := expr.(SearchTerm); ok {
			directLeaves = append(directLeaves, c.Resolver.resolve(ctx, st))
			directLeafIdx = append(directLeafIdx, i)
		}
	}
	if opts.EnsureSingleOccurrence && group.BooleanOp != OpAnd && len(directLeaves) > 0 {
		directLeaves = dedupRelatedAcrossSelect(directLeaves)
	}
	for j, i := range directLeafIdx {
		resolvedTerms[i] = directLeaves[j]
	}

	for i, expr := range group.Terms {
		switch e := expr.(type) {
		case SearchTerm:
			// handled above
		case PropertySearchTerm:
			e.PropertyTerm = c.Resolver.resolve(ctx, e.PropertyTerm)
			resolvedTerms[i] = e
		case SearchTermGroup:
			resolvedTerms[i] = c.resolveGroup(ctx, e, opts)
		}
	}
	return SearchTermGroup{BooleanOp: group.BooleanOp, Terms: resolvedTerms}
}

var actionPropertyNames = map[string]bool{
	conv.PropSubject: true, conv.PropVerb: true, conv.PropObject: true, conv.PropIndirectObject: true,
}

// extractActionTerms returns every top-level PropertySearchTerm in group
// whose property name is one of subject/verb/object/indirectObject — the
// fallback scope source when no explicit scope terms are given.
func extractActionTerms(group SearchTermGroup) []SearchExpr {
	var out []SearchExpr
	for _, t := range group.Terms {
		if pst, ok := t.(PropertySearchTerm); ok && actionPropertyNames[pst.PropertyName] {
			out = append(out, pst)
		}
	}
	return out
}
