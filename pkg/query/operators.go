package query

import (
	"strings"

	"github.com/convmem/convmem/pkg/conv"
)

// MatchNode evaluates to a semref accumulator.
type MatchNode interface {
	Eval(ctx *QueryEvalContext) *Accumulator
}

// GroupedNode evaluates to semref accumulators grouped by knowledge type.
type GroupedNode interface {
	Eval(ctx *QueryEvalContext) map[conv.KnowledgeType]*Accumulator
}

// MessageNode evaluates to a message accumulator.
type MessageNode interface {
	Eval(ctx *QueryEvalContext) *MessageAccumulator
}

// MatchSearchTerm looks up term.Term.Text and every related term (once
// resolved by the compiler) in the primary index, summing scores into one
// accumulator. Entity-typed hits whose name or type matches the term text
// case-insensitively get their score boosted by
// EntityTermMatchWeight/DefaultTermMatchWeight.
type MatchSearchTerm struct {
	SearchTerm SearchTerm
}

func (n MatchSearchTerm) Eval(ctx *QueryEvalContext) *Accumulator {
	acc := NewAccumulator()
	if n.SearchTerm.Term.IsWildcard() {
		for _, ref := range ctx.Semrefs.All() {
			if !ctx.inScope(ref.Range) {
				continue
			}
			acc.Add(ref.Ordinal, 1.0)
		}
		return acc
	}

	texts := []string{n.SearchTerm.Term.Text}
	for _, rt := range n.SearchTerm.RelatedTerms {
		texts = append(texts, rt.Text)
	}

	booster := ctx.EntityTermMatchWeight / ctx.DefaultTermMatchWeight
	if booster == 0 {
		booster = 1
	}

	for _, text := range texts {
		entries, ok := ctx.Primary.LookupTerm(text)
		if !ok {
			continue
		}
		ctx.MatchedTerms = append(ctx.MatchedTerms, text)
		for _, e := range entries {
			ref, found := ctx.Semrefs.Get(e.SemrefOrdinal)
			if !found || !ctx.inScope(ref.Range) {
				continue
			}
			score := e.Score
			if ref.KnowledgeType == conv.KnowledgeEntity && ref.Knowledge.Entity != nil {
				ent := ref.Knowledge.Entity
				if strings.EqualFold(ent.Name, text) || containsFold(ent.Types, text) {
					score *= booster
				}
			}
			acc.Add(e.SemrefOrdinal, score)
		}
	}
	return acc
}

func containsFold(vals []string, text string) bool {
	for _, v := range vals {
		if strings.EqualFold(v, text) {
			return true
		}
	}
	return false
}

// MatchPropertySearchTerm routes to the property index under
// (property name, term text), summing in every related term the same way
// MatchSearchTerm does.
type MatchPropertySearchTerm struct {
	PST PropertySearchTerm
}

func (n MatchPropertySearchTerm) Eval(ctx *QueryEvalContext) *Accumulator {
	acc := NewAccumulator()
	if n.PST.PropertyTerm.Term.IsWildcard() {
		ctx.MatchedPropertyTerms = append(ctx.MatchedPropertyTerms, "*")
		for _, e := range ctx.Property.LookupPropertyName(n.PST.PropertyName) {
			ref, found := ctx.Semrefs.Get(e.SemrefOrdinal)
			if !found || !ctx.inScope(ref.Range) {
				continue
			}
			acc.Add(e.SemrefOrdinal, e.Score)
		}
		return acc
	}

	texts := []string{n.PST.PropertyTerm.Term.Text}
	for _, rt := range n.PST.PropertyTerm.RelatedTerms {
		texts = append(texts, rt.Text)
	}
	for _, text := range texts {
		entries, ok := ctx.Property.LookupProperty(n.PST.PropertyName, text)
		if !ok {
			continue
		}
		ctx.MatchedPropertyTerms = append(ctx.MatchedPropertyTerms, text)
		for _, e := range entries {
			ref, found := ctx.Semrefs.Get(e.SemrefOrdinal)
			if !found || !ctx.inScope(ref.Range) {
				continue
			}
			acc.Add(e.SemrefOrdinal, e.Score)
		}
	}
	return acc
}

// MatchTermsOr unions its children's accumulators, summing scores.
type MatchTermsOr struct {
	Children []MatchNode
}

func (n MatchTermsOr) Eval(ctx *QueryEvalContext) *Accumulator {
	acc := NewAccumulator()
	for _, c := range n.Children {
		acc.Union(c.Eval(ctx))
	}
	return acc
}

// MatchTermsOrMax is MatchTermsOr followed by a filter that keeps only refs
// whose hit count equals the union's observed maximum.
type MatchTermsOrMax struct {
	Children []MatchNode
}

func (n MatchTermsOrMax) Eval(ctx *QueryEvalContext) *Accumulator {
	union := MatchTermsOr{Children: n.Children}.Eval(ctx)
	return union.FilterByMaxHitCount()
}

// MatchTermsAnd intersects its children's accumulators, score = sum.
type MatchTermsAnd struct {
	Children []MatchNode
}

func (n MatchTermsAnd) Eval(ctx *QueryEvalContext) *Accumulator {
	accs := make([]*Accumulator, len(n.Children))
	for i, c := range n.Children {
		accs[i] = c.Eval(ctx)
	}
	return Intersect(accs)
}

// ScopeSelector computes the text ranges a GetScope node contributes.
type ScopeSelector interface {
	ComputeRanges(ctx *QueryEvalContext) []conv.TextRange
}

// DateRangeSelector scopes matches to messages whose timestamp falls in Range.
type DateRangeSelector struct {
	Range conv.DateRange
}

func (s DateRangeSelector) ComputeRanges(ctx *QueryEvalContext) []conv.TextRange {
	hits := ctx.Timestamp.LookupRange(s.Range)
	ranges := make([]conv.TextRange, 0, len(hits))
	for _, h := range hits {
		ranges = append(ranges, messageRange(ctx, h.MessageOrdinal))
	}
	return ranges
}

// MessagesSelector scopes matches to the messages touched by evaluating a
// message-producing sub-query (action-term-derived scope).
type MessagesSelector struct {
	Source MessageNode
}

func (s MessagesSelector) ComputeRanges(ctx *QueryEvalContext) []conv.TextRange {
	acc := s.Source.Eval(ctx)
	ranges := make([]conv.TextRange, 0, acc.Size())
	for _, ord := range acc.Values() {
		ranges = append(ranges, messageRange(ctx, ord))
	}
	return ranges
}

func messageRange(ctx *QueryEvalContext, ordinal conv.MessageOrdinal) conv.TextRange {
	numChunks := 1
	if msg, ok := ctx.Messages.Get(ordinal); ok {
		numChunks = len(msg.Chunks)
		if numChunks == 0 {
			numChunks = 1
		}
	}
	return conv.TextRangeForMessage(ordinal, numChunks)
}

// GetScope sets ctx.TextRangesInScope from the union of its selectors' text
// ranges, then evaluates Child within that restriction.
type GetScope struct {
	Selectors []ScopeSelector
	Child     MatchNode
}

func (n GetScope) Eval(ctx *QueryEvalContext) *Accumulator {
	if len(n.Selectors) == 0 {
		return n.Child.Eval(ctx)
	}
	var ranges []conv.TextRange
	for _, s := range n.Selectors {
		ranges = append(ranges, s.ComputeRanges(ctx)...)
	}
	prev := ctx.TextRangesInScope
	ctx.TextRangesInScope = ranges
	defer func() { ctx.TextRangesInScope = prev }()
	return n.Child.Eval(ctx)
}

// Predicate filters a single SemanticRef during WhereSemanticRef.
type Predicate func(ref conv.SemanticRef) bool

// KnowledgeTypePredicate builds a Predicate matching one knowledge type.
func KnowledgeTypePredicate(kt conv.KnowledgeType) Predicate {
	return func(ref conv.SemanticRef) bool { return ref.KnowledgeType == kt }
}

// WhereSemanticRef filters Child's matches by every predicate (AND of all predicates).
type WhereSemanticRef struct {
	Child      MatchNode
	Predicates []Predicate
}

func (n WhereSemanticRef) Eval(ctx *QueryEvalContext) *Accumulator {
	src := n.Child.Eval(ctx)
	if len(n.Predicates) == 0 {
		return src
	}
	out := NewAccumulator()
	for _, v := range src.Values() {
		ref, ok := ctx.Semrefs.Get(v)
		if !ok {
			continue
		}
		keep := true
		for _, p := range n.Predicates {
			if !p(ref) {
				keep = false
				break
			}
		}
		if keep {
			m, _ := src.Get(v)
			out.entries[v] = &m
			out.order = append(out.order, v)
		}
	}
	return out
}

// GroupByKnowledgeType partitions Child's matches by each matched semref's
// knowledge type.
type GroupByKnowledgeType struct {
	Child MatchNode
}

func (n GroupByKnowledgeType) Eval(ctx *QueryEvalContext) map[conv.KnowledgeType]*Accumulator {
	src := n.Child.Eval(ctx)
	out := make(map[conv.KnowledgeType]*Accumulator)
	for _, v := range src.Values() {
		ref, ok := ctx.Semrefs.Get(v)
		if !ok {
			continue
		}
		m, _ := src.Get(v)
		grp, ok := out[ref.KnowledgeType]
		if !ok {
			grp = NewAccumulator()
			out[ref.KnowledgeType] = grp
		}
		cp := m
		grp.entries[v] = &cp
		grp.order = append(grp.order, v)
	}
	return out
}

// SelectTopN keeps Child's top K matches by score (0 means unbounded).
type SelectTopN struct {
	Child MatchNode
	K     int
}

func (n SelectTopN) Eval(ctx *QueryEvalContext) *Accumulator {
	src := n.Child.Eval(ctx)
	return topNAccumulator(src, n.K)
}

func topNAccumulator(src *Accumulator, k int) *Accumulator {
	sorted := src.GetSortedByScore(0)
	if k > 0 && len(sorted) > k {
		sorted = sorted[:k]
	}
	out := NewAccumulator()
	for _, m := range sorted {
		cp := m
		out.entries[m.Value] = &cp
		out.order = append(out.order, m.Value)
	}
	return out
}

// SelectTopNKnowledgeGroup applies SelectTopN per knowledge-type group.
type SelectTopNKnowledgeGroup struct {
	Grouped GroupedNode
	K       int
}

func (n SelectTopNKnowledgeGroup) Eval(ctx *QueryEvalContext) map[conv.KnowledgeType]*Accumulator {
	grouped := n.Grouped.Eval(ctx)
	out := make(map[conv.KnowledgeType]*Accumulator, len(grouped))
	for kt, acc := range grouped {
		out[kt] = topNAccumulator(acc, n.K)
	}
	return out
}

// MessagesFromKnowledge derives a message accumulator from every message
// ordinal touched by the ranges of every semref across all groups.
type MessagesFromKnowledge struct {
	Grouped GroupedNode
}

func (n MessagesFromKnowledge) Eval(ctx *QueryEvalContext) *MessageAccumulator {
	grouped := n.Grouped.Eval(ctx)
	acc := NewAccumulator()
	for _, group := range grouped {
		for _, v := range group.Values() {
			ref, ok := ctx.Semrefs.Get(v)
			if !ok {
				continue
			}
			m, _ := group.Get(v)
			for msgOrd := ref.Range.Start.MessageOrdinal; msgOrd <= rangeEndMessage(ref); msgOrd++ {
				acc.Add(msgOrd, m.Score)
			}
		}
	}
	return acc
}

func rangeEndMessage(ref conv.SemanticRef) conv.MessageOrdinal {
	if ref.Range.End == nil {
		return ref.Range.Start.MessageOrdinal
	}
	end := ref.Range.End.MessageOrdinal
	if ref.Range.End.ChunkOrdinal == 0 && ref.Range.End.CharOrdinal == 0 && end > ref.Range.Start.MessageOrdinal {
		end--
	}
	return end
}

// RankMessagesBySimilarity re-ranks Child's messages by cosine similarity
// against QueryEmbedding on the message-text index, truncating to K
// (0 = unbounded) and filtering below Threshold.
type RankMessagesBySimilarity struct {
	Child          MessageNode
	QueryEmbedding []float32
	K              int
	Threshold      float64
}

func (n RankMessagesBySimilarity) Eval(ctx *QueryEvalContext) *MessageAccumulator {
	src := n.Child.Eval(ctx)
	subset := src.Values()
	ranked := ctx.MessageText.LookupInSubsetByEmbedding(n.QueryEmbedding, subset, n.K, n.Threshold)
	out := NewAccumulator()
	for _, r := range ranked {
		out.Add(r.MessageOrdinal, r.Score)
	}
	return out
}
