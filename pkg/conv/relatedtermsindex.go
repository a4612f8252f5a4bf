package conv

import (
	"context"
	"sync"
)

// ScoredTerm pairs related term text with a relatedness score.
type ScoredTerm struct {
	Text  string
	Score float64
}

// AliasIndex is a deterministic synonym map: term -> set of related terms,
// bulk-loaded from curated seed files (see aliases_podcast.go, aliases_email.go).
type AliasIndex struct {
	mu      sync.RWMutex
	aliases map[string][]Term
}

// NewAliasIndex returns an empty alias index.
func NewAliasIndex() *AliasIndex {
	return &AliasIndex{aliases: make(map[string][]Term)}
}

// AddAlias registers related as synonyms of term, merging with any already
// registered for that term and de-duplicating by normalized text.
func (a *AliasIndex) AddAlias(term string, related ...Term) {
	key := NormalizeTermText(term)
	if key == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	existing := a.aliases[key]
	for _, r := range related {
		dup := false
		for _, e := range existing {
			if e.Equal(r) {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, r)
		}
	}
	a.aliases[key] = existing
}

// LookupTerm returns the related terms stored for term, or nil, ok=false.
func (a *AliasIndex) LookupTerm(term string) ([]Term, bool) {
	key := NormalizeTermText(term)
	a.mu.RLock()
	defer a.mu.RUnlock()
	related, ok := a.aliases[key]
	if !ok {
		return nil, false
	}
	out := make([]Term, len(related))
	copy(out, related)
	return out, true
}

// LoadSeed bulk-loads a curated term->synonyms map, as produced by a seed
// file's init-time table (see aliases_podcast.go, aliases_email.go).
func (a *AliasIndex) LoadSeed(seed map[string][]string) {
	for term, synonyms := range seed {
		terms := make([]Term, len(synonyms))
		for i, s := range synonyms {
			terms[i] = NewTerm(s)
		}
		a.AddAlias(term, terms...)
	}
}

// Size returns the number of distinct terms with at least one alias.
func (a *AliasIndex) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.aliases)
}

// FuzzyTermIndex is an embedding-based near-neighbor index over every term
// ever added, backed by a VectorBase. An exact self-match (the query term
// itself, score ~= 1.0) is always filtered out of the results.
type FuzzyTermIndex struct {
	vb *VectorBase
}

// NewFuzzyTermIndex returns an empty fuzzy term index using embedder.
func NewFuzzyTermIndex(embedder Embedder) *FuzzyTermIndex {
	return &FuzzyTermIndex{vb: NewVectorBase(embedder)}
}

// AddTerm embeds and registers term for future fuzzy lookup.
func (f *FuzzyTermIndex) AddTerm(ctx context.Context, term string) error {
	_, err := f.vb.AddKey(ctx, NormalizeTermText(term))
	return err
}

// AddTerms batches AddTerm over several terms.
func (f *FuzzyTermIndex) AddTerms(ctx context.Context, terms []string) error {
	normalized := make([]string, len(terms))
	for i, t := range terms {
		normalized[i] = NormalizeTermText(t)
	}
	_, err := f.vb.AddKeys(ctx, normalized)
	return err
}

const exactSelfMatchThreshold = 0.999

// LookupTerm embeds text and returns up to maxHits related terms (excluding
// an exact self-match) scoring at least minScore, descending by score.
func (f *FuzzyTermIndex) LookupTerm(ctx context.Context, text string, maxHits int, minScore float64) ([]ScoredTerm, error) {
	results, err := f.LookupTerms(ctx, []string{text}, maxHits, minScore)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// LookupTerms is the vectorized form of LookupTerm.
func (f *FuzzyTermIndex) LookupTerms(ctx context.Context, texts []string, maxHits int, minScore float64) ([][]ScoredTerm, error) {
	out := make([][]ScoredTerm, len(texts))
	for i, text := range texts {
		normalized := NormalizeTermText(text)
		hits, err := f.vb.FuzzyLookup(ctx, normalized, maxHits+1, minScore)
		if err != nil {
			return nil, err
		}
		scored := make([]ScoredTerm, 0, len(hits))
		for _, h := range hits {
			term, ok := f.vb.GetText(h.Ordinal)
			if !ok {
				continue
			}
			if term == normalized && h.Score >= exactSelfMatchThreshold {
				continue
			}
			scored = append(scored, ScoredTerm{Text: term, Score: h.Score})
			if len(scored) == maxHits {
				break
			}
		}
		out[i] = scored
	}
	return out, nil
}

// RelatedTermsIndex composes the deterministic alias map and the fuzzy
// embedding index behind one interface, per the composite index contract.
type RelatedTermsIndex struct {
	Aliases    *AliasIndex
	FuzzyIndex *FuzzyTermIndex
}

// NewRelatedTermsIndex returns a composite index with an empty alias map and
// a fuzzy index backed by embedder.
func NewRelatedTermsIndex(embedder Embedder) *RelatedTermsIndex {
	return &RelatedTermsIndex{
		Aliases:    NewAliasIndex(),
		FuzzyIndex: NewFuzzyTermIndex(embedder),
	}
}

// RelatedTermsRow is the serialized shape of the composite index: the alias
// map plus the fuzzy index's vector base contents.
type RelatedTermsRow struct {
	Term          string
	TextItems     []string // always populated, even when empty, per the serialization contract
	FuzzyTexts    []string
	FuzzyVectors  [][]byte
}

// Serialize returns the alias map (term -> related term texts) and the
// fuzzy index's underlying vector base contents, for a storage provider to
// persist both sub-components together.
func (r *RelatedTermsIndex) Serialize() (aliasRows []RelatedTermsRow, fuzzyTexts []string, fuzzyVectors [][]byte, err error) {
	r.Aliases.mu.RLock()
	aliasRows = make([]RelatedTermsRow, 0, len(r.Aliases.aliases))
	for term, related := range r.Aliases.aliases {
		texts := make([]string, len(related))
		for i, t := range related {
			texts[i] = t.Text
		}
		aliasRows = append(aliasRows, RelatedTermsRow{Term: term, TextItems: texts})
	}
	r.Aliases.mu.RUnlock()

	fuzzyTexts, fuzzyVectors, err = r.FuzzyIndex.vb.Serialize()
	return aliasRows, fuzzyTexts, fuzzyVectors, err
}

// Deserialize replaces both sub-components' contents.
func (r *RelatedTermsIndex) Deserialize(aliasRows []RelatedTermsRow, fuzzyTexts []string, fuzzyVectors [][]byte) error {
	aliases := make(map[string][]Term, len(aliasRows))
	for _, row := range aliasRows {
		terms := make([]Term, len(row.TextItems))
		for i, t := range row.TextItems {
			terms[i] = NewTerm(t)
		}
		aliases[row.Term] = terms
	}
	r.Aliases.mu.Lock()
	r.Aliases.aliases = aliases
	r.Aliases.mu.Unlock()

	return r.FuzzyIndex.vb.Deserialize(fuzzyTexts, fuzzyVectors)
}
