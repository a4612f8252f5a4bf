package query

import (
	"context"

	"github.com/convmem/convmem"
	"github.com/convmem/convmem/pkg/conv"
)

// RunTranslatedQuery drives the full natural-language pipeline: translate
// user text into a TranslatedQuery, then compile and execute each of its
// filters independently, returning one ConversationSearchResult per filter
// in translation order. A translation failure aborts the whole call with
// ErrTranslationFailed and no partial results, per the "stages 1–3 failed"
// error kind.
func RunTranslatedQuery(ctx context.Context, evalCtx *QueryEvalContext, compiler *Compiler, translator Translator, embedder conv.Embedder, text string, opts CompileOptions) ([]ConversationSearchResult, error) {
	translated, err := translator.Translate(ctx, text)
	if err != nil {
		return nil, convmem.WrapError("query.runTranslatedQuery", convmem.ErrTranslationFailed)
	}

	var results []ConversationSearchResult
	for _, expr := range translated.Exprs {
		var queryEmbedding []float32
		if embedder != nil && evalCtx.MessageText != nil && evalCtx.MessageText.Size() > 0 {
			v, err := embedder.Embed(ctx, expr.RewrittenQuery)
			if err == nil {
				queryEmbedding = v
			}
			// A permanent embedding failure here is the "rank step skipped"
			// notice case: fall through with queryEmbedding == nil so
			// CompileMessageQuery falls back to SelectTopN.
		}

		for _, args := range expr.ToCompileArgs() {
			result := SearchConversation(ctx, evalCtx, compiler, args.Group, nil, args.When, expr.RewrittenQuery, queryEmbedding, opts)
			results = append(results, result)
		}
	}
	return results, nil
}
