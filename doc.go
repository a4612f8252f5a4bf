// Package convmem implements a conversational memory engine: it ingests
// ordered collections of messages (podcast transcripts, meeting recordings,
// email threads), extracts structured knowledge from them, builds a family
// of interlocking indexes, and answers natural-language questions by
// compiling them into structured queries over those indexes.
//
// # Layout
//
//	pkg/conv     data model, collections, and the seven indexes
//	pkg/query    search term algebra, compiled operator tree, compiler, executor
//	pkg/extract  knowledge extractor interface and batching helper
//	pkg/storage  storage provider facade (in-memory and SQLite backends)
//
// # Quick start
//
//	provider := memstore.New(conv.NewHashEmbedder(64), "my-conversation")
//	builder := build.New(provider, extractor, convmem.DefaultConfig().BatchSize)
//	builder.AddMessages(ctx, messages)
//	evalCtx := query.NewQueryEvalContext(provider.MessageCollection(),
//		provider.SemanticRefCollection(), provider.SemanticRefIndex(),
//		provider.PropertyIndex(), provider.TimestampIndex(),
//		provider.RelatedTermsIndex(), provider.MessageTextIndex())
//	result := query.SearchConversation(ctx, evalCtx, &query.Compiler{}, termGroup,
//		nil, nil, "", nil, query.CompileOptions{})
//
// convmem is 100% pure Go: the SQLite backend uses modernc.org/sqlite, so no
// cgo toolchain is required to build or cross-compile.
package convmem
