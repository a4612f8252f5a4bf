package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/convmem/convmem"
	"github.com/convmem/convmem/pkg/build"
	"github.com/convmem/convmem/pkg/conv"
	"github.com/convmem/convmem/pkg/extract"
	"github.com/convmem/convmem/pkg/query"
	"github.com/convmem/convmem/pkg/storage/sqlitestore"
)

var (
	dbPath       string
	questionText string
	batchFile    string
	vectorDim    int
	verbose      bool
	relationsOf  string
	relationsDir string
)

// argError marks a failure that should exit 2 (malformed input, missing
// database, bad flags) rather than 1, per the CLI's exit code contract.
type argError struct{ err error }

func (e argError) Error() string { return e.err.Error() }
func (e argError) Unwrap() error { return e.err }

func newArgError(format string, a ...any) error { return argError{fmt.Errorf(format, a...)} }

var rootCmd = &cobra.Command{
	Use:   "convmem",
	Short: "Conversational memory engine CLI",
	Long:  "Ingests transcripts into a conversation store and answers natural-language questions over it.",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <vtt-files...>",
	Short: "Build a new conversation database from WebVTT transcripts",
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
			return argError{err}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), args)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Translate, compile, and execute a natural-language question",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context())
	},
}

var relationsCmd = &cobra.Command{
	Use:   "relations",
	Short: "List the entity relationship edges extracted around one entity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelations(cmd.Context())
	},
}

func runIngest(ctx context.Context, vttFiles []string) error {
	logger := newCLILogger()
	if dbPath == "" {
		return newArgError("ingest: -d/--database is required")
	}
	if dbPath != ":memory:" {
		if _, err := os.Stat(dbPath); err == nil {
			return newArgError("ingest: database already exists: %s", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("ingest: failed to stat database path: %w", err)
		}
	}

	cfg := convmem.DefaultConfig()
	cfg.VectorDim = vectorDim
	cfg.Logger = logger

	embedder := conv.NewHashEmbedder(vectorDim)
	nameTag := strings.TrimSuffix(filepath.Base(vttFiles[0]), filepath.Ext(vttFiles[0]))

	provider, err := sqlitestore.Open(ctx, dbPath, embedder, cfg, nameTag)
	if err != nil {
		return fmt.Errorf("ingest: failed to open database: %w", err)
	}
	defer provider.Close(ctx)

	logger = logger.With("store_id", provider.Metadata().StoreID)
	builder := build.New(provider, extract.StubExtractor{}, cfg.BatchSize)

	stop := logger.StageTimer("ingest")
	total := 0
	for _, path := range vttFiles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cues, err := parseVTT(path)
		if err != nil {
			return fmt.Errorf("ingest: failed to parse %s: %w", path, err)
		}
		msgs := messagesFromCues(cues)
		if err := builder.AddMessages(ctx, msgs); err != nil {
			return fmt.Errorf("ingest: failed to index %s: %w", path, err)
		}
		total += len(msgs)
		logger.Info("ingested transcript", "file", path, "messages", len(msgs))
	}

	if err := provider.Flush(ctx); err != nil {
		return fmt.Errorf("ingest: failed to persist database: %w", err)
	}

	stop("database", dbPath, "messages", total)
	fmt.Printf("Ingested %d messages from %d file(s) into %s\n", total, len(vttFiles), dbPath)
	return nil
}

// messagesFromCues turns parsed VTT cues into Messages with podcast
// metadata: each cue's speaker addresses every other speaker seen in the
// transcript, matching PodcastMetadata's "say" action derivation.
func messagesFromCues(cues []vttCue) []conv.Message {
	speakers := make(map[string]bool)
	for _, c := range cues {
		if c.Speaker != "" {
			speakers[c.Speaker] = true
		}
	}

	msgs := make([]conv.Message, 0, len(cues))
	for _, c := range cues {
		if c.Text == "" {
			continue
		}
		var listeners []string
		for s := range speakers {
			if s != c.Speaker {
				listeners = append(listeners, s)
			}
		}
		msg := conv.Message{Chunks: []string{c.Text}}
		if c.Speaker != "" {
			msg.Metadata = conv.PodcastMetadata{Speaker: c.Speaker, Listeners: listeners}
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func runQuery(ctx context.Context) error {
	logger := newCLILogger()
	if dbPath == "" {
		return newArgError("query: --database is required")
	}
	if dbPath != ":memory:" {
		if _, err := os.Stat(dbPath); err != nil {
			return newArgError("query: database not found: %s", dbPath)
		}
	}
	if questionText == "" && batchFile == "" {
		return newArgError("query: one of --question or --batch is required")
	}

	cfg := convmem.DefaultConfig()
	cfg.VectorDim = vectorDim
	cfg.Logger = logger

	embedder := conv.NewHashEmbedder(vectorDim)
	provider, err := sqlitestore.Open(ctx, dbPath, embedder, cfg, "")
	if err != nil {
		return fmt.Errorf("query: failed to open database: %w", err)
	}
	defer provider.Close(ctx)
	logger = logger.With("store_id", provider.Metadata().StoreID)

	evalCtx := query.NewQueryEvalContext(
		provider.MessageCollection(), provider.SemanticRefCollection(), provider.SemanticRefIndex(),
		provider.PropertyIndex(), provider.TimestampIndex(), provider.RelatedTermsIndex(), provider.MessageTextIndex(),
	)
	evalCtx.EntityTermMatchWeight = cfg.EntityTermMatchWeight
	evalCtx.DefaultTermMatchWeight = cfg.DefaultTermMatchWeight
	compiler := &query.Compiler{Resolver: &query.TermResolver{
		Related:                 provider.RelatedTermsIndex(),
		RelatedIsExactThreshold: cfg.RelatedIsExactThreshold,
		DefaultTermMatchWeight:  cfg.DefaultTermMatchWeight,
		FuzzyMaxHits:            cfg.FuzzyMaxHits,
		FuzzyMinScore:           cfg.FuzzyMinScore,
	}}
	translator := query.SimpleTranslator{}
	opts := query.CompileOptions{MaxKnowledgeMatches: 50, MaxMessageMatches: 10}

	questions := []string{questionText}
	if batchFile != "" {
		lines, err := readLines(batchFile)
		if err != nil {
			return fmt.Errorf("query: failed to read batch file: %w", err)
		}
		questions = lines
	}

	for _, q := range questions {
		if strings.TrimSpace(q) == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := answerOne(ctx, evalCtx, compiler, translator, embedder, q, opts, logger); err != nil {
			return err
		}
	}
	return nil
}

// runRelations builds an in-memory entity relationship graph from every
// action extracted into the store and prints the edges touching one entity —
// a node/edge projection over the same subject-verb-object knowledge the
// property index already tags, rather than a second persisted store.
func runRelations(ctx context.Context) error {
	logger := newCLILogger()
	if dbPath == "" {
		return newArgError("relations: -d/--database is required")
	}
	if relationsOf == "" {
		return newArgError("relations: --entity is required")
	}
	if dbPath != ":memory:" {
		if _, err := os.Stat(dbPath); err != nil {
			return newArgError("relations: database not found: %s", dbPath)
		}
	}

	cfg := convmem.DefaultConfig()
	cfg.VectorDim = vectorDim
	cfg.Logger = logger

	embedder := conv.NewHashEmbedder(vectorDim)
	provider, err := sqlitestore.Open(ctx, dbPath, embedder, cfg, "")
	if err != nil {
		return fmt.Errorf("relations: failed to open database: %w", err)
	}
	defer provider.Close(ctx)
	logger = logger.With("store_id", provider.Metadata().StoreID)

	graph := conv.BuildEntityGraph(provider.SemanticRefCollection())
	var edges []conv.EntityEdge
	switch relationsDir {
	case "out":
		edges = graph.OutEdges(relationsOf)
	case "in":
		edges = graph.InEdges(relationsOf)
	case "both", "":
		edges = graph.Neighbors(relationsOf)
	default:
		return newArgError("relations: invalid --direction %q (use in, out, or both)", relationsDir)
	}

	if len(edges) == 0 {
		fmt.Printf("no relationship edges found for %q\n", relationsOf)
		return nil
	}
	for _, e := range edges {
		fmt.Printf("%s --%s(%g)--> %s\n", e.From, e.EdgeType, e.Weight, e.To)
	}
	return nil
}

func answerOne(ctx context.Context, evalCtx *query.QueryEvalContext, compiler *query.Compiler, translator query.Translator, embedder conv.Embedder, q string, opts query.CompileOptions, logger convmem.Logger) error {
	logger = logger.With("question", q)

	stop := logger.StageTimer("translate")
	translated, err := translator.Translate(ctx, q)
	stop()
	if err != nil {
		return convmem.WrapError("cli.query", convmem.ErrTranslationFailed)
	}

	stop = logger.StageTimer("compile_execute")
	results, err := query.RunTranslatedQuery(ctx, evalCtx, compiler, stubTranslatorOf(translated), embedder, q, opts)
	stop()
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	stop = logger.StageTimer("generate")
	answer := generateAnswer(q, results)
	stop()

	fmt.Printf("Q: %s\n%s\n\n", q, answer)
	return nil
}

// stubTranslatorOf wraps an already-computed TranslatedQuery as a
// Translator, so the timing split above can call Translate once itself and
// still reuse RunTranslatedQuery's compile+execute fan-out unchanged.
type stubTranslatorOf query.TranslatedQuery

func (s stubTranslatorOf) Translate(context.Context, string) (query.TranslatedQuery, error) {
	return query.TranslatedQuery(s), nil
}

// answer is the CLI's stand-in for the answer generator named in the
// external interfaces contract: it never calls an LLM, it only fills the
// Answered/NoAnswer shape from the search results already computed.
type answer struct {
	Type        string
	Answer      string
	WhyNoAnswer string
}

func generateAnswer(rawQuery string, results []query.ConversationSearchResult) string {
	a := buildAnswer(rawQuery, results)
	if a.Type == "NoAnswer" {
		return fmt.Sprintf("(no answer: %s)", a.WhyNoAnswer)
	}
	return a.Answer
}

func buildAnswer(_ string, results []query.ConversationSearchResult) answer {
	var matches []conv.MessageOrdinal
	for _, r := range results {
		matches = append(matches, r.MessageMatches...)
	}
	if len(matches) == 0 {
		return answer{Type: "NoAnswer", WhyNoAnswer: "no matching messages found"}
	}
	return answer{Type: "Answered", Answer: fmt.Sprintf("%d matching message(s): ordinals %v", len(matches), matches)}
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

func newCLILogger() convmem.Logger {
	level := convmem.LevelInfo
	if verbose {
		level = convmem.LevelDebug
	}
	return convmem.NewStdLogger(level)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "database", "d", "", "Conversation database file path")
	rootCmd.PersistentFlags().IntVarP(&vectorDim, "dimensions", "n", 64, "Embedding vector dimensions")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	queryCmd.Flags().StringVarP(&questionText, "question", "q", "", "Natural-language question")
	queryCmd.Flags().StringVar(&batchFile, "batch", "", "File with one question per line")

	relationsCmd.Flags().StringVarP(&relationsOf, "entity", "e", "", "Entity name to list relationship edges for")
	relationsCmd.Flags().StringVar(&relationsDir, "direction", "both", "Edge direction: in, out, or both")

	rootCmd.AddCommand(ingestCmd, queryCmd, relationsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return argError{err} })

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var ae argError
		switch {
		case errors.As(err, &ae):
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(2)
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(1)
		default:
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}
}
