// Package sqlitestore is the SQLite-backed storage provider: one database
// file per conversation (or ":memory:" for tests), with the in-process
// index structures from pkg/conv kept as a live cache that Flush persists
// and Open rehydrates from on startup.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/convmem/convmem"
	"github.com/convmem/convmem/pkg/conv"
	"github.com/convmem/convmem/pkg/storage"
)

// Store is the SQLite implementation of storage.Provider. db is held open
// for the provider's lifetime and closed only by Close, matching the
// single-writer, connection-held-for-lifetime convention.
type Store struct {
	db       *sql.DB
	embedder conv.Embedder
	closed   bool

	metadata storage.ConversationMetadata

	messages     *conv.MessageCollection
	semrefs      *conv.SemanticRefCollection
	primary      *conv.PrimaryIndex
	property     *conv.PropertyIndex
	timestamp    *conv.TimestampIndex
	messageText  *conv.MessageTextIndex
	relatedTerms *conv.RelatedTermsIndex
	threads      *conv.ThreadsIndex
}

// Open opens (creating if absent) the SQLite database at path, applies the
// fixed pragma string and the pool sizing from cfg, creates tables if missing, and
// rehydrates the in-process indexes from any existing rows. path may be
// ":memory:" for a private, connection-scoped database (tests only — a
// second connection to ":memory:" sees an empty database).
func Open(ctx context.Context, path string, embedder conv.Embedder, cfg convmem.Config, nameTag string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=-2000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, convmem.WrapError("sqlitestore.open", fmt.Errorf("failed to open database: %w", err))
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 10
	}
	if path == ":memory:" {
		// A private ":memory:" database lives on one connection only — a
		// second pooled connection would see a blank database. Force the
		// pool down to a single connection rather than leave that footgun
		// live for test callers.
		maxOpen, maxIdle = 1, 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(2 * time.Hour)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, convmem.WrapError("sqlitestore.open", fmt.Errorf("failed to enable foreign keys: %w", err))
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, convmem.WrapError("sqlitestore.open", fmt.Errorf("failed to create tables: %w", err))
	}

	s := &Store{
		db:           db,
		embedder:     embedder,
		messages:     conv.NewMessageCollection(),
		semrefs:      conv.NewSemanticRefCollection(),
		primary:      conv.NewPrimaryIndex(),
		property:     conv.NewPropertyIndex(),
		timestamp:    conv.NewTimestampIndex(),
		messageText:  conv.NewMessageTextIndex(embedder),
		relatedTerms: conv.NewRelatedTermsIndex(embedder),
		threads:      conv.NewThreadsIndex(),
	}

	if err := s.rehydrate(ctx, nameTag); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) MessageCollection() *conv.MessageCollection         { return s.messages }
func (s *Store) SemanticRefCollection() *conv.SemanticRefCollection { return s.semrefs }
func (s *Store) SemanticRefIndex() *conv.PrimaryIndex                { return s.primary }
func (s *Store) PropertyIndex() *conv.PropertyIndex                  { return s.property }
func (s *Store) TimestampIndex() *conv.TimestampIndex                { return s.timestamp }
func (s *Store) MessageTextIndex() *conv.MessageTextIndex            { return s.messageText }
func (s *Store) RelatedTermsIndex() *conv.RelatedTermsIndex          { return s.relatedTerms }
func (s *Store) ConversationThreads() *conv.ThreadsIndex             { return s.threads }

func (s *Store) Metadata() storage.ConversationMetadata { return s.metadata }

func (s *Store) SetMetadata(m storage.ConversationMetadata) { s.metadata = m }

// Closed reports whether Close has been called.
func (s *Store) Closed() bool { return s.closed }

// Close closes the underlying database connection. Callers should Flush
// first if they want in-process changes persisted.
func (s *Store) Close(_ context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return convmem.WrapError("sqlitestore.close", err)
	}
	return nil
}

var _ storage.Provider = (*Store)(nil)
