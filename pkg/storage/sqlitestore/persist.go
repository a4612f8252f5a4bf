package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/convmem/convmem"
	"github.com/convmem/convmem/pkg/conv"
	"github.com/convmem/convmem/pkg/storage"
)

// Flush persists the entire current in-process state to the database in one
// transaction: every table is cleared and rewritten from the live conv
// structures via prepared statements, matching the "large-batch inserts use
// prepared statements + a single transaction" rule. This is a full-snapshot
// write rather than an incremental diff — acceptable for a conversation
// store whose total size is bounded by what one process holds in memory,
// and simpler than tracking per-call dirty sets.
func (s *Store) Flush(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return convmem.WrapError("sqlitestore.flush", err)
	}
	defer tx.Rollback()

	if err := flushMetadata(ctx, tx, s.metadata); err != nil {
		return err
	}
	if err := flushMessages(ctx, tx, s.messages); err != nil {
		return err
	}
	if err := flushSemanticRefs(ctx, tx, s.semrefs); err != nil {
		return err
	}
	if err := flushSemanticRefIndex(ctx, tx, s.primary); err != nil {
		return err
	}
	if err := flushPropertyIndex(ctx, tx, s.property); err != nil {
		return err
	}
	if err := flushTimestampIndex(ctx, tx, s.timestamp); err != nil {
		return err
	}
	if err := flushMessageTextIndex(ctx, tx, s.messageText); err != nil {
		return err
	}
	if err := flushRelatedTerms(ctx, tx, s.relatedTerms); err != nil {
		return err
	}
	if err := flushThreads(ctx, tx, s.threads); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return convmem.WrapError("sqlitestore.flush", err)
	}
	return nil
}

func flushMetadata(ctx context.Context, tx *sql.Tx, m storage.ConversationMetadata) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM ConversationMetadata`); err != nil {
		return convmem.WrapError("sqlitestore.flushMetadata", err)
	}
	tagsJSON, err := json.Marshal(m.Tags)
	if err != nil {
		return convmem.WrapError("sqlitestore.flushMetadata", err)
	}
	extraJSON, err := json.Marshal(m.Extra)
	if err != nil {
		return convmem.WrapError("sqlitestore.flushMetadata", err)
	}
	updatedAt := nowISO()
	createdAt := m.CreatedAt
	if createdAt == "" {
		createdAt = updatedAt
	}
	storeID := m.StoreID
	if storeID == "" {
		storeID = uuid.New().String()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO ConversationMetadata (store_id, name_tag, schema_version, created_at, updated_at, tags, extra) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		storeID, m.NameTag, m.SchemaVersion, createdAt, updatedAt, string(tagsJSON), string(extraJSON))
	if err != nil {
		return convmem.WrapError("sqlitestore.flushMetadata", err)
	}
	return nil
}

func flushMessages(ctx context.Context, tx *sql.Tx, messages *conv.MessageCollection) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM Messages`); err != nil {
		return convmem.WrapError("sqlitestore.flushMessages", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO Messages (msg_id, chunks, start_timestamp, tags, metadata, extra) VALUES (?, ?, ?, ?, ?, '{}')`)
	if err != nil {
		return convmem.WrapError("sqlitestore.flushMessages", err)
	}
	defer stmt.Close()

	for i, msg := range messages.All() {
		chunksJSON, err := json.Marshal(msg.Chunks)
		if err != nil {
			return convmem.WrapError("sqlitestore.flushMessages", err)
		}
		tagsJSON, err := json.Marshal(msg.Tags)
		if err != nil {
			return convmem.WrapError("sqlitestore.flushMessages", err)
		}
		metadataJSON, err := encodeMessageMetadata(msg.Metadata)
		if err != nil {
			return err
		}
		var ts sql.NullString
		if msg.Timestamp != "" {
			ts = sql.NullString{String: msg.Timestamp, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, string(chunksJSON), ts, string(tagsJSON), nullIfEmpty(metadataJSON)); err != nil {
			return convmem.WrapError("sqlitestore.flushMessages", err)
		}
	}
	return nil
}

func flushSemanticRefs(ctx context.Context, tx *sql.Tx, semrefs *conv.SemanticRefCollection) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM SemanticRefs`); err != nil {
		return convmem.WrapError("sqlitestore.flushSemanticRefs", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO SemanticRefs (semref_id, range_json, knowledge_type, knowledge_json) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return convmem.WrapError("sqlitestore.flushSemanticRefs", err)
	}
	defer stmt.Close()

	for i, ref := range semrefs.All() {
		rangeJSON, err := json.Marshal(ref.Range)
		if err != nil {
			return convmem.WrapError("sqlitestore.flushSemanticRefs", err)
		}
		knowledgeJSON, err := json.Marshal(ref.Knowledge)
		if err != nil {
			return convmem.WrapError("sqlitestore.flushSemanticRefs", err)
		}
		if _, err := stmt.ExecContext(ctx, i, string(rangeJSON), string(ref.KnowledgeType), string(knowledgeJSON)); err != nil {
			return convmem.WrapError("sqlitestore.flushSemanticRefs", err)
		}
	}
	return nil
}

func flushSemanticRefIndex(ctx context.Context, tx *sql.Tx, primary *conv.PrimaryIndex) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM SemanticRefIndex`); err != nil {
		return convmem.WrapError("sqlitestore.flushSemanticRefIndex", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO SemanticRefIndex (term, semref_id, score) VALUES (?, ?, ?)`)
	if err != nil {
		return convmem.WrapError("sqlitestore.flushSemanticRefIndex", err)
	}
	defer stmt.Close()

	for _, row := range primary.Serialize() {
		for _, e := range row.Entries {
			if _, err := stmt.ExecContext(ctx, row.Term, e.SemrefOrdinal, e.Score); err != nil {
				return convmem.WrapError("sqlitestore.flushSemanticRefIndex", err)
			}
		}
	}
	return nil
}

func flushPropertyIndex(ctx context.Context, tx *sql.Tx, property *conv.PropertyIndex) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM PropertyIndex`); err != nil {
		return convmem.WrapError("sqlitestore.flushPropertyIndex", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO PropertyIndex (prop_name, value_str, score, semref_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return convmem.WrapError("sqlitestore.flushPropertyIndex", err)
	}
	defer stmt.Close()

	for _, row := range property.Serialize() {
		name, value := splitPropertyKey(row.Key)
		for _, e := range row.Entries {
			if _, err := stmt.ExecContext(ctx, name, value, e.Score, e.SemrefOrdinal); err != nil {
				return convmem.WrapError("sqlitestore.flushPropertyIndex", err)
			}
		}
	}
	return nil
}

// splitPropertyKey reverses propertyKey's "prop.{name}@@{value}" format. Both
// name and value are already normalized text, which never contains "@@", so
// the first occurrence is the separator.
func splitPropertyKey(key string) (name, value string) {
	trimmed := strings.TrimPrefix(key, "prop.")
	idx := strings.Index(trimmed, "@@")
	if idx < 0 {
		return trimmed, ""
	}
	return trimmed[:idx], trimmed[idx+2:]
}

func flushTimestampIndex(ctx context.Context, tx *sql.Tx, timestamp *conv.TimestampIndex) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM TimestampIndex`); err != nil {
		return convmem.WrapError("sqlitestore.flushTimestampIndex", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO TimestampIndex (msg_id, timestamp) VALUES (?, ?)`)
	if err != nil {
		return convmem.WrapError("sqlitestore.flushTimestampIndex", err)
	}
	defer stmt.Close()

	for _, entry := range timestamp.Serialize() {
		if _, err := stmt.ExecContext(ctx, entry.MessageOrdinal, entry.Timestamp); err != nil {
			return convmem.WrapError("sqlitestore.flushTimestampIndex", err)
		}
	}
	return nil
}

func flushMessageTextIndex(ctx context.Context, tx *sql.Tx, messageText *conv.MessageTextIndex) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM MessageTextIndex`); err != nil {
		return convmem.WrapError("sqlitestore.flushMessageTextIndex", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO MessageTextIndex (msg_id, chunk_ordinal, embedding) VALUES (?, ?, ?)`)
	if err != nil {
		return convmem.WrapError("sqlitestore.flushMessageTextIndex", err)
	}
	defer stmt.Close()

	rows, err := messageText.Serialize()
	if err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.MessageOrdinal, row.ChunkOrdinal, row.Vector); err != nil {
			return convmem.WrapError("sqlitestore.flushMessageTextIndex", err)
		}
	}
	return nil
}

func flushRelatedTerms(ctx context.Context, tx *sql.Tx, related *conv.RelatedTermsIndex) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM RelatedTermsAliases`); err != nil {
		return convmem.WrapError("sqlitestore.flushRelatedTerms", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM RelatedTermsFuzzy`); err != nil {
		return convmem.WrapError("sqlitestore.flushRelatedTerms", err)
	}

	aliasStmt, err := tx.PrepareContext(ctx, `INSERT INTO RelatedTermsAliases (term, alias) VALUES (?, ?)`)
	if err != nil {
		return convmem.WrapError("sqlitestore.flushRelatedTerms", err)
	}
	defer aliasStmt.Close()

	fuzzyStmt, err := tx.PrepareContext(ctx, `INSERT INTO RelatedTermsFuzzy (term, term_embedding) VALUES (?, ?)`)
	if err != nil {
		return convmem.WrapError("sqlitestore.flushRelatedTerms", err)
	}
	defer fuzzyStmt.Close()

	aliasRows, fuzzyTexts, fuzzyVectors, err := related.Serialize()
	if err != nil {
		return err
	}
	for _, row := range aliasRows {
		for _, alias := range row.TextItems {
			if _, err := aliasStmt.ExecContext(ctx, row.Term, alias); err != nil {
				return convmem.WrapError("sqlitestore.flushRelatedTerms", err)
			}
		}
	}
	for i, term := range fuzzyTexts {
		if _, err := fuzzyStmt.ExecContext(ctx, term, fuzzyVectors[i]); err != nil {
			return convmem.WrapError("sqlitestore.flushRelatedTerms", err)
		}
	}
	return nil
}

func flushThreads(ctx context.Context, tx *sql.Tx, threads *conv.ThreadsIndex) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM ConversationThreads`); err != nil {
		return convmem.WrapError("sqlitestore.flushThreads", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ConversationThreads (thread_id, description, ranges_json) VALUES (?, ?, ?)`)
	if err != nil {
		return convmem.WrapError("sqlitestore.flushThreads", err)
	}
	defer stmt.Close()

	for i, th := range threads.All() {
		rangesJSON, err := json.Marshal(th.Ranges)
		if err != nil {
			return convmem.WrapError("sqlitestore.flushThreads", err)
		}
		if _, err := stmt.ExecContext(ctx, i, th.Description, string(rangesJSON)); err != nil {
			return convmem.WrapError("sqlitestore.flushThreads", err)
		}
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
