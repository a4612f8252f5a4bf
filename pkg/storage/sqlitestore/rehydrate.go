package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/convmem/convmem"
	"github.com/convmem/convmem/pkg/conv"
	"github.com/convmem/convmem/pkg/storage"
)

// rehydrate loads every table's rows into the in-process conv structures, in
// ascending-ordinal order so appends reproduce the ordinals the rows were
// written under. No transaction is opened: this is a read-only pass.
func (s *Store) rehydrate(ctx context.Context, nameTag string) error {
	if err := s.rehydrateMetadata(ctx, nameTag); err != nil {
		return err
	}
	if err := s.rehydrateMessages(ctx); err != nil {
		return err
	}
	if err := s.rehydrateSemanticRefs(ctx); err != nil {
		return err
	}
	if err := s.rehydrateSemanticRefIndex(ctx); err != nil {
		return err
	}
	if err := s.rehydratePropertyIndex(ctx); err != nil {
		return err
	}
	if err := s.rehydrateTimestampIndex(ctx); err != nil {
		return err
	}
	if err := s.rehydrateMessageTextIndex(ctx); err != nil {
		return err
	}
	if err := s.rehydrateRelatedTerms(ctx); err != nil {
		return err
	}
	return s.rehydrateThreads(ctx)
}

func (s *Store) rehydrateMetadata(ctx context.Context, nameTag string) error {
	row := s.db.QueryRowContext(ctx, `SELECT store_id, name_tag, schema_version, created_at, updated_at, tags, extra FROM ConversationMetadata LIMIT 1`)
	var tagsJSON, extraJSON sql.NullString
	var m storage.ConversationMetadata
	err := row.Scan(&m.StoreID, &m.NameTag, &m.SchemaVersion, &m.CreatedAt, &m.UpdatedAt, &tagsJSON, &extraJSON)
	if err == sql.ErrNoRows {
		now := nowISO()
		m = storage.NewConversationMetadata(nameTag)
		m.CreatedAt, m.UpdatedAt = now, now
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO ConversationMetadata (store_id, name_tag, schema_version, created_at, updated_at, tags, extra) VALUES (?, ?, ?, ?, ?, '[]', '{}')`,
			m.StoreID, m.NameTag, m.SchemaVersion, m.CreatedAt, m.UpdatedAt)
		if err != nil {
			return convmem.WrapError("sqlitestore.rehydrateMetadata", err)
		}
		s.metadata = m
		return nil
	}
	if err != nil {
		return convmem.WrapError("sqlitestore.rehydrateMetadata", err)
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		_ = json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
	}
	if extraJSON.Valid && extraJSON.String != "" {
		_ = json.Unmarshal([]byte(extraJSON.String), &m.Extra)
	}
	s.metadata = m
	return nil
}

func (s *Store) rehydrateMessages(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT msg_id, chunks, start_timestamp, tags, metadata FROM Messages ORDER BY msg_id ASC`)
	if err != nil {
		return convmem.WrapError("sqlitestore.rehydrateMessages", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msgID int
		var chunksJSON string
		var startTs, tagsJSON, metadataJSON sql.NullString
		if err := rows.Scan(&msgID, &chunksJSON, &startTs, &tagsJSON, &metadataJSON); err != nil {
			return convmem.WrapError("sqlitestore.rehydrateMessages", err)
		}
		var chunks []string
		if err := json.Unmarshal([]byte(chunksJSON), &chunks); err != nil {
			return convmem.WrapError("sqlitestore.rehydrateMessages", err)
		}
		var tags []string
		if tagsJSON.Valid && tagsJSON.String != "" {
			_ = json.Unmarshal([]byte(tagsJSON.String), &tags)
		}
		metadata, err := decodeMessageMetadata(metadataJSON.String)
		if err != nil {
			return err
		}
		msg := conv.Message{Chunks: chunks, Tags: tags, Metadata: metadata}
		if startTs.Valid {
			msg.Timestamp = startTs.String
		}
		s.messages.Append(msg)
	}
	return rows.Err()
}

func (s *Store) rehydrateSemanticRefs(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT semref_id, range_json, knowledge_type, knowledge_json FROM SemanticRefs ORDER BY semref_id ASC`)
	if err != nil {
		return convmem.WrapError("sqlitestore.rehydrateSemanticRefs", err)
	}
	defer rows.Close()

	for rows.Next() {
		var semrefID int
		var rangeJSON, knowledgeType, knowledgeJSON string
		if err := rows.Scan(&semrefID, &rangeJSON, &knowledgeType, &knowledgeJSON); err != nil {
			return convmem.WrapError("sqlitestore.rehydrateSemanticRefs", err)
		}
		var rng conv.TextRange
		if err := json.Unmarshal([]byte(rangeJSON), &rng); err != nil {
			return convmem.WrapError("sqlitestore.rehydrateSemanticRefs", err)
		}
		var k conv.Knowledge
		if err := json.Unmarshal([]byte(knowledgeJSON), &k); err != nil {
			return convmem.WrapError("sqlitestore.rehydrateSemanticRefs", err)
		}
		s.semrefs.Append(conv.SemanticRef{Range: rng, KnowledgeType: conv.KnowledgeType(knowledgeType), Knowledge: k})
	}
	return rows.Err()
}

func (s *Store) rehydrateSemanticRefIndex(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT term, semref_id, score FROM SemanticRefIndex ORDER BY rowid ASC`)
	if err != nil {
		return convmem.WrapError("sqlitestore.rehydrateSemanticRefIndex", err)
	}
	defer rows.Close()
	for rows.Next() {
		var term string
		var semrefID int
		var score float64
		if err := rows.Scan(&term, &semrefID, &score); err != nil {
			return convmem.WrapError("sqlitestore.rehydrateSemanticRefIndex", err)
		}
		s.primary.AddTermScored(term, semrefID, score)
	}
	return rows.Err()
}

func (s *Store) rehydratePropertyIndex(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT prop_name, value_str, semref_id FROM PropertyIndex ORDER BY rowid ASC`)
	if err != nil {
		return convmem.WrapError("sqlitestore.rehydratePropertyIndex", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, value string
		var semrefID int
		if err := rows.Scan(&name, &value, &semrefID); err != nil {
			return convmem.WrapError("sqlitestore.rehydratePropertyIndex", err)
		}
		s.property.AddProperty(name, value, semrefID)
	}
	return rows.Err()
}

func (s *Store) rehydrateTimestampIndex(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT msg_id, timestamp FROM TimestampIndex ORDER BY timestamp ASC`)
	if err != nil {
		return convmem.WrapError("sqlitestore.rehydrateTimestampIndex", err)
	}
	defer rows.Close()
	for rows.Next() {
		var msgID int
		var ts string
		if err := rows.Scan(&msgID, &ts); err != nil {
			return convmem.WrapError("sqlitestore.rehydrateTimestampIndex", err)
		}
		s.timestamp.AddTimestamp(msgID, ts)
	}
	return rows.Err()
}

// rehydrateMessageTextIndex streams embedding blobs in (msg_id, chunk_ordinal)
// order, the order the vector base's ordinals must line up with.
func (s *Store) rehydrateMessageTextIndex(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT msg_id, chunk_ordinal, embedding FROM MessageTextIndex ORDER BY msg_id ASC, chunk_ordinal ASC`)
	if err != nil {
		return convmem.WrapError("sqlitestore.rehydrateMessageTextIndex", err)
	}
	defer rows.Close()
	var out []conv.MessageTextIndexRow
	for rows.Next() {
		var msgID, chunkOrdinal int
		var blob []byte
		if err := rows.Scan(&msgID, &chunkOrdinal, &blob); err != nil {
			return convmem.WrapError("sqlitestore.rehydrateMessageTextIndex", err)
		}
		out = append(out, conv.MessageTextIndexRow{MessageOrdinal: msgID, ChunkOrdinal: chunkOrdinal, Vector: blob})
	}
	if err := rows.Err(); err != nil {
		return convmem.WrapError("sqlitestore.rehydrateMessageTextIndex", err)
	}
	return s.messageText.Deserialize(out)
}

func (s *Store) rehydrateRelatedTerms(ctx context.Context) error {
	aliasRows, err := s.db.QueryContext(ctx, `SELECT term, alias FROM RelatedTermsAliases ORDER BY rowid ASC`)
	if err != nil {
		return convmem.WrapError("sqlitestore.rehydrateRelatedTerms", err)
	}
	byTerm := make(map[string][]string)
	var termOrder []string
	for aliasRows.Next() {
		var term, alias string
		if err := aliasRows.Scan(&term, &alias); err != nil {
			aliasRows.Close()
			return convmem.WrapError("sqlitestore.rehydrateRelatedTerms", err)
		}
		if _, seen := byTerm[term]; !seen {
			termOrder = append(termOrder, term)
		}
		byTerm[term] = append(byTerm[term], alias)
	}
	if err := aliasRows.Err(); err != nil {
		aliasRows.Close()
		return convmem.WrapError("sqlitestore.rehydrateRelatedTerms", err)
	}
	aliasRows.Close()

	aliasRowsOut := make([]conv.RelatedTermsRow, 0, len(termOrder))
	for _, term := range termOrder {
		aliasRowsOut = append(aliasRowsOut, conv.RelatedTermsRow{Term: term, TextItems: byTerm[term]})
	}

	fuzzyRows, err := s.db.QueryContext(ctx, `SELECT term, term_embedding FROM RelatedTermsFuzzy ORDER BY rowid ASC`)
	if err != nil {
		return convmem.WrapError("sqlitestore.rehydrateRelatedTerms", err)
	}
	defer fuzzyRows.Close()
	var fuzzyTexts []string
	var fuzzyVectors [][]byte
	for fuzzyRows.Next() {
		var term string
		var blob []byte
		if err := fuzzyRows.Scan(&term, &blob); err != nil {
			return convmem.WrapError("sqlitestore.rehydrateRelatedTerms", err)
		}
		fuzzyTexts = append(fuzzyTexts, term)
		fuzzyVectors = append(fuzzyVectors, blob)
	}
	if err := fuzzyRows.Err(); err != nil {
		return convmem.WrapError("sqlitestore.rehydrateRelatedTerms", err)
	}

	return s.relatedTerms.Deserialize(aliasRowsOut, fuzzyTexts, fuzzyVectors)
}

func (s *Store) rehydrateThreads(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT description, ranges_json FROM ConversationThreads ORDER BY thread_id ASC`)
	if err != nil {
		return convmem.WrapError("sqlitestore.rehydrateThreads", err)
	}
	defer rows.Close()
	var threads []conv.Thread
	for rows.Next() {
		var description, rangesJSON string
		if err := rows.Scan(&description, &rangesJSON); err != nil {
			return convmem.WrapError("sqlitestore.rehydrateThreads", err)
		}
		var ranges []conv.TextRange
		if err := json.Unmarshal([]byte(rangesJSON), &ranges); err != nil {
			return convmem.WrapError("sqlitestore.rehydrateThreads", err)
		}
		threads = append(threads, conv.Thread{Description: description, Ranges: ranges})
	}
	if err := rows.Err(); err != nil {
		return convmem.WrapError("sqlitestore.rehydrateThreads", err)
	}
	s.threads.Deserialize(threads)
	return nil
}

func nowISO() string { return time.Now().UTC().Format(time.RFC3339) }
