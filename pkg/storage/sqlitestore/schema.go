package sqlitestore

const createTableSQL = `
CREATE TABLE IF NOT EXISTS Messages (
	msg_id INTEGER PRIMARY KEY,
	chunks TEXT,
	chunk_uri TEXT,
	start_timestamp TEXT,
	tags TEXT,
	metadata TEXT,
	extra TEXT
);

CREATE TABLE IF NOT EXISTS SemanticRefs (
	semref_id INTEGER PRIMARY KEY,
	range_json TEXT NOT NULL,
	knowledge_type TEXT NOT NULL,
	knowledge_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS SemanticRefIndex (
	term TEXT NOT NULL,
	semref_id INTEGER NOT NULL,
	score REAL NOT NULL DEFAULT 1.0,
	UNIQUE(term, semref_id),
	FOREIGN KEY (semref_id) REFERENCES SemanticRefs(semref_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_semantic_ref_index_term ON SemanticRefIndex(term);
CREATE INDEX IF NOT EXISTS idx_semantic_ref_index_semref ON SemanticRefIndex(semref_id);

CREATE TABLE IF NOT EXISTS PropertyIndex (
	prop_name TEXT NOT NULL,
	value_str TEXT NOT NULL,
	score REAL NOT NULL DEFAULT 1.0,
	semref_id INTEGER NOT NULL,
	FOREIGN KEY (semref_id) REFERENCES SemanticRefs(semref_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_property_index_name_value ON PropertyIndex(prop_name, value_str);
CREATE INDEX IF NOT EXISTS idx_property_index_semref ON PropertyIndex(semref_id);

CREATE TABLE IF NOT EXISTS TimestampIndex (
	msg_id INTEGER NOT NULL,
	timestamp TEXT NOT NULL,
	FOREIGN KEY (msg_id) REFERENCES Messages(msg_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_timestamp_index_timestamp ON TimestampIndex(timestamp);

CREATE TABLE IF NOT EXISTS MessageTextIndex (
	msg_id INTEGER NOT NULL,
	chunk_ordinal INTEGER NOT NULL,
	embedding BLOB NOT NULL,
	FOREIGN KEY (msg_id) REFERENCES Messages(msg_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_message_text_index_msg_chunk ON MessageTextIndex(msg_id, chunk_ordinal);

CREATE TABLE IF NOT EXISTS RelatedTermsAliases (
	term TEXT NOT NULL,
	alias TEXT NOT NULL,
	UNIQUE(term, alias)
);
CREATE INDEX IF NOT EXISTS idx_related_terms_aliases_term ON RelatedTermsAliases(term);

CREATE TABLE IF NOT EXISTS RelatedTermsFuzzy (
	term TEXT NOT NULL,
	term_embedding BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_related_terms_fuzzy_term ON RelatedTermsFuzzy(term);

CREATE TABLE IF NOT EXISTS ConversationThreads (
	thread_id INTEGER PRIMARY KEY,
	description TEXT NOT NULL,
	ranges_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ConversationMetadata (
	store_id TEXT NOT NULL,
	name_tag TEXT NOT NULL,
	schema_version TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	tags TEXT,
	extra TEXT
);
`
