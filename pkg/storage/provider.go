// Package storage defines the storage provider facade shared by the
// in-memory and SQLite backends (pkg/storage/memstore,
// pkg/storage/sqlitestore), plus the conversation metadata both carry.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/convmem/convmem/pkg/conv"
)

// ConversationMetadata is the small header every provider attaches to its
// conversation: a stable store identifier, a display name, the on-disk
// schema version, creation and update timestamps, free-form tags, and an
// extra bag for forward compatibility.
type ConversationMetadata struct {
	StoreID       string
	NameTag       string
	SchemaVersion string
	CreatedAt     string
	UpdatedAt     string
	Tags          []string
	Extra         map[string]string
}

// SchemaVersion is the current on-disk schema version stamp.
const SchemaVersion = "0.1"

// NewConversationMetadata returns metadata stamped with the current schema
// version, a fresh StoreID, and the given nameTag; CreatedAt/UpdatedAt are
// left for the caller to fill in (backends stamp these from their own clock
// source). StoreID exists so log lines from concurrently open conversations
// (and their persisted rows) can be correlated without depending on the
// caller-supplied, not-necessarily-unique nameTag; every message/semref
// ordinal stays a dense integer per spec.md, this is purely a store-level
// identity stamp.
func NewConversationMetadata(nameTag string) ConversationMetadata {
	return ConversationMetadata{StoreID: uuid.New().String(), NameTag: nameTag, SchemaVersion: SchemaVersion}
}

// Provider is the storage facade: every backend exposes the same accessors
// to the collections and indexes an operator tree and index builder need,
// plus lifecycle control. Every method other than Close returns a pointer
// the caller may read and write through directly — concurrency discipline
// is the returned type's own responsibility (see pkg/conv's per-index
// sync.RWMutex guards).
type Provider interface {
	MessageCollection() *conv.MessageCollection
	SemanticRefCollection() *conv.SemanticRefCollection
	SemanticRefIndex() *conv.PrimaryIndex
	PropertyIndex() *conv.PropertyIndex
	TimestampIndex() *conv.TimestampIndex
	MessageTextIndex() *conv.MessageTextIndex
	RelatedTermsIndex() *conv.RelatedTermsIndex
	ConversationThreads() *conv.ThreadsIndex

	Metadata() ConversationMetadata
	SetMetadata(m ConversationMetadata)

	// Close releases any resources (open file handles, connections) held by
	// the provider. Subsequent calls to any other method are undefined.
	Close(ctx context.Context) error
}
