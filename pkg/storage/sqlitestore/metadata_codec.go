package sqlitestore

import (
	"encoding/json"

	"github.com/convmem/convmem"
	"github.com/convmem/convmem/pkg/conv"
)

// metadataEnvelope is the JSON shape stored in Messages.metadata: a kind tag
// plus exactly one populated payload, since conv.Message.Metadata is an
// interface (conv.MetadataKnowledge) and Go's json package cannot round-trip
// an interface field without one.
type metadataEnvelope struct {
	Kind    string               `json:"kind,omitempty"`
	Podcast *conv.PodcastMetadata `json:"podcast,omitempty"`
	Email   *conv.EmailMetadata   `json:"email,omitempty"`
}

func encodeMessageMetadata(m conv.MetadataKnowledge) (string, error) {
	if m == nil {
		return "", nil
	}
	var env metadataEnvelope
	switch v := m.(type) {
	case conv.PodcastMetadata:
		env = metadataEnvelope{Kind: "podcast", Podcast: &v}
	case conv.EmailMetadata:
		env = metadataEnvelope{Kind: "email", Email: &v}
	default:
		return "", convmem.WrapError("sqlitestore.encodeMessageMetadata", convmem.ErrIntegrity)
	}
	b, err := json.Marshal(env)
	if err != nil {
		return "", convmem.WrapError("sqlitestore.encodeMessageMetadata", err)
	}
	return string(b), nil
}

func decodeMessageMetadata(raw string) (conv.MetadataKnowledge, error) {
	if raw == "" {
		return nil, nil
	}
	var env metadataEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, convmem.WrapError("sqlitestore.decodeMessageMetadata", err)
	}
	switch env.Kind {
	case "podcast":
		if env.Podcast == nil {
			return nil, nil
		}
		return *env.Podcast, nil
	case "email":
		if env.Email == nil {
			return nil, nil
		}
		return *env.Email, nil
	default:
		return nil, nil
	}
}
