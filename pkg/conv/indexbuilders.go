package conv

// ExtractionResult is what a knowledge extractor returns for one chunk of
// text: the entities, actions, and topics found in it, plus any actions
// recognized as the inverse of a forward action (e.g. "is asked by" as the
// inverse of "asks").
type ExtractionResult struct {
	Entities       []Entity
	Actions        []Action
	InverseActions []Action
	Topics         []string
}

// KnowledgeValidator may veto an individual piece of derived knowledge
// before it is registered, given its type and payload.
type KnowledgeValidator func(kt KnowledgeType, k Knowledge) bool

// SemanticRefIndexer is the central index-building routine's write surface:
// the semref collection it appends to, plus the primary and property
// indexes it registers terms into. A single struct groups these so
// add_knowledge_to_semantic_ref_index and add_metadata_to_index can share
// one call shape.
type SemanticRefIndexer struct {
	Semrefs  *SemanticRefCollection
	Primary  *PrimaryIndex
	Property *PropertyIndex
}

// AddKnowledgeToSemanticRefIndex is the central routine: for every entity,
// action, inverse-action, and topic in result, it appends a SemanticRef
// anchored to the single-chunk range (messageOrdinal, chunkOrdinal) and
// registers its terms in the primary index and its properties in the
// property index.
func (ix *SemanticRefIndexer) AddKnowledgeToSemanticRefIndex(messageOrdinal MessageOrdinal, chunkOrdinal ChunkOrdinal, result ExtractionResult) {
	rng := TextRangeFromMessageChunk(messageOrdinal, chunkOrdinal)

	for _, e := range result.Entities {
		ix.addOne(rng, EntityKnowledge(e))
	}
	for _, a := range result.Actions {
		ix.addOne(rng, ActionKnowledge(a))
	}
	for _, a := range result.InverseActions {
		ix.addOne(rng, ActionKnowledge(a))
	}
	for _, t := range result.Topics {
		ix.addOne(rng, TopicKnowledge(t))
	}
}

// AddMetadataToIndex runs the same registration flow as
// AddKnowledgeToSemanticRefIndex but over each message's derived
// GetKnowledge(), ordinal-indexed rather than chunk-indexed (it anchors to
// chunk 0 of the message, since metadata is not chunk-specific). validator,
// if non-nil, may veto individual pieces of knowledge.
func AddMetadataToIndex(messages []Message, semrefs *SemanticRefCollection, primary *PrimaryIndex, property *PropertyIndex, validator KnowledgeValidator) {
	ix := &SemanticRefIndexer{Semrefs: semrefs, Primary: primary, Property: property}
	for _, msg := range messages {
		rng := TextRangeFromMessageChunk(msg.Ordinal, 0)
		for _, k := range msg.GetKnowledge() {
			if validator != nil && !validator(k.Type, k) {
				continue
			}
			ix.addKnowledgeAt(rng, k)
		}
	}
}

func (ix *SemanticRefIndexer) addOne(rng TextRange, k Knowledge) {
	ix.addKnowledgeAt(rng, k)
}

func (ix *SemanticRefIndexer) addKnowledgeAt(rng TextRange, k Knowledge) {
	ref := SemanticRef{Range: rng, KnowledgeType: k.Type, Knowledge: k}
	ordinal := ix.Semrefs.Append(ref)

	switch k.Type {
	case KnowledgeEntity:
		ix.indexEntity(ordinal, k.Entity)
	case KnowledgeAction:
		ix.indexAction(ordinal, k.Action)
	case KnowledgeTopic:
		ix.Primary.AddTerm(k.Topic.Text, ordinal)
		ix.Property.AddProperty(PropTopic, k.Topic.Text, ordinal)
	case KnowledgeTag:
		ix.Primary.AddTerm(k.Tag.Text, ordinal)
		ix.Property.AddProperty(PropTag, k.Tag.Text, ordinal)
	}
}

func (ix *SemanticRefIndexer) indexEntity(ordinal SemRefOrdinal, e *Entity) {
	ix.Primary.AddTerm(e.Name, ordinal)
	ix.Property.AddProperty(PropName, e.Name, ordinal)
	for _, t := range e.Types {
		ix.Primary.AddTerm(t, ordinal)
		ix.Property.AddProperty(PropType, t, ordinal)
	}
	for _, f := range e.Facets {
		ix.Primary.AddTerm(f.Name, ordinal)
		value := FacetValueKey(f.Value)
		ix.Primary.AddTerm(value, ordinal)
		ix.Property.AddProperty(PropFacetName, f.Name, ordinal)
		ix.Property.AddProperty(PropFacetValue, value, ordinal)
	}
}

func (ix *SemanticRefIndexer) indexAction(ordinal SemRefOrdinal, a *Action) {
	if len(a.Verbs) > 0 {
		verbPhrase := joinSpace(a.Verbs)
		ix.Primary.AddTerm(verbPhrase, ordinal)
		ix.Property.AddProperty(PropVerb, verbPhrase, ordinal)
	}
	addIfNotNone := func(propName, value string) {
		if value == "" || value == NoneEntity {
			return
		}
		ix.Primary.AddTerm(value, ordinal)
		ix.Property.AddProperty(propName, value, ordinal)
	}
	addIfNotNone(PropSubject, a.SubjectEntityName)
	addIfNotNone(PropObject, a.ObjectEntityName)
	addIfNotNone(PropIndirectObject, a.IndirectObjectName)

	for _, p := range a.Params {
		ix.Primary.AddTerm(p.Name, ordinal)
		if p.Value != nil {
			ix.Primary.AddTerm(*p.Value, ordinal)
		}
	}
	if a.SubjectFacet != nil {
		ix.Primary.AddTerm(a.SubjectFacet.Name, ordinal)
		ix.Primary.AddTerm(FacetValueKey(a.SubjectFacet.Value), ordinal)
	}
}

func joinSpace(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}
