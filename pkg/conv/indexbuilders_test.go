package conv

import "testing"

func TestAddKnowledgeToSemanticRefIndex(t *testing.T) {
	refs := NewSemanticRefCollection()
	primary := NewPrimaryIndex()
	property := NewPropertyIndex()
	ix := &SemanticRefIndexer{Semrefs: refs, Primary: primary, Property: property}

	result := ExtractionResult{
		Entities: []Entity{{Name: "Alice", Types: []string{"person"}}},
		Actions: []Action{{
			Verbs:             []string{"send"},
			SubjectEntityName: "Alice",
			ObjectEntityName:  "Bob",
			IndirectObjectName: NoneEntity,
		}},
		Topics: []string{"budget"},
	}
	ix.AddKnowledgeToSemanticRefIndex(3, 1, result)

	if refs.Size() != 3 {
		t.Fatalf("expected 3 semrefs appended, got %d", refs.Size())
	}

	if entries, ok := primary.LookupTerm("Alice"); !ok || len(entries) != 2 {
		t.Fatalf("expected Alice registered for both entity and action semrefs, got %+v ok=%v", entries, ok)
	}
	if _, ok := primary.LookupTerm("none"); ok {
		t.Error("expected NoneEntity indirect object to be omitted from indexing")
	}
	if entries, ok := property.LookupProperty("subject", "Alice"); !ok || len(entries) != 1 {
		t.Fatalf("expected subject=Alice property entry, got %+v ok=%v", entries, ok)
	}

	ref, ok := refs.Get(0)
	if !ok {
		t.Fatal("expected semref 0 to exist")
	}
	if ref.Range.Start.MessageOrdinal != 3 || ref.Range.Start.ChunkOrdinal != 1 {
		t.Errorf("expected semref anchored to (msg=3, chunk=1), got %+v", ref.Range.Start)
	}
}

func TestAddMetadataToIndexWithValidatorVeto(t *testing.T) {
	refs := NewSemanticRefCollection()
	primary := NewPrimaryIndex()
	property := NewPropertyIndex()

	messages := []Message{
		{Ordinal: 0, Metadata: PodcastMetadata{Speaker: "Host", Listeners: []string{"Guest"}}},
	}

	vetoTopics := func(kt KnowledgeType, k Knowledge) bool {
		return kt != KnowledgeTopic
	}
	AddMetadataToIndex(messages, refs, primary, property, vetoTopics)

	if refs.Size() == 0 {
		t.Fatal("expected metadata-derived semrefs to be appended")
	}
	if _, ok := primary.LookupTerm("Host"); !ok {
		t.Error("expected speaker entity to be indexed")
	}
}
