package conv

// MetadataKnowledge is what a message's domain-specific metadata can derive
// without any LLM call: the "metadata-to-knowledge" function named in the
// spec's data model (e.g. a podcast speaker becomes a person entity).
type MetadataKnowledge interface {
	// GetKnowledge derives the knowledge implied directly by this metadata,
	// independent of anything extracted from the message text.
	GetKnowledge() []Knowledge
}

// Message is the atomic ingested unit: an ordered sequence of short text
// chunks, an optional ISO-8601 timestamp, a set of tags, and a
// domain-specific metadata record.
type Message struct {
	Ordinal   MessageOrdinal
	Chunks    []string
	Timestamp string // ISO-8601, empty if absent
	Tags      []string
	Metadata  MetadataKnowledge
}

// GetKnowledge derives knowledge from this message's metadata, or returns
// nil if the message carries none.
func (m Message) GetKnowledge() []Knowledge {
	if m.Metadata == nil {
		return nil
	}
	return m.Metadata.GetKnowledge()
}

// PodcastMetadata models a podcast/meeting transcript turn: one speaker
// addressing a set of listeners. Grounded in spec.md S1's worked example.
type PodcastMetadata struct {
	Speaker   string
	Listeners []string
}

// GetKnowledge turns the speaker into a person entity and, for every
// listener, a "say" action from speaker to that listener.
func (p PodcastMetadata) GetKnowledge() []Knowledge {
	if p.Speaker == "" {
		return nil
	}
	out := []Knowledge{EntityKnowledge(Entity{Name: p.Speaker, Types: []string{"person"}})}
	for _, listener := range p.Listeners {
		if listener == "" {
			continue
		}
		out = append(out, EntityKnowledge(Entity{Name: listener, Types: []string{"person"}}))
		out = append(out, ActionKnowledge(Action{
			Verbs:             []string{"say"},
			Tense:             TensePresent,
			SubjectEntityName: p.Speaker,
			ObjectEntityName:  listener,
			IndirectObjectName: NoneEntity,
		}))
	}
	return out
}

// EmailMetadata models one email message: sender, recipients, cc/bcc, and a
// subject line. A "say" action is derived per direct recipient; cc/bcc
// recipients are folded in as additional "say" actions with the recipient
// as indirect object so they remain queryable by property but are not
// conflated with the primary recipient.
type EmailMetadata struct {
	Sender     string
	Recipients []string
	Cc         []string
	Bcc        []string
	Subject    string
}

// GetKnowledge derives person entities for every participant, a "say" action
// per direct recipient (cc/bcc as indirect objects of their own actions),
// and the subject line as a topic.
func (e EmailMetadata) GetKnowledge() []Knowledge {
	if e.Sender == "" {
		return nil
	}
	out := []Knowledge{EntityKnowledge(Entity{Name: e.Sender, Types: []string{"person"}})}
	addParticipant := func(name string) {
		if name == "" {
			return
		}
		out = append(out, EntityKnowledge(Entity{Name: name, Types: []string{"person"}}))
	}
	for _, to := range e.Recipients {
		addParticipant(to)
		out = append(out, ActionKnowledge(Action{
			Verbs:              []string{"say"},
			Tense:              TensePast,
			SubjectEntityName:  e.Sender,
			ObjectEntityName:   to,
			IndirectObjectName: NoneEntity,
		}))
	}
	for _, cc := range e.Cc {
		addParticipant(cc)
		out = append(out, ActionKnowledge(Action{
			Verbs:              []string{"say"},
			Tense:              TensePast,
			SubjectEntityName:  e.Sender,
			ObjectEntityName:   NoneEntity,
			IndirectObjectName: cc,
		}))
	}
	for _, bcc := range e.Bcc {
		addParticipant(bcc)
		out = append(out, ActionKnowledge(Action{
			Verbs:              []string{"say"},
			Tense:              TensePast,
			SubjectEntityName:  e.Sender,
			ObjectEntityName:   NoneEntity,
			IndirectObjectName: bcc,
		}))
	}
	if e.Subject != "" {
		out = append(out, TopicKnowledge(e.Subject))
	}
	return out
}
