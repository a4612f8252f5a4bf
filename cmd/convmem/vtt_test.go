package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/convmem/convmem/pkg/conv"
)

func TestParseVTTVoiceTags(t *testing.T) {
	content := `WEBVTT

1
00:00:00.000 --> 00:00:04.000
<v Alice>Hello, how are you?</v>

2
00:00:04.000 --> 00:00:08.000
<v Bob>I'm doing well, thanks.</v>
`
	path := filepath.Join(t.TempDir(), "sample.vtt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cues, err := parseVTT(path)
	if err != nil {
		t.Fatalf("parseVTT failed: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d: %+v", len(cues), cues)
	}
	if cues[0].Speaker != "Alice" || cues[0].Text != "Hello, how are you?" {
		t.Fatalf("unexpected cue 0: %+v", cues[0])
	}
	if cues[1].Speaker != "Bob" || cues[1].Text != "I'm doing well, thanks." {
		t.Fatalf("unexpected cue 1: %+v", cues[1])
	}
}

func TestParseVTTPlainSpeakerPrefix(t *testing.T) {
	content := "WEBVTT\n\n00:00:00.000 --> 00:00:02.000\nAlice: Let's start the meeting.\n"
	path := filepath.Join(t.TempDir(), "plain.vtt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cues, err := parseVTT(path)
	if err != nil {
		t.Fatalf("parseVTT failed: %v", err)
	}
	if len(cues) != 1 || cues[0].Speaker != "Alice" || cues[0].Text != "Let's start the meeting." {
		t.Fatalf("unexpected cues: %+v", cues)
	}
}

func TestMessagesFromCuesDerivesListeners(t *testing.T) {
	cues := []vttCue{
		{Speaker: "Alice", Text: "hi bob"},
		{Speaker: "Bob", Text: "hi alice"},
	}
	msgs := messagesFromCues(cues)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	meta, ok := msgs[0].Metadata.(conv.PodcastMetadata)
	if !ok {
		t.Fatalf("expected PodcastMetadata on message 0, got %T", msgs[0].Metadata)
	}
	if meta.Speaker != "Alice" {
		t.Fatalf("expected speaker Alice, got %s", meta.Speaker)
	}
	if len(meta.Listeners) != 1 || meta.Listeners[0] != "Bob" {
		t.Fatalf("expected listener Bob, got %v", meta.Listeners)
	}
}
