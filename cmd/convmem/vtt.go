package main

import (
	"bufio"
	"os"
	"strings"
)

// vttCue is one parsed WebVTT cue: an optional speaker (from a <v Speaker>
// voice tag or a leading "Speaker:" prefix) and its spoken text.
type vttCue struct {
	Speaker string
	Text    string
}

// parseVTT does the minimal WebVTT parsing ingest needs: it skips the
// "WEBVTT" header and cue-id/timestamp lines, and pulls speaker + text out
// of each cue's payload line(s). Malformed cues are skipped rather than
// erroring — full WebVTT conformance is out of scope.
func parseVTT(path string) ([]vttCue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cues []vttCue
	var payload []string
	flush := func() {
		text := strings.TrimSpace(strings.Join(payload, " "))
		payload = nil
		if text == "" {
			return
		}
		cues = append(cues, parseCuePayload(text))
	}

	scanner := bufio.NewScanner(f)
	started := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !started {
			started = true
			if strings.HasPrefix(line, "WEBVTT") {
				continue
			}
		}
		if line == "" {
			flush()
			continue
		}
		if strings.Contains(line, "-->") {
			continue
		}
		if payload == nil && isLikelyCueID(line) {
			continue
		}
		payload = append(payload, line)
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cues, nil
}

// isLikelyCueID reports whether line looks like a bare WebVTT cue
// identifier (no spaces, not a timestamp) rather than caption text.
func isLikelyCueID(line string) bool {
	return !strings.Contains(line, " ") && !strings.Contains(line, "-->")
}

// parseCuePayload extracts a speaker from a "<v Speaker>text</v>" voice tag
// or a leading "Speaker: text" prefix; absent either, the whole line is
// treated as speakerless text.
func parseCuePayload(line string) vttCue {
	if strings.HasPrefix(line, "<v ") {
		if end := strings.Index(line, ">"); end > 0 {
			speaker := strings.TrimSpace(line[3:end])
			text := line[end+1:]
			text = strings.TrimSuffix(strings.TrimSpace(text), "</v>")
			return vttCue{Speaker: speaker, Text: strings.TrimSpace(text)}
		}
	}
	if idx := strings.Index(line, ":"); idx > 0 && idx < 40 {
		speaker := strings.TrimSpace(line[:idx])
		if speaker != "" && !strings.ContainsAny(speaker, ".!?") {
			return vttCue{Speaker: speaker, Text: strings.TrimSpace(line[idx+1:])}
		}
	}
	return vttCue{Text: line}
}
