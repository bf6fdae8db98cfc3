package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Format names a transcript encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "txt"
	FormatJSON Format = "json"
	FormatSRT  Format = "srt"
)

var (
	// ErrUnsupportedFormat is returned for unknown format names.
	ErrUnsupportedFormat = errors.New("unsupported transcript format")
	// ErrEmptyInput is returned when a transcript has no usable segments.
	ErrEmptyInput = errors.New("transcript has no segments")
)

// maxTranscriptSize bounds how much a single transcript may read.
const maxTranscriptSize = 16 << 20

// ParseFormat validates a format name. Empty means auto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatText, FormatJSON, FormatSRT:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

var srtCue = regexp.MustCompile(`\d{2}:\d{2}:\d{2},\d{3}\s*-->\s*\d{2}:\d{2}:\d{2},\d{3}`)

var jsonStart = regexp.MustCompile(`^\s*(?:\{|\[\s*[\{"\]])`)

// Detect picks a format from a file name and the start of its content.
// A .txt name is only checked for subtitle cues.
func Detect(name string, head []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".srt":
		return FormatSRT
	case ".txt":
		if srtCue.Match(head) {
			return FormatSRT
		}
		return FormatText
	}
	switch {
	case jsonStart.Match(head):
		return FormatJSON
	case srtCue.Match(head):
		return FormatSRT
	}
	return FormatText
}

// Parse reads a transcript in the given format. FormatAuto sniffs the
// content. The result never contains blank segments; a transcript without
// any text fails with ErrEmptyInput.
func Parse(r io.Reader, format Format) ([]Segment, error) {
	return parseNamed(r, "", format)
}

// ParseFile reads and parses the transcript at path. FormatAuto uses the
// file extension before sniffing the content.
func ParseFile(path string, format Format) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	return parseNamed(f, path, format)
}

func parseNamed(r io.Reader, name string, format Format) ([]Segment, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxTranscriptSize+1))
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	if len(data) > maxTranscriptSize {
		return nil, fmt.Errorf("transcript exceeds %d bytes", maxTranscriptSize)
	}

	if format == "" || format == FormatAuto {
		format = Detect(name, data[:min(len(data), 512)])
	}

	var segs []Segment
	switch format {
	case FormatText:
		segs = parseText(string(data))
	case FormatJSON:
		segs, err = parseJSON(data)
	case FormatSRT:
		segs = parseSRT(string(data))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if segs = Usable(segs); len(segs) == 0 {
		return nil, ErrEmptyInput
	}
	return segs, nil
}

var (
	// "Chen, David   0:03" or "David Chen (PM)   0:03".
	headerLine    = regexp.MustCompile(`^([A-Z][a-z]+(?:\s*,\s*[A-Z][a-z]+)+|[A-Z][a-z]+\s+[A-Z][a-z]+)(?:\s+\([^)]+\))?\s+(\d{1,2}:\d{2}(?::\d{2})?)$`)
	speakerLine   = regexp.MustCompile(`^\[?(\w+(?:\s+\w+)?)\]?[:\]]\s*(.+)$`)
	timestampLine = regexp.MustCompile(`^\d{1,2}:\d{2}(?::\d{2})?$`)
)

// parseText reads "Speaker: text" lines, header lines that name a speaker
// and a timestamp, and bare timestamp lines, which stamp the block after
// them. Other lines continue the current block. A blank line ends a block.
func parseText(content string) []Segment {
	var (
		out     []Segment
		cur     Segment
		pending []string
	)
	flush := func() {
		if len(pending) > 0 {
			cur.Text = strings.Join(pending, " ")
			out = append(out, cur)
		}
		pending = nil
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
			cur = Segment{}
		case headerLine.MatchString(line):
			flush()
			m := headerLine.FindStringSubmatch(line)
			cur = Segment{Speaker: normalizeSpeaker(m[1]), Timestamp: m[2]}
		case timestampLine.MatchString(line):
			flush()
			cur = Segment{Speaker: cur.Speaker, Timestamp: line}
		case speakerLine.MatchString(line):
			flush()
			m := speakerLine.FindStringSubmatch(line)
			cur = Segment{Speaker: m[1], Timestamp: cur.Timestamp}
			pending = append(pending, strings.TrimSpace(m[2]))
		default:
			pending = append(pending, line)
		}
	}
	flush()
	return out
}

// normalizeSpeaker turns "Last, First" into "First Last".
func normalizeSpeaker(s string) string {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(parts[1]) + " " + strings.TrimSpace(parts[0])
}

type jsonSegment struct {
	Text      string `json:"text"`
	Content   string `json:"content"`
	Speaker   string `json:"speaker"`
	Timestamp string `json:"timestamp"`
}

type jsonTranscript struct {
	Transcript json.RawMessage `json:"transcript"`
	Speakers   []string        `json:"speakers"`
	Timestamps []string        `json:"timestamps"`
}

// parseJSON accepts {"transcript": [...]} with optional parallel speakers
// and timestamps arrays, a bare array, or {"transcript": "text"}. Array
// elements are segment objects or plain strings.
func parseJSON(data []byte) ([]Segment, error) {
	var doc jsonTranscript
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		doc.Transcript = trimmed
	} else if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode json transcript: %w", err)
	}
	if len(doc.Transcript) == 0 {
		return nil, nil
	}

	var whole string
	if err := json.Unmarshal(doc.Transcript, &whole); err == nil {
		return []Segment{{Text: strings.TrimSpace(whole)}}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(doc.Transcript, &items); err != nil {
		return nil, fmt.Errorf("decode json transcript: %w", err)
	}
	at := func(list []string, i int) string {
		if i < len(list) {
			return list[i]
		}
		return ""
	}

	out := make([]Segment, 0, len(items))
	for i, raw := range items {
		seg := Segment{Speaker: at(doc.Speakers, i), Timestamp: at(doc.Timestamps, i)}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			seg.Text = strings.TrimSpace(s)
			out = append(out, seg)
			continue
		}
		var js jsonSegment
		if err := json.Unmarshal(raw, &js); err != nil {
			return nil, fmt.Errorf("decode segment %d: %w", i, err)
		}
		seg.Text = strings.TrimSpace(js.Text)
		if seg.Text == "" {
			seg.Text = strings.TrimSpace(js.Content)
		}
		if js.Speaker != "" {
			seg.Speaker = js.Speaker
		}
		if js.Timestamp != "" {
			seg.Timestamp = js.Timestamp
		}
		out = append(out, seg)
	}
	return out, nil
}

var (
	srtBlockSep = regexp.MustCompile(`\r?\n\s*\r?\n`)
	srtSpeaker  = regexp.MustCompile(`^\[([^\]]+)\]\s*(.+)$`)
	srtColon    = regexp.MustCompile(`^([A-Z][\w.]*(?:\s+[A-Z][\w.]*)?):\s+(.+)$`)
)

// parseSRT reads subtitle cues. The cue time range becomes the timestamp and
// a leading "[Speaker]" or "Speaker:" becomes the speaker.
func parseSRT(content string) []Segment {
	var out []Segment
	for _, block := range srtBlockSep.Split(strings.TrimSpace(content), -1) {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}
		start := 1
		if srtCue.MatchString(lines[0]) {
			start = 0
		}
		seg := Segment{}
		if srtCue.MatchString(lines[start]) {
			seg.Timestamp = strings.TrimSpace(lines[start])
		}
		var text []string
		for _, l := range lines[start+1:] {
			if l = strings.TrimSpace(l); l != "" {
				text = append(text, l)
			}
		}
		seg.Text = strings.Join(text, " ")
		if m := srtSpeaker.FindStringSubmatch(seg.Text); m != nil {
			seg.Speaker, seg.Text = m[1], m[2]
		} else if m := srtColon.FindStringSubmatch(seg.Text); m != nil {
			seg.Speaker, seg.Text = m[1], m[2]
		}
		out = append(out, seg)
	}
	return out
}

// Render writes segments back as "Speaker: text" lines.
func Render(segments []Segment) string {
	lines := make([]string, len(segments))
	for i, s := range segments {
		lines[i] = s.Label()
	}
	return strings.Join(lines, "\n")
}

// Speakers returns the distinct speakers in order of first appearance.
func Speakers(segments []Segment) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range segments {
		if name := strings.TrimSpace(s.Speaker); name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
