package subtitles

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/grapesalt/engram/internal/model"
)

func TestParse_SingleCue(t *testing.T) {
	text := "1\n00:00:01,000 --> 00:00:02,500\nhello world\n"
	segments := Parse(text)
	if len(segments) != 1 {
		t.Fatalf("len(segments) = %d, want 1", len(segments))
	}
	want := model.Segment{StartMS: 1000, EndMS: 2500, Text: "hello world"}
	if segments[0] != want {
		t.Errorf("segments[0] = %+v, want %+v", segments[0], want)
	}
}

func TestParse_MultipleCuesAndMultilineText(t *testing.T) {
	text := "1\n00:00:01,000 --> 00:00:02,500\nhello\nworld\n\n2\n00:00:03,000 --> 00:00:04,000\ngoodbye\n"
	segments := Parse(text)
	if len(segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2", len(segments))
	}
	if segments[0].Text != "hello\nworld" {
		t.Errorf("segments[0].Text = %q, want %q", segments[0].Text, "hello\nworld")
	}
	if segments[1] != (model.Segment{StartMS: 3000, EndMS: 4000, Text: "goodbye"}) {
		t.Errorf("segments[1] = %+v", segments[1])
	}
}

func TestParse_SkipsMalformedBlocks(t *testing.T) {
	text := "1\nnot a timestamp\ntext\n\n2\n00:00:01,000 --> 00:00:02,000\nok\n"
	segments := Parse(text)
	if len(segments) != 1 {
		t.Fatalf("len(segments) = %d, want 1", len(segments))
	}
	if segments[0].Text != "ok" {
		t.Errorf("segments[0].Text = %q, want %q", segments[0].Text, "ok")
	}
}

func TestParse_SkipsInvariantViolatingCues(t *testing.T) {
	text := "1\n00:00:05,000 --> 00:00:02,000\nreversed\n\n2\n00:00:01,000 --> 00:00:02,000\nok\n"
	segments := Parse(text)
	if len(segments) != 1 {
		t.Fatalf("len(segments) = %d, want 1", len(segments))
	}
	if segments[0].Text != "ok" {
		t.Errorf("segments[0].Text = %q, want %q", segments[0].Text, "ok")
	}
}

func TestParse_CRLFNormalized(t *testing.T) {
	text := "1\r\n00:00:01,000 --> 00:00:02,000\r\nhi\r\n"
	segments := Parse(text)
	if len(segments) != 1 || segments[0].Text != "hi" {
		t.Fatalf("segments = %+v", segments)
	}
}

func TestEmitParseRoundTrip(t *testing.T) {
	segments := []model.Segment{
		{StartMS: 0, EndMS: 1500, Text: "first line"},
		{StartMS: 2000, EndMS: 3250, Text: "second\nline"},
		{StartMS: 4000, EndMS: 4001, Text: "third"},
	}
	emitted := Emit(segments)
	roundTripped := Parse(emitted)
	if len(roundTripped) != len(segments) {
		t.Fatalf("len(roundTripped) = %d, want %d", len(roundTripped), len(segments))
	}
	for i := range segments {
		if roundTripped[i] != segments[i] {
			t.Errorf("segment %d = %+v, want %+v", i, roundTripped[i], segments[i])
		}
	}
}

func TestParseFile_Windows1252Fallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub.srt")

	// "café" encoded as Windows-1252, which is not valid UTF-8.
	text := "1\n00:00:01,000 --> 00:00:02,000\ncafé\n"
	encoded, err := charmap.Windows1252.NewEncoder().String(text)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	segments, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("len(segments) = %d, want 1", len(segments))
	}
	if segments[0].Text != "café" {
		t.Errorf("segments[0].Text = %q, want %q", segments[0].Text, "café")
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "00:00:00,000"},
		{1000, "00:00:01,000"},
		{3_661_001, "01:01:01,001"},
	}
	for _, tc := range cases {
		if got := formatTimestamp(tc.ms); got != tc.want {
			t.Errorf("formatTimestamp(%d) = %q, want %q", tc.ms, got, tc.want)
		}
	}
}
