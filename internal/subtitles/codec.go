// Package subtitles implements the SRT subtitle codec: parsing a subtitle
// file (with multi-encoding fallback) into engram's Segment model, and
// emitting Segments back to SRT text.
package subtitles

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"github.com/grapesalt/engram/internal/model"
)

// ParseError wraps a failure to decode or parse an SRT file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse srt %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// fallbackEncodings lists the encodings tried, in order, when a subtitle
// file is not valid UTF-8. The order matches the distilled spec: Windows-1252,
// ISO-8859-2, UTF-16LE, UTF-16BE, Windows-1251, Shift_JIS, GBK.
var fallbackEncodings = []encoding.Encoding{
	charmap.Windows1252,
	charmap.ISO8859_2,
	unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	charmap.Windows1251,
	japanese.ShiftJIS,
	simplifiedchinese.GBK,
}

// ParseFile reads path and decodes it into an ordered list of Segments.
func ParseFile(path string) ([]model.Segment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	text, err := decodeBytes(raw)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return Parse(text), nil
}

// decodeBytes tries UTF-8 first, then each fallback encoding in order,
// accepting the first that decodes cleanly (no replacement characters).
func decodeBytes(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	for _, enc := range fallbackEncodings {
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		if bytes.ContainsRune(decoded, utf8.RuneError) {
			continue
		}
		return string(decoded), nil
	}
	return "", fmt.Errorf("no supported encoding decoded the file cleanly")
}

// Parse decodes already-UTF-8 SRT text into Segments. Blocks that do not
// conform to the expected shape are silently skipped.
func Parse(text string) []model.Segment {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var segments []model.Segment
	for _, block := range strings.Split(normalized, "\n\n") {
		lines := strings.Split(block, "\n")
		// Trim a trailing blank line left by a final block ending in \n\n\n.
		for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
			lines = lines[:len(lines)-1]
		}
		if len(lines) < 3 {
			continue
		}
		startMS, endMS, ok := parseTimingLine(lines[1])
		if !ok {
			continue
		}
		segmentText := strings.Join(lines[2:], "\n")
		segment := model.Segment{
			StartMS: startMS,
			EndMS:   endMS,
			Text:    segmentText,
		}
		if segment.Validate() != nil {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}

func parseTimingLine(line string) (startMS, endMS int64, ok bool) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err1 := parseTimestamp(strings.TrimSpace(parts[0]))
	end, err2 := parseTimestamp(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return start, end, true
}

// parseTimestamp converts "HH:MM:SS,mmm" to milliseconds.
func parseTimestamp(value string) (int64, error) {
	timeField, msField, found := strings.Cut(value, ",")
	if !found {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeField, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, err := strconv.ParseInt(hms[0], 10, 64)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.ParseInt(hms[1], 10, 64)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseInt(hms[2], 10, 64)
	if err != nil {
		return 0, err
	}
	millis, err := strconv.ParseInt(msField, 10, 64)
	if err != nil {
		return 0, err
	}
	return hours*3_600_000 + minutes*60_000 + seconds*1_000 + millis, nil
}

// Emit renders segments as SRT text: one block per segment in input order,
// separated by a single blank line.
func Emit(segments []model.Segment) string {
	var buf strings.Builder
	for i, seg := range segments {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "%d\n%s --> %s\n%s\n", i+1, formatTimestamp(seg.StartMS), formatTimestamp(seg.EndMS), seg.Text)
	}
	return buf.String()
}

// WriteFile renders segments as SRT and writes them to path as UTF-8.
func WriteFile(path string, segments []model.Segment) error {
	return os.WriteFile(path, []byte(Emit(segments)), 0o644)
}

func formatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1_000
	millis := ms - seconds*1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
