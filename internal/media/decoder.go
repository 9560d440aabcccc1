// Package media implements the decoder adapter: audio extraction, embedded
// subtitle extraction, and thumbnail generation, all driven through an
// external ffmpeg/ffprobe process pair.
package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/grapesalt/engram/internal/media/ffprobe"
	"github.com/grapesalt/engram/internal/model"
)

// Error wraps a decoder failure with the stderr text the external process
// produced.
type Error struct {
	Op     string
	Path   string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s %s: %v: %s", e.Op, e.Path, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// RawFrame is a decoded, rescaled video frame in packed RGBA8888.
type RawFrame struct {
	Data   []byte
	Width  int
	Height int
}

// Decoder is the media decoder adapter. It is stateless between calls: a
// single instance may be shared across goroutines.
type Decoder struct {
	ffmpegBin  string
	ffprobeBin string
}

// New constructs a Decoder bound to resolved ffmpeg/ffprobe binary paths.
func New(ffmpegBin, ffprobeBin string) *Decoder {
	return &Decoder{ffmpegBin: ffmpegBin, ffprobeBin: ffprobeBin}
}

// ExtractPCM decodes the best audio stream to mono, 16 kHz, little-endian
// 32-bit float packed samples.
func (d *Decoder) ExtractPCM(ctx context.Context, path string) ([]float32, error) {
	cmd := exec.CommandContext(ctx, d.ffmpegBin,
		"-v", "error", "-hide_banner",
		"-i", path,
		"-ar", "16000", "-ac", "1",
		"-f", "f32le", "-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &Error{Op: "extract_pcm", Path: path, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	raw := stdout.Bytes()
	if len(raw)%4 != 0 {
		raw = raw[:len(raw)-len(raw)%4]
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		samples[i] = math.Float32frombits(bits)
	}
	if len(samples) == 0 {
		return nil, &Error{Op: "extract_pcm", Path: path, Err: fmt.Errorf("no audio stream decoded")}
	}
	return samples, nil
}

// imageSubtitleCodecs lists subtitle codecs whose packets are image/bitmap
// rects rather than text, which the spec says to skip.
var imageSubtitleCodecs = map[string]bool{
	"dvd_subtitle":     true,
	"hdmv_pgs_subtitle": true,
	"pgssub":           true,
	"dvb_subtitle":     true,
}

// ExtractEmbeddedSubtitles picks the best subtitle stream, decodes each
// packet, and converts it to a Segment, skipping image/bitmap rects.
func (d *Decoder) ExtractEmbeddedSubtitles(ctx context.Context, path string) ([]model.Segment, error) {
	probed, err := ffprobe.Inspect(ctx, d.ffprobeBin, path)
	if err != nil {
		return nil, &Error{Op: "extract_embedded_subtitles", Path: path, Err: err}
	}
	stream, ok := probed.BestSubtitleStream()
	if !ok {
		return nil, &Error{Op: "extract_embedded_subtitles", Path: path, Err: fmt.Errorf("no subtitle stream")}
	}
	if imageSubtitleCodecs[strings.ToLower(stream.CodecName)] {
		return nil, nil
	}

	tbNum, tbDen, err := parseTimeBase(stream.TimeBase)
	if err != nil {
		return nil, &Error{Op: "extract_embedded_subtitles", Path: path, Err: err}
	}

	packets, err := ffprobe.InspectPackets(ctx, d.ffprobeBin, path, stream.Index)
	if err != nil {
		return nil, &Error{Op: "extract_embedded_subtitles", Path: path, Err: err}
	}

	var segments []model.Segment
	isASS := strings.Contains(strings.ToLower(stream.CodecName), "ass") || strings.Contains(strings.ToLower(stream.CodecName), "ssa")
	for _, pkt := range packets {
		var pts int64
		if pkt.PTS != nil {
			pts = *pkt.PTS
		}
		startMS := saturatingTimestampMS(pts, tbNum, tbDen)
		endMS := saturatingAdd(startMS, saturatingTimestampMS(pkt.Duration, tbNum, tbDen))

		text := decodePacketText(pkt.DataField)
		if isASS {
			text = assDialogueField(text)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		segments = append(segments, model.Segment{StartMS: startMS, EndMS: endMS, Text: text})
	}
	return segments, nil
}

func parseTimeBase(tb string) (num, den int64, err error) {
	if tb == "" {
		return 1, 1000, nil
	}
	parts := strings.SplitN(tb, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time_base %q", tb)
	}
	num, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time_base numerator %q: %w", tb, err)
	}
	den, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil || den == 0 {
		return 0, 0, fmt.Errorf("invalid time_base denominator %q", tb)
	}
	return num, den, nil
}

// saturatingTimestampMS computes value * num * 1000 / den, clamping to the
// int64 range on overflow rather than wrapping (design note iii).
func saturatingTimestampMS(value, num, den int64) int64 {
	product, ok := saturatingMul(value, num)
	if !ok {
		return clampSign(value, num)
	}
	product, ok = saturatingMul(product, 1000)
	if !ok {
		return clampSign(product, 1000)
	}
	if den == 0 {
		return 0
	}
	return product / den
}

func saturatingMul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	result := a * b
	if result/b != a {
		return 0, false
	}
	return result, true
}

func clampSign(a, b int64) int64 {
	if (a < 0) != (b < 0) {
		return math.MinInt64
	}
	return math.MaxInt64
}

func saturatingAdd(a, b int64) int64 {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		if b > 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return sum
}

// decodePacketText decodes ffprobe's -show_data hex+ASCII dump of a packet
// into its raw text bytes. Each line looks like
// "00000000: 4142 4344 4546 4748 494a 4b4c 4d4e 4f50  ABCDEFGHIJKLMNOP",
// 2-byte hex groups followed by the ASCII rendering; the first field that
// isn't a run of hex digits marks the start of that rendering.
func decodePacketText(dump string) string {
	var out bytes.Buffer
	for _, line := range strings.Split(dump, "\n") {
		_, hexPart, found := strings.Cut(line, ": ")
		if !found {
			continue
		}
		for _, field := range strings.Fields(hexPart) {
			if len(field) == 0 || len(field)%2 != 0 || !isHexString(field) {
				break
			}
			for i := 0; i < len(field); i += 2 {
				b, err := strconv.ParseUint(field[i:i+2], 16, 8)
				if err != nil {
					break
				}
				out.WriteByte(byte(b))
			}
		}
	}
	return out.String()
}

func isHexString(s string) bool {
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

// assDialogueField returns the 10th comma-separated field of an ASS/SSA
// dialogue line (the text), trimmed.
func assDialogueField(line string) string {
	fields := strings.SplitN(line, ",", 10)
	if len(fields) < 10 {
		return ""
	}
	return strings.TrimSpace(fields[9])
}
