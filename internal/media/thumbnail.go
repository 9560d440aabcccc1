package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/grapesalt/engram/internal/media/ffprobe"
)

const thumbnailPreviewFPS = 12.0

// Thumbnail seeks to ts seconds, decodes the first frame at or after it, and
// rescales to (w/shrink, h/shrink) with fast-bilinear filtering, returning a
// packed RGBA8888 frame.
func (d *Decoder) Thumbnail(ctx context.Context, path string, tsSeconds float64, shrink int) (RawFrame, error) {
	width, height, err := d.scaledDimensions(ctx, path, shrink)
	if err != nil {
		return RawFrame{}, &Error{Op: "thumbnail", Path: path, Err: err}
	}

	scale := fmt.Sprintf("scale=iw/%d:ih/%d:flags=fast_bilinear", shrink, shrink)
	cmd := exec.CommandContext(ctx, d.ffmpegBin,
		"-v", "error", "-hide_banner",
		"-ss", strconv.FormatFloat(tsSeconds, 'f', 3, 64),
		"-probesize", "32k", "-analyzeduration", "0",
		"-i", path,
		"-vframes", "1",
		"-vf", scale,
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return RawFrame{}, &Error{Op: "thumbnail", Path: path, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	data := stdout.Bytes()
	want := width * height * 4
	if len(data) < want {
		return RawFrame{}, &Error{Op: "thumbnail", Path: path, Err: fmt.Errorf("decoded frame too small: got %d bytes, want %d", len(data), want)}
	}
	return RawFrame{Data: data[:want], Width: width, Height: height}, nil
}

// ThumbnailPreview samples one frame every 1/12 second of presentation time
// between startS (inclusive) and endS (exclusive), decoded and rescaled like
// Thumbnail.
func (d *Decoder) ThumbnailPreview(ctx context.Context, path string, startS, endS float64, shrink int) ([]RawFrame, error) {
	if endS <= startS {
		return nil, nil
	}
	width, height, err := d.scaledDimensions(ctx, path, shrink)
	if err != nil {
		return nil, &Error{Op: "thumbnail_preview", Path: path, Err: err}
	}

	scale := fmt.Sprintf("fps=%.6f,scale=iw/%d:ih/%d:flags=fast_bilinear", thumbnailPreviewFPS, shrink, shrink)
	cmd := exec.CommandContext(ctx, d.ffmpegBin,
		"-v", "error", "-hide_banner",
		"-ss", strconv.FormatFloat(startS, 'f', 3, 64),
		"-to", strconv.FormatFloat(endS, 'f', 3, 64),
		"-probesize", "32k", "-analyzeduration", "0",
		"-i", path,
		"-vf", scale,
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &Error{Op: "thumbnail_preview", Path: path, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	frameSize := width * height * 4
	if frameSize == 0 {
		return nil, &Error{Op: "thumbnail_preview", Path: path, Err: fmt.Errorf("invalid frame dimensions %dx%d", width, height)}
	}
	data := stdout.Bytes()
	frameCount := len(data) / frameSize
	frames := make([]RawFrame, 0, frameCount)
	for i := 0; i < frameCount; i++ {
		chunk := data[i*frameSize : (i+1)*frameSize]
		frames = append(frames, RawFrame{Data: chunk, Width: width, Height: height})
	}
	return frames, nil
}

func (d *Decoder) scaledDimensions(ctx context.Context, path string, shrink int) (int, int, error) {
	if shrink <= 0 {
		shrink = 1
	}
	probed, err := ffprobe.Inspect(ctx, d.ffprobeBin, path)
	if err != nil {
		return 0, 0, err
	}
	for _, stream := range probed.Streams {
		if strings.EqualFold(stream.CodecType, "video") && stream.Width > 0 && stream.Height > 0 {
			return maxInt(1, stream.Width/shrink), maxInt(1, stream.Height/shrink), nil
		}
	}
	return 0, 0, fmt.Errorf("no video stream with known dimensions")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
