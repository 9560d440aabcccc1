// Package transcribe wraps the speech-recognition model: acquiring the
// model file (download + atomic rename) and turning extracted PCM audio
// into Segments.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grapesalt/engram/internal/download"
	"github.com/grapesalt/engram/internal/model"
)

// modelURLs maps each closed model variant to its stable download URL.
// Mirrors the ggml model releases published alongside whisper.cpp.
var modelURLs = map[model.Model]string{
	model.ModelTiny:   "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
	model.ModelBase:   "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
	model.ModelSmall:  "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
	model.ModelMedium: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
	model.ModelLarge:  "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin",
}

// CachePath returns <dataDir>/engram/<ordinal>.bin for the given model.
func CachePath(dataDir string, m model.Model) string {
	return filepath.Join(dataDir, "engram", fmt.Sprintf("%d.bin", int(m)))
}

// EnsureModel returns the cache path for m, downloading it first if absent.
// A crash mid-download cannot leave a partial file at the final path: the
// transfer streams to a sibling ".tmp" file and is atomically renamed.
func EnsureModel(ctx context.Context, dataDir string, m model.Model, onProgress download.ProgressFunc) (string, error) {
	target := CachePath(dataDir, m)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat model cache %s: %w", target, err)
	}

	url, ok := modelURLs[m]
	if !ok {
		return "", fmt.Errorf("no download URL registered for model %s", m)
	}
	if err := download.ToFile(ctx, url, target, onProgress); err != nil {
		return "", fmt.Errorf("acquire model %s: %w", m, err)
	}
	return target, nil
}
