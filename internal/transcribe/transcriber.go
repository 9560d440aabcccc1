package transcribe

import (
	"fmt"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go"

	"github.com/grapesalt/engram/internal/model"
)

// WhisperError wraps a failure surfaced by the whisper.cpp binding.
var WhisperError = fmt.Errorf("transcription failed")

// loadedModel caches an opened whisper.cpp model, keyed by file path, so
// repeated transcriptions against the same model don't reload its weights.
type loadedModel struct {
	mu    sync.Mutex
	model whisper.Model
}

var (
	modelCacheMu sync.Mutex
	modelCache   = make(map[string]*loadedModel)
)

func acquireModel(path string) (*loadedModel, error) {
	modelCacheMu.Lock()
	defer modelCacheMu.Unlock()

	if lm, ok := modelCache[path]; ok {
		return lm, nil
	}
	m, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: load model %s: %v", WhisperError, path, err)
	}
	lm := &loadedModel{model: m}
	modelCache[path] = lm
	return lm, nil
}

// Transcriber runs greedy-decoded speech recognition against PCM samples
// using a whisper.cpp model. A Transcriber is safe for concurrent use: the
// underlying model context is serialized by an internal mutex, since
// whisper_full is not reentrant against a single context.
type Transcriber struct {
	modelPath string
	threads   int
}

// New binds a Transcriber to a cached model file at modelPath.
func New(modelPath string, threads int) *Transcriber {
	if threads <= 0 {
		threads = 1
	}
	return &Transcriber{modelPath: modelPath, threads: threads}
}

// Transcribe runs greedy (best_of=1) decoding over mono 16kHz float32 PCM
// samples and returns the recognized Segments.
func (t *Transcriber) Transcribe(samples []float32) ([]model.Segment, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	lm, err := acquireModel(t.modelPath)
	if err != nil {
		return nil, err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	ctx, err := lm.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("%w: new context: %v", WhisperError, err)
	}

	ctx.SetThreads(uint(t.threads))
	ctx.SetTranslate(false)
	ctx.SetTokenTimestamps(false)

	var segments []model.Segment
	onSegment := func(seg whisper.Segment) {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			return
		}
		segments = append(segments, model.Segment{
			StartMS: seg.Start.Milliseconds(),
			EndMS:   seg.End.Milliseconds(),
			Text:    text,
		})
	}

	if err := ctx.Process(samples, nil, onSegment, nil); err != nil {
		return nil, fmt.Errorf("%w: process: %v", WhisperError, err)
	}
	return segments, nil
}

// CloseAll releases every cached model context. Intended for process
// shutdown; callers don't otherwise need to close a Transcriber.
func CloseAll() {
	modelCacheMu.Lock()
	defer modelCacheMu.Unlock()
	for path, lm := range modelCache {
		lm.mu.Lock()
		_ = lm.model.Close()
		lm.mu.Unlock()
		delete(modelCache, path)
	}
}
