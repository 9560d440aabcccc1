// Package indexer is the orchestrator: it reconciles the directory walker's
// output against the catalog, chooses a transcript source per file, drives
// the decoder and transcriber, and keeps the catalog and search index in
// sync.
package indexer

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/grapesalt/engram/internal/catalog"
	"github.com/grapesalt/engram/internal/model"
	"github.com/grapesalt/engram/internal/subtitles"
	"github.com/grapesalt/engram/internal/walker"
)

// CatalogStore is the subset of catalog.Store the orchestrator depends on.
type CatalogStore interface {
	IsUpToDate(ctx context.Context, path string, mtime, size int64) (bool, error)
	UpsertRecord(ctx context.Context, rec catalog.Record) error
	StoreSegments(ctx context.Context, path string, segments []model.Segment) error
	PruneMissing(ctx context.Context) ([]string, error)
}

// SearchIndex is the subset of searchidx.Index the orchestrator depends on.
type SearchIndex interface {
	UpdateMediaFile(path string, segments []model.Segment) error
	RemoveMediaFile(path string) error
	Commit() error
}

// MediaDecoder is the subset of media.Decoder the orchestrator depends on.
type MediaDecoder interface {
	ExtractEmbeddedSubtitles(ctx context.Context, path string) ([]model.Segment, error)
	ExtractPCM(ctx context.Context, path string) ([]float32, error)
}

// SpeechTranscriber is the subset of transcribe.Transcriber the orchestrator
// depends on.
type SpeechTranscriber interface {
	Transcribe(samples []float32) ([]model.Segment, error)
}

// Options configures an indexing pass.
type Options struct {
	Catalog     CatalogStore
	Search      SearchIndex
	Decoder     MediaDecoder
	Transcriber SpeechTranscriber
	Model       model.Model
	WorkerCount int
	Logger      *slog.Logger
}

// Summary reports what a pass did.
type Summary struct {
	FilesSeen int
	Upserted  int
	Skipped   int
	Pruned    int
}

// Orchestrator drives one indexing pass end to end: enumerate, prune,
// per-file reconcile, commit.
type Orchestrator struct {
	opts Options
	// writeMu guards the upsert+store_segments+search.update critical
	// section as a single logical unit, in addition to the mutex each of
	// Catalog and Search already holds internally for their own writes.
	writeMu sync.Mutex
}

// New constructs an Orchestrator. WorkerCount <= 0 defaults to 1.
func New(opts Options) *Orchestrator {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{opts: opts}
}

// Run walks walkOpts.Roots, prunes vanished entries, reconciles every
// out-of-date file in parallel, and commits the search index once at the
// end.
func (o *Orchestrator) Run(ctx context.Context, walkOpts walker.Options) (Summary, error) {
	files, err := walker.Walk(ctx, walkOpts)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	summary.FilesSeen = len(files)

	removed, err := o.opts.Catalog.PruneMissing(ctx)
	if err != nil {
		return summary, err
	}
	for _, path := range removed {
		if err := o.opts.Search.RemoveMediaFile(path); err != nil {
			return summary, err
		}
	}
	summary.Pruned = len(removed)

	var (
		mu        sync.Mutex
		upserted  int
		skipped   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.WorkerCount)

	for _, file := range files {
		file := file
		g.Go(func() error {
			did, err := o.reconcileFile(gctx, file)
			if err != nil {
				return err
			}
			mu.Lock()
			if did {
				upserted++
			} else {
				skipped++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	summary.Upserted = upserted
	summary.Skipped = skipped

	if err := o.opts.Search.Commit(); err != nil {
		return summary, err
	}
	return summary, nil
}

// reconcileFile reconciles one MediaFile against the catalog. It returns
// (true, nil) if the file was (re)indexed, (false, nil) if it was already
// up to date or its transcript could not be acquired by any source, and a
// non-nil error only for catalog/search failures, which halt the pass.
func (o *Orchestrator) reconcileFile(ctx context.Context, file model.MediaFile) (bool, error) {
	info, err := os.Stat(file.Media)
	if err != nil {
		o.opts.Logger.Warn("skip missing file", "path", file.Media, "error", err)
		return false, nil
	}
	mtime := info.ModTime().Unix()
	size := info.Size()

	upToDate, err := o.opts.Catalog.IsUpToDate(ctx, file.Media, mtime, size)
	if err != nil {
		return false, err
	}
	if upToDate {
		return false, nil
	}

	segments, hasSubtitles, usedModel := o.acquireSegments(ctx, file)
	if segments == nil {
		o.opts.Logger.Warn("no transcript source available", "path", file.Media)
		return false, nil
	}

	rec := catalog.Record{
		Path:         file.Media,
		ModifiedAt:   mtime,
		FileSize:     size,
		HasSubtitles: hasSubtitles,
	}
	if usedModel {
		m := o.opts.Model
		rec.TranscriptionModel = &m
	}

	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	if err := o.opts.Catalog.UpsertRecord(ctx, rec); err != nil {
		return false, err
	}
	if err := o.opts.Catalog.StoreSegments(ctx, file.Media, segments); err != nil {
		return false, err
	}
	if err := o.opts.Search.UpdateMediaFile(file.Media, segments); err != nil {
		return false, err
	}
	return true, nil
}

// acquireSegments tries, in order: sidecar SRT, embedded subtitle stream,
// PCM + transcription. usedModel is true only when the third path was
// taken. A nil segments slice means no source produced usable text.
func (o *Orchestrator) acquireSegments(ctx context.Context, file model.MediaFile) (segments []model.Segment, hasSubtitles bool, usedModel bool) {
	if file.HasSubtitles() {
		parsed, err := subtitles.ParseFile(file.Subtitles)
		if err == nil && len(parsed) > 0 {
			return parsed, true, false
		}
		o.opts.Logger.Warn("sidecar subtitle parse failed, falling back", "path", file.Subtitles, "error", err)
	}

	if o.opts.Decoder != nil {
		embedded, err := o.opts.Decoder.ExtractEmbeddedSubtitles(ctx, file.Media)
		if err == nil && len(embedded) > 0 {
			return embedded, true, false
		}
		if err != nil {
			o.opts.Logger.Warn("embedded subtitle extraction failed, falling back", "path", file.Media, "error", err)
		}
	}

	if o.opts.Decoder == nil || o.opts.Transcriber == nil {
		return nil, false, false
	}
	pcm, err := o.opts.Decoder.ExtractPCM(ctx, file.Media)
	if err != nil {
		o.opts.Logger.Warn("pcm extraction failed", "path", file.Media, "error", err)
		return nil, false, false
	}
	transcribed, err := o.opts.Transcriber.Transcribe(pcm)
	if err != nil {
		o.opts.Logger.Warn("transcription failed", "path", file.Media, "error", err)
		return nil, false, false
	}
	if len(transcribed) == 0 {
		return nil, false, false
	}
	return transcribed, false, true
}
