// Package walker enumerates media files under configured root directories,
// pairing each with an optional sidecar subtitle file.
package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/grapesalt/engram/internal/model"
)

// DurationProbe reports the duration, in seconds, of the media file at
// path. Used to apply the walker's optional min-duration filter without the
// walker package depending directly on the decoder adapter.
type DurationProbe func(ctx context.Context, path string) (float64, error)

// Options configures a Walk pass.
type Options struct {
	Roots          []string
	Extensions     []string
	MinDurationS   int
	ProbeDuration  DurationProbe
}

// Walk enumerates media files across every configured root. Roots are
// walked concurrently, one goroutine per root, following the errgroup
// idiom; within a single root the walk is sequential. A walk error on an
// individual directory entry is skipped; an error opening the root itself
// is returned.
func Walk(ctx context.Context, opts Options) ([]model.MediaFile, error) {
	extSet := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		extSet[strings.ToLower(ext)] = true
	}

	results := make([][]model.MediaFile, len(opts.Roots))
	g, gctx := errgroup.WithContext(ctx)
	for i, root := range opts.Roots {
		i, root := i, root
		g.Go(func() error {
			files, err := walkRoot(gctx, root, extSet, opts.MinDurationS, opts.ProbeDuration)
			if err != nil {
				return err
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.MediaFile
	for _, files := range results {
		all = append(all, files...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Media < all[j].Media })
	return all, nil
}

func walkRoot(ctx context.Context, root string, extSet map[string]bool, minDurationS int, probe DurationProbe) ([]model.MediaFile, error) {
	var files []model.MediaFile
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !extSet[ext] {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return nil
		}

		if minDurationS > 0 && probe != nil {
			duration, err := probe(ctx, abs)
			if err == nil && duration < float64(minDurationS) {
				return nil
			}
		}

		files = append(files, model.MediaFile{
			Media:     abs,
			Subtitles: sidecarSubtitlePath(abs),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// sidecarSubtitlePath returns the absolute path of a same-basename .srt
// file next to mediaPath, or "" if none exists.
func sidecarSubtitlePath(mediaPath string) string {
	candidate := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + ".srt"
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return ""
}
