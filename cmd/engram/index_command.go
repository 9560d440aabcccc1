package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grapesalt/engram/internal/catalog"
	"github.com/grapesalt/engram/internal/deps"
	"github.com/grapesalt/engram/internal/indexer"
	"github.com/grapesalt/engram/internal/media"
	"github.com/grapesalt/engram/internal/media/ffprobe"
	"github.com/grapesalt/engram/internal/model"
	"github.com/grapesalt/engram/internal/searchidx"
	"github.com/grapesalt/engram/internal/transcribe"
	"github.com/grapesalt/engram/internal/walker"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Walk the configured media roots and update the catalog and search index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, ctx)
		},
	}
	return cmd
}

func runIndex(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateForIndexing(); err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	store, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	index, err := searchidx.OpenOrCreate(cfg.IndexDir())
	if err != nil {
		return fmt.Errorf("open search index: %w", err)
	}
	defer index.Close()

	decoderBin, err := deps.Resolve(cfg.DecoderBin, "ffmpeg")
	if err != nil {
		return fmt.Errorf("resolve decoder binary: %w", err)
	}
	probeBin, err := deps.Resolve(cfg.ProbeBin, "ffprobe")
	if err != nil {
		return fmt.Errorf("resolve probe binary: %w", err)
	}
	decoder := media.New(decoderBin, probeBin)

	wantModel, err := model.ParseModel(cfg.Model)
	if err != nil {
		return fmt.Errorf("model: %w", err)
	}

	modelPath, err := transcribe.EnsureModel(cmd.Context(), cfg.DataDir, wantModel, func(downloaded, total int64) {
		if total > 0 {
			logger.Info("downloading model", "model", wantModel, "downloaded", downloaded, "total", total)
		}
	})
	if err != nil {
		return fmt.Errorf("ensure model: %w", err)
	}
	transcriber := transcribe.New(modelPath, cfg.WorkerCount)
	defer transcribe.CloseAll()

	orch := indexer.New(indexer.Options{
		Catalog:     store,
		Search:      index,
		Decoder:     decoder,
		Transcriber: transcriber,
		Model:       wantModel,
		WorkerCount: cfg.WorkerCount,
		Logger:      logger,
	})

	summary, err := orch.Run(cmd.Context(), walker.Options{
		Roots:        cfg.MediaRoots,
		Extensions:   dottedExtensions(cfg.MediaExtensions),
		MinDurationS: cfg.MinDurationS,
		ProbeDuration: func(ctx context.Context, path string) (float64, error) {
			probed, err := ffprobe.Inspect(ctx, probeBin, path)
			if err != nil {
				return 0, err
			}
			return probed.DurationSeconds(), nil
		},
	})
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	logger.Info("index complete",
		"files_seen", summary.FilesSeen,
		"upserted", summary.Upserted,
		"skipped", summary.Skipped,
		"pruned", summary.Pruned,
	)
	fmt.Printf("seen=%d upserted=%d skipped=%d pruned=%d\n",
		summary.FilesSeen, summary.Upserted, summary.Skipped, summary.Pruned)
	return nil
}

// dottedExtensions converts config's dot-free extension list ("mp4") to the
// leading-dot form filepath.Ext returns (".mp4"), which is what the walker
// matches against.
func dottedExtensions(exts []string) []string {
	dotted := make([]string, len(exts))
	for i, ext := range exts {
		dotted[i] = "." + ext
	}
	return dotted
}
