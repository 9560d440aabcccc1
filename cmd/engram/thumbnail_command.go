package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/grapesalt/engram/internal/deps"
	"github.com/grapesalt/engram/internal/media"
)

func newThumbnailCommand(ctx *commandContext) *cobra.Command {
	var shrink int
	var out string

	cmd := &cobra.Command{
		Use:   "thumbnail <path> <seconds>",
		Short: "Decode a single video frame and write it out as a PNG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("parse seconds: %w", err)
			}
			return runThumbnail(cmd, ctx, args[0], seconds, shrink, out)
		},
	}

	cmd.Flags().IntVar(&shrink, "shrink", 1, "Integer downscale factor applied to both dimensions")
	cmd.Flags().StringVar(&out, "out", "thumbnail.png", "Output PNG path")
	return cmd
}

func runThumbnail(cmd *cobra.Command, ctx *commandContext, path string, seconds float64, shrink int, out string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if shrink <= 0 {
		shrink = 1
	}

	decoderBin, err := deps.Resolve(cfg.DecoderBin, "ffmpeg")
	if err != nil {
		return fmt.Errorf("resolve decoder binary: %w", err)
	}
	probeBin, err := deps.Resolve(cfg.ProbeBin, "ffprobe")
	if err != nil {
		return fmt.Errorf("resolve probe binary: %w", err)
	}
	decoder := media.New(decoderBin, probeBin)

	frame, err := decoder.Thumbnail(cmd.Context(), path, seconds, shrink)
	if err != nil {
		return fmt.Errorf("thumbnail: %w", err)
	}

	img := &image.RGBA{
		Pix:    frame.Data,
		Stride: frame.Width * 4,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}

	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}

	fmt.Printf("wrote %s (%dx%d)\n", out, frame.Width, frame.Height)
	return nil
}
