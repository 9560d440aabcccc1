package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grapesalt/engram/internal/config"
	"github.com/grapesalt/engram/internal/deps"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit media_roots before running \"engram index\".")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration and external binary status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "media_roots: %v\n", cfg.MediaRoots)
			fmt.Fprintf(out, "media_extensions: %v\n", cfg.MediaExtensions)
			fmt.Fprintf(out, "model: %s\n", cfg.Model)
			fmt.Fprintf(out, "min_duration_s: %d\n", cfg.MinDurationS)
			fmt.Fprintf(out, "data_dir: %s\n", cfg.DataDir)
			fmt.Fprintf(out, "worker_count: %d\n", cfg.WorkerCount)
			fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
			fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
			fmt.Fprintf(out, "log_dir: %s\n", cfg.LogDir)

			decoder := deps.Check("decoder", cfg.DecoderBin, "ffmpeg")
			probe := deps.Check("probe", cfg.ProbeBin, "ffprobe")
			fmt.Fprintf(out, "decoder: %s\n", describeStatus(decoder))
			fmt.Fprintf(out, "probe: %s\n", describeStatus(probe))
			return nil
		},
	}
}

func describeStatus(s deps.Status) string {
	if s.Available {
		return s.Command
	}
	return fmt.Sprintf("unavailable (%s)", s.Detail)
}
