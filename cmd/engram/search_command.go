package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grapesalt/engram/internal/searchidx"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search transcript text across the indexed media library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(ctx, strings.Join(args, " "), limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")
	return cmd
}

func runSearch(ctx *commandContext, query string, limit int) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	index, err := searchidx.Open(cfg.IndexDir())
	if err != nil {
		return fmt.Errorf("open search index: %w", err)
	}
	defer index.Close()

	hits, err := index.Search(query, limit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if ctx.isJSON() {
		return json.NewEncoder(os.Stdout).Encode(hits)
	}

	for _, hit := range hits {
		fmt.Printf("%s\t%d\t%d\t%.4f\t%s\n", hit.Path, hit.StartMS, hit.EndMS, hit.Score, hit.Text)
	}
	return nil
}
