// Package stats implements the stats subcommand.
package stats

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"webharvest/cmd/common"
	"webharvest/internal/indexer"
)

// Command returns the stats command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show content store and search index statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context())
		},
	}
}

func runStats(ctx context.Context) error {
	deps, err := common.Build()
	if err != nil {
		return err
	}
	defer deps.Close()

	stats, err := deps.Store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("store stats: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Total documents", stats.TotalContent})
	t.AppendRow(table.Row{"Added today", stats.ContentToday})

	idx := indexer.New(deps.Store,
		deps.Config.Elasticsearch.URL, deps.Config.Elasticsearch.IndexName, deps.Logger)
	if idxStats, idxErr := idx.GetStats(ctx); idxErr == nil {
		t.AppendRow(table.Row{"Search index", idxStats.IndexStatus})
		t.AppendRow(table.Row{"Indexed documents", idxStats.TotalDocuments})
		if idxStats.IndexSize > 0 {
			t.AppendRow(table.Row{"Index size (bytes)", idxStats.IndexSize})
		}
	} else {
		t.AppendRow(table.Row{"Search index", "error: " + idxErr.Error()})
	}

	t.Render()

	if len(stats.TopTags) > 0 {
		tags := table.NewWriter()
		tags.SetOutputMirror(os.Stdout)
		tags.SetStyle(table.StyleRounded)
		tags.AppendHeader(table.Row{"Tag", "Count"})
		for _, tc := range stats.TopTags {
			tags.AppendRow(table.Row{tc.Tag, tc.Count})
		}
		tags.Render()
	}

	return nil
}
