// Package index implements the index management subcommands.
package index

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"webharvest/cmd/common"
	"webharvest/internal/indexer"
)

// Command returns the index command with its subcommands.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the search index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(healthCommand())
	cmd.AddCommand(reindexCommand())
	cmd.AddCommand(deleteCommand())

	return cmd
}

func healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show search index and content store health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			// A dead index is not fatal here: the store is the source of
			// truth and the index can be rebuilt, so health reports both
			// backends and succeeds whenever the store does.
			idx := indexer.New(deps.Store,
				deps.Config.Elasticsearch.URL, deps.Config.Elasticsearch.IndexName, deps.Logger)
			health := idx.Health(cmd.Context())

			fmt.Printf("Index:   %s\n", health.Index)
			fmt.Printf("Store:   %s\n", health.Store)
			fmt.Printf("Overall: %s\n", health.Overall)

			if health.Overall != "ok" {
				return fmt.Errorf("content store unavailable")
			}
			return nil
		},
	}
}

func reindexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the content store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withIndexer(cmd.Context(), func(ctx context.Context, idx *indexer.Indexer) error {
				count, err := idx.ReindexAll(ctx)
				if err != nil {
					return err
				}

				fmt.Printf("Reindexed %d documents\n", count)
				return nil
			})
		},
	}
}

func deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <content-hash>",
		Short: "Remove a document from the search index by content hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndexer(cmd.Context(), func(ctx context.Context, idx *indexer.Indexer) error {
				if err := idx.Delete(ctx, args[0]); err != nil {
					return err
				}

				fmt.Printf("Deleted %s from the index\n", args[0])
				return nil
			})
		},
	}
}

// withIndexer builds the dependencies, requires a reachable index, and
// runs fn against it.
func withIndexer(ctx context.Context, fn func(context.Context, *indexer.Indexer) error) error {
	deps, err := common.Build()
	if err != nil {
		return err
	}
	defer deps.Close()

	idx := indexer.New(deps.Store,
		deps.Config.Elasticsearch.URL, deps.Config.Elasticsearch.IndexName, deps.Logger)
	if idx.Degraded() {
		return fmt.Errorf("elasticsearch unavailable at %s", deps.Config.Elasticsearch.URL)
	}

	return fn(ctx, idx)
}
