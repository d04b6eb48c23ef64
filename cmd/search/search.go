// Package search implements the search subcommand.
package search

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"webharvest/cmd/common"
	"webharvest/internal/domain"
	"webharvest/internal/search"
)

// Command returns the search command.
func Command() *cobra.Command {
	var (
		query    string
		author   string
		tags     []string
		limit    int
		trending bool
		days     int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search stored content",
		Long: `Search queries the Elasticsearch index, falling back to the local
store when the index is unavailable. --trending lists the most frequent
keywords among recently indexed documents instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !trending && query == "" {
				return fmt.Errorf("a query is required (--query)")
			}
			return runSearch(cmd.Context(), searchOptions{
				query:    query,
				author:   author,
				tags:     tags,
				limit:    limit,
				trending: trending,
				days:     days,
			})
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "search query")
	cmd.Flags().StringVar(&author, "author", "", "filter by author")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "filter by tags")
	cmd.Flags().IntVar(&limit, "limit", search.DefaultLimit, "maximum results")
	cmd.Flags().BoolVar(&trending, "trending", false, "show trending keywords")
	cmd.Flags().IntVar(&days, "days", 7, "lookback window for --trending")

	return cmd
}

type searchOptions struct {
	query    string
	author   string
	tags     []string
	limit    int
	trending bool
	days     int
}

func runSearch(ctx context.Context, opts searchOptions) error {
	deps, err := common.Build()
	if err != nil {
		return err
	}
	defer deps.Close()

	cfg := deps.Config

	searcher, esErr := search.New(cfg.Elasticsearch.URL, cfg.Elasticsearch.IndexName, deps.Logger)

	if opts.trending {
		if esErr != nil {
			return fmt.Errorf("trending requires elasticsearch: %w", esErr)
		}
		return printTrending(ctx, searcher, opts)
	}

	if esErr != nil {
		deps.Logger.Warn("elasticsearch unavailable, searching local store",
			"error", esErr.Error())
		return searchStore(ctx, deps, opts)
	}

	results, err := searcher.Search(ctx, search.Query{
		Text:   opts.query,
		Author: opts.author,
		Tags:   opts.tags,
		Limit:  opts.limit,
	})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, result := range results {
		printDocument(i+1, &result.Document)
		for _, fragment := range result.Highlights["content"] {
			fmt.Printf("   ... %s\n", fragment)
		}
	}

	return nil
}

// searchStore is the degraded path: ranked LIKE search over sqlite.
func searchStore(ctx context.Context, deps *common.Deps, opts searchOptions) error {
	docs, err := deps.Store.Search(ctx, opts.query, opts.limit)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i := range docs {
		printDocument(i+1, &docs[i])
	}

	return nil
}

func printTrending(ctx context.Context, searcher *search.Searcher, opts searchOptions) error {
	topics, err := searcher.TrendingTopics(ctx, opts.days, opts.limit)
	if err != nil {
		return err
	}

	if len(topics) == 0 {
		fmt.Println("No trending topics found.")
		return nil
	}

	fmt.Printf("Trending keywords (last %d days):\n", opts.days)
	for _, topic := range topics {
		fmt.Printf("  %-30s %d\n", topic.Keyword, topic.Count)
	}

	return nil
}

func printDocument(rank int, doc *domain.Document) {
	title := doc.Title
	if title == "" {
		title = "(untitled)"
	}

	fmt.Printf("%2d. %s\n    %s\n", rank, title, doc.URL)
	if doc.Description != "" {
		fmt.Printf("    %s\n", doc.Description)
	}
}
