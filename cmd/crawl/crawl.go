// Package crawl implements the crawl subcommand.
package crawl

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"webharvest/cmd/common"
	"webharvest/internal/crawler"
	"webharvest/internal/fetcher"
	"webharvest/internal/frontier"
	"webharvest/internal/indexer"
	"webharvest/internal/logger"
)

// Command returns the crawl command.
func Command() *cobra.Command {
	var (
		seedURLs       []string
		maxPages       int
		memoryFrontier bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl seed URLs and store extracted content",
		Long: `Crawl starts from the given seed URLs, follows useful links, extracts
article content, and stores it locally with an Elasticsearch mirror.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(seedURLs) == 0 {
				return fmt.Errorf("at least one seed URL is required (--urls)")
			}
			return runCrawl(cmd.Context(), seedURLs, maxPages, memoryFrontier)
		},
	}

	cmd.Flags().StringSliceVar(&seedURLs, "urls", nil, "seed URLs to crawl (required)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "override the configured page budget")
	cmd.Flags().BoolVar(&memoryFrontier, "memory-frontier", false,
		"use an in-process frontier instead of Redis (single-shot crawls)")

	return cmd
}

func runCrawl(ctx context.Context, seedURLs []string, maxPages int, memoryFrontier bool) error {
	deps, err := common.Build()
	if err != nil {
		return err
	}
	defer deps.Close()

	cfg := deps.Config
	log := deps.Logger

	if maxPages > 0 {
		cfg.Crawler.MaxPages = maxPages
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	front, err := newFrontier(ctx, cfg.Redis.URL, memoryFrontier, log)
	if err != nil {
		return err
	}

	fetch := fetcher.New(fetcher.Config{
		UserAgent:      cfg.Crawler.UserAgent,
		RequestTimeout: cfg.Crawler.RequestTimeout,
	})

	var robots crawler.RobotsPolicy
	if cfg.Crawler.RespectRobotsTxt {
		robots = fetcher.NewRobotsChecker(fetcher.NewClient(cfg.Crawler.RequestTimeout), cfg.Crawler.UserAgent)
	}

	idx := indexer.New(deps.Store, cfg.Elasticsearch.URL, cfg.Elasticsearch.IndexName, log)
	if err := idx.EnsureIndex(ctx); err != nil {
		log.Warn("ensure index failed", "error", err.Error())
	}

	c := crawler.New(cfg.Crawler, front, fetch, robots, idx, log)

	if err := c.Seed(ctx, seedURLs); err != nil {
		return err
	}

	if err := c.Crawl(ctx); err != nil {
		return err
	}

	fmt.Printf("Crawl finished: %d pages processed\n", c.CrawledCount())
	return nil
}

// newFrontier picks the frontier backend. An unreachable Redis is fatal:
// crawling without the shared visited set would re-fetch everything, so
// the in-memory frontier must be requested explicitly.
func newFrontier(ctx context.Context, redisURL string, useMemory bool, log logger.Interface) (frontier.Frontier, error) {
	if useMemory {
		log.Info("using in-memory frontier")
		return frontier.NewMemory(), nil
	}

	front, err := frontier.NewRedisFromURL(ctx, redisURL)
	if err != nil {
		return nil, fmt.Errorf("frontier backend at %s: %w (pass --memory-frontier for a single-shot crawl)", redisURL, err)
	}

	log.Info("frontier backend connected", "url", redisURL)
	return front, nil
}
