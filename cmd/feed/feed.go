// Package feed implements the feed subcommand.
package feed

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"webharvest/cmd/common"
	"webharvest/internal/feed"
)

// Command returns the feed command.
func Command() *cobra.Command {
	var (
		topic  string
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Generate a syndication feed from stored content",
		Long: `Feed renders the most recent stored documents as RSS 2.0 or
JSON Feed 1.1, optionally restricted to a topic.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "rss" && format != "json" {
				return fmt.Errorf("unsupported format %q (rss or json)", format)
			}
			return runFeed(cmd.Context(), topic, format, output)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "restrict the feed to a topic")
	cmd.Flags().StringVar(&format, "format", "rss", "feed format: rss or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the feed to a file instead of stdout")

	return cmd
}

func runFeed(ctx context.Context, topic, format, output string) error {
	deps, err := common.Build()
	if err != nil {
		return err
	}
	defer deps.Close()

	gen := feed.New(deps.Store, feed.Config{
		Title:       deps.Config.Feed.Title,
		Description: deps.Config.Feed.Description,
		MaxItems:    deps.Config.Feed.MaxItems,
	}, deps.Logger)

	var content string
	switch format {
	case "json":
		content, err = gen.JSON(ctx, topic)
	default:
		content, err = gen.RSS(ctx, topic)
	}
	if err != nil {
		return err
	}

	if output == "" {
		fmt.Println(content)
		return nil
	}

	if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}

	fmt.Printf("Feed written to %s\n", output)
	return nil
}
