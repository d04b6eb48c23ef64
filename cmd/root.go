// Package cmd implements the command-line interface. It provides the root
// command and subcommands for crawling, searching, feeds, index management,
// and store statistics.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"webharvest/cmd/crawl"
	"webharvest/cmd/feed"
	cmdindex "webharvest/cmd/index"
	"webharvest/cmd/search"
	"webharvest/cmd/stats"
	"webharvest/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "webharvest",
		Short: "A focused web crawler with local storage and search",
		Long: `webharvest crawls a set of seed URLs, extracts article content,
stores it locally, and mirrors it into an Elasticsearch index for search
and syndication feeds.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	if err := initConfig(); err != nil {
		return fmt.Errorf("initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./config.yaml)")

	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(search.Command())
	rootCmd.AddCommand(feed.Command())
	rootCmd.AddCommand(cmdindex.Command())
	rootCmd.AddCommand(stats.Command())
}

// initConfig wires defaults, the optional config file, a .env file, and
// environment variables into viper. Environment wins over the file, the
// file wins over defaults.
func initConfig() error {
	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config.SetDefaults(viper.GetViper())
	if err := config.BindEnvVars(viper.GetViper()); err != nil {
		return err
	}

	// The config file is optional; defaults and environment suffice.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	return nil
}
