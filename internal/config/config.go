// Package config provides the process-wide configuration record.
// It is built once at startup from defaults, an optional config file,
// and environment variables, and is read-only thereafter.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"webharvest/internal/logger"
)

// Default configuration values.
const (
	DefaultMaxPages         = 1000
	DefaultDelay            = 1 * time.Second
	DefaultRequestTimeout   = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultMinContentLength = 100
	DefaultMaxFeedItems     = 50
	DefaultUserAgent        = "WebHarvest/1.0 (+https://example.com/bot)"
	DefaultDatabasePath     = "webharvest.db"
	DefaultRedisURL         = "redis://localhost:6379/0"
	DefaultElasticsearchURL = "http://localhost:9200"
	DefaultIndexName        = "web_content"
)

// CrawlerConfig holds the crawl loop and fetcher settings.
type CrawlerConfig struct {
	MaxPages            int           `mapstructure:"max_pages"`
	DelayBetweenRequest time.Duration `mapstructure:"delay_between_requests"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	// MaxRetries is reserved; fetch failures are currently terminal.
	MaxRetries         int      `mapstructure:"max_retries"`
	UserAgent          string   `mapstructure:"user_agent"`
	MinContentLength   int      `mapstructure:"min_content_length"`
	UsefulURLPatterns  []string `mapstructure:"useful_url_patterns"`
	ExcludedExtensions []string `mapstructure:"excluded_extensions"`
	RespectRobotsTxt   bool     `mapstructure:"respect_robots_txt"`
}

// DatabaseConfig holds the content store settings.
type DatabaseConfig struct {
	// Path is the sqlite database file, or ":memory:".
	Path string `mapstructure:"path"`
}

// RedisConfig holds the frontier backend settings.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// ElasticsearchConfig holds the search index settings.
type ElasticsearchConfig struct {
	URL       string `mapstructure:"url"`
	IndexName string `mapstructure:"index_name"`
}

// FeedConfig holds the syndication feed settings.
type FeedConfig struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	MaxItems    int    `mapstructure:"max_items"`
}

// Config is the top-level configuration record.
type Config struct {
	Logger        logger.Config       `mapstructure:"logger"`
	Crawler       CrawlerConfig       `mapstructure:"crawler"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Feed          FeedConfig          `mapstructure:"feed"`
}

// DefaultUsefulURLPatterns lists path fragments that mark a URL as worth crawling.
func DefaultUsefulURLPatterns() []string {
	return []string{"/article/", "/blog/", "/news/", "/post/", "/story/", "/content/", "/page/"}
}

// DefaultExcludedExtensions lists file extensions that are never crawled.
func DefaultExcludedExtensions() []string {
	return []string{".pdf", ".jpg", ".jpeg", ".png", ".gif", ".mp4", ".avi", ".zip", ".exe", ".css", ".js"}
}

// Load builds the configuration from viper. Defaults and environment
// bindings must already be registered (see cmd.initConfig).
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.Crawler.UsefulURLPatterns) == 0 {
		cfg.Crawler.UsefulURLPatterns = DefaultUsefulURLPatterns()
	}
	if len(cfg.Crawler.ExcludedExtensions) == 0 {
		cfg.Crawler.ExcludedExtensions = DefaultExcludedExtensions()
	}

	return &cfg, nil
}

// SetDefaults registers default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "console",
	})

	v.SetDefault("crawler", map[string]any{
		"max_pages":              DefaultMaxPages,
		"delay_between_requests": DefaultDelay.String(),
		"request_timeout":        DefaultRequestTimeout.String(),
		"max_retries":            DefaultMaxRetries,
		"user_agent":             DefaultUserAgent,
		"min_content_length":     DefaultMinContentLength,
		"respect_robots_txt":     true,
	})

	v.SetDefault("database", map[string]any{
		"path": DefaultDatabasePath,
	})

	v.SetDefault("redis", map[string]any{
		"url": DefaultRedisURL,
	})

	v.SetDefault("elasticsearch", map[string]any{
		"url":        DefaultElasticsearchURL,
		"index_name": DefaultIndexName,
	})

	v.SetDefault("feed", map[string]any{
		"title":       "Web Crawler Feed",
		"description": "Curated content from web crawling",
		"max_items":   DefaultMaxFeedItems,
	})
}

// BindEnvVars maps flat environment variables onto config keys.
func BindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"crawler.max_pages":              {"MAX_PAGES"},
		"crawler.delay_between_requests": {"DELAY_BETWEEN_REQUESTS"},
		"crawler.request_timeout":        {"REQUEST_TIMEOUT"},
		"crawler.max_retries":            {"MAX_RETRIES"},
		"crawler.user_agent":             {"USER_AGENT"},
		"crawler.min_content_length":     {"MIN_CONTENT_LENGTH"},
		"crawler.respect_robots_txt":     {"RESPECT_ROBOTS_TXT"},
		"database.path":                  {"DATABASE_URL"},
		"redis.url":                      {"REDIS_URL"},
		"elasticsearch.url":              {"ELASTICSEARCH_URL"},
		"elasticsearch.index_name":       {"ELASTICSEARCH_INDEX_NAME"},
		"feed.title":                     {"FEED_TITLE"},
		"feed.description":               {"FEED_DESCRIPTION"},
		"feed.max_items":                 {"MAX_FEED_ITEMS"},
		"logger.level":                   {"LOG_LEVEL"},
		"logger.encoding":                {"LOG_FORMAT"},
	}

	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	return nil
}
