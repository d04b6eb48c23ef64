// Package common builds the shared dependencies subcommands need: the
// loaded configuration, the logger, and the content store.
package common

import (
	"fmt"

	"webharvest/internal/config"
	"webharvest/internal/logger"
	"webharvest/internal/store"
)

// Deps bundles the dependencies every subcommand starts from.
type Deps struct {
	Config *config.Config
	Logger logger.Interface
	Store  *store.Store
}

// Build loads the configuration and constructs the logger and store.
func Build() (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &Deps{
		Config: cfg,
		Logger: log,
		Store:  store.New(cfg.Database.Path, log),
	}, nil
}

// Close releases the dependencies' resources.
func (d *Deps) Close() {
	if err := d.Store.Close(); err != nil {
		d.Logger.Warn("close store", "error", err.Error())
	}
}
