package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webharvest/internal/logger"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  logger.Config
	}{
		{"console", logger.Config{Level: "debug", Encoding: "console"}},
		{"json", logger.Config{Level: "info", Encoding: "json"}},
		{"development", logger.Config{Level: "warn", Development: true}},
		{"defaults", logger.Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := logger.New(&tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, log)

			// Exercise the interface; output formatting is zap's concern.
			log.Debug("debug message", "key", "value")
			log.Info("info message", "count", 3)
			log.Warn("warn message")
			log.Error("error message", "err", "boom")
			log.With("component", "test").Info("scoped message")
		})
	}
}

func TestNewUnknownLevelFallsBack(t *testing.T) {
	log, err := logger.New(&logger.Config{Level: "verbose"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNoop(t *testing.T) {
	log := logger.NewNoop()

	log.Info("ignored")
	assert.NotNil(t, log.With("k", "v"))
}
