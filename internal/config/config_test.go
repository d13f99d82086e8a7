package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexWan0/go-sparsetable/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, config.OperatorMax, cfg.Index.Operator)
	assert.Equal(t, config.FormatText, cfg.Output.Format)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Logging.JSON)

	budget, err := cfg.Index.MaxMemoryBytes()
	require.NoError(t, err)
	assert.Zero(t, budget)
}

func TestLoadConfigFromFile(t *testing.T) {
	configContent := `
index:
  operator: MIN
  max_memory: 64MiB
output:
  format: yaml
logging:
  level: debug
  json: true
`

	path := filepath.Join(t.TempDir(), "sparsetable.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configContent), 0o600))

	cfg, err := config.LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, config.OperatorMin, cfg.Index.Operator)
	assert.Equal(t, config.FormatYAML, cfg.Output.Format)
	assert.True(t, cfg.Logging.JSON)

	level, err := cfg.Logging.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	budget, err := cfg.Index.MaxMemoryBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(64<<20), budget)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparsetable.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  format: json\n"), 0o600))

	cfg, err := config.LoadConfig(path, map[string]any{
		config.KeyFormat:   config.FormatTable,
		config.KeyOperator: config.OperatorMin,
	})
	require.NoError(t, err)

	assert.Equal(t, config.FormatTable, cfg.Output.Format)
	assert.Equal(t, config.OperatorMin, cfg.Index.Operator)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("SPARSETABLE_OUTPUT_FORMAT", "json")

	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, config.FormatJSON, cfg.Output.Format)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		wantErr   error
	}{
		{"operator", map[string]any{config.KeyOperator: "sum"}, config.ErrInvalidOperator},
		{"format", map[string]any{config.KeyFormat: "xml"}, config.ErrInvalidFormat},
		{"log level", map[string]any{config.KeyLogLevel: "loud"}, config.ErrInvalidLogLevel},
		{"memory", map[string]any{config.KeyMaxMemory: "lots"}, config.ErrInvalidMemory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfig("", tt.overrides)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
