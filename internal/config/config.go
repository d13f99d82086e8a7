// Package config provides configuration loading and validation for the sparsetable CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidOperator = errors.New("invalid operator")
	ErrInvalidFormat   = errors.New("invalid output format")
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrInvalidMemory   = errors.New("invalid memory budget")
)

// Operators and formats accepted by the CLI.
const (
	OperatorMax = "max"
	OperatorMin = "min"

	FormatText  = "text"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// Configuration keys, shared with command-line flag overrides.
const (
	KeyOperator  = "index.operator"
	KeyMaxMemory = "index.max_memory"
	KeyFormat    = "output.format"
	KeyLogLevel  = "logging.level"
	KeyLogJSON   = "logging.json"
)

const (
	envPrefix  = "SPARSETABLE"
	configName = "sparsetable"
)

// Config holds all configuration for the sparsetable CLI.
type Config struct {
	Index   IndexConfig   `mapstructure:"index"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// IndexConfig holds index construction settings.
type IndexConfig struct {
	Operator  string `mapstructure:"operator"`
	MaxMemory string `mapstructure:"max_memory"`
}

// OutputConfig holds result formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// LoadConfig loads configuration from defaults, an optional file, environment
// variables and overrides, in increasing order of precedence.
// Overrides are keyed by the Key* constants.
func LoadConfig(configPath string, overrides map[string]any) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME/.config/sparsetable")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	for key, val := range overrides {
		viperCfg.Set(key, val)
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault(KeyOperator, OperatorMax)
	viperCfg.SetDefault(KeyMaxMemory, "0")
	viperCfg.SetDefault(KeyFormat, FormatText)
	viperCfg.SetDefault(KeyLogLevel, "warn")
	viperCfg.SetDefault(KeyLogJSON, false)
}

func validateConfig(config *Config) error {
	config.Index.Operator = strings.ToLower(config.Index.Operator)
	switch config.Index.Operator {
	case OperatorMax, OperatorMin:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOperator, config.Index.Operator)
	}

	config.Output.Format = strings.ToLower(config.Output.Format)
	switch config.Output.Format {
	case FormatText, FormatJSON, FormatYAML, FormatTable:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, config.Output.Format)
	}

	if _, err := config.Logging.SlogLevel(); err != nil {
		return err
	}

	if _, err := config.Index.MaxMemoryBytes(); err != nil {
		return err
	}

	return nil
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (c LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.Level))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Level)
	}

	return level, nil
}

// MaxMemoryBytes parses MaxMemory ("512MiB", "2GB"). Empty or "0" means no budget.
func (c IndexConfig) MaxMemoryBytes() (uint64, error) {
	trimmed := strings.TrimSpace(c.MaxMemory)
	if trimmed == "" || trimmed == "0" {
		return 0, nil
	}

	parsed, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidMemory, c.MaxMemory, err)
	}

	return parsed, nil
}
