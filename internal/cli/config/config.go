package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config represents the tool settings read from tunables.yml
type Config struct {
	SourceRoot string    `mapstructure:"source_root"`
	Output     OutConfig `mapstructure:"output"`
	LogLevel   string    `mapstructure:"log_level"`
}

// OutConfig controls where and how artifacts are written
type OutConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

// EnvPrefix prefixes environment overrides, e.g. TUNABLES_OUTPUT_FORMAT
const EnvPrefix = "TUNABLES"

// Load loads the configuration from tunables.yml in the current directory
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads tunables.yml or tunables.yaml from dir
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("source_root", ".")
	v.SetDefault("output.dir", "build/tunables")
	v.SetDefault("output.format", "json")
	v.SetDefault("log_level", "warn")

	// Set config name and paths
	v.SetConfigName("tunables")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetProjectRoot finds the project root by looking for tunables.yml or go.mod
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range []string{"tunables.yml", "tunables.yaml", "go.mod"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go project (no tunables.yml or go.mod found)")
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Output.Format {
	case "json", "yaml", "yml":
	default:
		return fmt.Errorf("output.format must be json or yaml, got: %s", cfg.Output.Format)
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level is invalid: %w", err)
	}
	return nil
}
