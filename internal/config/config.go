// Package config handles configuration loading for agentmux. It
// supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for agentmux.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Search    SearchConfig    `mapstructure:"search"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
}

// AnthropicConfig holds Anthropic API settings for the bundled worker.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// UseAWSBedrock routes calls through AWS Bedrock instead of the
	// direct API.
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// DefaultsConfig holds orchestration defaults.
type DefaultsConfig struct {
	// Worker is the fallback worker when no skills match a goal.
	Worker string `mapstructure:"worker"`
	// MaxConcurrent caps concurrently running workers.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// GracePeriod is the wind-down time after a cancellation.
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// RetryConfig holds the invocation retry knobs.
type RetryConfig struct {
	// Timeout bounds each invocation attempt.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxAttempts is the total attempt budget per invocation.
	MaxAttempts int `mapstructure:"max_attempts"`
	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration `mapstructure:"base_delay"`
}

// SearchConfig holds the caching search provider settings.
type SearchConfig struct {
	// TTL is how long cached search results stay fresh.
	TTL time.Duration `mapstructure:"ttl"`
	// CacheSize bounds the number of cached queries.
	CacheSize int `mapstructure:"cache_size"`
	// Primary is the primary backend endpoint URL.
	Primary string `mapstructure:"primary"`
	// Fallbacks lists fallback endpoint URLs in order.
	Fallbacks []string `mapstructure:"fallbacks"`
}

// WorkersConfig holds worker definition settings.
type WorkersConfig struct {
	// Dir is the directory of YAML worker definitions.
	Dir string `mapstructure:"dir"`
	// Watch reloads definitions when files in Dir change.
	Watch bool `mapstructure:"watch"`
}

// LedgerConfig holds run persistence settings.
type LedgerConfig struct {
	// Path is the SQLite ledger location. Empty uses the XDG default.
	Path string `mapstructure:"path"`
	// Disabled turns off run persistence entirely.
	Disabled bool `mapstructure:"disabled"`
}

// Load loads configuration with the following precedence (highest to
// lowest): environment variables, project config (.agentmux.yaml in
// the current directory or a parent), user config
// (~/.config/agentmux/config.yaml), built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.aws_region", "AWS_REGION")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("defaults.worker", "")
	v.SetDefault("defaults.max_concurrent", 4)
	v.SetDefault("defaults.grace_period", "5s")

	v.SetDefault("retry.timeout", "300s")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "1s")

	v.SetDefault("search.ttl", "1h")
	v.SetDefault("search.cache_size", 1024)

	v.SetDefault("workers.dir", "workers")
	v.SetDefault("workers.watch", false)

	v.SetDefault("ledger.path", "")
	v.SetDefault("ledger.disabled", false)
}

// getUserConfigDir returns the XDG config directory for agentmux.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "agentmux")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "agentmux")
	}
	return filepath.Join(home, ".config", "agentmux")
}

// findProjectConfig searches for .agentmux.yaml in the current
// directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		configPath := filepath.Join(cwd, ".agentmux.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			MaxConcurrent: 4,
			GracePeriod:   5 * time.Second,
		},
		Retry: RetryConfig{
			Timeout:     300 * time.Second,
			MaxAttempts: 3,
			BaseDelay:   time.Second,
		},
		Search: SearchConfig{
			TTL:       time.Hour,
			CacheSize: 1024,
		},
		Workers: WorkersConfig{
			Dir: "workers",
		},
	}
}
