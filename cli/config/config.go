// Package config handles CLI configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/petal-labs/imagine/core"
)

// Defaults applied when neither the file nor the environment sets a value.
const (
	DefaultBaseURL         = "https://generativelanguage.googleapis.com"
	DefaultTimeout         = 60 * time.Second
	DefaultMaxAttempts     = 3
	DefaultMaxPromptLength = 10000
	DefaultKeyRef          = "gemini"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Authentication modes.
const (
	AuthHeader = "header"
	AuthQuery  = "query"
)

// ErrModelNotAllowed is returned when a model is outside the configured allow-list.
var ErrModelNotAllowed = errors.New("model is not in the allowed list")

// Config represents the CLI configuration.
// Values come from the YAML file first and are then overridden by environment
// variables. Command-line flags override both.
type Config struct {
	DefaultModel    string        `yaml:"default_model" env:"GEMINI_DEFAULT_MODEL"`
	AllowedModels   []string      `yaml:"allowed_models" env:"GEMINI_ALLOWED_MODELS" env-separator:","`
	BaseURL         string        `yaml:"base_url" env:"GEMINI_API_BASE_URL"`
	Auth            string        `yaml:"auth" env:"GEMINI_AUTH_MODE"`
	APIKeyRef       string        `yaml:"api_key_ref" env:"IMAGINE_KEY_REF"`
	MaxPromptLength int           `yaml:"max_prompt_length" env:"MAX_PROMPT_LENGTH"`
	Timeout         time.Duration `yaml:"timeout" env:"IMAGINE_TIMEOUT"`
	Deadline        time.Duration `yaml:"deadline" env:"IMAGINE_DEADLINE"`
	MaxAttempts     int           `yaml:"max_attempts" env:"IMAGINE_MAX_ATTEMPTS"`
	OutputDir       string        `yaml:"output_dir" env:"IMAGINE_OUTPUT_DIR"`
	LogLevel        string        `yaml:"log_level" env:"IMAGINE_LOG_LEVEL"`
	LogFormat       string        `yaml:"log_format" env:"IMAGINE_LOG_FORMAT"`
}

// DefaultConfigPath returns the default configuration file path for the current platform.
// - macOS/Linux: ~/.imagine/config.yaml
// - Windows: %USERPROFILE%\.imagine\config.yaml
func DefaultConfigPath() string {
	dir := HomeDir()
	if dir == "" {
		// Fallback to current directory
		return "config.yaml"
	}
	return filepath.Join(dir, "config.yaml")
}

// HomeDir returns the ~/.imagine directory, or "" when no home is known.
func HomeDir() string {
	var homeDir string

	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}

	if homeDir == "" {
		return ""
	}
	return filepath.Join(homeDir, ".imagine")
}

// LoadConfig loads configuration from the specified path, overlays the
// environment and fills defaults.
// If the file doesn't exist, the environment and defaults still apply.
// Returns an error only if the file exists but cannot be read or parsed, or
// an environment variable holds a malformed value.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DefaultModel == "" {
		c.DefaultModel = string(core.DefaultModel)
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	// Accept base URLs that already include the API version.
	c.BaseURL = strings.TrimSuffix(strings.TrimRight(c.BaseURL, "/"), "/v1beta")
	if c.Auth == "" {
		c.Auth = AuthHeader
	}
	if c.APIKeyRef == "" {
		c.APIKeyRef = DefaultKeyRef
	}
	if c.MaxPromptLength <= 0 {
		c.MaxPromptLength = DefaultMaxPromptLength
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}

	allowed := c.AllowedModels[:0:0]
	for _, m := range c.AllowedModels {
		if m = strings.TrimSpace(m); m != "" {
			allowed = append(allowed, m)
		}
	}
	c.AllowedModels = allowed
}

// Validate checks values that have a closed set of options.
func (c *Config) Validate() error {
	switch c.Auth {
	case AuthHeader, AuthQuery:
	default:
		return fmt.Errorf("auth must be %q or %q, got %q", AuthHeader, AuthQuery, c.Auth)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	if c.Deadline < 0 {
		return fmt.Errorf("deadline must not be negative, got %s", c.Deadline)
	}
	return nil
}

// IsAllowed reports whether model may be used. An empty allow-list permits every model.
func (c *Config) IsAllowed(model string) bool {
	return len(c.AllowedModels) == 0 || slices.Contains(c.AllowedModels, model)
}

// ResolveModel returns requested, or the default model when requested is
// empty, after checking it against the allow-list.
func (c *Config) ResolveModel(requested string) (core.ModelID, error) {
	model := strings.TrimSpace(requested)
	if model == "" {
		model = c.DefaultModel
	}
	if model == "" {
		return "", core.ErrModelRequired
	}
	if !c.IsAllowed(model) {
		return "", fmt.Errorf("%w: %q (allowed: %s)", ErrModelNotAllowed, model, strings.Join(c.AllowedModels, ", "))
	}
	return core.ModelID(model), nil
}
