package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/petal-labs/imagine/core"
)

var envVars = []string{
	"GEMINI_DEFAULT_MODEL",
	"GEMINI_ALLOWED_MODELS",
	"GEMINI_API_BASE_URL",
	"GEMINI_AUTH_MODE",
	"IMAGINE_KEY_REF",
	"MAX_PROMPT_LENGTH",
	"IMAGINE_TIMEOUT",
	"IMAGINE_DEADLINE",
	"IMAGINE_MAX_ATTEMPTS",
	"IMAGINE_OUTPUT_DIR",
	"IMAGINE_LOG_LEVEL",
	"IMAGINE_LOG_FORMAT",
}

// clearEnv unsets every variable the config reads and restores it after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	return path
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("USERPROFILE", "/home/tester")

	path := DefaultConfigPath()
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("DefaultConfigPath() = %q, should end with config.yaml", path)
	}
	if filepath.Base(filepath.Dir(path)) != ".imagine" {
		t.Errorf("DefaultConfigPath() = %q, should be in .imagine directory", path)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil for missing file", err)
	}

	if cfg.DefaultModel != string(core.DefaultModel) {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
	if cfg.MaxPromptLength != 10000 {
		t.Errorf("MaxPromptLength = %d, want 10000", cfg.MaxPromptLength)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.Auth != AuthHeader || cfg.APIKeyRef != "gemini" {
		t.Errorf("Auth = %q, APIKeyRef = %q", cfg.Auth, cfg.APIKeyRef)
	}
	if len(cfg.AllowedModels) != 0 {
		t.Errorf("AllowedModels = %v, want empty", cfg.AllowedModels)
	}
}

func TestLoadConfigValid(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
default_model: gemini-3-pro-image-preview
allowed_models:
  - gemini-2.5-flash-image
  - gemini-3-pro-image-preview
base_url: https://proxy.example.com/
auth: query
max_prompt_length: 500
timeout: 90s
deadline: 5m
max_attempts: 5
output_dir: /tmp/images
log_level: debug
log_format: json
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	want := &Config{
		DefaultModel:    "gemini-3-pro-image-preview",
		AllowedModels:   []string{"gemini-2.5-flash-image", "gemini-3-pro-image-preview"},
		BaseURL:         "https://proxy.example.com",
		Auth:            AuthQuery,
		APIKeyRef:       DefaultKeyRef,
		MaxPromptLength: 500,
		Timeout:         90 * time.Second,
		Deadline:        5 * time.Minute,
		MaxAttempts:     5,
		OutputDir:       "/tmp/images",
		LogLevel:        "debug",
		LogFormat:       "json",
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("LoadConfig() =\n%+v\nwant\n%+v", cfg, want)
	}
}

func TestLoadConfigEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
default_model: from-file
max_prompt_length: 500
timeout: 90s
`)
	t.Setenv("GEMINI_DEFAULT_MODEL", "from-env")
	t.Setenv("GEMINI_ALLOWED_MODELS", "from-env, other-model ,")
	t.Setenv("GEMINI_API_BASE_URL", "http://localhost:9000/v1beta")
	t.Setenv("MAX_PROMPT_LENGTH", "42")
	t.Setenv("IMAGINE_MAX_ATTEMPTS", "7")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.DefaultModel != "from-env" {
		t.Errorf("DefaultModel = %q, want from-env", cfg.DefaultModel)
	}
	if want := []string{"from-env", "other-model"}; !reflect.DeepEqual(cfg.AllowedModels, want) {
		t.Errorf("AllowedModels = %q, want %q", cfg.AllowedModels, want)
	}
	if cfg.BaseURL != "http://localhost:9000" {
		t.Errorf("BaseURL = %q, want version suffix stripped", cfg.BaseURL)
	}
	if cfg.MaxPromptLength != 42 {
		t.Errorf("MaxPromptLength = %d, want 42", cfg.MaxPromptLength)
	}
	if cfg.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d, want 7", cfg.MaxAttempts)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, file value should survive", cfg.Timeout)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{"yaml type mismatch", "default_model: [invalid, array]\n", nil},
		{"unknown auth", "auth: cookie\n", nil},
		{"unknown log format", "log_format: xml\n", nil},
		{"negative deadline", "deadline: -1s\n", nil},
		{"env not a number", "", map[string]string{"MAX_PROMPT_LENGTH": "lots"}},
		{"env bad duration", "", map[string]string{"IMAGINE_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("LoadConfig() error = nil, want error")
			}
		})
	}
}

func TestLoadConfigUnreadable(t *testing.T) {
	clearEnv(t)
	// A directory cannot be read as a file.
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Error("LoadConfig() error = nil for a directory")
	}
}

func TestResolveModel(t *testing.T) {
	open := Default()
	restricted := Default()
	restricted.AllowedModels = []string{"gemini-2.5-flash-image", "gemini-3-pro-image-preview"}

	tests := []struct {
		name      string
		cfg       *Config
		requested string
		want      core.ModelID
		wantErr   error
	}{
		{"default", open, "", core.DefaultModel, nil},
		{"any model when unrestricted", open, "custom-model", "custom-model", nil},
		{"allowed", restricted, "gemini-3-pro-image-preview", "gemini-3-pro-image-preview", nil},
		{"not allowed", restricted, "imagen-4", "", ErrModelNotAllowed},
		{"whitespace falls back to default", restricted, "  ", core.DefaultModel, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ResolveModel(tt.requested)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ResolveModel() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveModel() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveModel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveModelDefaultOutsideAllowList(t *testing.T) {
	cfg := Default()
	cfg.AllowedModels = []string{"gemini-3-pro-image-preview"}

	if _, err := cfg.ResolveModel(""); !errors.Is(err, ErrModelNotAllowed) {
		t.Errorf("ResolveModel(\"\") error = %v, want ErrModelNotAllowed", err)
	}
}
