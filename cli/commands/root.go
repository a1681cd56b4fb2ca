// Package commands implements the CLI command structure using Cobra.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/petal-labs/imagine/cli/config"
	"github.com/petal-labs/imagine/cli/keystore"
	"github.com/petal-labs/imagine/cli/logging"
	"github.com/petal-labs/imagine/core"
	"github.com/petal-labs/imagine/providers/gemini"
)

// APIKeyEnv is checked for the API key before the keystore.
const APIKeyEnv = "GEMINI_API_KEY"

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "imagine",
		Short: "imagine - generate images from text prompts with Gemini",
		Long: `imagine turns a natural-language prompt into an image file using the
Gemini generateContent API.

Use imagine to generate images, manage API keys, and serve image generation
to MCP clients.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags available to all commands.
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.imagine/config.yaml)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json (default from config)")

	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.AddCommand(a.newGenerateCommand())
	root.AddCommand(a.newKeysCommand())
	root.AddCommand(a.newServeCommand())
	root.AddCommand(a.newInitCommand())
	root.AddCommand(a.newVersionCommand())

	return root
}

// initConfig loads .env, the config file and the environment, then sets up logging.
func (a *App) initConfig() error {
	if a.dotenv != "" {
		if err := godotenv.Load(a.dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.dotenv, err)
		}
	}

	path := a.cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := a.loadConfig(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	format := a.logFormat
	if format == "" {
		format = cfg.LogFormat
	}
	logger, err := logging.New(a.stderr, logging.Options{
		Level:   cfg.LogLevel,
		Format:  format,
		Verbose: a.verbose,
	})
	if err != nil {
		return err
	}
	a.logger = logger
	a.logger.Debug("configuration loaded", slog.String("path", path), logging.Model(core.ModelID(cfg.DefaultModel)))
	return nil
}

// resolveCredential returns the API key from GEMINI_API_KEY or the keystore.
func (a *App) resolveCredential() (core.Credential, error) {
	if key := strings.TrimSpace(a.getenv(APIKeyEnv)); key != "" {
		return core.NewCredential(key), nil
	}

	ref := a.cfg.APIKeyRef
	ks, err := a.newKeystore()
	if err != nil {
		return core.Credential{}, fmt.Errorf("open keystore: %w", err)
	}
	key, err := ks.Get(ref)
	if err != nil {
		var notFound *keystore.ErrKeyNotFound
		if errors.As(err, &notFound) {
			return core.Credential{}, fmt.Errorf("%w: set %s or run 'imagine keys set %s'", ErrNoCredential, APIKeyEnv, ref)
		}
		return core.Credential{}, fmt.Errorf("read keystore: %w", err)
	}
	return core.NewCredential(key), nil
}

// newGenerator wires the Gemini codec and transport into a retrying generator.
func (a *App) newGenerator(timeout time.Duration, maxAttempts int) *core.Generator {
	cfg := a.cfg
	opts := []gemini.Option{
		gemini.WithBaseURL(cfg.BaseURL),
		gemini.WithTimeout(timeout),
		gemini.WithAuthMode(gemini.AuthMode(cfg.Auth)),
		gemini.WithMaxPromptLength(cfg.MaxPromptLength),
	}
	if a.httpClient != nil {
		opts = append(opts, gemini.WithHTTPClient(a.httpClient))
	}

	retry := core.DefaultRetryConfig()
	retry.MaxAttempts = maxAttempts
	retry.Deadline = cfg.Deadline

	return core.NewGenerator(
		gemini.NewCodec(opts...),
		gemini.NewTransport(opts...),
		core.WithRetryPolicy(core.NewRetryPolicy(retry)),
		core.WithTelemetry(logging.NewTelemetry(a.logger)),
		core.WithSleeper(a.sleep),
	)
}
