package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/petal-labs/imagine/cli/config"
)

func (a *App) newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter configuration file",
		Long: `Write a commented configuration file with the default settings.

The file is written to ~/.imagine/config.yaml unless a path is given.
An existing file is kept unless --force is set.

Example:
  imagine init
  imagine init ./imagine.yaml --force`,
		Args: cobra.MaximumNArgs(1),
		// A broken existing config must not prevent rewriting it.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE:              a.runInit,
	}

	cmd.Flags().BoolVar(&a.initForce, "force", false, "overwrite an existing file")
	return cmd
}

func (a *App) runInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultConfigPath()
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !a.initForce {
		return exitWithCode(ExitValidation, fmt.Errorf("%s already exists (use --force to overwrite)", path))
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := generateFile(path, configTemplate, config.Default()); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	fmt.Fprintf(a.stdout, "Created %s\n\n", path)
	fmt.Fprintln(a.stdout, "Next steps:")
	fmt.Fprintln(a.stdout, "  imagine keys set")
	fmt.Fprintln(a.stdout, `  imagine generate --prompt "a lighthouse at dusk"`)
	return nil
}

func generateFile(path string, tmplContent string, data any) error {
	tmpl, err := template.New("file").Parse(tmplContent)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, data)
}

// Templates

var configTemplate = `# imagine configuration
# Environment variables override these values, command-line flags override both.

# Model used when --model is not given (GEMINI_DEFAULT_MODEL).
default_model: {{.DefaultModel}}

# Restrict the models that may be requested (GEMINI_ALLOWED_MODELS, comma separated).
# An empty list allows every model.
allowed_models: []

# API endpoint (GEMINI_API_BASE_URL) and how the key is sent: header or query.
base_url: {{.BaseURL}}
auth: {{.Auth}}

# Keystore entry holding the API key; GEMINI_API_KEY takes precedence.
# Store it with 'imagine keys set'.
api_key_ref: {{.APIKeyRef}}

# Longest accepted prompt in characters (MAX_PROMPT_LENGTH).
max_prompt_length: {{.MaxPromptLength}}

# Per-attempt timeout, total attempts and an optional overall deadline.
timeout: {{.Timeout}}
max_attempts: {{.MaxAttempts}}
# deadline: 5m

# Directory used when --output is not given.
# output_dir: ~/Pictures/imagine

log_level: {{.LogLevel}}
log_format: {{.LogFormat}}
`
