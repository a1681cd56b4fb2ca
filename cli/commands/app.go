package commands

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/imagine/cli/config"
	"github.com/petal-labs/imagine/cli/keystore"
	"github.com/petal-labs/imagine/core"
)

// ConfigLoader loads CLI config from a path.
type ConfigLoader func(path string) (*config.Config, error)

// KeystoreFactory creates a keystore instance.
type KeystoreFactory func() (keystore.Keystore, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig  ConfigLoader
	newKeystore KeystoreFactory
	getenv      func(string) string
	httpClient  *http.Client
	sleep       core.Sleeper
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer

	cfgFile    string
	jsonOutput bool
	verbose    bool
	logFormat  string
	cfg        *config.Config
	logger     *slog.Logger

	dotenv    string
	gen       generateFlags
	initForce bool
}

// WithConfigLoader injects a config loader dependency.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithKeystoreFactory injects a keystore factory dependency.
func WithKeystoreFactory(factory KeystoreFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newKeystore = factory
		}
	}
}

// WithGetenv replaces environment lookups for the API key.
func WithGetenv(getenv func(string) string) AppOption {
	return func(a *App) {
		if getenv != nil {
			a.getenv = getenv
		}
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) AppOption {
	return func(a *App) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// WithSleeper replaces the wait between retries.
func WithSleeper(s core.Sleeper) AppOption {
	return func(a *App) {
		if s != nil {
			a.sleep = s
		}
	}
}

// WithDotEnv sets the .env file loaded before the configuration. An empty
// path disables it.
func WithDotEnv(path string) AppOption {
	return func(a *App) {
		a.dotenv = path
	}
}

// WithIO injects process I/O streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdin != nil {
			a.stdin = stdin
		}
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewApp creates a new CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig:  config.LoadConfig,
		newKeystore: keystore.NewKeystore,
		getenv:      os.Getenv,
		dotenv:      ".env",
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.root = a.newRootCommand()
	return a
}

// SetArgs sets the arguments used by Execute instead of os.Args.
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

// Execute runs the root command.
func (a *App) Execute() error {
	return a.ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx. Failures are reported on
// stderr and returned with an exit code attached.
func (a *App) ExecuteContext(ctx context.Context) error {
	err := a.root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	err = exitWithCode(exitCodeFor(err), err)
	a.reportError(err)
	return err
}

// ExecuteContext runs a new app with default dependencies.
func ExecuteContext(ctx context.Context) error {
	return NewApp().ExecuteContext(ctx)
}
