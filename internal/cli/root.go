package cli

import (
	"context"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vault-cli/credman/internal/clipboard"
	"github.com/vault-cli/credman/internal/config"
	"github.com/vault-cli/credman/internal/store"
	"github.com/vault-cli/credman/internal/util"
)

// Version is the credman release, set at build time
var Version = "1.0.0"

// Clipboard copies secrets and clears them again.
type Clipboard interface {
	Available() bool
	Copy(text string) error
	ClearAfter(ctx context.Context, text string, timeout time.Duration) error
}

// App holds everything a command needs. Commands never touch package state;
// tests build an App with a scripted Prompter and buffers.
type App struct {
	Config    *config.Config
	Prompter  Prompter
	Clipboard Clipboard
	Logger    *zap.Logger

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	storePath  string
	verbose    bool

	// storeOptions are appended to the options derived from Config
	storeOptions []store.Option
}

// AppOption configures an App
type AppOption func(*App)

// WithIO sets the streams used by commands and the default prompter.
func WithIO(in io.Reader, out, errOut io.Writer) AppOption {
	return func(a *App) {
		a.in, a.out, a.errOut = in, out, errOut
	}
}

// WithPrompter replaces the terminal prompter.
func WithPrompter(p Prompter) AppOption {
	return func(a *App) {
		a.Prompter = p
	}
}

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) AppOption {
	return func(a *App) {
		a.Clipboard = c
	}
}

// WithConfig uses cfg instead of loading the config file.
func WithConfig(cfg *config.Config) AppOption {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithStoreOptions adds options to every store the App opens.
func WithStoreOptions(opts ...store.Option) AppOption {
	return func(a *App) {
		a.storeOptions = append(a.storeOptions, opts...)
	}
}

// NewApp creates an App reading stdin and writing stdout/stderr
func NewApp(opts ...AppOption) *App {
	a := &App{
		in:        os.Stdin,
		out:       os.Stdout,
		errOut:    os.Stderr,
		Clipboard: clipboard.System{},
		Logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Prompter == nil {
		a.Prompter = NewTermPrompter(a.in, a.errOut)
	}
	return a
}

// RootCommand builds the command tree
func (a *App) RootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "credman",
		Short: "A local, encrypted credential manager",
		Long: `credman keeps login credentials and API keys in a single encrypted file.

The store is protected by a master password: keys are derived with Argon2id
and every record is sealed with AES-256-GCM. Nothing leaves the machine.

The store location is taken from --db, then $CMAN_DBFILE, then the config
file, and defaults to ~/.creds.db.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	rootCmd.SetIn(a.in)
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is $HOME/.config/credman/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.storePath, "db", "", "store file path")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log diagnostics to stderr")

	rootCmd.AddCommand(
		newInitCommand(a),
		newAddCommand(a),
		newImportCommand(a),
		newGetCommand(a),
		newListCommand(a),
		newChangeCommand(a),
		newDeleteCommand(a),
		newPassgenCommand(a),
		newExportCommand(a),
	)

	return rootCmd
}

// Execute runs the command line with args.
func Execute(args []string) error {
	app := NewApp()
	defer func() { _ = app.Logger.Sync() }()

	root := app.RootCommand()
	root.SetArgs(args)
	return root.Execute()
}

func (a *App) setup() error {
	if a.Config == nil {
		path := a.configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return util.WrapError(err, "failed to load config")
		}
		a.Config = cfg
	}

	if a.verbose || debugEnabled() {
		logger, err := newDebugLogger()
		if err != nil {
			return util.WrapError(err, "failed to create logger")
		}
		a.Logger = logger
	}
	return nil
}

func newDebugLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// debugEnabled checks if debug mode is enabled via environment variable
func debugEnabled() bool {
	dbg, _ := strconv.ParseBool(os.Getenv(config.EnvDebug))
	return dbg
}

// jsonOutput reports whether results are printed as JSON, either by flag or
// by the configured output format.
func (a *App) jsonOutput(flag bool) bool {
	return flag || a.Config.OutputFormat == config.FormatJSON
}
