package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/five82/lector/internal/app"
	"github.com/five82/lector/internal/config"
	"github.com/five82/lector/internal/logging"
)

type rootOptions struct {
	configPath string
	apiBase    string
	verbose    bool
}

// env is what every command runs against: the loaded configuration and a
// logger. The app.Client is built per command because not every command needs
// the session check it performs.
type env struct {
	opts   *rootOptions
	cfg    config.Config
	logger *zap.Logger
}

// NewRootCommand builds the lector command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	e := &env{opts: opts, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "lector",
		Short: "Terminal client for the OCR text extraction service",
		Long: "lector logs in to an OCR service, submits PNG, JPEG and PDF files for text\n" +
			"extraction, and lists, shows and deletes the results. Run without a\n" +
			"subcommand to open the interactive interface.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = e.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, e)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/lector/config.toml)")
	flags.StringVar(&opts.apiBase, "api-base", "", "API base URL, overrides config and "+config.EnvAPIBase)
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "also log to stderr")

	root.AddCommand(
		newLoginCommand(e),
		newLogoutCommand(e),
		newWhoamiCommand(e),
		newRegisterCommand(e),
		newSubmitCommand(e),
		newListCommand(e),
		newShowCommand(e),
		newDeleteCommand(e),
		newEndpointCommand(e),
		newTUICommand(e),
	)
	return root
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func (e *env) load(cmd *cobra.Command) error {
	// A .env file in the working directory may set LECTOR_API_BASE. Variables
	// already in the environment win.
	dotenvErr := godotenv.Load()

	cfg, err := config.Load(e.opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("api-base") {
		cfg.APIBase = e.opts.apiBase
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	e.cfg = cfg

	logOpts := logging.Options{Path: cfg.LogPath(), Level: cfg.LogLevel}
	// The interactive interface owns the terminal.
	if e.opts.verbose && !isTUI(cmd) {
		logOpts.Console = cmd.ErrOrStderr()
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	e.logger = logger
	if dotenvErr == nil {
		e.logger.Debug("loaded .env from working directory")
	}
	return nil
}

func isTUI(cmd *cobra.Command) bool {
	return cmd.Name() == "tui" || !cmd.HasParent()
}

// connect builds a client for one command and saves its cookies afterwards.
func (e *env) connect(ctx context.Context, fn func(*app.Client) error) (err error) {
	client, err := app.New(ctx, app.Options{
		Config:     e.cfg,
		Logger:     e.logger,
		CookiePath: e.cfg.CookiePath(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(client)
}

// connectUser is connect for commands that need a logged-in session.
func (e *env) connectUser(ctx context.Context, fn func(*app.Client) error) error {
	return e.connect(ctx, func(client *app.Client) error {
		if !client.Session.Snapshot().Authenticated() {
			return errNotLoggedIn
		}
		return fn(client)
	})
}

var errNotLoggedIn = errors.New("not logged in, run `lector login` first")

// failure is an error whose text is the user-facing message recorded by the
// session manager or result store. The underlying error stays reachable.
type failure struct {
	message string
	err     error
}

func (f *failure) Error() string { return f.message }
func (f *failure) Unwrap() error { return f.err }

func fail(message string, err error) error {
	if message == "" {
		return err
	}
	return &failure{message: message, err: err}
}
