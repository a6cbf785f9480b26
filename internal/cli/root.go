// AngelaMos | 2026
// root.go

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/apiclient"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/config"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/events"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/session"
)

type Options struct {
	Out      io.Writer
	Err      io.Writer
	Prompter Prompter
	// Interactive reports whether missing credentials may be prompted for.
	Interactive func() bool
}

// app is built once per invocation, which is what makes every command a
// fresh restore of the persisted session.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	bus       *events.Bus
	storage   session.Storage
	store     *session.Store
	api       *apiclient.Client
	telemetry *core.Telemetry
	closers   []func() error
	out       io.Writer
	errOut    io.Writer
	styles    styles
}

func NewRootCommand(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Prompter == nil {
		opts.Prompter = huhPrompter{}
	}
	if opts.Interactive == nil {
		opts.Interactive = isInteractive
	}

	var (
		configPath string
		profile    string
		a          = &app{out: opts.Out, errOut: opts.Err}
	)

	root := &cobra.Command{
		Use:   "backoffice",
		Short: "Farm back-office console",
		Long: `backoffice signs in to the farm back office, keeps the session between
runs and shows only the areas your role may open.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), configPath, profile)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.Context())
		},
	}

	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	root.PersistentFlags().StringVarP(&profile, "profile", "p", "", "session profile (overrides BACKOFFICE_PROFILE)")

	root.AddCommand(
		newLoginCommand(a, opts),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newMenuCommand(a),
		newOpenCommand(a),
		newServeCommand(a),
	)

	return root
}

func (a *app) setup(ctx context.Context, configPath, profile string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}
	if profile != "" {
		cfg.Storage.Profile = profile
	}
	a.cfg = cfg

	a.logger = core.NewLoggerTo(a.errOut, cfg.Log)
	slog.SetDefault(a.logger)
	a.styles = newStyles(a.out)

	tracer := core.NoopTracer()
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			a.logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			a.telemetry = tel
			tracer = tel.Tracer
		}
	}

	storage, closeStorage, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return &ExitError{Code: ExitGeneral, Err: fmt.Errorf("open session storage: %w", err)}
	}
	a.storage = storage
	a.closers = append(a.closers, closeStorage)

	a.bus = events.NewBus(a.logger)
	a.store, err = session.NewStore(ctx, session.StoreConfig{
		Storage:       storage,
		Authenticator: session.NewHTTPAuthenticator(cfg.API.BaseURL, cfg.API.Timeout),
		Bus:           a.bus,
		Logger:        a.logger,
		Tracer:        tracer,
	})
	if err != nil {
		return err
	}

	a.api = apiclient.New(apiclient.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		Tokens:            a.store,
		Bus:               a.bus,
		Tracer:            tracer,
	})

	a.store.OnUnauthorized(func(context.Context) {
		fmt.Fprintln(a.errOut, a.styles.warn.Render("session expired, please log in"))
	})

	return nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for _, closeFn := range a.closers {
		errs = append(errs, closeFn())
	}
	a.closers = nil

	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Execute runs the console with process stdio and returns the exit code.
func Execute(ctx context.Context) int {
	root := NewRootCommand(Options{})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitCode(err)
	}
	return ExitSuccess
}
