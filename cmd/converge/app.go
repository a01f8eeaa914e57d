package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jllopis/converge/pkg/config"
	"github.com/jllopis/converge/pkg/eval"
	"github.com/jllopis/converge/pkg/llm"
	"github.com/jllopis/converge/pkg/telemetry"
	"github.com/jllopis/converge/providers"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App is the converge command line.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	logFormat  string
	jsonOutput bool

	cfg      *config.Config
	logger   *slog.Logger
	shutdown telemetry.ShutdownFunc
}

// NewApp builds the command tree.
func NewApp() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "converge",
		Short: "Multi-agent convergence pipeline and eval harness",
		Long: `converge runs domain packs of cooperating agents over a shared fact store
until no agent has anything left to add, and checks those runs against
declarative eval fixtures.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
	}
	pf := app.root.PersistentFlags()
	pf.StringVar(&app.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&app.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&app.logFormat, "log-format", "", "log format (text, json)")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newRunCmd(),
		app.newEvalCmd(),
		app.newPacksCmd(),
		app.newMCPCmd(),
	)
	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI until the command finishes or a signal arrives.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer a.closeTelemetry()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// PrintError reports err on stderr in the format of the last command.
func (a *App) PrintError(err error) {
	PrintError(a.stderr, err, a.jsonOutput)
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	overrides := map[string]interface{}{}
	if a.logLevel != "" {
		overrides["log.level"] = a.logLevel
	}
	if a.logFormat != "" {
		overrides["log.format"] = a.logFormat
	}
	cfg, err := config.LoadWithOverrides(a.configPath, overrides)
	if err != nil {
		return NewConfigError(err, a.configPath)
	}
	a.cfg = cfg
	a.logger = telemetry.ConfigureSlog(a.stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig("converge", Version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		Output:       a.stderr,
	})
	if err != nil {
		return NewConfigError(err, a.configPath)
	}
	a.shutdown = shutdown
	a.logger.Debug("configuration loaded",
		slog.String("command", cmd.Name()),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.String("telemetry", cfg.Telemetry.Exporter),
	)
	return nil
}

func (a *App) closeTelemetry() {
	if a.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil && a.logger != nil {
		a.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
	}
	a.shutdown = nil
}

// provider returns the provider for a run. mock forces the offline stand-in.
func (a *App) provider(mock bool) (llm.Provider, string, error) {
	if mock {
		p, name := providers.Mock()
		return p, name, nil
	}
	return providers.FromConfig(a.cfg.LLM, a.logger)
}

func (a *App) providerFactory() eval.ProviderFactory {
	return a.provider
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "converge version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
