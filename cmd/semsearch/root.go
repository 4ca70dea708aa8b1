package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	semsearch "github.com/FrenchMajesty/semantic-search"
	"github.com/FrenchMajesty/semantic-search/internal/retry"
	"github.com/FrenchMajesty/semantic-search/internal/tracing"
	"github.com/FrenchMajesty/semantic-search/internal/tui"
	"github.com/FrenchMajesty/semantic-search/pkg/config"
)

var version = "dev"

// app carries flag values and the services built for one command run
type app struct {
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
	jsonOutput bool
	overrides  config.Overrides

	settings *config.Settings
	orch     *semsearch.Orchestrator
	tracing  *tracing.Provider

	loadSettings      func(opts config.LoadOptions) (*config.Settings, error)
	buildOrchestrator func(s *config.Settings, logger *slog.Logger, tracer trace.Tracer) *semsearch.Orchestrator
	runTUI            func(ctx context.Context, svc tui.Service, overrides config.Overrides, defaults config.ConnectionConfig) error
}

func newApp() *app {
	return &app{
		loadSettings:      config.Load,
		buildOrchestrator: newOrchestrator,
		runTUI:            tui.Run,
	}
}

func newOrchestrator(s *config.Settings, logger *slog.Logger, tracer trace.Tracer) *semsearch.Orchestrator {
	return semsearch.New(semsearch.Options{
		Resolver:    config.NewResolver(s.Connection()),
		CallTimeout: s.CallTimeout,
		Retry: retry.Config{
			MaxAttempts:     s.Retry.MaxAttempts,
			BaseDelay:       s.Retry.BaseDelay,
			MaxDelay:        s.Retry.MaxDelay,
			BackoffMultiple: 2.0,
		},
		Logger: logger,
		Tracer: tracer,
	})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "semsearch",
		Short: "Semantic search over a vector database",
		Long: `Embeds text with an embedding API and searches or inserts it into a managed
vector database (Pinecone or Qdrant).

Credentials and defaults come from .env, the environment and an optional config file.
Flags override them for a single run.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (yaml, toml or json)")
	flags.StringVar(&a.envFile, "env-file", "", "dotenv file to load (default .env)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	flags.BoolVar(&a.jsonOutput, "json", false, "output results as JSON")
	flags.StringVar(&a.overrides.StoreAPIKey, "api-key", "", "vector database API key (optional if in .env file)")
	flags.StringVar(&a.overrides.EmbeddingAPIKey, "openai-api-key", "", "embedding API key (optional if in .env file)")
	flags.StringVar(&a.overrides.IndexName, "index-name", "", "index name")
	flags.StringVar(&a.overrides.Namespace, "namespace", "", "namespace in the index")
	flags.StringVar(&a.overrides.StoreHost, "pinecone-host", "", "index host URL (optional)")

	rootCmd.AddCommand(
		newSearchCmd(a),
		newInsertCmd(a),
		newStatsCmd(a),
		newDeleteCmd(a),
		newImportCmd(a),
		newTUICmd(a),
	)

	return rootCmd
}

// setup loads configuration and builds the orchestrator before any subcommand runs
func (a *app) setup(cmd *cobra.Command, args []string) error {
	settings, err := a.loadSettings(config.LoadOptions{
		DotEnvPath: a.envFile,
		ConfigFile: a.configFile,
	})
	if err != nil {
		return err
	}
	a.settings = settings

	level := firstNonEmpty(a.logLevel, settings.Log.Level)
	format := firstNonEmpty(a.logFormat, settings.Log.Format)
	logger, err := newLogger(cmd.ErrOrStderr(), level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	provider, err := tracing.Init(cmd.Context(), tracing.Config{
		ServiceName:    settings.Tracing.ServiceName,
		ServiceVersion: version,
		Endpoint:       settings.Tracing.Endpoint,
		SampleRate:     settings.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}
	a.tracing = provider

	a.orch = a.buildOrchestrator(settings, logger, provider.Tracer())
	return nil
}

// shutdown flushes pending spans
func (a *app) shutdown() {
	if a.tracing == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracing.Shutdown(ctx); err != nil {
		slog.Warn("tracing shutdown", "error", err)
	}
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl := slog.LevelInfo
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q", level)
		}
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

// actionError carries the user-facing message while keeping the typed cause
type actionError struct {
	err error
}

func (e *actionError) Error() string {
	return semsearch.UserMessage(e.err)
}

func (e *actionError) Unwrap() error {
	return e.err
}

func userError(err error) error {
	if err == nil {
		return nil
	}
	var ae *actionError
	if errors.As(err, &ae) {
		return err
	}
	return &actionError{err: err}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
