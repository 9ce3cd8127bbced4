package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/api"
	"github.com/BTreeMap/FarmGenius/internal/app"
	"github.com/BTreeMap/FarmGenius/internal/genai"
	"github.com/BTreeMap/FarmGenius/internal/lockfile"
	"github.com/BTreeMap/FarmGenius/internal/presentation"
	"github.com/BTreeMap/FarmGenius/internal/responder"
	"github.com/BTreeMap/FarmGenius/internal/store"
	"github.com/BTreeMap/FarmGenius/internal/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const closeTimeout = 15 * time.Second

func newServeCmd(config *Config) *cobra.Command {
	var origins []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and UI signal stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.resolvePaths()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *config, origins)
		},
	}
	f := cmd.Flags()
	f.StringVar(&config.StateDir, "state-dir", config.StateDir, "state directory for FarmGenius data (overrides $FARMGENIUS_STATE_DIR)")
	f.StringVar(&config.DatabaseURL, "db-dsn", config.DatabaseURL, "PostgreSQL DSN or SQLite path (overrides $DATABASE_URL)")
	f.BoolVar(&config.InMemory, "in-memory", config.InMemory, "keep client state in memory only (overrides $FARMGENIUS_IN_MEMORY)")
	f.StringVar(&config.APIAddr, "api-addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	f.StringVar(&config.OpenAIKey, "openai-api-key", config.OpenAIKey, "OpenAI API key for unmatched chat questions (overrides $OPENAI_API_KEY)")
	f.StringVar(&config.RulesFile, "rules-file", config.RulesFile, "YAML chat rules, reloaded on change (overrides $FARMGENIUS_RULES_FILE)")
	f.StringVar(&config.UploadDir, "upload-dir", config.UploadDir, "directory for uploaded crop photos (overrides $FARMGENIUS_UPLOAD_DIR)")
	f.StringVar(&config.StaticDir, "static-dir", config.StaticDir, "front end directory to serve (overrides $FARMGENIUS_STATIC_DIR)")
	f.StringVar(&config.OTLPEndpoint, "otlp-endpoint", config.OTLPEndpoint, "OTLP/HTTP trace collector URL (overrides $OTEL_EXPORTER_OTLP_ENDPOINT)")
	f.StringSliceVar(&config.Languages, "languages", config.Languages, "language codes offered by the picker, default first (overrides $FARMGENIUS_LANGUAGES)")
	f.StringSliceVar(&origins, "allowed-origin", nil, "CORS origin allowed to call the API (repeatable; default any)")
	return cmd
}

func serve(ctx context.Context, config Config, origins []string) error {
	slog.Info("Bootstrapping FarmGenius")
	pageOpts, err := buildPageOptions(config)
	if err != nil {
		return err
	}
	if config.usesFileStore() {
		stateDir := filepath.Dir(config.DatabaseURL)
		if err := os.MkdirAll(stateDir, 0o755); err != nil {
			return fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
		}
		lock, err := lockfile.AcquireLock(stateDir)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				slog.Warn("serve: failed to release lock", "error", err)
			}
		}()
	}

	st, err := store.Open(buildStoreOptions(config)...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	tracing, err := telemetry.Setup(ctx, telemetry.Config{ServiceName: telemetry.DefaultServiceName, Endpoint: config.OTLPEndpoint})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			slog.Warn("serve: tracing shutdown failed", "error", err)
		}
	}()

	deps := app.SimulatedDeps(st)
	resp, err := buildResponder(config)
	if err != nil {
		return err
	}
	deps.Responder = resp
	if config.OpenAIKey != "" {
		client, err := genai.NewClient(buildGenAIOptions(config)...)
		if err != nil {
			return fmt.Errorf("failed to create GenAI client: %w", err)
		}
		deps.Completer = client
		slog.Info("serve: unmatched chat questions go to the language model")
	}

	pages, err := app.NewPages(deps, pageOpts...)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		pages.Close(closeCtx)
	}()

	server, err := api.NewServer(pages, buildAPIOptions(config, origins)...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	if config.RulesFile != "" {
		g.Go(func() error { return responder.Watch(gctx, config.RulesFile, resp) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("FarmGenius exited successfully")
	return nil
}

// buildResponder loads the rules file when one is configured.
func buildResponder(config Config) (*responder.Responder, error) {
	if config.RulesFile == "" {
		return responder.New(nil), nil
	}
	rules, err := responder.LoadFile(config.RulesFile)
	if err != nil {
		return nil, err
	}
	return responder.New(rules), nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(config Config) []store.Option {
	var storeOpts []store.Option
	if config.InMemory || config.DatabaseURL == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return nil
	}
	if store.DetectDSNType(config.DatabaseURL) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
		storeOpts = append(storeOpts, store.WithPostgresDSN(config.DatabaseURL))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", config.DatabaseURL)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(config.DatabaseURL))
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(config Config) []genai.Option {
	var genaiOpts []genai.Option
	if config.OpenAIKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(config.OpenAIKey))
	}
	return genaiOpts
}

// buildPageOptions constructs per-page configuration options. Every
// configured language code must be valid.
func buildPageOptions(config Config) ([]app.Option, error) {
	var pageOpts []app.Option
	if len(config.Languages) > 0 {
		codes, err := presentation.ParseCodes(config.Languages)
		if err != nil {
			return nil, fmt.Errorf("invalid --languages: %w", err)
		}
		langs := make([]string, len(codes))
		for i, c := range codes {
			langs[i] = string(c)
		}
		pageOpts = append(pageOpts, app.WithLanguages(langs...))
	}
	return pageOpts, nil
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(config Config, origins []string) []api.Option {
	var apiOpts []api.Option
	if config.APIAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(config.APIAddr))
	}
	if config.UploadDir != "" {
		apiOpts = append(apiOpts, api.WithUploadDir(config.UploadDir))
	}
	if config.StaticDir != "" {
		apiOpts = append(apiOpts, api.WithStaticDir(config.StaticDir))
	}
	if len(origins) > 0 {
		apiOpts = append(apiOpts, api.WithAllowedOrigins(origins...))
	}
	return apiOpts
}
