// Command farmgenius serves the FarmGenius farmer portal.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BTreeMap/FarmGenius/internal/store"
	"github.com/BTreeMap/FarmGenius/internal/util"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for FarmGenius state data
	DefaultStateDir = "/var/lib/farmgenius"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "farmgenius.db"
	// DefaultUploadDirName is the upload folder inside the state directory
	DefaultUploadDirName = "uploads"
	// DefaultAPIAddr is the default listen address
	DefaultAPIAddr = ":8080"
)

// Config holds environment configuration
type Config struct {
	StateDir     string
	DatabaseURL  string
	InMemory     bool
	APIAddr      string
	OpenAIKey    string
	RulesFile    string
	UploadDir    string
	StaticDir    string
	OTLPEndpoint string
	LogLevel     string
	Languages    []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("farmgenius failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	config := loadEnvironmentConfig()
	root := &cobra.Command{
		Use:           "farmgenius",
		Short:         "FarmGenius farmer portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeLogger(config.LogLevel)
		},
	}
	root.PersistentFlags().StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level: debug, info, warn or error (overrides $FARMGENIUS_LOG_LEVEL)")
	root.AddCommand(newServeCmd(&config), newAskCmd(&config), newLanguagesCmd())
	return root
}

// initializeLogger sets up structured logging at the given level
func initializeLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return nil
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:     util.EnvOr("FARMGENIUS_STATE_DIR", DefaultStateDir),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		InMemory:     util.ParseBoolEnv("FARMGENIUS_IN_MEMORY", false),
		APIAddr:      util.EnvOr("API_ADDR", DefaultAPIAddr),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		RulesFile:    os.Getenv("FARMGENIUS_RULES_FILE"),
		UploadDir:    os.Getenv("FARMGENIUS_UPLOAD_DIR"),
		StaticDir:    os.Getenv("FARMGENIUS_STATIC_DIR"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogLevel:     util.EnvOr("FARMGENIUS_LOG_LEVEL", "debug"),
	}
	if langs := os.Getenv("FARMGENIUS_LANGUAGES"); langs != "" {
		for _, code := range strings.Split(langs, ",") {
			if code = strings.TrimSpace(code); code != "" {
				config.Languages = append(config.Languages, code)
			}
		}
	}

	slog.Debug("environment variables loaded",
		"FARMGENIUS_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"FARMGENIUS_IN_MEMORY", config.InMemory,
		"API_ADDR", config.APIAddr,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"FARMGENIUS_RULES_FILE", config.RulesFile,
		"OTEL_EXPORTER_OTLP_ENDPOINT", config.OTLPEndpoint)
	return config
}

// resolvePaths fills the defaults that depend on the state directory.
func (c *Config) resolvePaths() {
	if c.DatabaseURL == "" && !c.InMemory {
		c.DatabaseURL = filepath.Join(c.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", c.DatabaseURL)
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(c.StateDir, DefaultUploadDirName)
	}
}

// usesFileStore reports whether state lives in a local SQLite file.
func (c Config) usesFileStore() bool {
	return !c.InMemory && c.DatabaseURL != "" && store.DetectDSNType(c.DatabaseURL) != "postgres"
}
