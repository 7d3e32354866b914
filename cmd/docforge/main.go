package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docforge/internal/common"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	schemaPath string
)

var rootCmd = &cobra.Command{
	Use:   "docforge",
	Short: "Schema-driven document transformation",
	Long: `docforge turns loosely structured business records into validated,
cross-referenced document payloads ready for rendering.

Configuration comes from environment variables (DB_DRIVER, DB_URL, SQLITE_PATH,
SCHEMA_PATH, ENTITY_TABLES, ENTITY_FIXTURES, LOG_LEVEL, ...) optionally layered
over a config file given with --config.

Examples:
  docforge types --schema schemas.yaml
  docforge transform --schema schemas.yaml --input request.json
  docforge parse-table --input items.txt
  docforge next-number --type estimate
  docforge watch --inbox ./inbox --outbox ./outbox`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "json or text (overrides LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "document type bootstrap file (overrides SCHEMA_PATH)")

	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(parseTableCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(nextNumberCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment (and --config), then applies flag overrides.
func loadConfig() (*common.Config, error) {
	var (
		cfg *common.Config
		err error
	)
	if configFile != "" {
		cfg, err = common.LoadConfigFile(configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = common.LoadConfig()
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if schemaPath != "" {
		cfg.Schema.Path = schemaPath
	}
	return cfg, nil
}

func newLogger(cfg *common.Config) *slog.Logger {
	logger := common.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)
	return logger
}
