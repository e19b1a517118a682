package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/pricehound/internal/config"
	"github.com/rshade/pricehound/internal/logging"
)

// defaultEnvFile is loaded before configuration when present.
const defaultEnvFile = ".env"

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath  string
	envFile     string
	metricsAddr string
}

// NewRootCmd creates the root Cobra command for the pricehound CLI.
// Running it without a subcommand starts the interactive query loop.
func NewRootCmd(ver string) *cobra.Command {
	var (
		logResult *logging.LogPathResult
		flags     rootFlags
	)

	cmd := &cobra.Command{
		Use:   "pricehound",
		Short: "Find marketplace items near a target price",
		Long: `pricehound answers "find me an item near price P" queries.

Listings fetched from the eBay Finding API are cached locally and reused for
later queries within 10% of the same price. On a cache miss the remote search
is retried with widening price tolerance and rotating random keywords.`,
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(cmd, flags.envFile); err != nil {
				return err
			}
			if err := loadConfig(cmd, flags); err != nil {
				return err
			}
			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, nil)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "",
		"path to config.yaml (default $PRICEHOUND_HOME/config.yaml)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", defaultEnvFile,
		"dotenv file loaded before configuration, ignored when absent")
	cmd.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address (for example :9464)")

	cmd.AddCommand(NewQueryCmd(), NewFillCmd(), NewListCmd(), NewInitCmd(), newConfigCmd())

	return cmd
}

const rootCmdExample = `  # Create an empty listing store and settings file
  pricehound init

  # Start the interactive prompt (type a price, price-keyword, print or exit)
  pricehound

  # Answer a single query and exit
  pricehound query 50-phone

  # Populate the store across the default price tiers
  pricehound fill --force

  # Show cached listings
  pricehound list

  # Expose Prometheus metrics while the prompt runs
  pricehound --metrics-addr :9464`

// loadEnvFile loads a dotenv file without overriding variables already set.
// The default file is optional; an explicitly named one must exist.
func loadEnvFile(cmd *cobra.Command, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("env-file") {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// loadConfig resolves the effective configuration and installs it globally.
func loadConfig(cmd *cobra.Command, flags rootFlags) error {
	var cfg *config.Config
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.New()
	}

	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = flags.metricsAddr
	}
	config.SetGlobalConfig(cfg)
	return nil
}

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigShowCmd())
	return cmd
}
