package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/pricehound/internal/config"
	"github.com/rshade/pricehound/internal/engine/cache"
)

// NewInitCmd creates the init command, which prepares an empty listing store
// and a settings file whose fill date is in the past so the first session
// fills the store.
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty listing store and settings file",
		Long: `Create the listing store (CSV file or Postgres table) and the settings file.

An existing non-empty store or settings file is left alone unless --force is
given, in which case both are reset.`,
		Example: `  pricehound init
  PRICEHOUND_DB_URL=postgres://localhost/pricehound pricehound init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "reset an existing store and settings file")
	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	ctx := cmd.Context()
	cfg := config.GetGlobalConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.EnsureSubDirs(); err != nil {
		return err
	}

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	existing, err := repo.Load(ctx)
	switch {
	case err == nil && len(existing) > 0 && !force:
		return fmt.Errorf("listing store already holds %d listings, use --force to reset", len(existing))
	case err != nil && !errors.Is(err, cache.ErrStoreNotFound) && !force:
		return fmt.Errorf("existing listing store is unreadable, use --force to reset: %w", err)
	}
	if saveErr := repo.Save(ctx, nil); saveErr != nil {
		return fmt.Errorf("creating listing store: %w", saveErr)
	}
	cmd.Printf("Listing store: %s\n", storeLocation(cfg))

	settingsPath := cfg.Storage.SettingsPath
	if _, statErr := os.Stat(settingsPath); statErr == nil && !force {
		cmd.Printf("Settings file: %s (kept)\n", settingsPath)
		return nil
	}
	if _, initErr := config.InitSettings(settingsPath, time.Time{}); initErr != nil {
		return fmt.Errorf("creating settings file: %w", initErr)
	}
	cmd.Printf("Settings file: %s\n", settingsPath)
	return nil
}

func storeLocation(cfg *config.Config) string {
	if cfg.Storage.Driver == config.DriverPostgres {
		table := cfg.Storage.Table
		if table == "" {
			table = cache.DefaultTableName
		}
		return "postgres table " + table
	}
	return cfg.Storage.Path
}
