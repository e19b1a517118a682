package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/pricehound/internal/cli"
	"github.com/rshade/pricehound/internal/cli/pagination"
	"github.com/rshade/pricehound/internal/config"
	"github.com/rshade/pricehound/internal/engine/cache"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := cli.NewRootCmd("1.2.3")
	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"query", "fill", "list", "init", "config"} {
		assert.Contains(t, names, want)
	}
	for _, flag := range []string{"debug", "config", "env-file", "metrics-addr"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootCmd_Version(t *testing.T) {
	setupHome(t, nil, "")
	stdout, _, err := execute(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "test")
}

func TestInit(t *testing.T) {
	home := setupHome(t, nil, "")

	stdout, _, err := execute(t, "", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Listing store: "+filepath.Join(home, config.DefaultStoreFile))

	assert.Empty(t, loadListings(t, home))
	settings, err := config.LoadSettings(filepath.Join(home, config.DefaultSettingsFile))
	require.NoError(t, err)
	assert.True(t, settings.FillDue(time.Now()), "a fresh install is due for a fill")

	t.Run("EmptyStoreIsReinitialized", func(t *testing.T) {
		stdout, _, err := execute(t, "", "init")
		require.NoError(t, err)
		assert.Contains(t, stdout, "(kept)")
	})

	t.Run("NonEmptyStoreRequiresForce", func(t *testing.T) {
		repo, err := cache.NewCSVRepository(filepath.Join(home, config.DefaultStoreFile))
		require.NoError(t, err)
		listing := cache.NewListing("1", "thing", 5, "", "https://shop.test/1", time.Now().Add(time.Hour))
		require.NoError(t, repo.Save(context.Background(), []cache.Listing{listing}))

		_, _, err = execute(t, "", "init")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already holds 1 listings")

		_, _, err = execute(t, "", "init", "--force")
		require.NoError(t, err)
		assert.Empty(t, loadListings(t, home))
	})
}

func TestList(t *testing.T) {
	home := setupHome(t, nil, "")
	mustInit(t)

	stdout, _, err := execute(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No listings in store")

	now := time.Now()
	repo, err := cache.NewCSVRepository(filepath.Join(home, config.DefaultStoreFile))
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), []cache.Listing{
		cache.NewListing("1", "active thing", 1234.5, "", "https://shop.test/1", now.Add(2*time.Hour)),
		cache.NewListing("2", "old thing", 7, "", "https://shop.test/2", now.Add(-time.Hour)),
	}))

	stdout, _, err = execute(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "active thing")
	assert.Contains(t, stdout, "1,234.50")
	assert.Contains(t, stdout, "expired")
	assert.Contains(t, stdout, "2 listings")

	stdout, _, err = execute(t, "", "list", "--active")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "old thing")
	assert.Contains(t, stdout, "1 listings")

	// list never rewrites the store.
	assert.Len(t, loadListings(t, home), 2)
}

func TestFill(t *testing.T) {
	ebay := newFakeEbay(t)
	ebay.perPage = 3
	home := setupHome(t, ebay, "fill:\n  tiers: [10, 1000]\n")
	mustInit(t)

	stdout, _, err := execute(t, "", "fill")
	require.NoError(t, err)
	assert.Contains(t, stdout, "filling 10.00: 100% (3/3)")
	assert.Contains(t, stdout, "1,000.00: 3 listings")
	assert.Contains(t, stdout, "Fill complete: 6 inserted, 0 tiers skipped")
	assert.Len(t, loadListings(t, home), 6)

	stdout, _, err = execute(t, "", "fill")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Fill not due")
	assert.Equal(t, int32(2), ebay.searches.Load())

	_, _, err = execute(t, "", "fill", "--force")
	require.NoError(t, err)
	assert.Equal(t, int32(4), ebay.searches.Load())
	assert.Len(t, loadListings(t, home), 12)
}

func TestFill_SkipsRejectedTiers(t *testing.T) {
	ebay := newFakeEbay(t)
	ebay.failure = "Rate limit"
	setupHome(t, ebay, "fill:\n  tiers: [10, 1000]\n")
	mustInit(t)

	stdout, _, err := execute(t, "", "fill", "--force")
	require.NoError(t, err)
	assert.Contains(t, stdout, "10.00: skipped (Rate limit)")
	assert.Contains(t, stdout, "Fill complete: 0 inserted, 2 tiers skipped")
}

func TestConfigInitAndShow(t *testing.T) {
	home := setupHome(t, nil, "")
	t.Setenv(config.EnvAppID, "secret-app")

	stdout, _, err := execute(t, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration initialized successfully")

	data, err := os.ReadFile(filepath.Join(home, config.DefaultConfigFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "driver: csv")
	assert.NotContains(t, string(data), "secret-app", "environment secrets are never written")

	_, _, err = execute(t, "", "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, "", "config", "init", "--force")
	require.NoError(t, err)

	stdout, _, err = execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "storage:")
	assert.Contains(t, stdout, "********")
	assert.NotContains(t, stdout, "secret-app")
}

func TestExplicitConfigPath(t *testing.T) {
	setupHome(t, nil, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("acquire:\n  max_attempts: 0\n"), 0o600))

	_, _, err := execute(t, "", "--config", path, "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire.max_attempts")

	require.NoError(t, os.WriteFile(path, []byte("metrics:\n  namespace: hound\n"), 0o600))
	stdout, _, err := execute(t, "", "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "namespace: hound")
	assert.Contains(t, stdout, filepath.Join(dir, config.DefaultStoreFile))
}

func TestEnvFile(t *testing.T) {
	setupHome(t, nil, "")
	// godotenv never overrides variables that are already set, even when empty.
	require.NoError(t, os.Unsetenv(config.EnvMetricsAddr))
	t.Cleanup(func() { _ = os.Unsetenv(config.EnvMetricsAddr) })

	envPath := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte(config.EnvMetricsAddr+"=127.0.0.1:0\n"), 0o600))

	stdout, _, err := execute(t, "", "--env-file", envPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "addr: 127.0.0.1:0")

	_, _, err = execute(t, "", "--env-file", filepath.Join(t.TempDir(), "missing.env"), "config", "show")
	assert.Error(t, err, "an explicitly named env file must exist")
}

func TestList_SortAndPage(t *testing.T) {
	home := setupHome(t, nil, "")
	mustInit(t)

	expiry := time.Now().Add(time.Hour)
	repo, err := cache.NewCSVRepository(filepath.Join(home, config.DefaultStoreFile))
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), []cache.Listing{
		cache.NewListing("1", "mid", 20, "", "u1", expiry),
		cache.NewListing("2", "cheap", 10, "", "u2", expiry),
		cache.NewListing("3", "dear", 30, "", "u3", expiry),
	}))

	stdout, _, err := execute(t, "", "list", "--sort", "price:desc", "--page", "1", "--page-size", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "dear")
	assert.Contains(t, stdout, "mid")
	assert.NotContains(t, stdout, "cheap")
	assert.Contains(t, stdout, "Showing 2 of 3 listings (page 1 of 2)")

	_, _, err = execute(t, "", "list", "--sort", "colour")
	require.Error(t, err)

	_, _, err = execute(t, "", "list", "--page-size", "2")
	require.ErrorIs(t, err, pagination.ErrPageSizeWithoutPage)
}
