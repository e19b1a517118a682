package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/rshade/pricehound/internal/config"
	"github.com/rshade/pricehound/internal/engine"
	"github.com/rshade/pricehound/internal/engine/batch"
	"github.com/rshade/pricehound/internal/engine/cache"
	"github.com/rshade/pricehound/internal/marketplace"
	"github.com/rshade/pricehound/internal/metrics/prom"
)

// runtimeDeps is everything a command needs to run a Session. close releases
// the repository; it does not persist the session.
type runtimeDeps struct {
	session  *engine.Session
	registry *prometheus.Registry
	close    func()
}

// openRepository builds the listing repository selected by cfg.Storage.
func openRepository(ctx context.Context, cfg *config.Config) (cache.Repository, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		repo, err := cache.NewPostgresRepository(ctx, cache.PostgresOptions{
			DSN:   cfg.Storage.DatabaseURL,
			Table: cfg.Storage.Table,
		})
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		repo, err := cache.NewCSVRepository(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}

// newLimiter returns nil when rate limiting is disabled.
func newLimiter(mc config.MarketplaceConfig) *rate.Limiter {
	if mc.RequestsPerSecond <= 0 {
		return nil
	}
	burst := mc.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(mc.RequestsPerSecond), burst)
}

// newMarketplace builds the search client and detail page scraper. Both share
// one limiter so the configured rate bounds all outbound traffic.
func newMarketplace(cfg *config.Config) (*marketplace.FindingClient, *marketplace.DetailScraper, error) {
	mc := cfg.Marketplace
	limiter := newLimiter(mc)

	client, err := marketplace.NewFindingClient(marketplace.FindingOptions{
		BaseURL: mc.FindingURL,
		AppID:   mc.AppID,
		SiteID:  mc.SiteID,
		Timeout: mc.Timeout,
		Limiter: limiter,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("configuring marketplace client (set %s): %w", config.EnvAppID, err)
	}
	return client, marketplace.NewDetailScraper(mc.Timeout, limiter), nil
}

// openRuntime validates the global config and opens a Session against it.
// progress receives fill progress lines; nil disables them.
func openRuntime(ctx context.Context, progress io.Writer) (*runtimeDeps, error) {
	cfg := config.GetGlobalConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client, pages, err := newMarketplace(cfg)
	if err != nil {
		return nil, err
	}

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sc := engine.SessionConfig{
		Repository:   repo,
		SettingsPath: cfg.Storage.SettingsPath,
		Client:       client,
		Pages:        pages,
		Acquire: engine.AcquireOptions{
			MaxAttempts:    cfg.Acquire.MaxAttempts,
			StartDeviation: cfg.Acquire.StartDeviation,
			DeviationStep:  cfg.Acquire.DeviationStep,
			MaxDeviation:   cfg.Acquire.MaxDeviation,
		},
		FillTiers: cfg.Fill.Tiers,
	}
	if progress != nil {
		sc.OnFillProgress = fillProgressPrinter(progress)
	}

	deps := &runtimeDeps{close: closeRepo}
	if cfg.Metrics.Addr != "" {
		deps.registry = prometheus.NewRegistry()
		adapter := prom.New(deps.registry, cfg.Metrics.Namespace, "", nil)
		sc.CacheMetrics = adapter
		sc.SearchMetrics = adapter
	}

	session, err := engine.Open(ctx, sc)
	if err != nil {
		closeRepo()
		return nil, openError(err)
	}
	deps.session = session
	return deps, nil
}

// openError adds a hint for the errors a fresh install runs into.
func openError(err error) error {
	if errors.Is(err, cache.ErrStoreNotFound) || errors.Is(err, config.ErrSettingsNotFound) {
		return fmt.Errorf("%w (run 'pricehound init' first)", err)
	}
	return err
}

// fillProgressPrinter reports each finished fill batch as a percentage.
func fillProgressPrinter(w io.Writer) engine.FillProgressFunc {
	return func(tier float64, snap batch.ProgressSnapshot) {
		_, _ = fmt.Fprintf(w, "filling %s: %.0f%% (%d/%d)\n",
			cache.FormatPrice(tier), snap.PercentComplete, snap.ProcessedItems, snap.TotalItems)
	}
}
