package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rshade/pricehound/internal/config"
	"github.com/rshade/pricehound/internal/engine/cache"
	"github.com/rshade/pricehound/internal/logging"
	"github.com/rshade/pricehound/internal/marketplace"
)

// SessionConfig carries everything a Session needs. Repository, SettingsPath
// and Client are required.
type SessionConfig struct {
	Repository   cache.Repository
	SettingsPath string
	Client       marketplace.Client
	// Pages fetches detail pages for image URLs. Nil leaves image URLs empty.
	Pages marketplace.PageFetcher

	Acquire   AcquireOptions
	FillTiers []float64

	CacheMetrics   cache.Metrics
	SearchMetrics  SearchMetrics
	OnFillProgress FillProgressFunc

	// Rand and Clock default to a time-seeded PCG source and time.Now.
	Rand  cache.Rand
	Clock func() time.Time
}

// Session is the explicit context for one run: the loaded Store, the
// Settings record and the pipelines operating on them.
type Session struct {
	store    *cache.Store
	repo     cache.Repository
	settings *config.Settings
	acquirer *Acquirer
	filler   *Filler
	tiers    []float64
	now      func() time.Time
}

// Open loads the Store and Settings and sweeps expired listings. A missing or
// unreadable store or settings file is returned as an error; the caller is
// expected to treat it as fatal.
func Open(ctx context.Context, cfg SessionConfig) (*Session, error) {
	log := logging.FromContext(ctx)

	if cfg.Repository == nil {
		return nil, errors.New("session requires a listing repository")
	}
	if cfg.SettingsPath == "" {
		return nil, errors.New("session requires a settings path")
	}
	if cfg.Client == nil {
		return nil, errors.New("session requires a marketplace client")
	}

	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // Keyword and sample draws are not security sensitive.
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	tiers := cfg.FillTiers
	if len(tiers) == 0 {
		tiers = config.DefaultFillTiers
	}

	store, err := cache.LoadStore(ctx, cfg.Repository,
		cache.WithRand(rnd),
		cache.WithClock(now),
		cache.WithMetrics(cfg.CacheMetrics),
	)
	if err != nil {
		return nil, err
	}
	evicted := store.Sweep()

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}

	enricher := NewEnricher(cfg.Pages)
	acquirer, err := NewAcquirer(AcquirerConfig{
		Client:   cfg.Client,
		Enricher: enricher,
		Store:    store,
		Rand:     rnd,
		Options:  cfg.Acquire,
		Metrics:  cfg.SearchMetrics,
	})
	if err != nil {
		return nil, err
	}
	filler, err := NewFiller(FillerConfig{
		Client:     cfg.Client,
		Enricher:   enricher,
		Store:      store,
		Repository: cfg.Repository,
		Rand:       rnd,
		Metrics:    cfg.SearchMetrics,
		OnProgress: cfg.OnFillProgress,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "open").
		Int("listings", store.Len()).
		Int("evicted", evicted).
		Str("last_filled", settings.LastFilled.Format(config.SettingsDateLayout)).
		Msg("session opened")

	return &Session{
		store:    store,
		repo:     cfg.Repository,
		settings: settings,
		acquirer: acquirer,
		filler:   filler,
		tiers:    tiers,
		now:      now,
	}, nil
}

// Store returns the session's listing store.
func (s *Session) Store() *cache.Store {
	return s.store
}

// Settings returns the session's settings record.
func (s *Session) Settings() *config.Settings {
	return s.settings
}

// Handle answers q. Price-only queries try the Store first and acquire with a
// synthesized keyword on a miss. Keyword queries always go to the remote
// service because cached listings carry no keyword.
func (s *Session) Handle(ctx context.Context, q Query) (cache.Listing, bool, error) {
	price := float64(q.Price)
	if !q.HasKeyword() {
		if l, ok := s.store.Find(price); ok {
			logging.FromContext(ctx).Debug().
				Ctx(ctx).
				Str("component", "engine").
				Str("operation", "handle").
				Str("item_id", l.ID).
				Msg("cache hit")
			return l, true, nil
		}
	}
	return s.acquirer.Acquire(ctx, q.Keyword, price)
}

// HandleText parses text and answers it.
func (s *Session) HandleText(ctx context.Context, text string) (cache.Listing, bool, error) {
	q, err := ParseQuery(text)
	if err != nil {
		return cache.Listing{}, false, err
	}
	return s.Handle(ctx, q)
}

// Fill runs the bulk fill over the configured tiers and records today as the
// last fill date.
func (s *Session) Fill(ctx context.Context) (FillReport, error) {
	report, err := s.filler.Fill(ctx, s.tiers)
	if err != nil {
		return report, err
	}
	s.settings.MarkFilled(s.now())
	if saveErr := s.settings.Save(); saveErr != nil {
		return report, fmt.Errorf("recording fill date: %w", saveErr)
	}
	return report, nil
}

// FillIfDue runs Fill when the last fill happened before today. ran reports
// whether a fill was attempted.
func (s *Session) FillIfDue(ctx context.Context) (report FillReport, ran bool, err error) {
	if !s.settings.FillDue(s.now()) {
		return FillReport{}, false, nil
	}
	report, err = s.Fill(ctx)
	return report, true, err
}

// Close sweeps expired listings and persists the Store and Settings. Both
// saves are attempted even if the first fails.
func (s *Session) Close(ctx context.Context) error {
	evicted := s.store.Sweep()

	storeErr := cache.SaveStore(ctx, s.repo, s.store)
	settingsErr := s.settings.Save()
	if settingsErr != nil {
		settingsErr = fmt.Errorf("saving settings: %w", settingsErr)
	}

	logging.FromContext(ctx).Info().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "close").
		Int("listings", s.store.Len()).
		Int("evicted", evicted).
		Msg("session closed")

	return errors.Join(storeErr, settingsErr)
}
