package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rshade/pricehound/internal/engine/batch"
	"github.com/rshade/pricehound/internal/engine/cache"
	"github.com/rshade/pricehound/internal/logging"
	"github.com/rshade/pricehound/internal/marketplace"
)

// Fill tuning.
const (
	// FillDeviation is the fixed price tolerance, in percent, used for every tier.
	FillDeviation = 10

	// cheapTierLimit is the highest tier price that requests cheapTierEntries.
	cheapTierLimit     = 100
	cheapTierEntries   = 100
	premiumTierEntries = 10
)

// FillProgressFunc observes enrichment progress within one tier.
type FillProgressFunc func(tier float64, snap batch.ProgressSnapshot)

// TierReport is the outcome of one fill tier.
type TierReport struct {
	Price    float64
	Keyword  string
	Inserted int
	// Skipped is set when the service acknowledged the search as a failure.
	Skipped bool
	Reason  string
}

// FillReport summarizes a bulk fill.
type FillReport struct {
	Tiers    []TierReport
	Duration time.Duration
}

// Inserted returns the number of listings added across all tiers.
func (r FillReport) Inserted() int {
	n := 0
	for _, t := range r.Tiers {
		n += t.Inserted
	}
	return n
}

// Skipped returns the number of tiers skipped after a failure acknowledgement.
func (r FillReport) Skipped() int {
	n := 0
	for _, t := range r.Tiers {
		if t.Skipped {
			n++
		}
	}
	return n
}

// FillerConfig wires a Filler.
type FillerConfig struct {
	Client   marketplace.Client
	Enricher *Enricher
	Store    *cache.Store
	// Repository, when set, receives the Store after every tier.
	Repository cache.Repository
	Rand       cache.Rand
	Metrics    SearchMetrics
	// BatchSize is the progress cadence in items. Defaults to batch.DefaultBatchSize.
	BatchSize  int
	OnProgress FillProgressFunc
}

// Filler proactively populates the Store across price tiers.
type Filler struct {
	client     marketplace.Client
	enricher   *Enricher
	store      *cache.Store
	repo       cache.Repository
	rnd        cache.Rand
	metrics    SearchMetrics
	batchSize  int
	onProgress FillProgressFunc
}

// NewFiller validates cfg and returns a Filler.
func NewFiller(cfg FillerConfig) (*Filler, error) {
	if cfg.Client == nil {
		return nil, errors.New("filler requires a marketplace client")
	}
	if cfg.Store == nil {
		return nil, errors.New("filler requires a listing store")
	}
	if cfg.Rand == nil {
		return nil, errors.New("filler requires a random source")
	}
	f := &Filler{
		client:     cfg.Client,
		enricher:   cfg.Enricher,
		store:      cfg.Store,
		repo:       cfg.Repository,
		rnd:        cfg.Rand,
		metrics:    cfg.Metrics,
		batchSize:  cfg.BatchSize,
		onProgress: cfg.OnProgress,
	}
	if f.enricher == nil {
		f.enricher = NewEnricher(nil)
	}
	if f.metrics == nil {
		f.metrics = NoopSearchMetrics{}
	}
	if f.batchSize < batch.MinBatchSize || f.batchSize > batch.MaxBatchSize {
		f.batchSize = batch.DefaultBatchSize
	}
	return f, nil
}

// EntriesForTier returns how many results a tier requests: 100 up to a price
// of 100, 10 above it.
func EntriesForTier(price float64) int {
	if price <= cheapTierLimit {
		return cheapTierEntries
	}
	return premiumTierEntries
}

// Fill runs one search per tier with a fresh keyword and inserts every
// returned item. A failure acknowledgement skips the tier; a transport error
// aborts the fill. The Store is persisted after each tier so partial progress
// survives an interruption.
func (f *Filler) Fill(ctx context.Context, tiers []float64) (FillReport, error) {
	log := logging.FromContext(ctx)
	start := time.Now()
	var report FillReport

	for _, price := range tiers {
		tier, err := f.fillTier(ctx, price)
		if err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
		report.Tiers = append(report.Tiers, tier)

		if f.repo != nil {
			if saveErr := cache.SaveStore(ctx, f.repo, f.store); saveErr != nil {
				report.Duration = time.Since(start)
				return report, fmt.Errorf("persisting after tier %v: %w", price, saveErr)
			}
		}
	}

	report.Duration = time.Since(start)
	log.Info().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "fill").
		Int("tiers", len(report.Tiers)).
		Int("inserted", report.Inserted()).
		Int("skipped", report.Skipped()).
		Dur("duration", report.Duration).
		Msg("bulk fill complete")
	return report, nil
}

func (f *Filler) fillTier(ctx context.Context, price float64) (TierReport, error) {
	log := logging.FromContext(ctx)
	tier := TierReport{Price: price, Keyword: MakeKeyword(f.rnd)}

	log.Info().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "fill").
		Float64("tier", price).
		Str("keyword", tier.Keyword).
		Msg("generating items for price")

	req := marketplace.NewSearchRequest(tier.Keyword, EntriesForTier(price), price, FillDeviation)
	resp, err := f.client.Search(ctx, req)
	if err != nil {
		f.metrics.Search(OutcomeError)
		return tier, fmt.Errorf("fill tier %v: %w", price, err)
	}
	if resp == nil {
		f.metrics.Search(OutcomeError)
		return tier, fmt.Errorf("fill tier %v: %w: empty response", price, marketplace.ErrMalformedResponse)
	}
	if resp.Failed() {
		f.metrics.Search(OutcomeFailure)
		tier.Skipped = true
		tier.Reason = resp.ErrorMessage
		log.Warn().
			Ctx(ctx).
			Str("component", "engine").
			Str("operation", "fill").
			Float64("tier", price).
			Str("reason", resp.ErrorMessage).
			Msg("tier skipped after failure acknowledgement")
		return tier, nil
	}
	if len(resp.Items) == 0 {
		f.metrics.Search(OutcomeEmpty)
		return tier, nil
	}
	f.metrics.Search(OutcomeHit)

	proc, err := batch.NewProcessor[marketplace.Item](f.batchSize)
	if err != nil {
		return tier, err
	}
	proc.WithProgressCallback(func(snap batch.ProgressSnapshot) {
		log.Debug().
			Ctx(ctx).
			Str("component", "engine").
			Str("operation", "fill").
			Float64("tier", price).
			Float64("percent", snap.PercentComplete).
			Msg("fill progress")
		if f.onProgress != nil {
			f.onProgress(price, snap)
		}
	})

	err = proc.Process(ctx, resp.Items, func(ctx context.Context, items []marketplace.Item, _ int) error {
		for _, item := range items {
			f.store.Insert(f.enricher.Enrich(ctx, item))
			tier.Inserted++
		}
		return nil
	})
	if err != nil {
		return tier, fmt.Errorf("fill tier %v: %w", price, err)
	}
	return tier, nil
}
