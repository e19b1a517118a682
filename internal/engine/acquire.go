package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rshade/pricehound/internal/engine/cache"
	"github.com/rshade/pricehound/internal/logging"
	"github.com/rshade/pricehound/internal/marketplace"
)

// Search outcomes reported to SearchMetrics.
const (
	OutcomeHit     = "hit"
	OutcomeEmpty   = "empty"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Retry schedule defaults.
const (
	DefaultMaxAttempts    = 10
	DefaultStartDeviation = 10
	DefaultDeviationStep  = 10
	DefaultMaxDeviation   = 40
)

// SearchMetrics observes every remote search issued by the engine.
type SearchMetrics interface {
	Search(outcome string)
}

// NoopSearchMetrics discards search observations.
type NoopSearchMetrics struct{}

// Search implements SearchMetrics.
func (NoopSearchMetrics) Search(string) {}

// AcquireOptions is the retry schedule. Each outer attempt sweeps deviation
// from StartDeviation up to but excluding MaxDeviation in DeviationStep
// increments, one search per step.
type AcquireOptions struct {
	MaxAttempts    int
	StartDeviation int
	DeviationStep  int
	MaxDeviation   int
}

// DefaultAcquireOptions returns 10 outer attempts of deviations 10, 20 and 30.
func DefaultAcquireOptions() AcquireOptions {
	return AcquireOptions{
		MaxAttempts:    DefaultMaxAttempts,
		StartDeviation: DefaultStartDeviation,
		DeviationStep:  DefaultDeviationStep,
		MaxDeviation:   DefaultMaxDeviation,
	}
}

// normalized replaces unusable values with defaults.
func (o AcquireOptions) normalized() AcquireOptions {
	d := DefaultAcquireOptions()
	if o.MaxAttempts < 1 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.StartDeviation < 1 {
		o.StartDeviation = d.StartDeviation
	}
	if o.DeviationStep < 1 {
		o.DeviationStep = d.DeviationStep
	}
	if o.MaxDeviation < 1 {
		o.MaxDeviation = d.MaxDeviation
	}
	if o.MaxDeviation <= o.StartDeviation {
		o.MaxDeviation = o.StartDeviation + o.DeviationStep
	}
	return o
}

// Deviations returns the deviation percentages swept by one outer attempt.
func (o AcquireOptions) Deviations() []int {
	o = o.normalized()
	var out []int
	for d := o.StartDeviation; d < o.MaxDeviation; d += o.DeviationStep {
		out = append(out, d)
	}
	return out
}

// MaxSearches is the most remote searches a single Acquire can issue.
func (o AcquireOptions) MaxSearches() int {
	return o.normalized().MaxAttempts * len(o.Deviations())
}

// AcquirerConfig wires an Acquirer.
type AcquirerConfig struct {
	Client   marketplace.Client
	Enricher *Enricher
	Store    *cache.Store
	Rand     cache.Rand
	Options  AcquireOptions
	Metrics  SearchMetrics
}

// Acquirer fetches a listing from the remote marketplace when the cache misses.
type Acquirer struct {
	client   marketplace.Client
	enricher *Enricher
	store    *cache.Store
	rnd      cache.Rand
	opts     AcquireOptions
	metrics  SearchMetrics
}

// NewAcquirer validates cfg and returns an Acquirer.
func NewAcquirer(cfg AcquirerConfig) (*Acquirer, error) {
	if cfg.Client == nil {
		return nil, errors.New("acquirer requires a marketplace client")
	}
	if cfg.Store == nil {
		return nil, errors.New("acquirer requires a listing store")
	}
	if cfg.Rand == nil {
		return nil, errors.New("acquirer requires a random source")
	}
	a := &Acquirer{
		client:   cfg.Client,
		enricher: cfg.Enricher,
		store:    cfg.Store,
		rnd:      cfg.Rand,
		opts:     cfg.Options.normalized(),
		metrics:  cfg.Metrics,
	}
	if a.enricher == nil {
		a.enricher = NewEnricher(nil)
	}
	if a.metrics == nil {
		a.metrics = NoopSearchMetrics{}
	}
	return a, nil
}

// Acquire searches for one item near price. An empty keyword is replaced by a
// synthesized one; a supplied keyword is used for the first outer attempt and
// random keywords after that. The keyword stays fixed across the deviation
// sweep of one outer attempt.
//
// On a hit the item is enriched, inserted into the Store and returned with
// ok == true. Exhausting the schedule is a miss: zero Listing, false, nil.
// A failure acknowledgement returns a *QueryError immediately.
func (a *Acquirer) Acquire(ctx context.Context, keyword string, price float64) (cache.Listing, bool, error) {
	log := logging.FromContext(ctx)

	if keyword == "" {
		keyword = MakeKeyword(a.rnd)
	}
	deviations := a.opts.Deviations()

	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		for _, dev := range deviations {
			item, found, err := a.search(ctx, keyword, price, dev)
			if err != nil {
				return cache.Listing{}, false, err
			}
			if !found {
				continue
			}

			listing := a.enricher.Enrich(ctx, item)
			a.store.Insert(listing)

			log.Info().
				Ctx(ctx).
				Str("component", "engine").
				Str("operation", "acquire").
				Str("item_id", listing.ID).
				Str("keyword", keyword).
				Int("attempt", attempt).
				Int("deviation", dev).
				Float64("price", listing.Price).
				Msg("listing acquired")
			return listing, true, nil
		}

		if attempt < a.opts.MaxAttempts {
			keyword = MakeKeyword(a.rnd)
		}
	}

	log.Info().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "acquire").
		Float64("target_price", price).
		Int("attempts", a.opts.MaxAttempts).
		Msg("no results")
	return cache.Listing{}, false, nil
}

// search issues one single-result search and returns its first item. The
// price window is enforced by the remote filter.
func (a *Acquirer) search(
	ctx context.Context,
	keyword string,
	price float64,
	deviation int,
) (marketplace.Item, bool, error) {
	req := marketplace.NewSearchRequest(keyword, 1, price, float64(deviation))

	resp, err := a.client.Search(ctx, req)
	if err != nil {
		a.metrics.Search(OutcomeError)
		return marketplace.Item{}, false, fmt.Errorf("searching %q at %d%% deviation: %w", keyword, deviation, err)
	}
	if resp == nil {
		a.metrics.Search(OutcomeError)
		return marketplace.Item{}, false, fmt.Errorf("searching %q: %w: empty response", keyword, marketplace.ErrMalformedResponse)
	}
	if resp.Failed() {
		a.metrics.Search(OutcomeFailure)
		return marketplace.Item{}, false, remoteFailure(resp.ErrorMessage)
	}

	if len(resp.Items) > 0 {
		a.metrics.Search(OutcomeHit)
		return resp.Items[0], true, nil
	}

	logging.FromContext(ctx).Debug().
		Ctx(ctx).
		Str("component", "engine").
		Str("operation", "acquire").
		Str("keyword", keyword).
		Int("deviation", deviation).
		Msg("no items")
	a.metrics.Search(OutcomeEmpty)
	return marketplace.Item{}, false, nil
}
