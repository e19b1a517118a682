package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Common store errors.
var (
	ErrStoreNotFound  = errors.New("listing store not found")
	ErrStoreCorrupted = errors.New("listing store corrupted")
)

// Rand is the random source used by Find. *rand.Rand from math/rand/v2
// satisfies it; tests inject a seeded one.
type Rand interface {
	IntN(n int) int
}

// globalRand draws from the math/rand/v2 top-level source.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Repository loads and saves the full set of listings.
// Implementations read and write wholesale; there is no partial update.
type Repository interface {
	Load(ctx context.Context) ([]Listing, error)
	Save(ctx context.Context, listings []Listing) error
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRand sets the random source used to pick candidates.
func WithRand(r Rand) StoreOption {
	return func(s *Store) {
		if r != nil {
			s.rnd = r
		}
	}
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) StoreOption {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Store is the in-memory listing table. It has process lifetime: loaded once,
// mutated by queries and acquisitions, saved once at shutdown.
// Mutations are serialized by mu.
type Store struct {
	mu       sync.Mutex
	listings []Listing

	rnd     Rand
	now     func() time.Time
	metrics Metrics
}

// NewStore creates an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		rnd:     globalRand{},
		now:     time.Now,
		metrics: NoopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadStore reads all listings from repo into a new Store.
func LoadStore(ctx context.Context, repo Repository, opts ...StoreOption) (*Store, error) {
	listings, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading listing store: %w", err)
	}
	s := NewStore(opts...)
	s.listings = listings
	s.metrics.Size(len(listings))
	return s, nil
}

// SaveStore writes every listing in s to repo.
func SaveStore(ctx context.Context, repo Repository, s *Store) error {
	if err := repo.Save(ctx, s.All()); err != nil {
		return fmt.Errorf("saving listing store: %w", err)
	}
	return nil
}

// Insert appends a listing. Duplicate IDs are allowed.
func (s *Store) Insert(l Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listings = append(s.listings, l)
	s.metrics.Size(len(s.listings))
}

// Remove deletes one occurrence of l. Returns false if l is not present.
func (s *Store) Remove(l Listing) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeLocked(l)
}

// All returns a snapshot of every listing, in insertion order.
func (s *Store) All() []Listing {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Listing, len(s.listings))
	copy(out, s.listings)
	return out
}

// Len returns the number of resident listings, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.listings)
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// removeLocked deletes the first listing equal to l. Must be called with mu held.
func (s *Store) removeLocked(l Listing) bool {
	for i := range s.listings {
		if s.listings[i].Equal(l) {
			s.listings = append(s.listings[:i], s.listings[i+1:]...)
			s.metrics.Size(len(s.listings))
			return true
		}
	}
	return false
}

// Equal reports whether two listings carry the same data.
func (l Listing) Equal(o Listing) bool {
	return l.ID == o.ID &&
		l.Name == o.Name &&
		l.Price == o.Price &&
		l.ImageURL == o.ImageURL &&
		l.ShopURL == o.ShopURL &&
		l.Expiry.Equal(o.Expiry)
}
