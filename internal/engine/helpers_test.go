package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rshade/pricehound/internal/engine/cache"
	"github.com/rshade/pricehound/internal/marketplace"
)

//nolint:gochecknoglobals // Shared fixed clock for deterministic expiry checks.
var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// seqRand replays vals in order, wrapping around.
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) IntN(n int) int {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v % n
}

// fakeClient answers each search through respond and records every request.
type fakeClient struct {
	mu      sync.Mutex
	respond func(call int, req marketplace.SearchRequest) (*marketplace.SearchResponse, error)
	calls   []marketplace.SearchRequest
}

func (f *fakeClient) Search(_ context.Context, req marketplace.SearchRequest) (*marketplace.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.respond(len(f.calls), req)
}

func (f *fakeClient) keywords() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Keywords
	}
	return out
}

func emptyResponse() *marketplace.SearchResponse {
	return &marketplace.SearchResponse{Ack: marketplace.AckSuccess}
}

func itemsResponse(items ...marketplace.Item) *marketplace.SearchResponse {
	return &marketplace.SearchResponse{Ack: marketplace.AckSuccess, Items: items}
}

func failureResponse(msg string) *marketplace.SearchResponse {
	return &marketplace.SearchResponse{Ack: marketplace.AckFailure, ErrorMessage: msg}
}

func alwaysEmpty(int, marketplace.SearchRequest) (*marketplace.SearchResponse, error) {
	return emptyResponse(), nil
}

func testItem(id string, price float64) marketplace.Item {
	return marketplace.Item{
		ItemID:       id,
		Title:        "Item " + id,
		CurrentPrice: price,
		ViewItemURL:  "https://shop.test/itm/" + id,
		EndTime:      fixedNow.Add(48 * time.Hour),
	}
}

// fakePages returns src for every page, or err when set.
type fakePages struct {
	src   string
	err   error
	calls []string
}

func (p *fakePages) FetchImageURL(_ context.Context, pageURL string) (string, error) {
	p.calls = append(p.calls, pageURL)
	if p.err != nil {
		return "", p.err
	}
	return p.src, nil
}

// memRepo is an in-memory cache.Repository counting saves.
type memRepo struct {
	listings []cache.Listing
	loadErr  error
	saveErr  error
	saves    int
}

func (r *memRepo) Load(context.Context) ([]cache.Listing, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return append([]cache.Listing(nil), r.listings...), nil
}

func (r *memRepo) Save(_ context.Context, listings []cache.Listing) error {
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.listings = append([]cache.Listing(nil), listings...)
	return nil
}

// recordingSearchMetrics counts outcomes.
type recordingSearchMetrics struct {
	outcomes map[string]int
}

func newRecordingSearchMetrics() *recordingSearchMetrics {
	return &recordingSearchMetrics{outcomes: map[string]int{}}
}

func (m *recordingSearchMetrics) Search(outcome string) { m.outcomes[outcome]++ }

var errTransport = errors.New("connection reset")
