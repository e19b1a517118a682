// Package marketplace provides the remote search client and detail-page scraper
// used to acquire listings, abstracted behind interfaces for testability.
package marketplace

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Ack values reported by the remote search service.
const (
	AckSuccess = "Success"
	AckWarning = "Warning"
	AckFailure = "Failure"
)

// Sentinel errors for the marketplace integration.
var (
	// ErrRemoteFailure indicates the service answered with ack=Failure.
	ErrRemoteFailure = errors.New("marketplace search failed")

	// ErrMalformedResponse indicates a response body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed marketplace response")

	// ErrImageNotFound indicates the detail page has no primary image marker.
	ErrImageNotFound = errors.New("primary image not found on detail page")
)

// ItemFilter is one name/value search filter.
type ItemFilter struct {
	Name  string
	Value string
}

// SearchRequest defines the parameters for a keyword search with a price window.
type SearchRequest struct {
	Keywords           string
	HideDuplicateItems bool
	MinQuantity        int
	MinPrice           float64
	MaxPrice           float64
	EntriesPerPage     int
	PageNumber         int
}

// NewSearchRequest builds a request for entries results priced within
// deviation percent of price, on page 1, hiding duplicates and requiring
// at least one unit in stock.
func NewSearchRequest(keywords string, entries int, price, deviation float64) SearchRequest {
	delta := price * deviation / 100
	return SearchRequest{
		Keywords:           keywords,
		HideDuplicateItems: true,
		MinQuantity:        1,
		MinPrice:           price - delta,
		MaxPrice:           price + delta,
		EntriesPerPage:     entries,
		PageNumber:         1,
	}
}

// ItemFilters returns the request's filters in wire order.
func (r SearchRequest) ItemFilters() []ItemFilter {
	return []ItemFilter{
		{Name: "HideDuplicateItems", Value: strconv.FormatBool(r.HideDuplicateItems)},
		{Name: "MinQuantity", Value: strconv.Itoa(r.MinQuantity)},
		{Name: "MinPrice", Value: strconv.FormatFloat(r.MinPrice, 'f', -1, 64)},
		{Name: "MaxPrice", Value: strconv.FormatFloat(r.MaxPrice, 'f', -1, 64)},
	}
}

// Item is one candidate listing returned by a search.
type Item struct {
	ItemID       string
	Title        string
	CurrentPrice float64
	ViewItemURL  string
	EndTime      time.Time
}

// SearchResponse holds the outcome of a search. A failure acknowledgement is
// reported through Ack and ErrorMessage rather than as a Go error.
type SearchResponse struct {
	Ack          string
	ErrorMessage string
	Items        []Item
}

// Failed reports whether the service acknowledged the search as a failure.
func (r *SearchResponse) Failed() bool {
	return r.Ack == AckFailure
}

// Client issues keyword searches against the remote marketplace.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// PageFetcher extracts the primary image URL from a listing's detail page.
type PageFetcher interface {
	FetchImageURL(ctx context.Context, pageURL string) (string, error)
}
