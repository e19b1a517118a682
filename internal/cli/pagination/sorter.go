package pagination

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/rshade/pricehound/internal/engine/cache"
)

// Listing sort fields.
const (
	SortByID     = "id"
	SortByName   = "name"
	SortByPrice  = "price"
	SortByExpiry = "expiry"
)

// listingComparators order listings by each supported field.
//
//nolint:gochecknoglobals // Read-only lookup table.
var listingComparators = map[string]func(a, b cache.Listing) int{
	SortByID:     func(a, b cache.Listing) int { return cmp.Compare(a.ID, b.ID) },
	SortByName:   func(a, b cache.Listing) int { return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) },
	SortByPrice:  func(a, b cache.Listing) int { return cmp.Compare(a.Price, b.Price) },
	SortByExpiry: func(a, b cache.Listing) int { return a.Expiry.Compare(b.Expiry) },
}

// ListingSortFields returns the accepted sort fields in a stable order.
func ListingSortFields() []string {
	return []string{SortByExpiry, SortByID, SortByName, SortByPrice}
}

// SortListings returns a sorted copy of listings. An empty expression keeps
// store order.
func SortListings(listings []cache.Listing, expr string) ([]cache.Listing, error) {
	sorted := slices.Clone(listings)
	if expr == "" {
		return sorted, nil
	}

	field, order, err := ParseSort(expr)
	if err != nil {
		return nil, err
	}
	compare, ok := listingComparators[field]
	if !ok {
		return nil, fmt.Errorf("invalid sort field %q (valid: %s)", field, strings.Join(ListingSortFields(), ", "))
	}

	slices.SortStableFunc(sorted, func(a, b cache.Listing) int {
		if order == SortOrderDesc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return sorted, nil
}
