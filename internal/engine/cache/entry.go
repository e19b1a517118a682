package cache

import (
	"fmt"
	"time"
)

// EndTimeLayout is the persisted layout of a listing's end time.
const EndTimeLayout = "2006-01-02 15:04:05"

// Listing is one cached representation of a remote marketplace item.
// Listings are immutable once inserted into a Store.
type Listing struct {
	// ID is the marketplace item identifier. Not unique within a Store.
	ID string

	// Name is the listing title with commas removed.
	Name string

	// Price is the current price at the time the listing was fetched.
	Price float64

	// ImageURL is the primary image scraped from the detail page (may be empty).
	ImageURL string

	// ShopURL is the listing's view URL.
	ShopURL string

	// Expiry is the listing end time, UTC at second precision.
	Expiry time.Time
}

// NewListing creates a Listing, normalizing the expiry to UTC seconds so it
// survives a round trip through EndTimeLayout.
func NewListing(id, name string, price float64, imageURL, shopURL string, expiry time.Time) Listing {
	return Listing{
		ID:       id,
		Name:     name,
		Price:    price,
		ImageURL: imageURL,
		ShopURL:  shopURL,
		Expiry:   NormalizeExpiry(expiry),
	}
}

// NormalizeExpiry truncates t to whole seconds in UTC.
func NormalizeExpiry(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// IsExpired reports whether the listing ended strictly before now.
func (l Listing) IsExpired(now time.Time) bool {
	return l.Expiry.Before(now)
}

// TimeUntilExpiration returns the duration until the listing ends.
// Returns 0 if already expired.
func (l Listing) TimeUntilExpiration(now time.Time) time.Duration {
	remaining := l.Expiry.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// String renders the listing the way the query loop prints a result.
func (l Listing) String() string {
	return fmt.Sprintf("Name: %s\nPrice: %s\nImage Url: %s\nItem link: %s\nID: %s",
		l.Name, FormatPrice(l.Price), l.ImageURL, l.ShopURL, l.ID)
}
