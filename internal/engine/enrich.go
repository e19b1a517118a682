package engine

import (
	"context"
	"strings"

	"github.com/rshade/pricehound/internal/engine/cache"
	"github.com/rshade/pricehound/internal/logging"
	"github.com/rshade/pricehound/internal/marketplace"
)

// Enricher turns a search hit into a Listing, fetching the primary image URL
// from the item's detail page.
type Enricher struct {
	pages marketplace.PageFetcher
}

// NewEnricher returns an Enricher. A nil pages skips the detail fetch and
// leaves every image URL empty.
func NewEnricher(pages marketplace.PageFetcher) *Enricher {
	return &Enricher{pages: pages}
}

// Enrich builds a Listing from item. Scrape failures are logged and yield an
// empty image URL; they are never returned.
func (e *Enricher) Enrich(ctx context.Context, item marketplace.Item) cache.Listing {
	var imageURL string
	if e.pages != nil {
		src, err := e.pages.FetchImageURL(ctx, item.ViewItemURL)
		if err != nil {
			logging.FromContext(ctx).Warn().
				Ctx(ctx).
				Str("component", "engine").
				Str("operation", "enrich").
				Str("item_id", item.ItemID).
				Err(err).
				Msg("image lookup failed, using empty image URL")
		} else {
			imageURL = src
		}
	}

	return cache.NewListing(
		item.ItemID,
		strings.ReplaceAll(item.Title, ",", " "),
		item.CurrentPrice,
		imageURL,
		item.ViewItemURL,
		item.EndTime,
	)
}
