package marketplace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/time/rate"
)

// primaryImageID is the element id of the main picture on a detail page.
const primaryImageID = "icImg"

// DetailScraper implements PageFetcher by downloading the detail page and
// reading the src of <img id="icImg">.
type DetailScraper struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewDetailScraper returns a scraper. A zero timeout means no timeout;
// a nil limiter disables rate limiting.
func NewDetailScraper(timeout time.Duration, limiter *rate.Limiter) *DetailScraper {
	return &DetailScraper{
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// NewDetailScraperWithClient returns a scraper using hc.
func NewDetailScraperWithClient(hc *http.Client) *DetailScraper {
	return &DetailScraper{client: hc}
}

// FetchImageURL downloads pageURL and returns the primary image URL.
// Returns ErrImageNotFound when the page has no primary image element.
func (d *DetailScraper) FetchImageURL(ctx context.Context, pageURL string) (string, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("building detail request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching detail page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("detail page returned HTTP %d", resp.StatusCode)
	}
	return ExtractImageURL(resp.Body)
}

// ExtractImageURL scans an HTML document for <img id="icImg"> and returns
// its src attribute.
func ExtractImageURL(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return "", ErrImageNotFound
			}
			return "", fmt.Errorf("parsing detail page: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.DataAtom != atom.Img {
				continue
			}
			var id, src string
			for _, attr := range tok.Attr {
				switch attr.Key {
				case "id":
					id = attr.Val
				case "src":
					src = attr.Val
				}
			}
			if id == primaryImageID {
				if src == "" {
					return "", ErrImageNotFound
				}
				return src, nil
			}
		default:
		}
	}
}
