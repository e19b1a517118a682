package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rshade/pricehound/internal/logging"
)

// Finding API defaults.
const (
	DefaultFindingURL = "https://svcs.ebay.com/services/search/FindingService/v1"
	DefaultSiteID     = "EBAY-US"
	findingOperation  = "findItemsByKeywords"
	findingVersion    = "1.13.0"
	defaultUserAgent  = "pricehound/1.0"
)

// FindingOptions configures a FindingClient.
type FindingOptions struct {
	// BaseURL is the Finding service endpoint. Defaults to DefaultFindingURL.
	BaseURL string
	// AppID is the application key sent as SECURITY-APPNAME. Required.
	AppID string
	// SiteID is the marketplace global ID. Defaults to DefaultSiteID.
	SiteID string
	// Timeout bounds each HTTP call. Zero means no timeout.
	Timeout time.Duration
	// Limiter spaces outbound calls when set.
	Limiter *rate.Limiter
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// FindingClient implements Client against the eBay Finding API using the
// findItemsByKeywords operation with JSON responses.
type FindingClient struct {
	baseURL string
	appID   string
	siteID  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewFindingClient validates opts and returns a client.
func NewFindingClient(opts FindingOptions) (*FindingClient, error) {
	if strings.TrimSpace(opts.AppID) == "" {
		return nil, errors.New("marketplace app ID is required")
	}
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultFindingURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid finding URL: %w", err)
	}
	site := opts.SiteID
	if site == "" {
		site = DefaultSiteID
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &FindingClient{
		baseURL: base,
		appID:   opts.AppID,
		siteID:  site,
		client:  hc,
		limiter: opts.Limiter,
	}, nil
}

// Search runs one findItemsByKeywords call.
func (c *FindingClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	log := logging.FromContext(ctx)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	endpoint := c.baseURL + "?" + c.query(req).Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", defaultUserAgent)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "marketplace").
		Str("operation", "search").
		Str("keywords", req.Keywords).
		Float64("min_price", req.MinPrice).
		Float64("max_price", req.MaxPrice).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("finding call completed")

	out, decodeErr := decodeFindingResponse(body)
	if decodeErr != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("search returned HTTP %d: %w", resp.StatusCode, decodeErr)
		}
		return nil, decodeErr
	}
	return out, nil
}

// query encodes req as Finding API URL parameters.
func (c *FindingClient) query(req SearchRequest) url.Values {
	q := url.Values{}
	q.Set("OPERATION-NAME", findingOperation)
	q.Set("SERVICE-VERSION", findingVersion)
	q.Set("SECURITY-APPNAME", c.appID)
	q.Set("GLOBAL-ID", c.siteID)
	q.Set("RESPONSE-DATA-FORMAT", "JSON")
	q.Set("REST-PAYLOAD", "")
	q.Set("keywords", req.Keywords)
	for i, f := range req.ItemFilters() {
		q.Set(fmt.Sprintf("itemFilter(%d).name", i), f.Name)
		q.Set(fmt.Sprintf("itemFilter(%d).value", i), f.Value)
	}
	q.Set("paginationInput.entriesPerPage", strconv.Itoa(req.EntriesPerPage))
	q.Set("paginationInput.pageNumber", strconv.Itoa(req.PageNumber))
	return q
}

// Finding API JSON wraps every scalar in a single-element array.
type findingEnvelope struct {
	Response []findingResponse `json:"findItemsByKeywordsResponse"`
}

type findingResponse struct {
	Ack          []string         `json:"ack"`
	ErrorMessage []findingErrors  `json:"errorMessage"`
	SearchResult []findingResults `json:"searchResult"`
}

type findingErrors struct {
	Error []struct {
		Message []string `json:"message"`
	} `json:"error"`
}

type findingResults struct {
	Count string        `json:"@count"`
	Item  []findingItem `json:"item"`
}

type findingItem struct {
	ItemID        []string `json:"itemId"`
	Title         []string `json:"title"`
	ViewItemURL   []string `json:"viewItemURL"`
	SellingStatus []struct {
		CurrentPrice []struct {
			CurrencyID string `json:"@currencyId"`
			Value      string `json:"__value__"`
		} `json:"currentPrice"`
	} `json:"sellingStatus"`
	ListingInfo []struct {
		EndTime []string `json:"endTime"`
	} `json:"listingInfo"`
}

func decodeFindingResponse(body []byte) (*SearchResponse, error) {
	var env findingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if len(env.Response) == 0 {
		return nil, fmt.Errorf("%w: missing findItemsByKeywordsResponse", ErrMalformedResponse)
	}
	r := env.Response[0]

	out := &SearchResponse{Ack: first(r.Ack)}
	if out.Failed() {
		out.ErrorMessage = errorMessage(r.ErrorMessage)
		return out, nil
	}

	for _, result := range r.SearchResult {
		for _, raw := range result.Item {
			item, err := convertItem(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
			}
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func convertItem(raw findingItem) (Item, error) {
	item := Item{
		ItemID:      first(raw.ItemID),
		Title:       first(raw.Title),
		ViewItemURL: first(raw.ViewItemURL),
	}
	if item.ItemID == "" {
		return Item{}, errors.New("item without itemId")
	}

	var priceText string
	if len(raw.SellingStatus) > 0 && len(raw.SellingStatus[0].CurrentPrice) > 0 {
		priceText = raw.SellingStatus[0].CurrentPrice[0].Value
	}
	price, err := strconv.ParseFloat(priceText, 64)
	if err != nil {
		return Item{}, fmt.Errorf("item %s: invalid current price %q", item.ItemID, priceText)
	}
	item.CurrentPrice = price

	var endText string
	if len(raw.ListingInfo) > 0 {
		endText = first(raw.ListingInfo[0].EndTime)
	}
	end, err := time.Parse(time.RFC3339, endText)
	if err != nil {
		return Item{}, fmt.Errorf("item %s: invalid end time %q", item.ItemID, endText)
	}
	item.EndTime = end
	return item, nil
}

func errorMessage(msgs []findingErrors) string {
	var parts []string
	for _, m := range msgs {
		for _, e := range m.Error {
			if msg := first(e.Message); msg != "" {
				parts = append(parts, msg)
			}
		}
	}
	if len(parts) == 0 {
		return "unknown error"
	}
	return strings.Join(parts, "; ")
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
