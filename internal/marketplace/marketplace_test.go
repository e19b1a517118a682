package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const successBody = `{"findItemsByKeywordsResponse":[{
  "ack":["Success"],
  "searchResult":[{"@count":"2","item":[
    {"itemId":["1001"],"title":["Red, shiny widget"],"viewItemURL":["https://example.test/itm/1001"],
     "sellingStatus":[{"currentPrice":[{"@currencyId":"USD","__value__":"19.5"}]}],
     "listingInfo":[{"endTime":["2026-10-20T12:30:00.000Z"]}]},
    {"itemId":["1002"],"title":["Blue widget"],"viewItemURL":["https://example.test/itm/1002"],
     "sellingStatus":[{"currentPrice":[{"@currencyId":"USD","__value__":"21"}]}],
     "listingInfo":[{"endTime":["2026-10-21T08:00:00Z"]}]}
  ]}]
}]}`

const emptyBody = `{"findItemsByKeywordsResponse":[{"ack":["Success"],"searchResult":[{"@count":"0"}]}]}`

const failureBody = `{"findItemsByKeywordsResponse":[{"ack":["Failure"],
  "errorMessage":[{"error":[{"message":["System error"]}]}]}]}`

func TestNewSearchRequest(t *testing.T) {
	req := NewSearchRequest("ab", 1, 200, 10)
	assert.Equal(t, "ab", req.Keywords)
	assert.True(t, req.HideDuplicateItems)
	assert.Equal(t, 1, req.MinQuantity)
	assert.InDelta(t, 180, req.MinPrice, 1e-9)
	assert.InDelta(t, 220, req.MaxPrice, 1e-9)
	assert.Equal(t, 1, req.EntriesPerPage)
	assert.Equal(t, 1, req.PageNumber)

	assert.Equal(t, []ItemFilter{
		{Name: "HideDuplicateItems", Value: "true"},
		{Name: "MinQuantity", Value: "1"},
		{Name: "MinPrice", Value: "180"},
		{Name: "MaxPrice", Value: "220"},
	}, req.ItemFilters())
}

func TestFindingClient_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var got *http.Request
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r
			_, _ = w.Write([]byte(successBody))
		}))
		defer srv.Close()

		c, err := NewFindingClient(FindingOptions{BaseURL: srv.URL, AppID: "app-123"})
		require.NoError(t, err)

		resp, err := c.Search(ctx, NewSearchRequest("wi", 2, 20, 10))
		require.NoError(t, err)
		assert.False(t, resp.Failed())
		require.Len(t, resp.Items, 2)
		assert.Equal(t, Item{
			ItemID:       "1001",
			Title:        "Red, shiny widget",
			CurrentPrice: 19.5,
			ViewItemURL:  "https://example.test/itm/1001",
			EndTime:      time.Date(2026, 10, 20, 12, 30, 0, 0, time.UTC),
		}, resp.Items[0])

		q := got.URL.Query()
		assert.Equal(t, "findItemsByKeywords", q.Get("OPERATION-NAME"))
		assert.Equal(t, "app-123", q.Get("SECURITY-APPNAME"))
		assert.Equal(t, DefaultSiteID, q.Get("GLOBAL-ID"))
		assert.Equal(t, "JSON", q.Get("RESPONSE-DATA-FORMAT"))
		assert.Equal(t, "wi", q.Get("keywords"))
		assert.Equal(t, "HideDuplicateItems", q.Get("itemFilter(0).name"))
		assert.Equal(t, "true", q.Get("itemFilter(0).value"))
		assert.Equal(t, "MinQuantity", q.Get("itemFilter(1).name"))
		assert.Equal(t, "18", q.Get("itemFilter(2).value"))
		assert.Equal(t, "22", q.Get("itemFilter(3).value"))
		assert.Equal(t, "2", q.Get("paginationInput.entriesPerPage"))
		assert.Equal(t, "1", q.Get("paginationInput.pageNumber"))
	})

	t.Run("NoResults", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(emptyBody))
		}))
		defer srv.Close()

		c, _ := NewFindingClient(FindingOptions{BaseURL: srv.URL, AppID: "a"})
		resp, err := c.Search(ctx, NewSearchRequest("zz", 1, 5, 10))
		require.NoError(t, err)
		assert.False(t, resp.Failed())
		assert.Empty(t, resp.Items)
	})

	t.Run("FailureAck", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(failureBody))
		}))
		defer srv.Close()

		c, _ := NewFindingClient(FindingOptions{BaseURL: srv.URL, AppID: "a"})
		resp, err := c.Search(ctx, NewSearchRequest("zz", 1, 5, 10))
		require.NoError(t, err, "failure acks are reported in the response")
		assert.True(t, resp.Failed())
		assert.Equal(t, "System error", resp.ErrorMessage)
	})

	t.Run("Malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		}))
		defer srv.Close()

		c, _ := NewFindingClient(FindingOptions{BaseURL: srv.URL, AppID: "a"})
		_, err := c.Search(ctx, NewSearchRequest("zz", 1, 5, 10))
		require.ErrorIs(t, err, ErrMalformedResponse)
		assert.Contains(t, err.Error(), "HTTP 502")
	})

	t.Run("MissingAppID", func(t *testing.T) {
		_, err := NewFindingClient(FindingOptions{})
		assert.Error(t, err)
	})
}

func TestDecodeFindingResponse(t *testing.T) {
	cases := map[string]string{
		"bad price":    `{"findItemsByKeywordsResponse":[{"ack":["Success"],"searchResult":[{"item":[{"itemId":["1"],"sellingStatus":[{"currentPrice":[{"__value__":"x"}]}],"listingInfo":[{"endTime":["2026-10-20T12:30:00Z"]}]}]}]}]}`,
		"bad end time": `{"findItemsByKeywordsResponse":[{"ack":["Success"],"searchResult":[{"item":[{"itemId":["1"],"sellingStatus":[{"currentPrice":[{"__value__":"1"}]}],"listingInfo":[{"endTime":["soon"]}]}]}]}]}`,
		"no item id":   `{"findItemsByKeywordsResponse":[{"ack":["Success"],"searchResult":[{"item":[{"title":["x"]}]}]}]}`,
		"no envelope":  `{}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeFindingResponse([]byte(body))
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}

	t.Run("FailureWithoutMessage", func(t *testing.T) {
		resp, err := decodeFindingResponse([]byte(`{"findItemsByKeywordsResponse":[{"ack":["Failure"]}]}`))
		require.NoError(t, err)
		assert.Equal(t, "unknown error", resp.ErrorMessage)
	})
}

func TestExtractImageURL(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		page := `<html><body><img id="other" src="https://x/other.jpg">` +
			`<div><img id="icImg" class="img" src="https://x/main.jpg" alt="main"/></div></body></html>`
		src, err := ExtractImageURL(strings.NewReader(page))
		require.NoError(t, err)
		assert.Equal(t, "https://x/main.jpg", src)
	})

	t.Run("Absent", func(t *testing.T) {
		_, err := ExtractImageURL(strings.NewReader(`<html><img src="a.jpg"></html>`))
		assert.ErrorIs(t, err, ErrImageNotFound)
	})

	t.Run("EmptySrc", func(t *testing.T) {
		_, err := ExtractImageURL(strings.NewReader(`<img id="icImg">`))
		assert.ErrorIs(t, err, ErrImageNotFound)
	})
}

func TestDetailScraper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<img id="icImg" src="https://img.test/1.jpg">`))
	}))
	defer srv.Close()

	d := NewDetailScraper(0, nil)
	src, err := d.FetchImageURL(context.Background(), srv.URL+"/itm/1")
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/1.jpg", src)

	_, err = d.FetchImageURL(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}
