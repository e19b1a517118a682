package cli_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rshade/pricehound/internal/cli"
	"github.com/rshade/pricehound/internal/config"
)

// fakeEbay serves the Finding API and item detail pages. Every search returns
// items priced at the middle of the requested window, capped at perPage.
type fakeEbay struct {
	srv      *httptest.Server
	searches atomic.Int32
	empty    bool
	failure  string
	perPage  int
}

func newFakeEbay(t *testing.T) *fakeEbay {
	t.Helper()
	f := &fakeEbay{perPage: 1}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeEbay) serve(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/itm/") {
		_, _ = fmt.Fprintf(w, `<html><img id="icImg" src="https://img.test%s.jpg"></html>`, r.URL.Path)
		return
	}

	n := f.searches.Add(1)
	if f.failure != "" {
		_, _ = fmt.Fprintf(w, `{"findItemsByKeywordsResponse":[{"ack":["Failure"],`+
			`"errorMessage":[{"error":[{"message":[%q]}]}]}]}`, f.failure)
		return
	}
	if f.empty {
		_, _ = w.Write([]byte(`{"findItemsByKeywordsResponse":[{"ack":["Success"],"searchResult":[{"@count":"0"}]}]}`))
		return
	}

	q := r.URL.Query()
	lo, _ := strconv.ParseFloat(q.Get("itemFilter(2).value"), 64)
	hi, _ := strconv.ParseFloat(q.Get("itemFilter(3).value"), 64)
	entries, _ := strconv.Atoi(q.Get("paginationInput.entriesPerPage"))
	count := min(entries, f.perPage)

	end := time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339)
	items := make([]string, 0, count)
	for i := range count {
		id := fmt.Sprintf("%d%02d", n, i)
		items = append(items, fmt.Sprintf(
			`{"itemId":[%q],"title":["Widget, model %s"],"viewItemURL":["%s/itm/%s"],`+
				`"sellingStatus":[{"currentPrice":[{"__value__":"%g"}]}],"listingInfo":[{"endTime":[%q]}]}`,
			id, id, f.srv.URL, id, (lo+hi)/2, end))
	}
	_, _ = fmt.Fprintf(w, `{"findItemsByKeywordsResponse":[{"ack":["Success"],"searchResult":[{"item":[%s]}]}]}`,
		strings.Join(items, ","))
}

// setupHome isolates the pricehound home directory and environment. When srv
// is non-nil a config.yaml pointing the marketplace at it is written.
func setupHome(t *testing.T, srv *fakeEbay, extraYAML string) string {
	t.Helper()
	home := t.TempDir()
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvLogLevel, "error")
	for _, env := range []string{
		config.EnvAppID, config.EnvStorePath, config.EnvSettings,
		config.EnvDatabaseURL, config.EnvMetricsAddr, config.EnvRPS,
	} {
		t.Setenv(env, "")
	}
	t.Cleanup(config.ResetGlobalConfigForTest)

	if srv != nil {
		yaml := fmt.Sprintf("marketplace:\n  app_id: test-app\n  finding_url: %s/finding\n%s", srv.srv.URL, extraYAML)
		require.NoError(t, os.WriteFile(filepath.Join(home, config.DefaultConfigFile), []byte(yaml), 0o600))
	}
	return home
}

// execute runs the root command with args and stdin, returning both streams.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mustInit runs `pricehound init` and fails the test on error.
func mustInit(t *testing.T) {
	t.Helper()
	_, _, err := execute(t, "", "init")
	require.NoError(t, err)
}
