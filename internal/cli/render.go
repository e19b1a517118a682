package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rshade/pricehound/internal/engine/cache"
)

// maxNameWidth truncates long listing titles in table output.
const maxNameWidth = 48

const emptyStoreText = "No listings in store"

// Color palette for styled output.
//
//nolint:gochecknoglobals // Read-only style definitions.
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	priceStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	expiredStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("9"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// isWriterTerminal returns true if the writer is connected to a terminal.
func isWriterTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isTerminal(f)
	}
	return false
}

// listingHeaders are the table columns shared by both renderers.
//
//nolint:gochecknoglobals // Read-only column list.
var listingHeaders = []string{"ID", "NAME", "PRICE", "ENDS IN", "LINK"}

// renderListings writes listings as a table followed by a count.
func renderListings(w io.Writer, listings []cache.Listing, now time.Time) {
	if len(listings) == 0 {
		_, _ = fmt.Fprintln(w, emptyStoreText)
		return
	}
	renderListingTable(w, listings, now)
	_, _ = fmt.Fprintf(w, "%d listings\n", len(listings))
}

// renderListingTable writes listings as a table: styled on a terminal, tab
// aligned otherwise.
func renderListingTable(w io.Writer, listings []cache.Listing, now time.Time) {
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, listingRow(l, now))
	}

	if isWriterTerminal(w) {
		renderStyledListings(w, rows)
	} else {
		renderPlainListings(w, rows)
	}
}

func listingRow(l cache.Listing, now time.Time) []string {
	ends := "expired"
	if !l.IsExpired(now) {
		ends = cache.FormatDuration(l.TimeUntilExpiration(now))
	}
	return []string{l.ID, truncate(l.Name, maxNameWidth), cache.FormatPrice(l.Price), ends, l.ShopURL}
}

func renderStyledListings(w io.Writer, rows [][]string) {
	const (
		priceCol = 2
		endsCol  = 3
	)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(listingHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == priceCol:
				return priceStyle
			case col == endsCol && rows[row][endsCol] == "expired":
				return expiredStyle
			default:
				return cellStyle
			}
		})
	_, _ = fmt.Fprintln(w, t.Render())
}

func renderPlainListings(w io.Writer, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) //nolint:mnd // Standard tabwriter padding.
	_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		listingHeaders[0], listingHeaders[1], listingHeaders[2], listingHeaders[3], listingHeaders[4])
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r[0], r[1], r[2], r[3], r[4])
	}
	_ = tw.Flush()
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	const ellipsis = "..."
	return string(r[:n-len(ellipsis)]) + ellipsis
}
