package pagination

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Validation limits and defaults.
const (
	MaxLimit      = 10000
	MaxPageSize   = 1000
	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"
)

// Validation errors.
var (
	ErrInvalidLimit         = errors.New("limit must be between 0 and 10000")
	ErrInvalidPageSize      = errors.New("page-size must be between 1 and 1000")
	ErrInvalidOffset        = errors.New("offset must be non-negative")
	ErrInvalidPage          = errors.New("page must be >= 1")
	ErrMixedPaginationModes = errors.New("cannot use both offset-based (--offset) and page-based (--page) pagination")
	ErrPageSizeWithoutPage  = errors.New("--page-size requires --page to be set")
	ErrInvalidSortFormat    = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'price:desc')")
	ErrInvalidSortOrder     = errors.New("sort order must be 'asc' or 'desc'")
	ErrEmptySortField       = errors.New("sort field cannot be empty")
)

// Params holds the paging and sorting flags of a list command. Zero values
// disable paging.
type Params struct {
	// Limit caps the rows shown in offset mode; 0 shows all.
	Limit  int
	Offset int

	// Page is 1-based; 0 means page mode is off.
	Page     int
	PageSize int

	// Sort is "field" or "field:order".
	Sort string
}

// AddFlags registers the pagination flags on cmd, bound to p.
func (p *Params) AddFlags(cmd *cobra.Command, defaultSort string) {
	cmd.Flags().IntVar(&p.Limit, "limit", 0, "maximum rows to show (0 for all)")
	cmd.Flags().IntVar(&p.Offset, "offset", 0, "rows to skip")
	cmd.Flags().IntVar(&p.Page, "page", 0, "1-based page number")
	cmd.Flags().IntVar(&p.PageSize, "page-size", 0, "rows per page, used with --page")
	cmd.Flags().StringVar(&p.Sort, "sort", defaultSort, "sort as field or field:order")
}

// Validate checks bounds and the pairing of page flags.
func (p Params) Validate() error {
	if p.Limit < 0 || p.Limit > MaxLimit {
		return ErrInvalidLimit
	}
	if p.Offset < 0 {
		return ErrInvalidOffset
	}
	if p.Page < 0 {
		return ErrInvalidPage
	}
	if p.PageSize < 0 || p.PageSize > MaxPageSize {
		return ErrInvalidPageSize
	}
	if p.Page > 0 && p.Offset > 0 {
		return ErrMixedPaginationModes
	}
	if p.Page == 0 && p.PageSize > 0 {
		return ErrPageSizeWithoutPage
	}
	if p.Page > 0 && p.PageSize == 0 {
		return ErrInvalidPageSize
	}
	if _, _, err := ParseSort(p.Sort); err != nil && p.Sort != "" {
		return err
	}
	return nil
}

// IsPageBased returns true if page-based pagination is active.
func (p Params) IsPageBased() bool {
	return p.Page > 0
}

// window returns the slice bounds for n items.
func (p Params) window(n int) (start, end int) {
	offset, limit := p.Offset, p.Limit
	if p.IsPageBased() {
		offset, limit = (p.Page-1)*p.PageSize, p.PageSize
	}
	if offset > n {
		offset = n
	}
	end = n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}

// Apply returns the window of items selected by p. The result shares the
// backing array of items.
func Apply[T any](p Params, items []T) []T {
	start, end := p.window(len(items))
	return items[start:end]
}

// sortPartsMax is the maximum number of parts in a sort string (field:order).
const sortPartsMax = 2

// ParseSort parses "field" or "field:order". The order defaults to asc.
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func ParseSort(expr string) (field, order string, err error) {
	parts := strings.Split(expr, ":")
	if len(parts) > sortPartsMax {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSortFormat, expr)
	}

	field = strings.TrimSpace(parts[0])
	if field == "" {
		return "", "", ErrEmptySortField
	}

	order = SortOrderAsc
	if len(parts) == sortPartsMax {
		order = strings.ToLower(strings.TrimSpace(parts[1]))
	}
	if order != SortOrderAsc && order != SortOrderDesc {
		return "", "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, order)
	}
	return field, order, nil
}
