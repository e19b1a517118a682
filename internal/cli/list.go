package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/pricehound/internal/cli/pagination"
	"github.com/rshade/pricehound/internal/config"
	"github.com/rshade/pricehound/internal/engine/cache"
)

// NewListCmd creates the list command, a read-only view of the store.
func NewListCmd() *cobra.Command {
	var (
		activeOnly bool
		page       pagination.Params
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show cached listings",
		Long: `Print the listings in the store without contacting the marketplace or
modifying the store. Expired listings are shown unless --active is given; they
are removed the next time a query session starts.`,
		Example: `  pricehound list
  pricehound list --active --sort price:desc
  pricehound list --page 2 --page-size 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := page.Validate(); err != nil {
				return err
			}
			return runList(cmd, activeOnly, page)
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "hide listings that have already ended")
	page.AddFlags(cmd, "")
	return cmd
}

func runList(cmd *cobra.Command, activeOnly bool, page pagination.Params) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg := config.GetGlobalConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	store, err := cache.LoadStore(ctx, repo)
	if err != nil {
		return openError(err)
	}
	if activeOnly {
		store.Sweep()
	}

	listings, err := pagination.SortListings(store.All(), page.Sort)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		_, _ = fmt.Fprintln(out, emptyStoreText)
		return nil
	}

	shown := pagination.Apply(page, listings)
	meta := pagination.NewMeta(page, len(listings))
	renderListingTable(out, shown, store.Now())

	_, _ = fmt.Fprintf(out, "Showing %d of %d listings", meta.Shown, meta.TotalItems)
	if meta.TotalPages > 1 {
		_, _ = fmt.Fprintf(out, " (page %d of %d)", meta.CurrentPage, meta.TotalPages)
	}
	_, _ = fmt.Fprintln(out)
	return nil
}
