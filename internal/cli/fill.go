package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rshade/pricehound/internal/config"
	"github.com/rshade/pricehound/internal/engine"
	"github.com/rshade/pricehound/internal/engine/cache"
)

// NewFillCmd creates the fill command.
func NewFillCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Populate the listing store across price tiers",
		Long: `Search every configured price tier once with a random keyword and insert
all returned items. Tiers up to 100 request 100 results, higher tiers 10.

A fill runs at most once per day unless --force is given. A tier the
marketplace rejects is skipped; a transport error stops the fill. The store is
saved after every tier.`,
		Example: `  pricehound fill
  pricehound fill --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFill(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "fill even if a fill already ran today")
	return cmd
}

func runFill(cmd *cobra.Command, force bool) (err error) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	deps, err := openRuntime(ctx, out)
	if err != nil {
		return err
	}
	defer deps.close()
	sess := deps.session

	defer func() {
		if closeErr := sess.Close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
			err = fmt.Errorf("saving session: %w", closeErr)
		}
	}()

	if force {
		report, fillErr := sess.Fill(ctx)
		printFillReport(out, report)
		return fillErr
	}
	return fillIfDue(ctx, sess, out)
}

// fillIfDue runs the daily fill when due and reports the outcome.
func fillIfDue(ctx context.Context, sess *engine.Session, out io.Writer) error {
	report, ran, err := sess.FillIfDue(ctx)
	if !ran {
		_, _ = fmt.Fprintf(out, "Fill not due (last filled %s)\n",
			sess.Settings().LastFilled.Format(config.SettingsDateLayout))
		return nil
	}
	printFillReport(out, report)
	return err
}

func printFillReport(w io.Writer, report engine.FillReport) {
	for _, tier := range report.Tiers {
		if tier.Skipped {
			_, _ = fmt.Fprintf(w, "  %s: skipped (%s)\n", cache.FormatPrice(tier.Price), tier.Reason)
			continue
		}
		_, _ = fmt.Fprintf(w, "  %s: %d listings (keyword %q)\n",
			cache.FormatPrice(tier.Price), tier.Inserted, tier.Keyword)
	}
	_, _ = fmt.Fprintf(w, "Fill complete: %d inserted, %d tiers skipped in %s\n",
		report.Inserted(), report.Skipped(), cache.FormatDuration(report.Duration))
}
