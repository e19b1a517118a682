package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rshade/pricehound/internal/config"
	"github.com/rshade/pricehound/internal/engine"
	"github.com/rshade/pricehound/internal/logging"
)

// noResultsText is printed when a query exhausts the retry schedule.
const noResultsText = "No results"

// NewQueryCmd creates the query command. With arguments it answers one query
// and exits; without, it starts the interactive loop.
func NewQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query [price | price-keyword]",
		Short: "Find an item near a price",
		Long: `Answer a query of the form "price" or "price-keyword".

A price-only query is answered from the local store when a listing within 10%
of the price exists; otherwise the marketplace is searched with a random
two-letter keyword. A keyword query always searches the marketplace.

Without an argument an interactive prompt is started. At the prompt "print"
lists the cached listings and "exit" saves and quits.`,
		Example: `  pricehound query 50
  pricehound query 200-phone
  echo "50" | pricehound query`,
		Args: cobra.MaximumNArgs(1),
		RunE: runQuery,
	}
}

// runQuery opens a session, answers args or runs the loop, and always
// persists the session before returning.
func runQuery(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	deps, err := openRuntime(ctx, out)
	if err != nil {
		return err
	}
	defer deps.close()
	sess := deps.session

	defer func() {
		if closeErr := sess.Close(context.WithoutCancel(ctx)); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("saving session: %w", closeErr))
		}
	}()

	if len(args) == 1 {
		return answerOnce(ctx, sess, args[0], out)
	}

	cfg := config.GetGlobalConfig()
	if cfg.Fill.OnStartup {
		if fillErr := fillIfDue(ctx, sess, out); fillErr != nil {
			return fillErr
		}
	}

	prompt := isReaderTerminal(cmd.InOrStdin())
	loopErr := withMetricsServer(ctx, cfg.Metrics.Addr, deps.registry, func(loopCtx context.Context) error {
		return runLoop(loopCtx, sess, cmd.InOrStdin(), out, errOut, prompt)
	})
	if errors.Is(loopErr, context.Canceled) && ctx.Err() != nil {
		// Interrupted at the prompt; the deferred Close still saves.
		return nil
	}
	return loopErr
}

// answerOnce answers a single query. Unlike the loop, a bad query is returned
// as the command error.
func answerOnce(ctx context.Context, sess *engine.Session, text string, out io.Writer) error {
	text = strings.TrimSpace(text)
	if text == engine.CommandPrint {
		renderListings(out, sess.Store().All(), sess.Store().Now())
		return nil
	}
	listing, ok, err := sess.HandleText(ctx, text)
	if err != nil {
		return err
	}
	if !ok {
		_, _ = fmt.Fprintln(out, noResultsText)
		return nil
	}
	_, _ = fmt.Fprintln(out, listing.String())
	return nil
}

// runLoop reads queries from in until "exit", EOF or cancellation. Query
// errors are reported on errOut and the loop continues.
func runLoop(
	ctx context.Context,
	sess *engine.Session,
	in io.Reader,
	out, errOut io.Writer,
	prompt bool,
) error {
	log := logging.FromContext(ctx)

	// Stops the reader goroutine when the loop returns on "exit".
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines, readErr := readLines(ctx, in)

	for {
		if prompt {
			_, _ = fmt.Fprintln(out, promptText)
		}

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("reading queries: %w", err)
				}
				return ctx.Err()
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case engine.CommandExit:
			return nil
		case engine.CommandPrint:
			renderListings(out, sess.Store().All(), sess.Store().Now())
			continue
		}

		if err := answerOnce(ctx, sess, line, out); err != nil {
			var qe *engine.QueryError
			if !errors.As(err, &qe) {
				log.Error().
					Ctx(ctx).
					Str("component", "cli").
					Str("operation", "query").
					Str("query", line).
					Err(err).
					Msg("query failed")
			}
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}
	}
}
