// Command pricehound finds marketplace items near a target price.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rshade/pricehound/internal/cli"
	"github.com/rshade/pricehound/internal/engine"
	"github.com/rshade/pricehound/pkg/version"
)

// Process exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitQueryError = 2
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps its error to an exit code.
// SIGINT and SIGTERM cancel the command context so sessions are saved.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(version.GetVersion())
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode returns exitQueryError for a rejected query and exitFailure for
// anything else.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var qe *engine.QueryError
	if errors.As(err, &qe) {
		return exitQueryError
	}
	return exitFailure
}
