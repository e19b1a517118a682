package cli

import (
	"bufio"
	"context"
	"io"
	"os"
)

// promptText is printed before each line read from an interactive terminal.
const promptText = "Enter query"

// isReaderTerminal reports whether r is a terminal. Piped input gets no prompt.
func isReaderTerminal(r io.Reader) bool {
	if f, ok := r.(*os.File); ok {
		return isTerminal(f)
	}
	return false
}

// readLines scans r on a separate goroutine so the caller can stop waiting on
// ctx. The error channel receives exactly one value once the line channel is
// closed: the scanner error, or nil on EOF and cancellation. A goroutine
// blocked in Read is abandoned on cancellation.
func readLines(ctx context.Context, r io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()

	return lines, errc
}
