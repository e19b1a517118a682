package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/pricehound/internal/logging"
)

// metricsShutdownTimeout bounds the graceful stop of the metrics listener.
const metricsShutdownTimeout = 5 * time.Second

// metricsReadHeaderTimeout guards the listener against slow clients.
const metricsReadHeaderTimeout = 5 * time.Second

// withMetricsServer runs fn while serving reg on addr at /metrics. With no
// registry fn runs alone. A listener failure cancels the context passed to
// fn; the listener is shut down once fn returns.
func withMetricsServer(
	ctx context.Context,
	addr string,
	reg *prometheus.Registry,
	fn func(context.Context) error,
) error {
	if reg == nil || addr == "" {
		return fn(ctx)
	}

	log := logging.FromContext(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Ctx(ctx).
			Str("component", "cli").
			Str("operation", "metrics").
			Str("addr", addr).
			Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics listener on %s: %w", addr, err)
		}
		return nil
	})

	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Ctx(ctx).Err(err).Msg("metrics listener shutdown")
			}
		}()
		return fn(gctx)
	})

	return g.Wait()
}
