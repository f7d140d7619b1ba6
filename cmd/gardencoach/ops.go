package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/MrWong99/gardencoach/internal/health"
	"github.com/MrWong99/gardencoach/internal/observe"
)

// newOpsHandler builds the ops mux: Prometheus metrics plus liveness and
// readiness checks, all behind the observe middleware labelled by route.
func newOpsHandler(m *observe.Metrics, checks ...health.Checker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", observe.MetricsHandler(nil))
	health.New(checks...).Register(mux)
	return observe.Middleware(m, observe.WithRoutes(mux))(mux)
}

// startOps serves the ops endpoints on addr until the returned stop function
// is called or ctx is done.
func startOps(ctx context.Context, addr string, checks ...health.Checker) (stop func(), err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ops listener %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           newOpsHandler(observe.DefaultMetrics(), checks...),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops listener failed", "addr", addr, "err", err)
		}
	}()
	slog.Info("ops listener ready", "addr", ln.Addr().String())

	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			slog.Warn("ops listener shutdown", "err", err)
		}
	}, nil
}
