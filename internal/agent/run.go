package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danielpatrickdp/agit/internal/logging"
	"github.com/danielpatrickdp/agit/internal/metrics"
	"github.com/danielpatrickdp/agit/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// #region run

// Run ticks on the interval and, when watching, after each debounced batch of
// file events. Tick errors are logged and never stop the loop. Run returns nil
// when ctx is cancelled; it stops between ticks, never inside one.
func (a *Agent) Run(ctx context.Context, registry *prometheus.Registry) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.config.GRPCAddr != "" {
		lis, err := net.Listen("tcp", a.config.GRPCAddr)
		if err != nil {
			return fmt.Errorf("agent: health listener: %w", err)
		}
		go func() {
			if err := a.ServeHealth(ctx, lis); err != nil {
				a.logger.Error("health service stopped", "error", err)
			}
		}()
	}
	if a.config.MetricsAddr != "" && registry != nil {
		go a.serveMetrics(ctx, registry)
	}

	changed := make(chan struct{}, 1)
	if a.config.Watch {
		w, err := watcher.New(a.config.Repo, a.config.Debounce, a.config.Ignore, a.logger)
		if err != nil {
			return fmt.Errorf("agent: %w", err)
		}
		go func() {
			err := w.Run(ctx, func(paths []string) {
				a.logger.Debug("files changed", "paths", len(paths))
				select {
				case changed <- struct{}{}:
				default: // a tick is already queued
				}
			})
			if err != nil {
				a.logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	interval := a.config.Interval
	if interval <= 0 {
		interval = DefaultConfig(a.config.Repo).Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("agent started", "interval", interval, "watch", a.config.Watch, "history", len(a.History()))
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("agent stopped")
			return nil
		case <-ticker.C:
			a.Tick(ctx, logging.TriggerInterval)
		case <-changed:
			a.Tick(ctx, logging.TriggerWatch)
		}
	}
}

// #endregion run

// #region health

// ServeHealth serves the gRPC health service on lis until ctx is done. The
// agent reports SERVING while running and NOT_SERVING while shutting down.
func (a *Agent) ServeHealth(ctx context.Context, lis net.Listener) error {
	hs := health.NewServer()
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()

	a.logger.Info("health service listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// #endregion health

// #region metrics

func (a *Agent) serveMetrics(ctx context.Context, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	srv := &http.Server{Addr: a.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("metrics listening", "addr", a.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("metrics server stopped", "error", err)
	}
}

// #endregion metrics
