package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	clusterconn "github.com/nalgoo/cluster-connection"
	"github.com/nalgoo/cluster-connection/contrib/metrics/vm"
	"github.com/nalgoo/cluster-connection/types"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "keep a cluster connection open and ping it periodically",
	Long: `monitor pings the cluster through one connection at a fixed interval,
logging every failover. With --nats-url it follows drain mode, and with
--metrics-listen it serves Prometheus metrics on /metrics.`,
	Args: cobra.NoArgs,
	RunE: monitor,
}

func init() {
	addMonitorFlags(monitorCmd.Flags())
	rootCmd.AddCommand(monitorCmd)
}

func addMonitorFlags(flags *pflag.FlagSet) {
	flags.String("metrics-listen", "", "Address to serve /metrics on, eg :9090 [Optional]")
	flags.Duration("interval", 5*time.Second, "Ping interval")
}

func monitor(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := vm.New()
	opts := []clusterconn.Option{clusterconn.WithMetrics(collector)}

	watcher, err := e.drainWatcher(ctx)
	if err != nil {
		return err
	}
	if watcher != nil {
		defer watcher.Close()
		opts = append(opts, clusterconn.WithDrainChecker(watcher))
		go logDrainUpdates(e.logger, watcher.Watch(ctx))
	}

	if e.config.MetricsListen != "" {
		srv := &http.Server{
			Addr:              e.config.MetricsListen,
			Handler:           metricsMux(collector),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		e.logger.Info("serving metrics", zap.String("addr", e.config.MetricsListen))
	}

	conn, err := e.open(opts...)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ticker := time.NewTicker(e.config.Interval)
	defer ticker.Stop()

	for {
		var exhausted *types.NoAvailableNodesError
		if err := ping(ctx, e.logger, conn, e.config.Interval); errors.As(err, &exhausted) {
			// Failure counts only grow, so start over with a fresh connection.
			_ = conn.Close()
			if conn, err = e.open(opts...); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func ping(ctx context.Context, logger *zap.Logger, conn *clusterconn.Connection, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := conn.Ping(pingCtx); err != nil {
		if ctx.Err() == nil {
			logger.Warn("ping failed", zap.String("connection", conn.ID()), zap.Error(err))
		}

		return err
	}

	node, _ := conn.SelectedNode()
	logger.Debug("ping",
		zap.String("connection", conn.ID()),
		zap.String("node", node.String()),
		zap.Duration("latency", time.Since(start)),
	)

	return nil
}

func logDrainUpdates(logger *zap.Logger, updates <-chan clusterconn.TopologyUpdate) {
	for update := range updates {
		logger.Info("drain state changed",
			zap.String("node", update.Node.String()),
			zap.Bool("draining", update.DrainMode),
			zap.String("reason", update.Reason),
		)
	}
}

func metricsMux(collector *vm.Collector) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", collector.Handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}
