package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	clusterconn "github.com/nalgoo/cluster-connection"
	sqladapter "github.com/nalgoo/cluster-connection/adapter/sql"
	"github.com/nalgoo/cluster-connection/contrib/logging/zaplog"
	"github.com/nalgoo/cluster-connection/topology"
	"github.com/nalgoo/cluster-connection/types"
)

// env bundles everything a subcommand needs.
type env struct {
	config *Config
	logger *zap.Logger
	nc     *nats.Conn
}

func newEnv(cmd *cobra.Command) (*env, error) {
	config, err := LoadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := newLogger(config.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return &env{config: config, logger: logger}, nil
}

func (e *env) close() {
	if e.nc != nil {
		e.nc.Close()
	}
	_ = e.logger.Sync()
}

// context returns the command context bounded by --timeout.
func (e *env) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if e.config.Timeout > 0 {
		return context.WithTimeout(cmd.Context(), e.config.Timeout)
	}

	return context.WithCancel(cmd.Context())
}

// open creates a cluster connection from the configuration.
func (e *env) open(opts ...clusterconn.Option) (*clusterconn.Connection, error) {
	opts = append([]clusterconn.Option{clusterconn.WithLogger(zaplog.New(e.logger))}, opts...)

	return e.config.connectionConfig().Open(opts...)
}

// nodeConnector returns a connector and the node list, for commands that
// talk to nodes individually.
func (e *env) nodeConnector() (sqladapter.Connector, []types.NodeAddress, error) {
	conn, err := e.open()
	if err != nil {
		return nil, nil, err
	}
	nodes := conn.Nodes()
	_ = conn.Close()

	switch {
	case e.config.URL != "":
		base, _, err := clusterconn.ParseURL(e.config.URL)
		if err != nil {
			return nil, nil, err
		}
		cfg, err := clusterconn.MySQLConfigFromURL(base)
		if err != nil {
			return nil, nil, err
		}
		connector, err := sqladapter.NewMySQLConnector(cfg)

		return connector, nodes, err
	default:
		connector, err := sqladapter.NewMySQLConnectorFromDSN(e.config.DSN)

		return connector, nodes, err
	}
}

// drainWatcher connects to NATS and opens the drain configuration bucket.
// It returns nil when no NATS URL is configured.
func (e *env) drainWatcher(ctx context.Context) (*topology.NATS, error) {
	if e.config.NATSURL == "" {
		return nil, nil
	}

	kv, err := e.drainBucket(ctx)
	if err != nil {
		return nil, err
	}

	var opts []topology.WatcherOption
	if e.config.DrainKey != "" {
		opts = append(opts, topology.WithKey(e.config.DrainKey))
	}

	return topology.NewNATS(kv, opts...)
}

func (e *env) drainBucket(ctx context.Context) (jetstream.KeyValue, error) {
	if e.config.NATSURL == "" {
		return nil, errors.New("--nats-url is required")
	}

	nc, err := nats.Connect(e.config.NATSURL, nats.Name("clusterctl"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	e.nc = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      e.config.DrainBucket,
		Description: "cluster connection drain configuration",
		History:     10,
	})
	if err != nil {
		return nil, fmt.Errorf("open KV bucket %q: %w", e.config.DrainBucket, err)
	}

	return kv, nil
}
