package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	clusterconn "github.com/nalgoo/cluster-connection"
)

// Config the application's configuration structure
type Config struct {
	URL               string        `mapstructure:"url"`
	DSN               string        `mapstructure:"dsn"`
	Nodes             []string      `mapstructure:"nodes"`
	SelectionMode     string        `mapstructure:"selection-mode"`
	MaxFailedAttempts int           `mapstructure:"max-failed-attempts"`
	ReplicationCheck  bool          `mapstructure:"replication-check"`
	TransactionRetry  bool          `mapstructure:"transaction-retry"`
	Timeout           time.Duration `mapstructure:"timeout"`
	LogLevel          string        `mapstructure:"log-level"`

	NATSURL     string `mapstructure:"nats-url"`
	DrainBucket string `mapstructure:"drain-bucket"`
	DrainKey    string `mapstructure:"drain-key"`

	MetricsListen string        `mapstructure:"metrics-listen"`
	Interval      time.Duration `mapstructure:"interval"`
}

// LoadConfig loads the config from a file if specified, then from the
// environment and the command flags.
func LoadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	// Setting defaults for this application
	v.SetDefault("selection-mode", "round-robin")
	v.SetDefault("max-failed-attempts", clusterconn.DefaultMaxFailedAttempts)
	v.SetDefault("replication-check", true)
	v.SetDefault("transaction-retry", false)
	v.SetDefault("log-level", "info")
	v.SetDefault("drain-bucket", "clusterconn")
	v.SetDefault("interval", 5*time.Second)

	// Read Config from ENV
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// Read Config from Flags
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	// Read Config from file
	if configFile, err := cmd.Flags().GetString("config-file"); err == nil && configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// connectionConfig converts the CLI settings into a connection config.
func (c *Config) connectionConfig() *clusterconn.Config {
	check := c.ReplicationCheck

	return &clusterconn.Config{
		URL:               c.URL,
		DSN:               c.DSN,
		Nodes:             c.Nodes,
		SelectionMode:     c.SelectionMode,
		MaxFailedAttempts: c.MaxFailedAttempts,
		TransactionRetry:  c.TransactionRetry,
		ReplicationCheck:  &check,
	}
}
