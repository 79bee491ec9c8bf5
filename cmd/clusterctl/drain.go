package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nalgoo/cluster-connection/topology"
	"github.com/nalgoo/cluster-connection/types"
)

var drainCmd = &cobra.Command{
	Use:   "drain <node>...",
	Short: "put nodes into (or out of) drain mode",
	Long: `drain edits the drain configuration in NATS KV. Clients watching the key
stop opening new connections to drained nodes; use --clear to undo.`,
	Args: cobra.MinimumNArgs(1),
	RunE: drain,
}

func init() {
	drainCmd.Flags().String("reason", "", "Human-readable reason stored with the drain")
	drainCmd.Flags().Bool("clear", false, "Remove the nodes from the drain list")
	rootCmd.AddCommand(drainCmd)
}

func drain(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := e.context(cmd)
	defer cancel()

	reason, _ := cmd.Flags().GetString("reason")
	undrain, _ := cmd.Flags().GetBool("clear")

	kv, err := e.drainBucket(ctx)
	if err != nil {
		return err
	}

	var opts []topology.WatcherOption
	if e.config.DrainKey != "" {
		opts = append(opts, topology.WithKey(e.config.DrainKey))
	}

	operator, err := topology.NewNATS(kv, opts...)
	if err != nil {
		return err
	}
	defer operator.Close()

	for _, arg := range args {
		node := types.NodeAddress(strings.TrimSpace(arg))
		if node == "" {
			return fmt.Errorf("empty node address")
		}
		if err := operator.SetDrain(ctx, node, !undrain, reason); err != nil {
			return fmt.Errorf("update %s: %w", node, err)
		}

		state := "draining"
		if undrain {
			state = "active"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", node, state)
	}

	return nil
}
