package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nalgoo/cluster-connection/probe"
	"github.com/nalgoo/cluster-connection/types"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "probe every node and open a cluster connection",
	Long: `check dials every configured node on its own, reports its wsrep state and
then opens a cluster connection the way an application would, printing the
node it settled on.`,
	Args: cobra.NoArgs,
	RunE: check,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func check(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := e.context(cmd)
	defer cancel()

	connector, nodes, err := e.nodeConnector()
	if err != nil {
		return err
	}

	checker := probe.NewWSREP()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tSTATUS\tLATENCY\tDETAIL")

	for _, node := range nodes {
		start := time.Now()
		status, detail := "ok", "Synced"

		conn, err := connector.Connect(ctx, node)
		if err == nil {
			err = checker.Check(ctx, node, conn)
			_ = conn.Close()
		}

		var notSynced *types.ReplicationNotSyncedError
		switch {
		case errors.As(err, &notSynced):
			status, detail = "not-synced", notSynced.State
		case err != nil:
			status, detail = "down", err.Error()
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", node, status, time.Since(start).Round(time.Millisecond), detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	conn, err := e.open()
	if err != nil {
		return err
	}
	defer conn.Close()

	version, err := conn.Platform(ctx)
	if err != nil {
		return err
	}

	selected, _ := conn.SelectedNode()
	fmt.Fprintf(cmd.OutOrStdout(), "\nconnection %s -> %s (%s)\n", conn.ID(), selected, version)

	return nil
}
