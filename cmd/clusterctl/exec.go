package main

import (
	"database/sql"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <statement>",
	Short: "run one SQL statement through a cluster connection",
	Long: `exec runs a single statement with failover. Statements returning rows
(SELECT, SHOW, DESCRIBE, EXPLAIN) are printed as a table; anything else prints
the number of affected rows and the last insert id.`,
	Args: cobra.ExactArgs(1),
	RunE: execStatement,
}

func init() {
	rootCmd.AddCommand(execCmd)
}

func execStatement(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := e.context(cmd)
	defer cancel()

	conn, err := e.open()
	if err != nil {
		return err
	}
	defer conn.Close()

	stmt := strings.TrimSpace(args[0])
	if !returnsRows(stmt) {
		affected, err := conn.ExecuteUpdate(ctx, stmt)
		if err != nil {
			return err
		}
		id, err := conn.LastInsertID(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rows affected: %d, last insert id: %d\n", affected, id)

		return nil
	}

	rows, err := conn.ExecuteQuery(ctx, stmt)
	if err != nil {
		return err
	}
	defer rows.Close()

	return printRows(cmd, rows)
}

func returnsRows(stmt string) bool {
	first, _, _ := strings.Cut(strings.TrimLeft(stmt, "( \t\n"), " ")
	switch strings.ToUpper(first) {
	case "SELECT", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "WITH", "VALUES", "TABLE":
		return true
	default:
		return false
	}
}

func printRows(cmd *cobra.Command, rows *sql.Rows) error {
	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))

	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = "NULL"
			if v.Valid {
				cells[i] = v.String
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return w.Flush()
}
