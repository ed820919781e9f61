/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/ssargent/tablekv/pkg/codec"
	"github.com/ssargent/tablekv/pkg/di"
)

var errStop = errors.New("stop")

type scanOptions struct {
	table    string
	columns  []string
	keysOnly bool
	limit    int
}

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Print the rows of a table",
	Long: `Print the rows of a table in key order.

Records written by a newer codec or schema version are skipped and logged.

Examples:
  tablekv scan --table users
  tablekv scan --table users --columns name,age --limit 10
  tablekv scan --table users --keys-only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := scanOptions{}
		opts.table, _ = cmd.Flags().GetString("table")
		opts.columns, _ = cmd.Flags().GetStringSlice("columns")
		opts.keysOnly, _ = cmd.Flags().GetBool("keys-only")
		opts.limit, _ = cmd.Flags().GetInt("limit")
		return runScan(cmd.Context(), cmd.OutOrStdout(), container, opts)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("table", "t", "", "Table to scan")
	scanCmd.Flags().StringSlice("columns", nil, "Only decode these columns")
	scanCmd.Flags().Bool("keys-only", false, "Only decode the key columns")
	scanCmd.Flags().IntP("limit", "n", 0, "Maximum number of rows (0 for all)")
	_ = scanCmd.MarkFlagRequired("table")
}

func runScan(ctx context.Context, w io.Writer, c *di.Container, opts scanOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := c.Store()
	if err != nil {
		return err
	}
	tbl, ok := s.Lookup(opts.table)
	if !ok {
		return fmt.Errorf("unknown table %q", opts.table)
	}

	var logical []int
	slots, header := present(tbl.ColumnNames())
	if len(opts.columns) > 0 {
		if logical, err = tbl.Logical(opts.columns); err != nil {
			return err
		}
		header = opts.columns
		slots = make([]int, len(logical))
		for i := range slots {
			slots[i] = i
		}
	}
	if opts.keysOnly {
		slots, header = slots[:0], header[:0:0]
		for _, col := range tbl.Decoder().Columns() {
			if col != nil && col.IsKey() {
				slots = append(slots, col.Index())
				header = append(header, col.Name())
			}
		}
	}

	var rows []codec.Row
	collect := func(row codec.Row) error {
		if opts.limit > 0 && len(rows) == opts.limit {
			return errStop
		}
		rows = append(rows, pick(row, slots))
		return nil
	}
	if opts.keysOnly {
		err = tbl.ScanKeys(ctx, collect)
	} else {
		err = tbl.Scan(ctx, logical, collect)
	}
	if err != nil && !errors.Is(err, errStop) {
		return fmt.Errorf("failed to scan table: %w", err)
	}

	renderRows(w, header, rows)
	fmt.Fprintf(w, "%s rows, %s on disk\n", humanize.Comma(int64(len(rows))), humanize.Bytes(s.DiskUsage()))
	return nil
}
