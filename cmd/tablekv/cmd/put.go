package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ssargent/tablekv/pkg/codec"
	"github.com/ssargent/tablekv/pkg/di"
)

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put",
	Short: "Insert a row",
	Long: `Insert a row given as a JSON object keyed by column name.

A null or missing string key column is filled with a new ksuid.

Example:
  tablekv put --table users --row '{"name": "alice", "age": 30, "tags": ["admin"]}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, _ := cmd.Flags().GetString("table")
		row, _ := cmd.Flags().GetString("row")
		return runPut(cmd.OutOrStdout(), container, table, row)
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
	putCmd.Flags().StringP("table", "t", "", "Table to insert into")
	putCmd.Flags().StringP("row", "r", "", "Row as a JSON object")
	_ = putCmd.MarkFlagRequired("table")
	_ = putCmd.MarkFlagRequired("row")
}

func runPut(w io.Writer, c *di.Container, table, rowJSON string) error {
	s, err := c.Store()
	if err != nil {
		return err
	}
	tbl, ok := s.Lookup(table)
	if !ok {
		return fmt.Errorf("unknown table %q", table)
	}

	var values map[string]any
	dec := json.NewDecoder(strings.NewReader(rowJSON))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return fmt.Errorf("row is not a JSON object: %w", err)
	}

	row, err := tbl.RowFromMap(values)
	if err != nil {
		return err
	}
	written, err := tbl.Insert(row)
	if err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}

	slots, names := present(tbl.ColumnNames())
	renderRows(w, names, []codec.Row{pick(written, slots)})
	return nil
}
