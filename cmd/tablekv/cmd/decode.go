package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ssargent/tablekv/pkg/codec"
	"github.com/ssargent/tablekv/pkg/config"
	"github.com/ssargent/tablekv/pkg/di"
)

type decodeOptions struct {
	table    string
	key      string
	value    string
	columns  []string
	keysOnly bool
}

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a raw record",
	Long: `Decode a raw key/value record given as hex.

With --table the record is decoded with that table's schema without
opening the store. Without it, the table is found from the key prefix.

Examples:
  tablekv decode --table users --key 72000000000000000101... --value 00000001...
  tablekv decode --table users --key 7200... --value 0000... --columns name,age
  tablekv decode --table users --key 7200... --keys-only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := decodeOptions{}
		opts.table, _ = cmd.Flags().GetString("table")
		opts.key, _ = cmd.Flags().GetString("key")
		opts.value, _ = cmd.Flags().GetString("value")
		opts.columns, _ = cmd.Flags().GetStringSlice("columns")
		opts.keysOnly, _ = cmd.Flags().GetBool("keys-only")
		return runDecode(cmd.OutOrStdout(), container, opts)
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringP("table", "t", "", "Table the record belongs to")
	decodeCmd.Flags().StringP("key", "k", "", "Record key in hex")
	decodeCmd.Flags().StringP("value", "v", "", "Record value in hex")
	decodeCmd.Flags().StringSlice("columns", nil, "Only decode these columns")
	decodeCmd.Flags().Bool("keys-only", false, "Only decode the key columns")
	_ = decodeCmd.MarkFlagRequired("key")
}

func runDecode(w io.Writer, c *di.Container, opts decodeOptions) error {
	key, err := hex.DecodeString(strings.TrimPrefix(opts.key, "0x"))
	if err != nil {
		return fmt.Errorf("key is not valid hex: %w", err)
	}
	value, err := hex.DecodeString(strings.TrimPrefix(opts.value, "0x"))
	if err != nil {
		return fmt.Errorf("value is not valid hex: %w", err)
	}

	if opts.table == "" {
		if len(opts.columns) > 0 || opts.keysOnly {
			return fmt.Errorf("--columns and --keys-only need --table")
		}
		s, err := c.Store()
		if err != nil {
			return err
		}
		tbl, row, err := s.Decode(codec.KeyValue{Key: key, Value: value})
		if err != nil {
			return fmt.Errorf("failed to decode record: %w", err)
		}
		fmt.Fprintf(w, "table: %s\n", tbl.Name())
		slots, names := present(tbl.ColumnNames())
		renderRows(w, names, []codec.Row{pick(row, slots)})
		return nil
	}

	tc, ok := c.Config().Table(opts.table)
	if !ok {
		return fmt.Errorf("unknown table %q", opts.table)
	}
	dec, err := newDecoder(tc)
	if err != nil {
		return err
	}
	names := tc.ColumnNames()

	switch {
	case opts.keysOnly:
		row, err := dec.DecodeKey(key, nil)
		if err != nil {
			return fmt.Errorf("failed to decode key: %w", err)
		}
		var slots []int
		var header []string
		for _, col := range dec.Columns() {
			if col != nil && col.IsKey() {
				slots = append(slots, col.Index())
				header = append(header, col.Name())
			}
		}
		renderRows(w, header, []codec.Row{pick(row, slots)})
	case len(opts.columns) > 0:
		logical := make([]int, len(opts.columns))
		for i, name := range opts.columns {
			idx, ok := tc.ColumnIndex(name)
			if !ok {
				return fmt.Errorf("unknown column %q", name)
			}
			logical[i] = idx
		}
		wanted, err := dec.PhysicalPositions(logical)
		if err != nil {
			return err
		}
		row, err := dec.DecodeColumns(key, value, wanted, nil)
		if err != nil {
			return fmt.Errorf("failed to decode record: %w", err)
		}
		renderRows(w, opts.columns, []codec.Row{row})
	default:
		row, err := dec.Decode(key, value, nil)
		if err != nil {
			return fmt.Errorf("failed to decode record: %w", err)
		}
		slots, header := present(names)
		renderRows(w, header, []codec.Row{pick(row, slots)})
	}
	return nil
}

func newDecoder(tc *config.TableConfig) (*codec.RecordDecoder, error) {
	columns, err := tc.Schema()
	if err != nil {
		return nil, err
	}
	opts, err := tc.CodecOptions()
	if err != nil {
		return nil, err
	}
	return codec.NewRecordDecoder(tc.SchemaVersion, columns, tc.ID, opts...)
}
