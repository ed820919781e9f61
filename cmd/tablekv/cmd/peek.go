package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ssargent/tablekv/pkg/codec"
)

// peekCmd represents the peek command
var peekCmd = &cobra.Command{
	Use:   "peek <key-hex>",
	Short: "Print the codec version of a record key",
	Long: `Print the codec version stored in the last byte of a record key.

Example:
  tablekv peek 72000000000000000101800000000000000700000001`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
		if err != nil {
			return fmt.Errorf("key is not valid hex: %w", err)
		}
		version, err := codec.PeekCodecVersion(key)
		if err != nil {
			return err
		}
		cmd.Printf("codec version: %d\n", version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(peekCmd)
}
