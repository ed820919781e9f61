/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/ssargent/tablekv/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration",
	Long: `Write a default configuration with a generated API key and an example
users table.

Examples:
  tablekv init
  tablekv init --config ./tablekv.yaml --data-dir ./data
  tablekv init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		force, _ := cmd.Flags().GetBool("force")
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		return runInit(cmd.OutOrStdout(), configPath, dataDir, force)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
}

func runInit(w io.Writer, configPath, dataDir string, force bool) error {
	if config.ConfigExists(configPath) && !force {
		return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", configPath)
	}

	cfg, err := config.BootstrapConfig(configPath, dataDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Configuration written to %s\n", configPath)
	fmt.Fprintf(w, "Data directory: %s\n", cfg.DataDir)
	fmt.Fprintf(w, "API key: %s...\n", cfg.Security.APIKey[:8])
	return nil
}
