/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/rowcodec/pkg/config"
)

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with a generated API key",
		Long: `Create the rowctl configuration file with the default schema, a generated
API key and the given data directory.

Edit the schema section before storing rows: a database remembers the schema
it was created with and refuses to open under a different one.

Examples:
  rowctl init
  rowctl init --data-dir ./data --config ./rowctl.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			force, _ := cmd.Flags().GetBool("force")
			path := configPath(cmd)

			if config.ConfigExists(path) && !force {
				cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", path)
				return nil
			}

			cfg, err := config.BootstrapConfig(path, dataDir)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration created at %s\n", path)
			fmt.Fprintf(out, "Data directory: %s\n", cfg.DataDir)
			fmt.Fprintf(out, "API key: %s\n", cfg.Security.APIKey)
			return nil
		},
	}

	initCmd.Flags().StringP("data-dir", "d", "./data", "Data directory for rowctl")
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	return initCmd
}
