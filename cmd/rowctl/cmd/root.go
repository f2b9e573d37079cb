/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"github.com/ssargent/rowcodec/pkg/config"
	"github.com/ssargent/rowcodec/pkg/di"
	"github.com/ssargent/rowcodec/pkg/row"
	"github.com/ssargent/rowcodec/pkg/rowjson"
)

// NewRootCmd builds the rowctl command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rowctl",
		Short: "rowctl - schema-typed row codec",
		Long: `rowctl encodes opaque byte payloads, stores schema-typed rows and
compares them with a selectable equality strategy.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")

	rootCmd.AddCommand(
		newInitCmd(),
		newEncodeCmd(),
		newDecodeCmd(),
		newPutCmd(),
		newGetCmd(),
		newDeleteCmd(),
		newCompareCmd(),
		newExportCmd(),
		newImportCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	return path
}

// openContainer loads the config file and resolves its components. The
// caller closes the container.
func openContainer(cmd *cobra.Command) (*di.Container, error) {
	path := configPath(cmd)
	if !config.ConfigExists(path) {
		return nil, fmt.Errorf("no config at %s (run 'rowctl init' first)", path)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return di.NewContainer(cfg)
}

// resolveRow reads a row argument: a JSON object, or the id of a stored row.
func resolveRow(c *di.Container, arg string) (*row.Row, error) {
	trimmed := bytes.TrimSpace([]byte(arg))
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return rowjson.Decode(c.Schema(), trimmed)
	}
	id, err := ksuid.Parse(arg)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a row object nor a row id", arg)
	}
	st, err := c.Storage()
	if err != nil {
		return nil, err
	}
	return st.Read(id)
}

func printRow(cmd *cobra.Command, r *row.Row, pretty bool) error {
	data, err := rowjson.Encode(r)
	if err != nil {
		return err
	}
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
