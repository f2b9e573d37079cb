/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"github.com/ssargent/rowcodec/pkg/equality"
	"github.com/ssargent/rowcodec/pkg/rowjson"
)

func newPutCmd() *cobra.Command {
	putCmd := &cobra.Command{
		Use:   "put <row-json>",
		Short: "Store a row",
		Long: `Store a row given as a JSON object keyed by field name and print its id.
BYTES fields are base64 strings. With --id the row replaces an existing one.

Examples:
  rowctl put '{"f0": 1, "f1": 2.5, "f2": "qw=="}'
  rowctl put --id 2ABCD... '{"f0": 2}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idArg, _ := cmd.Flags().GetString("id")

			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			r, err := rowjson.Decode(c.Schema(), []byte(args[0]))
			if err != nil {
				return err
			}
			st, err := c.Storage()
			if err != nil {
				return err
			}

			if idArg != "" {
				id, err := ksuid.Parse(idArg)
				if err != nil {
					return fmt.Errorf("invalid row id: %w", err)
				}
				if err := st.Update(id, r); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id.String())
				return nil
			}

			id, err := st.Create(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	}

	putCmd.Flags().String("id", "", "Replace the row with this id")
	return putCmd
}

func newGetCmd() *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a stored row as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pretty, _ := cmd.Flags().GetBool("pretty")

			id, err := ksuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid row id: %w", err)
			}
			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			st, err := c.Storage()
			if err != nil {
				return err
			}
			r, err := st.Read(id)
			if err != nil {
				return err
			}
			return printRow(cmd, r, pretty)
		},
	}

	getCmd.Flags().Bool("pretty", false, "Indent the JSON output")
	return getCmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ksuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid row id: %w", err)
			}
			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			st, err := c.Storage()
			if err != nil {
				return err
			}
			if err := st.Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		},
	}
}

func newCompareCmd() *cobra.Command {
	compareCmd := &cobra.Command{
		Use:   "compare <row> <row>",
		Short: "Compare two rows",
		Long: `Compare two rows and print "equal" or "unequal". Each row is either a JSON
object or the id of a stored row. The strategy defaults to the configured one.

Strategies:
  deep       type-directed, compares byte fields by content
  storage    each value's own equality; raw byte buffers compare by identity
  aggregate  the row values as one aggregate

Examples:
  rowctl compare '{"f2": "qw=="}' '{"f2": "qw=="}'
  rowctl compare --strategy storage 2ABC... 2ABD...`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("strategy")

			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			strategy := c.Equality()
			if name != "" {
				if strategy, err = equality.ByName(name); err != nil {
					return err
				}
			}

			left, err := resolveRow(c, args[0])
			if err != nil {
				return fmt.Errorf("left: %w", err)
			}
			right, err := resolveRow(c, args[1])
			if err != nil {
				return fmt.Errorf("right: %w", err)
			}

			result := "unequal"
			if strategy.Equal(left, right) {
				result = "equal"
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	compareCmd.Flags().String("strategy", "", "Equality strategy: deep, storage or aggregate")
	return compareCmd
}
