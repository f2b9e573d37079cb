/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"github.com/ssargent/rowcodec/pkg/row"
	"github.com/ssargent/rowcodec/pkg/rowjson"
	"github.com/ssargent/rowcodec/pkg/rowlog"
)

func newExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export all stored rows",
		Long: `Export all stored rows in id order to a row log, or to JSON lines with
--json. A file of "-" writes JSON lines to stdout.

Examples:
  rowctl export rows.log
  rowctl export --json rows.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			path := args[0]

			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			st, err := c.Storage()
			if err != nil {
				return err
			}

			var n int
			if asJSON || path == "-" {
				out := cmd.OutOrStdout()
				var file *os.File
				if path != "-" {
					if file, err = os.Create(path); err != nil {
						return err
					}
					defer file.Close()
					out = file
				}
				w := bufio.NewWriter(out)
				err = st.Scan(func(_ ksuid.KSUID, r *row.Row) error {
					data, err := rowjson.Encode(r)
					if err != nil {
						return err
					}
					n++
					if _, err := w.Write(data); err != nil {
						return err
					}
					return w.WriteByte('\n')
				})
				if err != nil {
					return err
				}
				if err := w.Flush(); err != nil {
					return err
				}
				if file != nil {
					if err := file.Sync(); err != nil {
						return err
					}
				}
			} else {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return err
				}
				w, err := rowlog.NewWriter(c.Schema(), rowlog.WriterConfig{
					FilePath:      path,
					FsyncInterval: time.Second,
				})
				if err != nil {
					return err
				}
				err = st.Scan(func(_ ksuid.KSUID, r *row.Row) error {
					n++
					_, err := w.Append(r)
					return err
				})
				if err != nil {
					w.Close()
					return err
				}
				if err := w.Close(); err != nil {
					return err
				}
			}

			if path != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", n, path)
			}
			return nil
		},
	}

	exportCmd.Flags().Bool("json", false, "Write JSON lines instead of a row log")
	return exportCmd
}

func newImportCmd() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import rows from a row log or JSON lines",
		Long: `Import rows as new stored rows. Each imported row gets a new id.

A row log stops at the first damaged frame; rows before it are kept and the
damage is reported.

Examples:
  rowctl import rows.log
  rowctl import --json rows.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			path := args[0]

			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			st, err := c.Storage()
			if err != nil {
				return err
			}

			var n int
			if asJSON {
				file, err := os.Open(path)
				if err != nil {
					return err
				}
				defer file.Close()

				r := bufio.NewReader(file)
				for line := 1; ; line++ {
					data, err := r.ReadBytes('\n')
					if len(bytes.TrimSpace(data)) > 0 {
						rw, derr := rowjson.Decode(c.Schema(), data)
						if derr != nil {
							return fmt.Errorf("line %d: %w", line, derr)
						}
						if _, err := st.Create(rw); err != nil {
							return err
						}
						n++
					}
					if err == io.EOF {
						break
					}
					if err != nil {
						return err
					}
				}
			} else {
				reader, err := rowlog.NewReader(c.Schema(), rowlog.ReaderConfig{FilePath: path})
				if err != nil {
					return err
				}
				defer reader.Close()

				it := reader.Iterator()
				for it.Next() {
					if _, err := st.Create(it.Entry().Row); err != nil {
						return err
					}
					n++
				}
				if err := it.Err(); err != nil {
					return fmt.Errorf("imported %d rows, then stopped at offset %d: %w", n, reader.Offset(), err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows from %s\n", n, path)
			return nil
		},
	}

	importCmd.Flags().Bool("json", false, "Read JSON lines instead of a row log")
	return importCmd
}
