/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/rowcodec/pkg/codec"
	"github.com/ssargent/rowcodec/pkg/row"
)

func newEncodeCmd() *cobra.Command {
	encodeCmd := &cobra.Command{
		Use:   "encode <payload>",
		Short: "Encode a byte payload as <varint length><bytes>",
		Long: `Encode a byte payload with the opaque-bytes encoding and print it as hex.

The payload is hex unless --string is given.

Examples:
  rowctl encode ab
  rowctl encode --string hello`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asString, _ := cmd.Flags().GetBool("string")

			payload := []byte(args[0])
			if !asString {
				var err error
				if payload, err = hex.DecodeString(args[0]); err != nil {
					return fmt.Errorf("payload is not hex: %w", err)
				}
			}

			encoded, err := codec.Marshal[*row.ByteArray](codec.NewByteArrayCoder(), row.WrapByteArray(payload))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(encoded))
			return nil
		},
	}

	encodeCmd.Flags().Bool("string", false, "Treat the payload as a UTF-8 string")
	return encodeCmd
}

func newDecodeCmd() *cobra.Command {
	decodeCmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode <varint length><bytes> encodings",
		Long: `Decode hex input holding one opaque-bytes encoding and print the payload
as hex. With --stream the input may hold any number of concatenated
encodings; each payload is printed on its own line.

Examples:
  rowctl decode 01ab
  rowctl decode --stream 01ab0203ff`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, _ := cmd.Flags().GetBool("stream")

			data, err := hex.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("input is not hex: %w", err)
			}

			c := codec.NewByteArrayCoder()
			out := cmd.OutOrStdout()
			if !stream {
				value, err := codec.Unmarshal[*row.ByteArray](c, data)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, hex.EncodeToString(value.View()))
				return nil
			}

			r := bytes.NewReader(data)
			for r.Len() > 0 {
				value, err := c.Decode(r)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, hex.EncodeToString(value.View()))
			}
			return nil
		},
	}

	decodeCmd.Flags().Bool("stream", false, "Decode concatenated encodings")
	return decodeCmd
}
