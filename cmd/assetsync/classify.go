package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/assetsync/internal/asset"
)

// newClassifyCmd runs the serial normalizer and class rules over a CSV
// export of scanned barcodes. It needs no config or network access.
func newClassifyCmd() *cobra.Command {
	var inPath, outPath, column string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Normalize and classify barcodes in a CSV file",
		Long: `Reads a CSV with a barcode column and writes it back with two extra
columns: regex_result (the extracted serial) and barcode_type (the device
class). "-" or an empty path means stdin / stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			var in io.Reader = cmd.InOrStdin()
			if inPath != "" && inPath != "-" {
				f, openErr := os.Open(inPath)
				if openErr != nil {
					return fmt.Errorf("opening input: %w", openErr)
				}
				defer f.Close()
				in = f
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				f, createErr := os.Create(outPath)
				if createErr != nil {
					return fmt.Errorf("creating output: %w", createErr)
				}
				defer func() {
					if closeErr := f.Close(); closeErr != nil && err == nil {
						err = fmt.Errorf("closing output: %w", closeErr)
					}
				}()
				out = f
			}

			n, err := asset.ClassifyBarcodes(in, out, column)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "classified %d rows\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "input CSV path")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output CSV path")
	cmd.Flags().StringVar(&column, "column", asset.BarcodeColumn, "name of the barcode column")
	return cmd
}
