package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/auditdash/internal/core"
)

func newPreviewCommand() *cobra.Command {
	var limit, columns int

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show the records of a CSV or xlsx file and their audit progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderDataset(ds, limit, columns, shouldColorize(out)))
			fmt.Fprintln(out, progressLine(ds.Progress()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to show (0 for all)")
	cmd.Flags().IntVar(&columns, "columns", 4, "Maximum data columns to show (0 for all)")
	return cmd
}

func newConvertCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Normalize a dataset and write it as CSV or xlsx",
		Long: "Reads a CSV or xlsx file, normalizes its header and decision column, " +
			"and writes the result in the format named by --out's extension.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(args[0])
			if err != nil {
				return err
			}
			if err := writeDataset(cmd, outPath, ds); err != nil {
				return err
			}
			if outPath != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", ds.Len(), outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path ending in .csv or .xlsx, or - for CSV on stdout")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// readDataset loads and parses a local file.
func readDataset(path string) (*core.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return core.Parse(filepath.Base(path), data)
}

// writeDataset exports ds to path, picking the format from its extension.
func writeDataset(cmd *cobra.Command, path string, ds *core.Dataset) error {
	if path == "-" {
		return core.WriteCSV(cmd.OutOrStdout(), ds)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		data, err = core.ExportCSV(ds)
	case ".xlsx":
		data, err = core.ExportXLSX(ds)
	default:
		return fmt.Errorf("unsupported output type %q: use .csv or .xlsx", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
