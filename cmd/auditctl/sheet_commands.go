package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/auditdash/internal/sheets"
)

func newWorksheetsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worksheets <spreadsheet-url-or-id>",
		Short: "List the worksheets of a Google Sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := sheets.ParseSpreadsheetID(args[0])
			if err != nil {
				return err
			}
			gateway, err := ctx.openGateway(cmd.Context())
			if err != nil {
				return err
			}
			names, err := gateway.ListWorksheets(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "No worksheets")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func newPullCommand(ctx *commandContext) *cobra.Command {
	var (
		worksheet string
		outPath   string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "pull <spreadsheet-url-or-id>",
		Short: "Download a worksheet, or preview it when --out is not set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := sheets.ParseSpreadsheetID(args[0])
			if err != nil {
				return err
			}
			gateway, err := ctx.openGateway(cmd.Context())
			if err != nil {
				return err
			}
			if worksheet == "" {
				names, err := gateway.ListWorksheets(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					return fmt.Errorf("spreadsheet %s has no worksheets", id)
				}
				worksheet = names[0]
			}

			ds, err := gateway.ReadAll(cmd.Context(), id, worksheet)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath == "" {
				fmt.Fprintln(out, renderDataset(ds, limit, 4, shouldColorize(out)))
				fmt.Fprintln(out, progressLine(ds.Progress()))
				return nil
			}
			if err := writeDataset(cmd, outPath, ds); err != nil {
				return err
			}
			if outPath != "-" {
				fmt.Fprintf(out, "Wrote %d records from %s to %s (%s)\n", ds.Len(), worksheet, outPath, progressLine(ds.Progress()))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&worksheet, "worksheet", "w", "", "Worksheet name (default: first worksheet)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path ending in .csv or .xlsx, or - for CSV on stdout")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to preview (0 for all)")
	return cmd
}
