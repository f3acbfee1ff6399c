package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "auditctl",
		Short:         "Inspect and convert record audit datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newPreviewCommand())
	rootCmd.AddCommand(newConvertCommand())
	rootCmd.AddCommand(newWorksheetsCommand(ctx))
	rootCmd.AddCommand(newPullCommand(ctx))

	return rootCmd
}
