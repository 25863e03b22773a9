// Package cli implements the tempbox command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the root command.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tempbox",
		Short:         "Disposable mailboxes in your terminal",
		Long:          "tempbox manages disposable mail accounts and watches their inboxes live.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd)
		},
	}

	cmd.PersistentFlags().String("config", "", "Config file path")
	cmd.PersistentFlags().String("log-level", "", "Override log level (debug, info, warn, error)")

	cmd.AddCommand(
		newAccountsCmd(),
		newDomainsCmd(),
		newVersionCmd(version),
	)

	return cmd
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tempbox version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tempbox "+version)
		},
	}
}
