package main

import (
	"github.com/spf13/cobra"
)

// Global flag values shared by the subcommands.
var (
	configFile string
	credential string
)

// NewRootCmd creates the root command for the autosign CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autosign",
		Short: "Daily forum check-in automation",
		Long: `autosign validates a session credential, lists the forums the
account follows and performs the daily check-in for each of them, with
retry, pacing and circuit breaking around every request.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&credential, "bduss", "", "session credential (overrides config and AUTOSIGN_BDUSS)")

	cmd.AddCommand(NewSignInCmd())
	cmd.AddCommand(NewForumsCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewVersionCmd(cmd))

	return cmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(root.Version)
		},
	}
}
