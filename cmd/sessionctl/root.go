package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the sessionctl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessionctl",
		Short: "sessionctl - sign in and chat from the terminal",
		Long: `sessionctl talks to the chat backend the same way the web client does:
it signs in, keeps the access token in a local session store, and ends the
session when the server rejects it.`,
		SilenceUsage: true,
	}

	registerGlobalFlags(cmd.PersistentFlags())

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}
