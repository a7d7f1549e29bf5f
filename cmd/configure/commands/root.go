package commands

import "github.com/spf13/cobra"

// NewRootCmd assembles the embody-configure command tree
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "embody-configure",
		Short:         "Configuration tool for the Embody API",
		Long:          "Manage runtime CORS and rate limit settings and inspect or repair user data.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(NewCorsCmd(open))
	root.AddCommand(NewRatelimitCmd(open))
	root.AddCommand(NewUserCmd(open))
	root.AddCommand(NewHistoryCmd(open))
	root.AddCommand(NewRolloverCmd(open))
	return root
}
