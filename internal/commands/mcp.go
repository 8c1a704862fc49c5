package commands

import (
	"github.com/moasq/bundlepatch/internal/mcpserver"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "mcp",
		Short:  "Run the MCP server",
		Long:   "Starts an MCP server over stdio exposing redefine_macro and update_bundle_metadata as tool calls.",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcpserver.Run(cmd.Context(), Version)
		},
	}
}
