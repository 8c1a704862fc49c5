// Package mcpserver exposes the macro redefiner and the bundle updater as
// MCP tools over stdio.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer returns a server with all tools registered. version is reported
// in the implementation info.
func NewServer(version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "bundlepatch",
			Version: version,
		},
		nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "redefine_macro",
		Description: "Rewrite every `#define KEY ...` line in a C header to `#define KEY \"value\"`. A `<file>-backup` copy is taken the first time a file is patched and never refreshed. Zero matching lines is not an error; check `matched` in the result.",
	}, handleRedefine)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_bundle_metadata",
		Description: "Set the product name and bundle identifier in an Xcode project.pbxproj, then update CFBundleExecutable, CFBundleIdentifier, CFBundleName, CFBundleVersion, CFBundleShortVersionString and CFBundleGetInfoString in Info.plist. Pass team and minimum together to also configure signing and MACOSX_DEPLOYMENT_TARGET. The project is saved before Info.plist is read; if the Get Info string has no version token the call fails with the project already updated.",
	}, handleUpdateBundle)

	return server
}

// Run serves the tools over stdin/stdout until ctx is done or the client
// disconnects.
func Run(ctx context.Context, version string) error {
	return NewServer(version).Run(ctx, &mcp.StdioTransport{})
}
