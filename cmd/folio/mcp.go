package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/folio/internal/app"
)

// mcpCmd serves the MCP tools over stdio for desktop MCP clients.
type mcpCmd struct{}

func (*mcpCmd) Name() string     { return "mcp" }
func (*mcpCmd) Synopsis() string { return "serve the MCP tools over stdio" }
func (*mcpCmd) Usage() string {
	return `folio mcp

  Runs the MCP server on stdin/stdout. Logs go to stderr.
`
}

func (*mcpCmd) SetFlags(*flag.FlagSet) {}

func (*mcpCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app.App) error {
		a.StartWarmCache()
		return server.ServeStdio(a.MCPServer)
	})
}
