// Package agent exposes test discovery and execution as MCP (Model Context
// Protocol) tools, so an AI assistant can list and run the tests of a module.
//
// The server speaks MCP over stdio:
//
//	runner := execution.NewRunner(module, conv)
//	srv := agent.NewServer(runner, "1.0.0")
//	if err := srv.ServeStdio(); err != nil {
//	    log.Fatal(err)
//	}
package agent

import (
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"conventest/internal/execution"
	"conventest/pkg/logging"
)

const (
	// ServerName is reported to MCP clients during the handshake.
	ServerName = "conventest"

	ToolDiscover = "test_discover"
	ToolRun      = "test_run"
)

// Server serves the test tools of one runner.
type Server struct {
	runner *execution.Runner
	mcp    *server.MCPServer

	// Runs swap os.Stdout while capturing case output, so they never overlap.
	runMu sync.Mutex
}

// NewServer creates an MCP server for runner.
func NewServer(runner *execution.Runner, version string) *Server {
	s := &Server{
		runner: runner,
		mcp: server.NewMCPServer(
			ServerName,
			version,
			server.WithToolCapabilities(true),
		),
	}
	for _, tool := range s.tools() {
		s.mcp.AddTool(tool.Tool, tool.Handler)
	}
	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves MCP requests on stdin/stdout until stdin closes.
func (s *Server) ServeStdio() error {
	logging.Info("Agent", "Serving %s tools for module %s over stdio", ServerName, s.runner.Module().Name)
	return server.ServeStdio(s.mcp)
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool(ToolDiscover,
				mcp.WithDescription("List every test case the convention discovers in the module"),
			),
			Handler: s.handleDiscover,
		},
		{
			Tool: mcp.NewTool(ToolRun,
				mcp.WithDescription("Run tests and return the summary and every case result"),
				mcp.WithArray("tests",
					mcp.Description("Tests to run as Class.Method names; all tests run when omitted"),
					mcp.Items(map[string]any{"type": "string"}),
				),
			),
			Handler: s.handleRun,
		},
	}
}
