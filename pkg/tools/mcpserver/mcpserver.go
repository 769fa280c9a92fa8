// Package mcpserver serves toolbox.Tools over the Model Context Protocol, so
// other MCP-speaking agents can use this process's tools (the `tether mcp`
// subcommand serves the bundled web tools this way).
package mcpserver

import (
	"context"
	"encoding/json"
	"io"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/reedham/tether/pkg/tools/toolbox"
)

// Server exposes registered tools over MCP using the official Go SDK.
type Server struct {
	server *mcp.Server
}

// New creates a Server with the given implementation name and version.
func New(name, version string) *Server {
	return &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    name,
			Version: version,
		}, nil),
	}
}

// Register adds tools to the server.
func (s *Server) Register(tools ...toolbox.Tool) {
	for _, t := range tools {
		s.server.AddTool(&mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		}, wrapHandler(t.Handler))
	}
}

// RegisterBox adds every tool from the ToolBox to the server.
func (s *Server) RegisterBox(tb *toolbox.ToolBox) {
	s.Register(tb.Tools()...)
}

// Serve reads MCP requests from in and writes responses to out. It blocks
// until ctx is cancelled or the transport closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return s.run(ctx, &mcp.IOTransport{
		Reader: io.NopCloser(in),
		Writer: writeNopCloser{out},
	})
}

// run starts the server with the given transport. Exported via Serve for
// production use; called directly by tests with InMemoryTransport.
func (s *Server) run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// wrapHandler adapts a toolbox.Handler to the SDK's ToolHandler. Handler
// errors become IsError results rather than protocol errors, matching how the
// ToolBox itself reports tool failure.
func wrapHandler(h toolbox.Handler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}

		text, err := h(ctx, args)
		if err != nil {
			return textResult(err.Error(), true), nil
		}
		return textResult(text, false), nil
	}
}

func textResult(text string, isErr bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isErr,
	}
}

// writeNopCloser wraps an io.Writer as an io.WriteCloser with a no-op Close.
type writeNopCloser struct {
	io.Writer
}

func (writeNopCloser) Close() error { return nil }
