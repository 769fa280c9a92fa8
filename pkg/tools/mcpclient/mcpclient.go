// Package mcpclient connects to Model Context Protocol servers and exposes
// their tools as toolbox.Tools, so an agent's tool surface can be extended
// from config without writing Go.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/reedham/tether/pkg/tools/toolbox"
)

const (
	clientName    = "tether"
	clientVersion = "0.1.0"
)

// Client is a connected MCP session backed by the official Go SDK.
type Client struct {
	session *mcp.ClientSession
}

// New spawns an MCP server process and returns a connected client. The SDK
// performs protocol initialization during Connect.
func New(ctx context.Context, command string, args ...string) (*Client, error) {
	transport := &mcp.CommandTransport{
		Command: exec.Command(command, args...), //nolint:gosec // command comes from the user's own config
	}

	return connect(ctx, transport)
}

// NewSSE connects to an SSE-based MCP server at the given URL.
func NewSSE(ctx context.Context, url string) (*Client, error) {
	return connect(ctx, &mcp.SSEClientTransport{Endpoint: url})
}

// connect opens a session over the given transport. Tests use it with
// InMemoryTransport.
func connect(ctx context.Context, transport mcp.Transport) (*Client, error) {
	impl := &mcp.Implementation{Name: clientName, Version: clientVersion}

	session, err := mcp.NewClient(impl, nil).Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect: %w", err)
	}

	return &Client{session: session}, nil
}

// ListTools fetches the server's tools and returns them as toolbox.Tools.
// Each Tool's handler closure calls back through CallTool.
func (c *Client) ListTools(ctx context.Context) ([]toolbox.Tool, error) {
	result, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: list tools: %w", err)
	}

	tools := make([]toolbox.Tool, 0, len(result.Tools))

	for _, st := range result.Tools {
		t, err := c.proxyTool(st)
		if err != nil {
			return nil, fmt.Errorf("mcpclient: convert tool %q: %w", st.Name, err)
		}

		tools = append(tools, t)
	}

	return tools, nil
}

// Toolbox fetches the server's tools into a ready-to-use ToolBox.
func (c *Client) Toolbox(ctx context.Context) (*toolbox.ToolBox, error) {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	tb := toolbox.New()
	tb.Register(tools...)

	return tb, nil
}

// CallTool calls a named tool on the server with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	args, err := decodeArgs(arguments)
	if err != nil {
		return "", err
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("mcpclient: call tool: %w", err)
	}

	text := textOf(result)
	if result.IsError {
		return "", fmt.Errorf("mcpclient: tool error: %s", text)
	}

	return text, nil
}

// Close terminates the session and releases resources. For command transports
// the SDK closes the child's stdin, waits with a timeout, and escalates
// through SIGTERM/SIGKILL, so no extra process cleanup is needed here.
func (c *Client) Close() error {
	return c.session.Close()
}

// proxyTool converts an SDK *mcp.Tool into a toolbox.Tool whose handler
// forwards to the server.
func (c *Client) proxyTool(st *mcp.Tool) (toolbox.Tool, error) {
	schema, err := json.Marshal(st.InputSchema)
	if err != nil {
		return toolbox.Tool{}, fmt.Errorf("marshal input schema: %w", err)
	}

	return toolbox.Tool{
		Name:        st.Name,
		Description: st.Description,
		InputSchema: schema,
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			return c.CallTool(ctx, st.Name, input)
		},
	}, nil
}

// decodeArgs turns the raw argument JSON into the map shape the SDK expects.
// Empty input stays nil.
func decodeArgs(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("mcpclient: unmarshal arguments: %w", err)
	}

	return args, nil
}

// textOf joins a result's text content items with newlines, skipping any
// non-text items.
func textOf(result *mcp.CallToolResult) string {
	var b strings.Builder

	for _, item := range result.Content {
		tc, ok := item.(*mcp.TextContent)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(tc.Text)
	}

	return b.String()
}
