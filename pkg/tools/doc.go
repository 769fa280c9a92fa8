// Package tools provides tool execution, built-in tools, and MCP
// (Model Context Protocol) integration.
//
// It is organized into sub-packages:
//   - [github.com/reedham/tether/pkg/tools/toolbox] — Tool type and ToolBox for registering, listing, and executing tools
//   - [github.com/reedham/tether/pkg/tools/websearch] — built-in web search and page fetch tools
//   - [github.com/reedham/tether/pkg/tools/notebook] — session-scoped note keeping tools
//   - [github.com/reedham/tether/pkg/tools/mcpclient] — MCP client for importing tools from external MCP server processes
//   - [github.com/reedham/tether/pkg/tools/mcpserver] — MCP server for exposing a ToolBox over the MCP protocol
//
// The toolbox sub-package is the foundation layer; every other sub-package
// produces or consumes toolbox.Tool values. The mcpclient and mcpserver
// packages are thin wrappers around the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk).
package tools
