package main

import (
	"encoding/json"
	"fmt"
)

// toolFormatter produces a human-readable label from parsed tool arguments.
type toolFormatter func(str func(string) string, args map[string]any) string

// toolFormatters maps the bundled tool names to their formatters. MCP tools
// fall through to the generic name + args label.
var toolFormatters = map[string]toolFormatter{
	"web_search": func(s func(string) string, _ map[string]any) string {
		return fmt.Sprintf("Searching the web for %q", truncate(s("query"), 60))
	},
	"fetch_page": func(s func(string) string, _ map[string]any) string {
		return fmt.Sprintf("Fetching %q", truncate(s("url"), 80))
	},
	"write_note": func(s func(string) string, _ map[string]any) string {
		return fmt.Sprintf("Writing note %q", truncate(s("name"), 40))
	},
	"read_note": func(s func(string) string, _ map[string]any) string {
		return fmt.Sprintf("Reading note %q", truncate(s("name"), 40))
	},
	"list_notes": func(_ func(string) string, _ map[string]any) string {
		return "Listing notes"
	},
}

// formatToolCall returns a human-readable description of a tool invocation.
func formatToolCall(toolName, argsJSON string) string {
	var args map[string]any
	if argsJSON != "" {
		_ = json.Unmarshal([]byte(argsJSON), &args)
	}

	str := func(key string) string {
		if v, ok := args[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}

	if fn, ok := toolFormatters[toolName]; ok {
		return fn(str, args)
	}

	if argsJSON != "" {
		return fmt.Sprintf("Calling %s %s", toolName, truncate(argsJSON, 80))
	}
	return fmt.Sprintf("Calling %s", toolName)
}
