package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/reedham/tether/pkg/engine"
	"github.com/reedham/tether/pkg/tools/mcpserver"
	"github.com/reedham/tether/pkg/tools/websearch"
)

// runMCP serves the bundled web_search and fetch_page tools over MCP stdio,
// so editors and other MCP clients can use them without running the chat UI.
// A missing config file is fine; search then defaults to DuckDuckGo.
func runMCP(configPath, tetherDirPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := engine.LoadConfig(resolveConfigPath(configPath, tetherDirPath))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	ws := websearch.New(searcherFromConfig(cfg.Search), nil)

	srv := mcpserver.New("tether", "0.1.0")
	srv.RegisterBox(ws.Tools())

	return srv.Serve(ctx, os.Stdin, os.Stdout)
}

// searcherFromConfig picks the search backend the same way the engine does
// for its websearch toolbox.
func searcherFromConfig(sc engine.SearchConfig) websearch.Searcher {
	switch sc.Provider {
	case "tavily":
		t := websearch.NewTavily(sc.APIKey)
		if sc.Depth != "" {
			t.Depth = sc.Depth
		}
		if sc.MaxResults > 0 {
			t.MaxResults = sc.MaxResults
		}
		return t
	default:
		d := websearch.NewDuckDuckGo()
		if sc.MaxResults > 0 {
			d.MaxResults = sc.MaxResults
		}
		return d
	}
}
