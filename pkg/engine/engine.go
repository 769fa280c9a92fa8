package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reedham/tether/pkg/chats/chat"
	"github.com/reedham/tether/pkg/chats/message"
	"github.com/reedham/tether/pkg/chats/role"
	"github.com/reedham/tether/pkg/reasoner"
	"github.com/reedham/tether/pkg/runloop"
	"github.com/reedham/tether/pkg/tetherdir"
	"github.com/reedham/tether/pkg/tools/mcpclient"
	"github.com/reedham/tether/pkg/tools/notebook"
	"github.com/reedham/tether/pkg/tools/toolbox"
	"github.com/reedham/tether/pkg/tools/websearch"
)

// Toolbox and search provider names recognized in config.
const (
	websearchToolbox         = "websearch"
	notebookToolbox          = "notebook"
	searchProviderDuckDuckGo = "duckduckgo"
	searchProviderTavily     = "tavily"
)

// builtinToolboxNames are toolbox names provided by the engine itself rather
// than an MCP server.
var builtinToolboxNames = map[string]struct{}{
	websearchToolbox: {},
	notebookToolbox:  {},
}

// Engine is the composition root. It turns a validated Config into provider
// reasoners and toolboxes, and hands out Sessions that drive the agent loop.
type Engine struct {
	cfg        Config
	events     *EventBus
	store      *Store
	reasoners  map[string]reasoner.Reasoner
	toolboxes  map[string]*toolbox.ToolBox
	agents     map[string]agentBlueprint
	mcpClients []*mcpclient.Client

	mu       sync.Mutex
	sessions map[string]*Session
}

// agentBlueprint holds everything needed to assemble a fresh session loop for
// one configured agent.
type agentBlueprint struct {
	cfg          AgentConfig
	providerName string
	reasoner     reasoner.Reasoner
	tools        *toolbox.ToolBox
	notebook     bool
	opts         runloop.Options
}

// New creates an Engine from the given configuration. It validates the
// config, builds provider reasoners, connects MCP servers, assembles the
// bundled websearch toolbox, and prepares one loop blueprint per agent.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		events:    NewEventBus(),
		reasoners: make(map[string]reasoner.Reasoner, len(cfg.Providers)),
		toolboxes: make(map[string]*toolbox.ToolBox),
		agents:    make(map[string]agentBlueprint, len(cfg.Agents)),
		sessions:  make(map[string]*Session),
	}

	for _, pc := range cfg.Providers {
		r, err := buildReasoner(pc)
		if err != nil {
			return nil, fmt.Errorf("engine: provider %q: %w", pc.Name, err)
		}
		e.reasoners[pc.Name] = r
	}

	// Connect MCP servers. Each becomes a toolbox under its config name.
	for _, mc := range cfg.MCPServers {
		client, err := mcpclient.New(ctx, mc.Command, mc.Args...)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("engine: mcp %q: %w", mc.Name, err)
		}
		e.mcpClients = append(e.mcpClients, client)

		tb, err := client.Toolbox(ctx)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("engine: mcp %q: list tools: %w", mc.Name, err)
		}
		e.toolboxes[mc.Name] = tb
	}

	// The bundled web tools are always available; agents opt in by listing
	// the websearch toolbox.
	e.toolboxes[websearchToolbox] = websearch.New(buildSearcher(cfg.Search), nil).Tools()

	// Session persistence is optional: no tether directory, no store.
	if cfg.TetherDir != "" {
		e.store = NewStore(tetherdir.New(cfg.TetherDir).SessionsDir())
	}

	for _, ac := range cfg.Agents {
		bp, err := e.buildAgent(ac)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		e.agents[ac.Name] = bp
	}

	return e, nil
}

// Events returns the engine's event bus.
func (e *Engine) Events() *EventBus { return e.events }

// Store returns the session store, or nil when persistence is disabled.
func (e *Engine) Store() *Store { return e.store }

// NewSession creates a new session for the named agent. An empty name falls
// back to the config's entry_agent, then to the first configured agent.
func (e *Engine) NewSession(agentName string) (*Session, error) {
	if agentName == "" {
		agentName = e.cfg.EntryAgent
	}
	if agentName == "" && len(e.cfg.Agents) > 0 {
		agentName = e.cfg.Agents[0].Name
	}

	bp, ok := e.agents[agentName]
	if !ok {
		return nil, fmt.Errorf("engine: agent %q not found", agentName)
	}

	s := e.assemble(uuid.NewString(), bp, nil)

	e.mu.Lock()
	e.sessions[s.id] = s
	e.mu.Unlock()

	return s, nil
}

// ResumeSession loads a persisted session from the store and rebinds it to
// its agent's loop. It fails when persistence is disabled or the agent no
// longer exists in the config.
func (e *Engine) ResumeSession(id string) (*Session, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}

	rec, err := e.store.Load(id)
	if err != nil {
		return nil, err
	}

	bp, ok := e.agents[rec.Agent]
	if !ok {
		return nil, fmt.Errorf("engine: session %s: agent %q not found", id, rec.Agent)
	}

	s := e.assemble(rec.ID, bp, rec.Chat)
	s.created = rec.Created

	e.mu.Lock()
	e.sessions[s.id] = s
	e.mu.Unlock()

	return s, nil
}

// ListSessions returns the persisted sessions, most recently updated first.
func (e *Engine) ListSessions() ([]SessionRecord, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.List()
}

// Session returns an existing in-memory session by ID.
func (e *Engine) Session(id string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[id]
	return s, ok
}

// Close shuts down MCP clients and releases resources.
func (e *Engine) Close() error {
	var firstErr error
	for _, c := range e.mcpClients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// buildSearcher picks the web_search backend from config. DuckDuckGo is the
// default because it needs no API key.
func buildSearcher(sc SearchConfig) websearch.Searcher {
	switch sc.Provider {
	case searchProviderTavily:
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

// buildAgent resolves an agent config into the blueprint sessions are
// assembled from.
func (e *Engine) buildAgent(ac AgentConfig) (agentBlueprint, error) {
	// Default to the first provider, mirroring how entry_agent defaults.
	providerName := ac.Provider
	if providerName == "" && len(e.cfg.Providers) > 0 {
		providerName = e.cfg.Providers[0].Name
	}

	r, ok := e.reasoners[providerName]
	if !ok {
		return agentBlueprint{}, fmt.Errorf("engine: agent %q: provider %q not found", ac.Name, providerName)
	}

	tools := toolbox.New()
	notebook := false
	for _, name := range ac.Toolboxes {
		// Notes are session-scoped, so the notebook toolbox is built per
		// session in assemble instead of shared through the blueprint.
		if name == notebookToolbox {
			notebook = true
			continue
		}
		tb, ok := e.toolboxes[name]
		if !ok {
			return agentBlueprint{}, fmt.Errorf("engine: agent %q: toolbox %q not found", ac.Name, name)
		}
		tools.Merge(tb)
	}

	opts := runloop.Options{
		ToolBudget:         ac.Options.ToolBudget,
		MaxSteps:           ac.Options.MaxSteps,
		MaxConcurrentTools: ac.Options.MaxConcurrentTools,
		// Logging outside Recovery so a recovered panic still gets its
		// run-failed summary line.
		Middleware: []runloop.Middleware{
			runloop.Logging(ac.Name),
			runloop.Recovery(),
		},
	}
	if ac.Options.ToolTimeout != "" {
		d, err := time.ParseDuration(ac.Options.ToolTimeout)
		if err != nil {
			return agentBlueprint{}, fmt.Errorf("engine: agent %q: invalid tool_timeout %q: %w", ac.Name, ac.Options.ToolTimeout, err)
		}
		opts.ToolTimeout = d
	}

	return agentBlueprint{
		cfg:          ac,
		providerName: providerName,
		reasoner:     r,
		tools:        tools,
		notebook:     notebook,
		opts:         opts,
	}, nil
}

// assemble binds a blueprint to a concrete session. Each session gets its own
// loop and executor so tool events carry the session ID.
func (e *Engine) assemble(id string, bp agentBlueprint, restored *chat.Chat) *Session {
	tools := bp.tools
	if bp.notebook {
		// A fresh notebook per session keeps notes from leaking between
		// sessions of the same agent.
		tools = toolbox.New()
		tools.Merge(bp.tools)
		tools.Merge(notebook.New().Tools())
	}

	exec := &eventingExecutor{
		inner:   tools,
		events:  e.events,
		session: id,
		agent:   bp.cfg.Name,
	}

	loop := runloop.New(bp.cfg.Name, bp.reasoner, exec, bp.opts)
	loop.AddTools(tools.Tools()...)

	c := restored
	if c == nil {
		c = chat.New()
		if prompt := buildSystemPrompt(bp.cfg); prompt != "" {
			c.Append(message.NewText(bp.cfg.Name, role.System, prompt))
		}
	}

	return newSession(id, bp, loop, c, e.events, e.store)
}

// buildSystemPrompt assembles the agent's system message from its identity
// and instructions. An agent with neither description nor instructions gets
// no system message at all.
func buildSystemPrompt(ac AgentConfig) string {
	if ac.Description == "" && ac.Instructions == "" {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.", ac.Name)
	if ac.Description != "" {
		fmt.Fprintf(&b, " %s", ac.Description)
	}
	if ac.Instructions != "" {
		b.WriteString("\n\n")
		b.WriteString(ac.Instructions)
	}

	return b.String()
}
