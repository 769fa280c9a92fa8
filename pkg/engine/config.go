package engine

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level engine configuration.
type Config struct {
	TetherDir  string           `yaml:"-"` // Set by the CLI, not from YAML.
	Providers  []ProviderConfig `yaml:"providers"`
	MCPServers []MCPConfig      `yaml:"mcp_servers"`
	Search     SearchConfig     `yaml:"search"`
	Agents     []AgentConfig    `yaml:"agents"`
	EntryAgent string           `yaml:"entry_agent"`
}

// ProviderConfig describes one model provider instance. Several instances may
// share a Kind, say two OpenAI-compatible gateways under different names.
type ProviderConfig struct {
	Name      string          `yaml:"name"`
	Kind      string          `yaml:"kind"`
	BaseURL   string          `yaml:"base_url"`
	APIKey    string          `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	Model     string          `yaml:"model"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds request flow toward one provider. Zero means
// unlimited for the rates; MaxRetries defaults to 3.
type RateLimitConfig struct {
	InputTPM   int    `yaml:"input_tpm"`   // Input tokens per minute.
	OutputTPM  int    `yaml:"output_tpm"`  // Output tokens per minute.
	RPM        int    `yaml:"rpm"`         // Requests per minute.
	MaxRetries int    `yaml:"max_retries"` // Retries after a 429.
	BaseDelay  string `yaml:"base_delay"`  // First backoff delay, e.g. "1s" or "500ms".
}

// MCPConfig names an MCP server the engine launches over stdio and exposes to
// agents as a toolbox.
type MCPConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// SearchConfig selects the backend behind the bundled web_search tool.
// APIKey and Depth only apply to the Tavily provider.
type SearchConfig struct {
	Provider   string `yaml:"provider"`    // "duckduckgo" (default, no key) or "tavily".
	APIKey     string `yaml:"api_key"`     //nolint:gosec // configuration field, not a hardcoded secret
	Depth      string `yaml:"depth"`       // "basic" or "advanced".
	MaxResults int    `yaml:"max_results"` // Result cap (0 = provider default).
}

// AgentConfig binds one loop: a provider, a set of toolboxes, and bounds.
type AgentConfig struct {
	Name         string       `yaml:"name"`
	Description  string       `yaml:"description"`
	Instructions string       `yaml:"instructions"`
	Provider     string       `yaml:"provider"`
	Toolboxes    []string     `yaml:"toolboxes"`
	Options      AgentOptions `yaml:"options"`
}

// AgentOptions holds per-agent loop bounds. Zero values fall back to the
// runloop defaults.
type AgentOptions struct {
	ToolBudget         int    `yaml:"tool_budget"`          // Tool invocations allowed per run.
	MaxSteps           int    `yaml:"max_steps"`            // Reasoning steps allowed per run.
	ToolTimeout        string `yaml:"tool_timeout"`         // Per-call timeout as a duration string.
	MaxConcurrentTools int    `yaml:"max_concurrent_tools"` // Parallel tool calls per acting phase.
}

// LoadConfig reads and parses a YAML config file. ${VAR} and $VAR references
// are expanded from the environment first, so secrets can live in the
// environment (or a .env file) instead of the config itself.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent: every
// section's names are unique, and every cross-reference (agent to provider,
// agent to toolbox, entry_agent to agent) resolves.
func (c Config) Validate() error {
	if len(c.Providers) == 0 {
		return errors.New("engine: config: at least one provider must be configured")
	}
	if len(c.Agents) == 0 {
		return errors.New("engine: config: at least one agent must be configured")
	}

	providers, err := uniqueNames("provider", len(c.Providers), func(i int) string { return c.Providers[i].Name })
	if err != nil {
		return err
	}
	for _, p := range c.Providers {
		if p.Kind == "" {
			return fmt.Errorf("engine: config: provider %q: kind must be set", p.Name)
		}
	}

	servers, err := uniqueNames("mcp server", len(c.MCPServers), func(i int) string { return c.MCPServers[i].Name })
	if err != nil {
		return err
	}
	for _, m := range c.MCPServers {
		if m.Command == "" {
			return fmt.Errorf("engine: config: mcp server %q: command must be set", m.Name)
		}
	}

	if err := c.Search.validate(); err != nil {
		return err
	}

	agents, err := uniqueNames("agent", len(c.Agents), func(i int) string { return c.Agents[i].Name })
	if err != nil {
		return err
	}
	for _, a := range c.Agents {
		if err := a.validate(providers, servers); err != nil {
			return err
		}
	}

	if c.EntryAgent != "" {
		if _, ok := agents[c.EntryAgent]; !ok {
			return fmt.Errorf("engine: config: entry_agent %q does not match any agent", c.EntryAgent)
		}
	}

	return nil
}

// uniqueNames collects the names of one config section, rejecting blank and
// duplicate entries.
func uniqueNames(section string, n int, name func(int) string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, n)
	for i := range n {
		nm := name(i)
		if nm == "" {
			return nil, fmt.Errorf("engine: config: %s %d: name must be set", section, i)
		}
		if _, dup := set[nm]; dup {
			return nil, fmt.Errorf("engine: config: duplicate %s name %q", section, nm)
		}
		set[nm] = struct{}{}
	}
	return set, nil
}

func (a AgentConfig) validate(providers, servers map[string]struct{}) error {
	if a.Provider != "" {
		if _, ok := providers[a.Provider]; !ok {
			return fmt.Errorf("engine: config: agent %q references unknown provider %q", a.Name, a.Provider)
		}
	}

	for _, tb := range a.Toolboxes {
		if _, builtin := builtinToolboxNames[tb]; builtin {
			continue
		}
		if _, ok := servers[tb]; !ok {
			return fmt.Errorf("engine: config: agent %q references unknown toolbox %q", a.Name, tb)
		}
	}

	if err := a.Options.validate(); err != nil {
		return fmt.Errorf("engine: config: agent %q: %w", a.Name, err)
	}
	return nil
}

func (s SearchConfig) validate() error {
	switch s.Provider {
	case "", searchProviderDuckDuckGo:
	case searchProviderTavily:
		if s.APIKey == "" {
			return fmt.Errorf("engine: config: search provider %q requires api_key", s.Provider)
		}
	default:
		return fmt.Errorf("engine: config: unknown search provider %q", s.Provider)
	}

	if s.MaxResults < 0 {
		return errors.New("engine: config: search max_results must not be negative")
	}
	return nil
}

func (o AgentOptions) validate() error {
	if o.ToolBudget < 0 {
		return errors.New("tool_budget must not be negative")
	}
	if o.MaxSteps < 0 {
		return errors.New("max_steps must not be negative")
	}
	if o.MaxConcurrentTools < 0 {
		return errors.New("max_concurrent_tools must not be negative")
	}
	if o.ToolTimeout != "" {
		if _, err := time.ParseDuration(o.ToolTimeout); err != nil {
			return fmt.Errorf("invalid tool_timeout %q: %w", o.ToolTimeout, err)
		}
	}
	return nil
}
