package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"
)

// Wizard answer types. Numeric fields are strings because huh inputs edit
// text; they are converted during marshalling.

type wizardProvider struct {
	Kind       string
	Name       string
	BaseURL    string
	APIKey     string //nolint:gosec // env var reference, not a secret
	Model      string
	InputTPM   string
	OutputTPM  string
	RPM        string
	MaxRetries string
	BaseDelay  string
}

type wizardMCP struct {
	Name    string
	Command string
	Args    string // space-separated, split during marshalling
}

type wizardSearch struct {
	Provider   string
	APIKey     string //nolint:gosec // env var reference, not a secret
	Depth      string
	MaxResults string
}

type wizardAgent struct {
	Name               string
	Description        string
	Instructions       string
	Provider           string
	Toolboxes          []string
	ToolBudget         string
	MaxSteps           string
	ToolTimeout        string
	MaxConcurrentTools string
}

type wizardConfig struct {
	Providers  []wizardProvider
	MCPServers []wizardMCP
	Search     wizardSearch
	Agents     []wizardAgent
	EntryAgent string
}

type providerDefault struct {
	APIKey string //nolint:gosec // env var reference template, not a hardcoded secret
	Model  string
}

//nolint:gosec // env var reference templates, not hardcoded secrets
var providerDefaults = map[string]providerDefault{
	"anthropic": {APIKey: "${ANTHROPIC_API_KEY}", Model: "claude-sonnet-4-20250514"},
	"openai":    {APIKey: "${OPENAI_API_KEY}", Model: "gpt-4o-mini"},
}

func runWizard() ([]byte, error) {
	var cfg wizardConfig

	if err := wizardProviders(&cfg); err != nil {
		return nil, err
	}

	if err := wizardSearchBackend(&cfg); err != nil {
		return nil, err
	}

	if err := wizardMCPServers(&cfg); err != nil {
		return nil, err
	}

	if err := wizardAgents(&cfg); err != nil {
		return nil, err
	}

	if err := wizardEntryAgent(&cfg); err != nil {
		return nil, err
	}

	return marshalWizardConfig(cfg)
}

func wizardProviders(cfg *wizardConfig) error {
	for {
		p, err := wizardPromptProvider()
		if err != nil {
			return err
		}

		cfg.Providers = append(cfg.Providers, p)

		var more bool
		if err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().Title("Add another provider?").Value(&more),
		)).Run(); err != nil {
			return err
		}

		if !more {
			return nil
		}
	}
}

func wizardPromptProvider() (wizardProvider, error) {
	var p wizardProvider

	if err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Provider kind").
			Options(
				huh.NewOption("Anthropic", "anthropic"),
				huh.NewOption("OpenAI (or compatible)", "openai"),
			).
			Value(&p.Kind),
	)).Run(); err != nil {
		return p, err
	}

	defaults := providerDefaults[p.Kind]
	p.Name = p.Kind
	p.APIKey = defaults.APIKey
	p.Model = defaults.Model

	if err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Provider name").Value(&p.Name),
		huh.NewInput().Title("API key env var").Value(&p.APIKey),
		huh.NewInput().Title("Model").Value(&p.Model),
		huh.NewInput().Title("Base URL (empty = official endpoint)").Value(&p.BaseURL),
	)).Run(); err != nil {
		return p, err
	}

	var configRL bool
	if err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title("Configure rate limiting?").Value(&configRL),
	)).Run(); err != nil {
		return p, err
	}

	if configRL {
		p.InputTPM = "0"
		p.OutputTPM = "0"
		p.RPM = "0"
		p.MaxRetries = "3"
		p.BaseDelay = "1s"

		if err := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Input tokens per minute (0 = no limit)").Value(&p.InputTPM).Validate(validateNonNegativeInt),
			huh.NewInput().Title("Output tokens per minute (0 = no limit)").Value(&p.OutputTPM).Validate(validateNonNegativeInt),
			huh.NewInput().Title("Requests per minute (0 = no limit)").Value(&p.RPM).Validate(validateNonNegativeInt),
			huh.NewInput().Title("Max retries on 429").Value(&p.MaxRetries).Validate(validateNonNegativeInt),
			huh.NewInput().Title("Base backoff delay (e.g. 1s, 500ms)").Value(&p.BaseDelay).Validate(validateDuration),
		)).Run(); err != nil {
			return p, err
		}
	}

	return p, nil
}

func wizardSearchBackend(cfg *wizardConfig) error {
	if err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Web search backend").
			Options(
				huh.NewOption("DuckDuckGo (no API key)", "duckduckgo"),
				huh.NewOption("Tavily (API key required)", "tavily"),
			).
			Value(&cfg.Search.Provider),
	)).Run(); err != nil {
		return err
	}

	if cfg.Search.Provider != "tavily" {
		return nil
	}

	cfg.Search.APIKey = "${TAVILY_API_KEY}"
	cfg.Search.Depth = "basic"
	cfg.Search.MaxResults = ""

	return huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Tavily API key env var").Value(&cfg.Search.APIKey),
		huh.NewSelect[string]().
			Title("Search depth").
			Options(
				huh.NewOption("Basic", "basic"),
				huh.NewOption("Advanced", "advanced"),
			).
			Value(&cfg.Search.Depth),
		huh.NewInput().Title("Max results (empty = default)").Value(&cfg.Search.MaxResults).Validate(validateOptionalNonNegativeInt),
	)).Run()
}

func wizardMCPServers(cfg *wizardConfig) error {
	for {
		var more bool
		title := "Add an MCP server?"
		if len(cfg.MCPServers) > 0 {
			title = "Add another MCP server?"
		}
		if err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().Title(title).Value(&more),
		)).Run(); err != nil {
			return err
		}

		if !more {
			return nil
		}

		var m wizardMCP
		if err := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Server name (also the toolbox name)").Value(&m.Name),
			huh.NewInput().Title("Command").Value(&m.Command),
			huh.NewInput().Title("Arguments (space-separated)").Value(&m.Args),
		)).Run(); err != nil {
			return err
		}

		cfg.MCPServers = append(cfg.MCPServers, m)
	}
}

func wizardAgents(cfg *wizardConfig) error {
	providerNames := make([]string, len(cfg.Providers))
	for i, p := range cfg.Providers {
		providerNames[i] = p.Name
	}

	mcpNames := make([]string, len(cfg.MCPServers))
	for i, m := range cfg.MCPServers {
		mcpNames[i] = m.Name
	}

	for {
		a, err := wizardPromptAgent(providerNames, mcpNames)
		if err != nil {
			return err
		}

		cfg.Agents = append(cfg.Agents, a)

		var more bool
		if err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().Title("Add another agent?").Value(&more),
		)).Run(); err != nil {
			return err
		}

		if !more {
			return nil
		}
	}
}

func wizardPromptAgent(providerNames, mcpNames []string) (wizardAgent, error) {
	a := wizardAgent{
		Name:         "assistant",
		Description:  "A helpful assistant",
		Instructions: "You are a helpful assistant. Be concise and accurate.",
		Toolboxes:    []string{"websearch"},
		ToolBudget:   "",
		MaxSteps:     "",
	}

	if len(providerNames) > 0 {
		a.Provider = providerNames[0]
	}

	provOpts := make([]huh.Option[string], len(providerNames))
	for i, n := range providerNames {
		provOpts[i] = huh.NewOption(n, n)
	}

	tbOpts := []huh.Option[string]{
		huh.NewOption("Web search", "websearch").Selected(true),
		huh.NewOption("Session notebook", "notebook"),
	}
	for _, n := range mcpNames {
		tbOpts = append(tbOpts, huh.NewOption("MCP: "+n, n))
	}

	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Agent name").Value(&a.Name),
		huh.NewInput().Title("Description").Value(&a.Description),
		huh.NewText().Title("Instructions").Value(&a.Instructions),
		huh.NewSelect[string]().Title("Provider").Options(provOpts...).Value(&a.Provider),
		huh.NewMultiSelect[string]().Title("Toolboxes").Options(tbOpts...).Value(&a.Toolboxes),
		huh.NewInput().Title("Tool budget per run (empty = default)").Value(&a.ToolBudget).Validate(validateOptionalNonNegativeInt),
		huh.NewInput().Title("Max reasoning steps per run (empty = default)").Value(&a.MaxSteps).Validate(validateOptionalNonNegativeInt),
		huh.NewInput().Title("Per-tool timeout (empty = default)").Value(&a.ToolTimeout).Validate(validateDuration),
		huh.NewInput().Title("Max concurrent tool calls (empty = default)").Value(&a.MaxConcurrentTools).Validate(validateOptionalNonNegativeInt),
	)).Run()
	if err != nil {
		return a, err
	}

	return a, nil
}

func wizardEntryAgent(cfg *wizardConfig) error {
	if len(cfg.Agents) == 1 {
		cfg.EntryAgent = cfg.Agents[0].Name
		return nil
	}

	opts := make([]huh.Option[string], len(cfg.Agents))
	for i, a := range cfg.Agents {
		opts[i] = huh.NewOption(a.Name, a.Name)
	}

	return huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Which agent should be the entry point?").
			Options(opts...).
			Value(&cfg.EntryAgent),
	)).Run()
}

func validateNonNegativeInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}

	return nil
}

func validateOptionalNonNegativeInt(s string) error {
	if s == "" {
		return nil
	}

	return validateNonNegativeInt(s)
}

func validateDuration(s string) error {
	if s == "" {
		return nil
	}

	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("must be a valid duration (e.g. 1s, 500ms)")
	}

	return nil
}

// YAML output types. Separate from engine.Config so the generated file uses
// omitempty and leaves defaults out entirely.

type configOutYAML struct {
	Providers  []providerYAML `yaml:"providers"`
	MCPServers []mcpYAML      `yaml:"mcp_servers,omitempty"`
	Search     *searchYAML    `yaml:"search,omitempty"`
	Agents     []agentYAML    `yaml:"agents"`
	EntryAgent string         `yaml:"entry_agent"`
}

type providerYAML struct {
	Name      string         `yaml:"name"`
	Kind      string         `yaml:"kind"`
	BaseURL   string         `yaml:"base_url,omitempty"`
	APIKey    string         `yaml:"api_key"` //nolint:gosec // env var reference, not a secret
	Model     string         `yaml:"model"`
	RateLimit *rateLimitYAML `yaml:"rate_limit,omitempty"`
}

type rateLimitYAML struct {
	InputTPM   int    `yaml:"input_tpm,omitempty"`
	OutputTPM  int    `yaml:"output_tpm,omitempty"`
	RPM        int    `yaml:"rpm,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
	BaseDelay  string `yaml:"base_delay,omitempty"`
}

type mcpYAML struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

type searchYAML struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key,omitempty"` //nolint:gosec // env var reference, not a secret
	Depth      string `yaml:"depth,omitempty"`
	MaxResults int    `yaml:"max_results,omitempty"`
}

type agentYAML struct {
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	Instructions string         `yaml:"instructions"`
	Provider     string         `yaml:"provider"`
	Toolboxes    []string       `yaml:"toolboxes,omitempty"`
	Options      *agentOptsYAML `yaml:"options,omitempty"`
}

type agentOptsYAML struct {
	ToolBudget         int    `yaml:"tool_budget,omitempty"`
	MaxSteps           int    `yaml:"max_steps,omitempty"`
	ToolTimeout        string `yaml:"tool_timeout,omitempty"`
	MaxConcurrentTools int    `yaml:"max_concurrent_tools,omitempty"`
}

func marshalWizardConfig(cfg wizardConfig) ([]byte, error) {
	yc := configOutYAML{
		EntryAgent: cfg.EntryAgent,
	}

	for _, p := range cfg.Providers {
		py := providerYAML{
			Name:    p.Name,
			Kind:    p.Kind,
			BaseURL: p.BaseURL,
			APIKey:  p.APIKey,
			Model:   p.Model,
		}

		inputTPM, _ := strconv.Atoi(p.InputTPM)
		outputTPM, _ := strconv.Atoi(p.OutputTPM)
		rpm, _ := strconv.Atoi(p.RPM)
		maxRetries, _ := strconv.Atoi(p.MaxRetries)

		if inputTPM > 0 || outputTPM > 0 || rpm > 0 || maxRetries > 0 || p.BaseDelay != "" {
			py.RateLimit = &rateLimitYAML{
				InputTPM:   inputTPM,
				OutputTPM:  outputTPM,
				RPM:        rpm,
				MaxRetries: maxRetries,
				BaseDelay:  p.BaseDelay,
			}
		}

		yc.Providers = append(yc.Providers, py)
	}

	for _, m := range cfg.MCPServers {
		yc.MCPServers = append(yc.MCPServers, mcpYAML{
			Name:    m.Name,
			Command: m.Command,
			Args:    strings.Fields(m.Args),
		})
	}

	if cfg.Search.Provider != "" && cfg.Search.Provider != "duckduckgo" {
		maxResults, _ := strconv.Atoi(cfg.Search.MaxResults)
		yc.Search = &searchYAML{
			Provider:   cfg.Search.Provider,
			APIKey:     cfg.Search.APIKey,
			Depth:      cfg.Search.Depth,
			MaxResults: maxResults,
		}
	}

	for _, a := range cfg.Agents {
		ay := agentYAML{
			Name:         a.Name,
			Description:  a.Description,
			Instructions: a.Instructions,
			Provider:     a.Provider,
			Toolboxes:    a.Toolboxes,
		}

		toolBudget, _ := strconv.Atoi(a.ToolBudget)
		maxSteps, _ := strconv.Atoi(a.MaxSteps)
		maxConc, _ := strconv.Atoi(a.MaxConcurrentTools)

		if toolBudget > 0 || maxSteps > 0 || maxConc > 0 || a.ToolTimeout != "" {
			ay.Options = &agentOptsYAML{
				ToolBudget:         toolBudget,
				MaxSteps:           maxSteps,
				ToolTimeout:        a.ToolTimeout,
				MaxConcurrentTools: maxConc,
			}
		}

		yc.Agents = append(yc.Agents, ay)
	}

	return yaml.Marshal(yc)
}
