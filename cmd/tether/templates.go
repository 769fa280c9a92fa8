package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// templateProviderSlot is a named hole in a template that the wizard fills
// with one of the user's configured providers.
type templateProviderSlot struct {
	Name        string
	Description string
}

type templateAgent struct {
	Name               string
	Description        string
	Instructions       string
	ProviderSlot       string
	Toolboxes          []string
	ToolBudget         string
	MaxSteps           string
	ToolTimeout        string
	MaxConcurrentTools string
}

type configTemplate struct {
	Name        string
	Description string
	Slots       []templateProviderSlot
	Search      wizardSearch
	Agents      []templateAgent
	EntryAgent  string
}

var assistantTemplate = configTemplate{
	Name:        "assistant",
	Description: "Single agent with web search over DuckDuckGo — no extra API keys",
	Slots: []templateProviderSlot{
		{Name: "primary", Description: "The model provider for the assistant"},
	},
	Agents: []templateAgent{
		{
			Name:         "assistant",
			Description:  "A helpful assistant",
			Instructions: "You are a helpful assistant. Be concise and accurate. Search the web when you are not sure.",
			ProviderSlot: "primary",
			Toolboxes:    []string{"websearch"},
		},
	},
	EntryAgent: "assistant",
}

var researcherTemplate = configTemplate{
	Name:        "researcher",
	Description: "Research agent on Tavily search plus a tool-free writer agent",
	Slots: []templateProviderSlot{
		{Name: "primary", Description: "The model provider for both agents"},
	},
	Search: wizardSearch{
		Provider: "tavily",
		APIKey:   "${TAVILY_API_KEY}",
		Depth:    "advanced",
	},
	Agents: []templateAgent{
		{
			Name:        "researcher",
			Description: "Investigates questions with web search",
			Instructions: "Research the question before answering. Search for primary sources, " +
				"fetch the pages that matter, and cite the URLs you relied on. " +
				"Keep running findings in notes so later turns can build on them.",
			ProviderSlot: "primary",
			Toolboxes:    []string{"websearch", "notebook"},
			ToolBudget:   "8",
			MaxSteps:     "16",
		},
		{
			Name:         "writer",
			Description:  "Turns notes into polished prose",
			Instructions: "Rewrite what you are given for clarity and flow. Do not add new claims.",
			ProviderSlot: "primary",
		},
	},
	EntryAgent: "researcher",
}

var templates = []configTemplate{assistantTemplate, researcherTemplate}

func findTemplate(name string) *configTemplate {
	for i := range templates {
		if templates[i].Name == name {
			return &templates[i]
		}
	}

	return nil
}

func printTemplateList() {
	fmt.Println("Available templates:")
	fmt.Println()

	for _, t := range templates {
		fmt.Printf("  %s\n", t.Name)
		fmt.Printf("    %s\n", t.Description)

		fmt.Printf("    Slots:  ")
		for i, s := range t.Slots {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Printf("%s (%s)", s.Name, s.Description)
		}
		fmt.Println()

		fmt.Printf("    Agents: ")
		for i, a := range t.Agents {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Print(a.Name)
		}
		fmt.Println()
		fmt.Println()
	}
}

// wizardSlotMapping asks which configured provider fills each template slot.
func wizardSlotMapping(slots []templateProviderSlot, providerNames []string) (map[string]string, error) {
	mapping := make(map[string]string, len(slots))

	// Auto-map when there's exactly 1 slot and 1 provider.
	if len(slots) == 1 && len(providerNames) == 1 {
		mapping[slots[0].Name] = providerNames[0]
		return mapping, nil
	}

	opts := make([]huh.Option[string], len(providerNames))
	for i, n := range providerNames {
		opts[i] = huh.NewOption(n, n)
	}

	for _, slot := range slots {
		var selected string
		if len(providerNames) > 0 {
			selected = providerNames[0]
		}

		if err := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Provider for %q slot (%s)", slot.Name, slot.Description)).
				Options(opts...).
				Value(&selected),
		)).Run(); err != nil {
			return nil, err
		}

		mapping[slot.Name] = selected
	}

	return mapping, nil
}

func applyTemplate(tmpl *configTemplate, providers []wizardProvider, slotMapping map[string]string) wizardConfig {
	cfg := wizardConfig{
		Providers:  providers,
		Search:     tmpl.Search,
		EntryAgent: tmpl.EntryAgent,
	}

	for _, ta := range tmpl.Agents {
		cfg.Agents = append(cfg.Agents, wizardAgent{
			Name:               ta.Name,
			Description:        ta.Description,
			Instructions:       ta.Instructions,
			Provider:           slotMapping[ta.ProviderSlot],
			Toolboxes:          ta.Toolboxes,
			ToolBudget:         ta.ToolBudget,
			MaxSteps:           ta.MaxSteps,
			ToolTimeout:        ta.ToolTimeout,
			MaxConcurrentTools: ta.MaxConcurrentTools,
		})
	}

	return cfg
}

func runTemplateWizard(tmpl *configTemplate) ([]byte, error) {
	var cfg wizardConfig

	if err := wizardProviders(&cfg); err != nil {
		return nil, err
	}

	providerNames := make([]string, len(cfg.Providers))
	for i, p := range cfg.Providers {
		providerNames[i] = p.Name
	}

	slotMapping, err := wizardSlotMapping(tmpl.Slots, providerNames)
	if err != nil {
		return nil, err
	}

	applied := applyTemplate(tmpl, cfg.Providers, slotMapping)

	return marshalWizardConfig(applied)
}
