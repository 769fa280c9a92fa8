package engine

import (
	"cmp"
	"fmt"
	"sync"
	"time"

	"github.com/reedham/tether/pkg/modeladapter"
	"github.com/reedham/tether/pkg/providers/anthropic"
	"github.com/reedham/tether/pkg/providers/openai"
	"github.com/reedham/tether/pkg/reasoner"
)

// ProviderFactory creates a Reasoner from a ProviderConfig.
type ProviderFactory func(cfg ProviderConfig) (reasoner.Reasoner, error)

var (
	factoryMu sync.RWMutex
	factories = map[string]ProviderFactory{
		"anthropic": newAnthropic,
		"openai":    newOpenAI,
	}
)

// RegisterProvider registers a custom provider factory under the given kind,
// replacing any existing registration. Call it before New to extend the
// engine with additional providers.
func RegisterProvider(kind string, factory ProviderFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[kind] = factory
}

func factoryFor(kind string) (ProviderFactory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	f, ok := factories[kind]
	return f, ok
}

func newAnthropic(cfg ProviderConfig) (reasoner.Reasoner, error) {
	return anthropic.New(cmp.Or(cfg.BaseURL, "https://api.anthropic.com"), cfg.APIKey, cfg.Model), nil
}

// newOpenAI also covers OpenAI-compatible gateways: point base_url at any
// endpoint that speaks the Chat Completions wire format.
func newOpenAI(cfg ProviderConfig) (reasoner.Reasoner, error) {
	return openai.New(cmp.Or(cfg.BaseURL, "https://api.openai.com"), cfg.APIKey, cfg.Model), nil
}

// buildReasoner creates a Reasoner from a ProviderConfig via the registered
// factory for its Kind, wrapped with rate limiting when any limit is set.
// Errors carry no package prefix; New adds the provider context.
func buildReasoner(cfg ProviderConfig) (reasoner.Reasoner, error) {
	factory, ok := factoryFor(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}

	r, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	return wrapRateLimit(r, cfg.RateLimit)
}

func wrapRateLimit(r reasoner.Reasoner, rl RateLimitConfig) (reasoner.Reasoner, error) {
	if rl == (RateLimitConfig{}) {
		return r, nil
	}

	var baseDelay time.Duration
	if rl.BaseDelay != "" {
		d, err := time.ParseDuration(rl.BaseDelay)
		if err != nil {
			return nil, fmt.Errorf("invalid base_delay %q: %w", rl.BaseDelay, err)
		}
		baseDelay = d
	}

	return modeladapter.NewRateLimitedReasoner(r, modeladapter.RateLimitOpts{
		InputTPM:   rl.InputTPM,
		OutputTPM:  rl.OutputTPM,
		RPM:        rl.RPM,
		MaxRetries: rl.MaxRetries,
		BaseDelay:  baseDelay,
	}), nil
}
