// Package providers groups the concrete model provider reasoners.
//
// Sub-packages:
//   - [github.com/reedham/tether/pkg/providers/openai] — OpenAI Chat
//     Completions API, and through its baseURL any OpenAI-compatible endpoint
//   - [github.com/reedham/tether/pkg/providers/anthropic] — Anthropic
//     Messages API
//
// Each provider embeds modeladapter.ModelAdapter and implements
// reasoner.Reasoner by mapping its wire format onto a Decision.
package providers
