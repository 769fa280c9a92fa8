// Package modeladapter provides the shared plumbing for model-backed
// reasoners.
//
// It contains:
//   - the embeddable [ModelAdapter] base struct with HTTP and WebSocket
//     helpers, auth, custom headers, and token usage tracking
//   - [RateLimitedReasoner] — a decorator adding TPM/RPM throttling and 429
//     retry around any [github.com/reedham/tether/pkg/reasoner.Reasoner]
//   - [TokenEstimator] — heuristic input-token estimation for conversations
//     and tool declarations
//   - [github.com/reedham/tether/pkg/modeladapter/usage] — thread-safe token
//     usage tracker
//
// Model configuration (name, temperature, max tokens) is inlined on the
// ModelAdapter struct. This package contains no provider-specific code;
// concrete providers live in separate packages that import modeladapter.
package modeladapter
