// Package engine is the composition root that assembles reasoners, toolboxes,
// and agent loops from configuration and exposes them through a
// frontend-agnostic API. Frontends interact with Engine and Session types,
// observe activity through an EventBus, and never wire lower-level packages
// directly.
package engine
