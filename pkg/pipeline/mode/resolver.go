package mode

import (
	"ai-chatwidget-be/internal/config"
	"ai-chatwidget-be/internal/entity"
)

// Mode is the delivery mode for one send. Inline embedding and retrieval
// referencing cannot be mixed within one provider call, so every downstream
// component takes the resolved mode as input instead of re-deriving it.
type Mode string

const (
	Inline    Mode = "inline"
	Retrieval Mode = "retrieval"
)

// CapabilitySet is the one capability the resolver cares about. Satisfied by
// provider.Capabilities.
type CapabilitySet interface {
	SupportsRetrieval() bool
}

// Resolve decides the delivery mode for one send: retrieval is active iff the
// provider supports it AND global policy allows it for that provider AND the
// chat itself opted in. Any false input short-circuits to inline.
//
// Pure function; callers must not cache the result across sends since global
// policy can change between requests.
func Resolve(cfg *entity.ChatConfig, caps CapabilitySet, policy config.Policy) Mode {
	if caps == nil || !caps.SupportsRetrieval() {
		return Inline
	}
	if !policy.RetrievalAllowed(cfg.ProviderId) {
		return Inline
	}
	if !cfg.RetrievalEnabled {
		return Inline
	}
	return Retrieval
}
