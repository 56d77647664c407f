package core

import (
	"context"
)

// Message represents a conversation message with role and content
type Message struct {
	Role    string            `json:"role"`
	Content string            `json:"content"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Meta keys the runner reads from inputs or sets on outputs.
const (
	// MetaSessionID selects the conversation history a run continues.
	MetaSessionID = "session_id"
	// MetaReplaced is set on outputs whose text was substituted. The value
	// names the substitution: "before_model" or "after_model" for plugins,
	// ReplacedByProvider when the model itself refused.
	MetaReplaced = "replaced_by"
)

// ReplacedByProvider marks answers replaced because the model provider's own
// safety filter rejected the request.
const ReplacedByProvider = "provider_safety"

// ProviderRefusal is the answer given when the model provider refuses.
const ProviderRefusal = "I'm sorry, but I can't help with that request. Please rephrase your question or contact our support team."

// DefaultSessionID is used when an input carries no session id.
const DefaultSessionID = "default"

// Agent defines the core interface for AI agents
type Agent interface {
	// Run executes one reasoning-action loop with the given input and returns output
	Run(ctx context.Context, input Message) (Message, error)

	// RunStream executes the agent loop and streams responses via the provided channel
	RunStream(ctx context.Context, input Message, output chan<- Message) error
}

// AgentConfig holds configuration for creating agents
type AgentConfig struct {
	Name          string
	Description   string
	MaxIterations int
	Timeout       string
	SystemPrompt  string
}

func sessionOf(m Message) string {
	if id := m.Meta[MetaSessionID]; id != "" {
		return id
	}
	return DefaultSessionID
}
