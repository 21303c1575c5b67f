package messaging

import (
	"context"

	"github.com/agentbus/agentbus-go/contracts"
)

// MessageHandler processes a message delivered to an agent. Handlers run
// synchronously on the delivering worker; an error or panic is reported as a
// delivery failure for that recipient only.
type MessageHandler interface {
	Handle(ctx context.Context, msg *contracts.Message) error
}

// MessageHandlerFunc is a function adapter for MessageHandler.
type MessageHandlerFunc func(ctx context.Context, msg *contracts.Message) error

// Handle implements MessageHandler.
func (f MessageHandlerFunc) Handle(ctx context.Context, msg *contracts.Message) error {
	return f(ctx, msg)
}

// AgentInfo describes one agent known to the directory. Metadata is
// application-defined and only consulted by property-filtered broadcasts.
type AgentInfo struct {
	ID       string
	Type     string
	Metadata map[string]string
}

// AgentDirectory is the registry/lifecycle collaborator. The messaging layer
// only reads from it; agent creation and destruction stay with the host
// application, which must call the container's AgentDestroyed hook when an
// agent goes away.
type AgentDirectory interface {
	// HasAgent reports whether the agent currently exists.
	HasAgent(id string) bool
	// Agent returns the agent's descriptor.
	Agent(id string) (AgentInfo, bool)
	// Agents lists all live agents.
	Agents() []AgentInfo
}
