package router

import (
	"context"

	"github.com/chatforge/switchboard/types"
)

// AgentRuntime generates bot replies. Switchboard does not run models
// itself; the runtime is an external service reached over HTTP in
// production and stubbed in tests.
type AgentRuntime interface {
	Generate(ctx context.Context, msg types.InboundMessage) (string, error)
}

// Messenger delivers outbound replies to the customer's channel.
type Messenger interface {
	Send(ctx context.Context, conversationID, accountID, content string) (*types.DeliveryResult, error)
}
