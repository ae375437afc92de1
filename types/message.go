package types

import "time"

// Direction indicates whether a message travelled from the customer to the
// platform or the other way around.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// InboundMessage is the normalized event delivered by the channel webhooks
// (WhatsApp, Instagram). Provider-specific payloads are flattened by the
// intake layer before they reach the processor.
type InboundMessage struct {
	ConversationID string    `json:"conversation_id"`
	AccountID      string    `json:"account_id"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	Direction      Direction `json:"direction"`
	Timestamp      time.Time `json:"timestamp"`
}

// Validate checks the fields the processor cannot work without.
func (m InboundMessage) Validate() error {
	if m.ConversationID == "" {
		return NewError(ErrInvalidRequest, "conversation_id is required")
	}
	if m.AccountID == "" {
		return NewError(ErrInvalidRequest, "account_id is required")
	}
	if m.Direction == "" {
		return NewError(ErrInvalidRequest, "direction is required")
	}
	return nil
}

// DeliveryResult is returned by the outbound delivery collaborator.
type DeliveryResult struct {
	MessageID   string    `json:"message_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}
