package handover

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// 🔀 Ownership Types
// =============================================================================

// Owner identifies which party currently controls a conversation.
type Owner string

const (
	// OwnerBot means the automated agent replies to inbound messages.
	OwnerBot Owner = "bot"

	// OwnerHuman means a human operator controls the conversation and the
	// bot must stay silent.
	OwnerHuman Owner = "human"
)

// Valid reports whether o is a known owner value.
func (o Owner) Valid() bool {
	return o == OwnerBot || o == OwnerHuman
}

// Transition reasons recorded in the audit history. Free-form reasons are
// allowed; these constants cover the ones switchboard itself writes.
const (
	ReasonManual          = "manual"
	ReasonAgentDisabled   = "agent_disabled"
	ReasonOperatorRequest = "operator_request"
)

// Actor values for transitions initiated by the system itself.
const (
	ActorSystem = "system"
)

// Transition is one entry in a conversation's append-only ownership history.
type Transition struct {
	ID             uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	ConversationID string    `gorm:"index;not null" json:"conversation_id"`

	// Owner is the owner this transition switched the conversation TO.
	Owner Owner `gorm:"not null" json:"owner"`

	// Operator is the human operator assigned by the transition. Empty for
	// transitions to bot ownership.
	Operator string `json:"operator,omitempty"`

	// Reason explains the transition, e.g. "manual" or "agent_disabled".
	Reason string `json:"reason"`

	// Actor is who requested the transition: an operator login or "system".
	Actor string `json:"actor"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the history table name aligned with the SQL migrations.
func (Transition) TableName() string {
	return "ownership_transitions"
}

// ConversationOwnership is the current ownership record of a conversation.
type ConversationOwnership struct {
	ConversationID string `gorm:"primaryKey" json:"conversation_id"`

	// AccountID ties the conversation to the messaging account (and through
	// it to the agent serving the conversation). May be empty until the
	// first inbound message binds it.
	AccountID string `gorm:"index" json:"account_id"`

	Owner Owner `gorm:"not null;default:bot" json:"owner"`

	// AssignedOperator is set while Owner is human.
	AssignedOperator string `json:"assigned_operator,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`

	History []Transition `gorm:"foreignKey:ConversationID;references:ConversationID" json:"history,omitempty"`
}

// =============================================================================
// 🤖 Agent Types
// =============================================================================

// AgentConfig is the configuration of an automated agent.
type AgentConfig struct {
	AgentID string `gorm:"primaryKey" json:"agent_id"`
	Name    string `json:"name"`
	Model   string `json:"model"`

	// IsActive gates all bot replies for conversations served by this agent.
	IsActive bool `json:"is_active"`

	// Version increases on every write. Consumers compare versions to detect
	// stale cached copies.
	Version int64 `gorm:"not null;default:1" json:"version"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Account is a customer messaging account on one platform. Conversations
// reach switchboard through an account, and the account names the agent
// that serves its conversations.
type Account struct {
	AccountID      string `gorm:"primaryKey" json:"account_id"`
	Platform       string `json:"platform"` // whatsapp, instagram
	DefaultAgentID string `gorm:"index" json:"default_agent_id"`
	Status         string `gorm:"default:active" json:"status"`
}

// =============================================================================
// ⚖️ Eligibility Types
// =============================================================================

// Disposition is the outcome of an eligibility evaluation.
type Disposition string

const (
	// Eligible means the bot may generate and send a reply.
	Eligible Disposition = "eligible"

	// NoAgent means the account has no agent configured.
	NoAgent Disposition = "no_agent"

	// AgentInactive means the agent exists but is deactivated.
	AgentInactive Disposition = "agent_inactive"

	// HumanOwned means a human operator owns the conversation.
	HumanOwned Disposition = "human_owned"
)

// Decision is the full result of an eligibility evaluation. Checks lists
// each probe in evaluation order with its boolean outcome, matching what
// the debug endpoint exposes.
type Decision struct {
	Disposition Disposition     `json:"disposition"`
	AgentID     string          `json:"agent_id,omitempty"`
	Owner       Owner           `json:"owner"`
	Checks      map[string]bool `json:"checks"`
}

// WouldRespond reports whether the bot would reply given this decision.
func (d Decision) WouldRespond() bool {
	return d.Disposition == Eligible
}
