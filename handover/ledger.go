package handover

import (
	"context"
	"errors"
)

// =============================================================================
// 📒 Ownership Ledger
// =============================================================================

// Sentinel errors shared by all ledger implementations.
var (
	// ErrNotFound is returned by lookups that do not materialize defaults.
	ErrNotFound = errors.New("record not found")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("store is closed")
)

// Ledger is the authoritative record of conversation ownership.
//
// Get materializes a default bot-owned record for conversations that have
// never transitioned, so callers never see "missing" as a state. A non-empty
// accountID binds the conversation to that account; pass "" for pure reads.
//
// AppendTransition applies t atomically: if the conversation already has
// t.Owner, nothing is written and applied is false. Otherwise the current
// record is updated and t appended to the history in the same transaction.
// Concurrent appends for the same conversation linearize; duplicate requests
// produce exactly one history entry.
type Ledger interface {
	Get(ctx context.Context, conversationID, accountID string) (*ConversationOwnership, error)

	AppendTransition(ctx context.Context, conversationID, accountID string, t Transition) (rec *ConversationOwnership, applied bool, err error)

	// History returns the transition log, oldest first.
	History(ctx context.Context, conversationID string) ([]Transition, error)

	// ListBotOwned returns bot-owned conversations for the given accounts.
	ListBotOwned(ctx context.Context, accountIDs []string) ([]ConversationOwnership, error)
}
