package handover

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// 🧠 In-Memory Ledger
// =============================================================================

const memoryLedgerStripes = 64

// MemoryLedger is a Ledger backed by process memory. It is the development
// and test backend; production deployments use GormLedger.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[string]*ConversationOwnership
	history map[string][]Transition
	closed  bool

	// stripes serialize appends per conversation so concurrent duplicate
	// transitions collapse to a single history entry.
	stripes [memoryLedgerStripes]sync.Mutex
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: make(map[string]*ConversationOwnership),
		history: make(map[string][]Transition),
	}
}

func (l *MemoryLedger) stripe(conversationID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(conversationID))
	return &l.stripes[h.Sum32()%memoryLedgerStripes]
}

// Get returns the ownership record, materializing a bot-owned default for
// unknown conversations.
func (l *MemoryLedger) Get(ctx context.Context, conversationID, accountID string) (*ConversationOwnership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrStoreClosed
	}

	rec, ok := l.records[conversationID]
	if !ok {
		rec = &ConversationOwnership{
			ConversationID: conversationID,
			AccountID:      accountID,
			Owner:          OwnerBot,
			UpdatedAt:      time.Now().UTC(),
		}
		l.records[conversationID] = rec
	} else if accountID != "" && rec.AccountID == "" {
		rec.AccountID = accountID
	}

	cp := *rec
	return &cp, nil
}

// AppendTransition applies t if it changes the owner.
func (l *MemoryLedger) AppendTransition(ctx context.Context, conversationID, accountID string, t Transition) (*ConversationOwnership, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s := l.stripe(conversationID)
	s.Lock()
	defer s.Unlock()

	rec, err := l.Get(ctx, conversationID, accountID)
	if err != nil {
		return nil, false, err
	}

	if rec.Owner == t.Owner {
		return rec, false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, false, ErrStoreClosed
	}

	stored := l.records[conversationID]
	stored.Owner = t.Owner
	stored.UpdatedAt = time.Now().UTC()
	if t.Owner == OwnerHuman {
		stored.AssignedOperator = t.Operator
	} else {
		stored.AssignedOperator = ""
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.ConversationID = conversationID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = stored.UpdatedAt
	}
	l.history[conversationID] = append(l.history[conversationID], t)

	cp := *stored
	return &cp, true, nil
}

// History returns the transition log, oldest first.
func (l *MemoryLedger) History(ctx context.Context, conversationID string) ([]Transition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrStoreClosed
	}

	entries := l.history[conversationID]
	out := make([]Transition, len(entries))
	copy(out, entries)
	return out, nil
}

// ListBotOwned returns bot-owned conversations for the given accounts.
func (l *MemoryLedger) ListBotOwned(ctx context.Context, accountIDs []string) ([]ConversationOwnership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrStoreClosed
	}

	wanted := make(map[string]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = struct{}{}
	}

	var out []ConversationOwnership
	for _, rec := range l.records {
		if rec.Owner != OwnerBot {
			continue
		}
		if _, ok := wanted[rec.AccountID]; !ok {
			continue
		}
		out = append(out, *rec)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ConversationID < out[j].ConversationID
	})
	return out, nil
}

// Close marks the ledger closed. Further operations fail with ErrStoreClosed.
func (l *MemoryLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
