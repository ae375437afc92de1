package handover

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chatforge/switchboard/internal/metrics"
	"github.com/chatforge/switchboard/types"
)

// =============================================================================
// ⚙️ Handover Engine
// =============================================================================

// Engine applies ownership transitions. It is the only writer of the ledger
// in the service; handlers and the coordinator both go through it so the
// idempotence, metrics, and notification rules live in one place.
type Engine struct {
	ledger        Ledger
	notifier      Notifier
	collector     *metrics.Collector
	logger        *zap.Logger
	notifyTimeout time.Duration
}

// NewEngine creates an engine. Collector may be nil; notifier must not be
// (use NopNotifier when no broker is configured).
func NewEngine(ledger Ledger, notifier Notifier, collector *metrics.Collector, notifyTimeout time.Duration, logger *zap.Logger) *Engine {
	if notifyTimeout <= 0 {
		notifyTimeout = 3 * time.Second
	}
	return &Engine{
		ledger:        ledger,
		notifier:      notifier,
		collector:     collector,
		logger:        logger.With(zap.String("component", "engine")),
		notifyTimeout: notifyTimeout,
	}
}

// TransferRequest describes one requested ownership change.
type TransferRequest struct {
	ConversationID string
	AccountID      string
	Target         Owner

	// Operator is required when Target is human and ignored otherwise.
	Operator string
	Actor    string
	Reason   string
}

// Transfer applies the requested transition. The returned bool is true when
// ownership actually changed; a request matching the current owner is a
// successful no-op.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (*ConversationOwnership, bool, error) {
	if !req.Target.Valid() {
		return nil, false, types.NewError(types.ErrInvalidTarget,
			"target must be \"bot\" or \"human\"")
	}
	if req.ConversationID == "" {
		return nil, false, types.NewError(types.ErrInvalidRequest, "conversation_id is required")
	}

	t := Transition{
		Owner:    req.Target,
		Operator: req.Operator,
		Reason:   req.Reason,
		Actor:    req.Actor,
	}
	if t.Reason == "" {
		t.Reason = ReasonManual
	}

	rec, applied, err := e.ledger.AppendTransition(ctx, req.ConversationID, req.AccountID, t)
	if err != nil {
		return nil, false, err
	}

	if e.collector != nil {
		e.collector.RecordOwnershipTransition(string(req.Target), applied)
	}

	if !applied {
		e.logger.Debug("transfer was a no-op",
			zap.String("conversation_id", req.ConversationID),
			zap.String("target", string(req.Target)),
		)
		return rec, false, nil
	}

	e.logger.Info("conversation ownership changed",
		zap.String("conversation_id", req.ConversationID),
		zap.String("owner", string(req.Target)),
		zap.String("actor", t.Actor),
		zap.String("reason", t.Reason),
	)

	e.notify(ctx, Notification{
		ConversationID: req.ConversationID,
		AccountID:      rec.AccountID,
		Owner:          req.Target,
		Operator:       req.Operator,
		Reason:         t.Reason,
		Actor:          t.Actor,
	})

	return rec, true, nil
}

// TransferToHuman hands the conversation to a human operator.
func (e *Engine) TransferToHuman(ctx context.Context, conversationID, accountID, operator, actor, reason string) (*ConversationOwnership, bool, error) {
	return e.Transfer(ctx, TransferRequest{
		ConversationID: conversationID,
		AccountID:      accountID,
		Target:         OwnerHuman,
		Operator:       operator,
		Actor:          actor,
		Reason:         reason,
	})
}

// TransferToBot returns the conversation to the bot and clears the assigned
// operator.
func (e *Engine) TransferToBot(ctx context.Context, conversationID, accountID, actor, reason string) (*ConversationOwnership, bool, error) {
	return e.Transfer(ctx, TransferRequest{
		ConversationID: conversationID,
		AccountID:      accountID,
		Target:         OwnerBot,
		Actor:          actor,
		Reason:         reason,
	})
}

// notify publishes best effort. The transition is already committed; a
// publish failure is logged and counted, never surfaced.
func (e *Engine) notify(ctx context.Context, n Notification) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.notifyTimeout)
	defer cancel()

	err := e.notifier.Notify(nctx, n)
	if e.collector != nil {
		e.collector.RecordNotification(err)
	}
	if err != nil {
		e.logger.Warn("handover notification failed",
			zap.String("conversation_id", n.ConversationID),
			zap.Error(err),
		)
	}
}
