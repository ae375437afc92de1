package handover

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chatforge/switchboard/internal/metrics"
)

// =============================================================================
// 🧭 Invalidation Coordinator
// =============================================================================

// invalidator is implemented by agent stores that front a cache.
type invalidator interface {
	Invalidate(ctx context.Context, agentID string, accountIDs ...string)
}

// Coordinator reacts to agent activation changes. Deactivation is the
// critical path: the version bump and cache invalidation stop new bot
// replies, and the ownership sweep moves every conversation the agent was
// serving to a human operator.
type Coordinator struct {
	agents      AgentStore
	accounts    AccountStore
	ledger      Ledger
	engine      *Engine
	collector   *metrics.Collector
	logger      *zap.Logger
	concurrency int
}

// NewCoordinator creates a coordinator. Collector may be nil. Concurrency
// bounds the transfer fan-out; values below 1 are raised to 1.
func NewCoordinator(agents AgentStore, accounts AccountStore, ledger Ledger, engine *Engine, collector *metrics.Collector, concurrency int, logger *zap.Logger) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Coordinator{
		agents:      agents,
		accounts:    accounts,
		ledger:      ledger,
		engine:      engine,
		collector:   collector,
		logger:      logger.With(zap.String("component", "coordinator")),
		concurrency: concurrency,
	}
}

// OnAgentDeactivated deactivates the agent and sweeps its conversations.
// It returns the number of conversations actually moved to human ownership
// together with the updated config.
//
// The sweep is best effort per conversation: one failed transfer does not
// stop the rest. The count reflects only applied transfers, and the first
// error is returned after the sweep completes so the caller can retry.
func (c *Coordinator) OnAgentDeactivated(ctx context.Context, agentID, actor string) (*AgentConfig, int, error) {
	cfg, err := c.agents.SetActive(ctx, agentID, false)
	if err != nil {
		return nil, 0, err
	}

	c.logger.Info("agent deactivated",
		zap.String("agent_id", agentID),
		zap.Int64("version", cfg.Version),
		zap.String("actor", actor),
	)

	accounts, err := c.accounts.ListByAgent(ctx, agentID)
	if err != nil {
		return cfg, 0, err
	}

	accountIDs := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		accountIDs = append(accountIDs, acc.AccountID)
	}

	// best-effort cache purge; the short TTL is the backstop
	if inv, ok := c.agents.(invalidator); ok {
		inv.Invalidate(ctx, agentID, accountIDs...)
	}

	conversations, err := c.ledger.ListBotOwned(ctx, accountIDs)
	if err != nil {
		return cfg, 0, err
	}

	var (
		transferred atomic.Int64
		firstErr    atomic.Pointer[error]
	)
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for _, conv := range conversations {
		conv := conv
		g.Go(func() error {
			_, applied, err := c.engine.TransferToHuman(
				ctx, conv.ConversationID, conv.AccountID, "", actorOrSystem(actor), ReasonAgentDisabled)
			if err != nil {
				c.logger.Error("transfer failed during deactivation sweep",
					zap.String("conversation_id", conv.ConversationID),
					zap.String("agent_id", agentID),
					zap.Error(err),
				)
				firstErr.CompareAndSwap(nil, &err)
				return nil
			}
			if applied {
				transferred.Add(1)
			}
			return nil
		})
	}

	_ = g.Wait()
	var sweepErr error
	if p := firstErr.Load(); p != nil {
		sweepErr = *p
	}
	count := int(transferred.Load())

	if c.collector != nil {
		c.collector.RecordAgentDeactivation(count)
	}

	c.logger.Info("deactivation sweep finished",
		zap.String("agent_id", agentID),
		zap.Int("conversations", len(conversations)),
		zap.Int("transferred", count),
	)

	return cfg, count, sweepErr
}

// OnAgentActivated reactivates the agent. Conversations moved to human
// ownership stay with their operators; re-enabling an agent never takes a
// conversation back from a human.
func (c *Coordinator) OnAgentActivated(ctx context.Context, agentID, actor string) (*AgentConfig, error) {
	cfg, err := c.agents.SetActive(ctx, agentID, true)
	if err != nil {
		return nil, err
	}

	c.logger.Info("agent activated",
		zap.String("agent_id", agentID),
		zap.Int64("version", cfg.Version),
		zap.String("actor", actor),
	)

	return cfg, nil
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return ActorSystem
	}
	return actor
}
