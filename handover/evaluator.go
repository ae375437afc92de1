package handover

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/chatforge/switchboard/internal/metrics"
)

// =============================================================================
// ⚖️ Eligibility Evaluator
// =============================================================================

// Evaluator decides whether the bot may respond in a conversation. The
// checks run in a fixed order and short-circuit on the first failure:
//
//	account has an agent     -> NoAgent
//	agent is active          -> AgentInactive
//	conversation is bot-owned -> HumanOwned
//	otherwise                -> Eligible
//
// A store failure aborts the evaluation with an error. It is never folded
// into a disposition; the caller decides how to degrade.
type Evaluator struct {
	accounts  AccountStore
	agents    AgentStore
	ledger    Ledger
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewEvaluator creates an evaluator. Collector may be nil.
func NewEvaluator(accounts AccountStore, agents AgentStore, ledger Ledger, collector *metrics.Collector, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		accounts:  accounts,
		agents:    agents,
		ledger:    ledger,
		collector: collector,
		logger:    logger.With(zap.String("component", "evaluator")),
	}
}

func (e *Evaluator) record(d Disposition) {
	if e.collector != nil {
		e.collector.RecordEligibilityDecision(string(d))
	}
}

// Evaluate runs the full eligibility check for one conversation.
func (e *Evaluator) Evaluate(ctx context.Context, conversationID, accountID string) (Decision, error) {
	decision := Decision{
		Owner: OwnerBot,
		Checks: map[string]bool{
			"agent_configured": false,
			"agent_active":     false,
			"bot_owned":        false,
		},
	}

	agentID, err := e.resolveAgent(ctx, accountID)
	if err != nil {
		return Decision{}, err
	}
	if agentID == "" {
		decision.Disposition = NoAgent
		e.record(NoAgent)
		return decision, nil
	}
	decision.AgentID = agentID
	decision.Checks["agent_configured"] = true

	cfg, err := e.agents.Get(ctx, agentID)
	if errors.Is(err, ErrNotFound) {
		// the account references an agent that no longer exists; treat it
		// the same as an unconfigured account
		decision.AgentID = ""
		decision.Checks["agent_configured"] = false
		decision.Disposition = NoAgent
		e.record(NoAgent)
		return decision, nil
	}
	if err != nil {
		return Decision{}, err
	}
	if !cfg.IsActive {
		decision.Disposition = AgentInactive
		e.record(AgentInactive)
		return decision, nil
	}
	decision.Checks["agent_active"] = true

	rec, err := e.ledger.Get(ctx, conversationID, accountID)
	if err != nil {
		return Decision{}, err
	}
	decision.Owner = rec.Owner
	if rec.Owner != OwnerBot {
		decision.Disposition = HumanOwned
		e.record(HumanOwned)
		return decision, nil
	}
	decision.Checks["bot_owned"] = true

	decision.Disposition = Eligible
	e.record(Eligible)
	return decision, nil
}

// resolveAgent maps an account to its agent. An unknown account or one
// without a default agent yields "".
func (e *Evaluator) resolveAgent(ctx context.Context, accountID string) (string, error) {
	if accountID == "" {
		return "", nil
	}

	acc, err := e.accounts.Get(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return acc.DefaultAgentID, nil
}
