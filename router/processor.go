package router

import (
	"context"

	"go.uber.org/zap"

	"github.com/chatforge/switchboard/handover"
	"github.com/chatforge/switchboard/types"
)

// =============================================================================
// 🔀 Message Processor
// =============================================================================

// Outcome classifies what the pipeline did with an inbound message. Every
// outcome except the failure errors is a successful processing result; "the
// bot stayed silent" is not an error condition.
type Outcome string

const (
	// OutcomeReplied means the bot generated and delivered a reply.
	OutcomeReplied Outcome = "replied"

	// OutcomeSkippedOutbound means the message was an outbound echo and was
	// dropped before any eligibility work.
	OutcomeSkippedOutbound Outcome = "skipped_outbound"

	// OutcomeNoAgent means the account has no agent; the message is stored
	// for operators but gets no bot reply.
	OutcomeNoAgent Outcome = "no_agent"

	// OutcomeAgentInactive means the agent is deactivated.
	OutcomeAgentInactive Outcome = "agent_inactive"

	// OutcomeHumanOwned means a human operator owns the conversation; the
	// message is theirs to answer.
	OutcomeHumanOwned Outcome = "human_owned"

	// OutcomeSuppressed means a reply was generated but ownership changed
	// before the send boundary, so the reply was dropped.
	OutcomeSuppressed Outcome = "suppressed"
)

// Result is the pipeline's report for one inbound message.
type Result struct {
	Outcome  Outcome               `json:"outcome"`
	Decision *handover.Decision    `json:"decision,omitempty"`
	Reply    string                `json:"reply,omitempty"`
	Delivery *types.DeliveryResult `json:"delivery,omitempty"`
}

// Processor runs the inbound pipeline.
type Processor struct {
	evaluator *handover.Evaluator
	ledger    handover.Ledger
	runtime   AgentRuntime
	messenger Messenger
	notifier  handover.Notifier
	logger    *zap.Logger
}

// NewProcessor creates a processor. The notifier must not be nil; pass
// handover.NopNotifier when no broker is configured.
func NewProcessor(evaluator *handover.Evaluator, ledger handover.Ledger, runtime AgentRuntime, messenger Messenger, notifier handover.Notifier, logger *zap.Logger) *Processor {
	return &Processor{
		evaluator: evaluator,
		ledger:    ledger,
		runtime:   runtime,
		messenger: messenger,
		notifier:  notifier,
		logger:    logger.With(zap.String("component", "processor")),
	}
}

// Process walks msg through the pipeline and reports what happened.
func (p *Processor) Process(ctx context.Context, msg types.InboundMessage) (*Result, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	// echoes of our own outbound traffic must never trigger a reply loop
	if msg.Direction == types.DirectionOutbound {
		p.logger.Debug("skipping outbound echo",
			zap.String("conversation_id", msg.ConversationID))
		return &Result{Outcome: OutcomeSkippedOutbound}, nil
	}

	// bind the conversation to its account before evaluating
	if _, err := p.ledger.Get(ctx, msg.ConversationID, msg.AccountID); err != nil {
		return nil, err
	}

	decision, err := p.evaluator.Evaluate(ctx, msg.ConversationID, msg.AccountID)
	if err != nil {
		return nil, err
	}

	switch decision.Disposition {
	case handover.NoAgent:
		p.routeToOperators(ctx, msg, decision)
		return &Result{Outcome: OutcomeNoAgent, Decision: &decision}, nil
	case handover.AgentInactive:
		p.logger.Info("agent inactive, bot stays silent",
			zap.String("conversation_id", msg.ConversationID),
			zap.String("agent_id", decision.AgentID))
		p.routeToOperators(ctx, msg, decision)
		return &Result{Outcome: OutcomeAgentInactive, Decision: &decision}, nil
	case handover.HumanOwned:
		p.logger.Debug("conversation is human-owned, routing to operator",
			zap.String("conversation_id", msg.ConversationID))
		p.routeToOperators(ctx, msg, decision)
		return &Result{Outcome: OutcomeHumanOwned, Decision: &decision}, nil
	}

	reply, err := p.runtime.Generate(ctx, msg)
	if err != nil {
		return nil, err
	}

	// re-check at the send boundary: a handover that landed while the
	// reply was being generated wins, and the reply is dropped
	recheck, err := p.evaluator.Evaluate(ctx, msg.ConversationID, msg.AccountID)
	if err != nil {
		return nil, err
	}
	if !recheck.WouldRespond() {
		p.logger.Info("reply suppressed, eligibility lost during generation",
			zap.String("conversation_id", msg.ConversationID),
			zap.String("disposition", string(recheck.Disposition)))
		return &Result{Outcome: OutcomeSuppressed, Decision: &recheck}, nil
	}

	delivery, err := p.messenger.Send(ctx, msg.ConversationID, msg.AccountID, reply)
	if err != nil {
		return nil, err
	}

	p.logger.Info("bot reply delivered",
		zap.String("conversation_id", msg.ConversationID),
		zap.String("message_id", delivery.MessageID))

	return &Result{
		Outcome:  OutcomeReplied,
		Decision: &recheck,
		Reply:    reply,
		Delivery: delivery,
	}, nil
}

// routeToOperators signals the operator queue that an inbound message is
// waiting for a human. Publishing is best effort: the message is already
// accepted, so a broker failure is logged, never surfaced.
func (p *Processor) routeToOperators(ctx context.Context, msg types.InboundMessage, decision handover.Decision) {
	err := p.notifier.Notify(ctx, handover.Notification{
		ConversationID: msg.ConversationID,
		AccountID:      msg.AccountID,
		Owner:          handover.OwnerHuman,
		Reason:         string(decision.Disposition),
		Actor:          handover.ActorSystem,
	})
	if err != nil {
		p.logger.Warn("operator queue notification failed",
			zap.String("conversation_id", msg.ConversationID),
			zap.Error(err))
	}
}
