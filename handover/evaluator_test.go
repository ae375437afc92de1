package handover

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatforge/switchboard/types"
)

// =============================================================================
// 🧪 Evaluator Tests
// =============================================================================

type evaluatorFixture struct {
	accounts  *MemoryAccountStore
	agents    *MemoryAgentStore
	ledger    *MemoryLedger
	evaluator *Evaluator
}

func newEvaluatorFixture(t *testing.T) *evaluatorFixture {
	f := &evaluatorFixture{
		accounts: NewMemoryAccountStore(),
		agents:   NewMemoryAgentStore(),
		ledger:   NewMemoryLedger(),
	}
	f.evaluator = NewEvaluator(f.accounts, f.agents, f.ledger, nil, zap.NewNop())
	return f
}

func (f *evaluatorFixture) seedActiveAgent(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.agents.Save(ctx, &AgentConfig{AgentID: "agent-1", IsActive: true})
	require.NoError(t, err)
	require.NoError(t, f.accounts.Save(ctx, &Account{
		AccountID: "acct-1", Platform: "whatsapp", DefaultAgentID: "agent-1",
	}))
}

func TestEvaluate_Eligible(t *testing.T) {
	f := newEvaluatorFixture(t)
	f.seedActiveAgent(t)

	d, err := f.evaluator.Evaluate(context.Background(), "conv-1", "acct-1")
	require.NoError(t, err)

	assert.Equal(t, Eligible, d.Disposition)
	assert.True(t, d.WouldRespond())
	assert.Equal(t, "agent-1", d.AgentID)
	assert.Equal(t, OwnerBot, d.Owner)
	assert.Equal(t, map[string]bool{
		"agent_configured": true,
		"agent_active":     true,
		"bot_owned":        true,
	}, d.Checks)
}

func TestEvaluate_NoAgent_UnknownAccount(t *testing.T) {
	f := newEvaluatorFixture(t)

	d, err := f.evaluator.Evaluate(context.Background(), "conv-1", "acct-unknown")
	require.NoError(t, err)

	assert.Equal(t, NoAgent, d.Disposition)
	assert.False(t, d.WouldRespond())
	assert.Empty(t, d.AgentID)
}

func TestEvaluate_NoAgent_AccountWithoutAgent(t *testing.T) {
	f := newEvaluatorFixture(t)
	require.NoError(t, f.accounts.Save(context.Background(), &Account{
		AccountID: "acct-1", Platform: "whatsapp",
	}))

	d, err := f.evaluator.Evaluate(context.Background(), "conv-1", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, NoAgent, d.Disposition)
}

func TestEvaluate_NoAgent_DanglingAgentReference(t *testing.T) {
	f := newEvaluatorFixture(t)
	require.NoError(t, f.accounts.Save(context.Background(), &Account{
		AccountID: "acct-1", DefaultAgentID: "agent-deleted",
	}))

	d, err := f.evaluator.Evaluate(context.Background(), "conv-1", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, NoAgent, d.Disposition)
	assert.False(t, d.Checks["agent_configured"])
}

func TestEvaluate_AgentInactive(t *testing.T) {
	f := newEvaluatorFixture(t)
	f.seedActiveAgent(t)
	_, err := f.agents.SetActive(context.Background(), "agent-1", false)
	require.NoError(t, err)

	d, err := f.evaluator.Evaluate(context.Background(), "conv-1", "acct-1")
	require.NoError(t, err)

	assert.Equal(t, AgentInactive, d.Disposition)
	assert.True(t, d.Checks["agent_configured"])
	assert.False(t, d.Checks["agent_active"])
}

func TestEvaluate_HumanOwned(t *testing.T) {
	f := newEvaluatorFixture(t)
	f.seedActiveAgent(t)

	_, _, err := f.ledger.AppendTransition(context.Background(), "conv-1", "acct-1",
		Transition{Owner: OwnerHuman, Operator: "maria"})
	require.NoError(t, err)

	d, err := f.evaluator.Evaluate(context.Background(), "conv-1", "acct-1")
	require.NoError(t, err)

	assert.Equal(t, HumanOwned, d.Disposition)
	assert.Equal(t, OwnerHuman, d.Owner)
	assert.False(t, d.WouldRespond())
}

func TestEvaluate_InactiveBeatsHumanOwned(t *testing.T) {
	// ordered short-circuit: the agent check runs before ownership, so an
	// inactive agent reports AgentInactive even in a human-owned
	// conversation
	f := newEvaluatorFixture(t)
	f.seedActiveAgent(t)

	_, err := f.agents.SetActive(context.Background(), "agent-1", false)
	require.NoError(t, err)
	_, _, err = f.ledger.AppendTransition(context.Background(), "conv-1", "acct-1",
		Transition{Owner: OwnerHuman, Operator: "maria"})
	require.NoError(t, err)

	d, err := f.evaluator.Evaluate(context.Background(), "conv-1", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, AgentInactive, d.Disposition)
	assert.False(t, d.WouldRespond())
}

func TestEvaluate_NeverEligibleWhenHumanOwned(t *testing.T) {
	// whatever else is true, a human-owned conversation is never Eligible
	f := newEvaluatorFixture(t)
	f.seedActiveAgent(t)

	_, _, err := f.ledger.AppendTransition(context.Background(), "conv-1", "acct-1",
		Transition{Owner: OwnerHuman, Operator: "maria"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		d, err := f.evaluator.Evaluate(context.Background(), "conv-1", "acct-1")
		require.NoError(t, err)
		assert.NotEqual(t, Eligible, d.Disposition)
	}
}

func TestEvaluate_EvaluationDoesNotMutateOwnership(t *testing.T) {
	f := newEvaluatorFixture(t)
	f.seedActiveAgent(t)

	_, err := f.evaluator.Evaluate(context.Background(), "conv-1", "acct-1")
	require.NoError(t, err)

	history, err := f.ledger.History(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

// failingLedger surfaces a store failure on Get.
type failingLedger struct {
	*MemoryLedger
}

func (f *failingLedger) Get(ctx context.Context, conversationID, accountID string) (*ConversationOwnership, error) {
	return nil, types.NewStoreUnavailableError("ledger down", errors.New("dial tcp: refused"))
}

func TestEvaluate_StoreFailureIsAnErrorNotADisposition(t *testing.T) {
	f := newEvaluatorFixture(t)
	f.seedActiveAgent(t)

	ev := NewEvaluator(f.accounts, f.agents, &failingLedger{f.ledger}, nil, zap.NewNop())

	d, err := ev.Evaluate(context.Background(), "conv-1", "acct-1")
	require.Error(t, err)
	assert.Equal(t, types.ErrStoreUnavailable, types.GetErrorCode(err))
	assert.Empty(t, d.Disposition)
}
