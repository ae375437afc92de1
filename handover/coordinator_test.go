package handover

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatforge/switchboard/internal/cache"
)

// =============================================================================
// 🧪 Coordinator Tests
// =============================================================================

type coordinatorFixture struct {
	agents      AgentStore
	accounts    *MemoryAccountStore
	ledger      *MemoryLedger
	engine      *Engine
	notifier    *recordingNotifier
	coordinator *Coordinator
	evaluator   *Evaluator
}

func newCoordinatorFixture(t *testing.T, agents AgentStore) *coordinatorFixture {
	f := &coordinatorFixture{
		agents:   agents,
		accounts: NewMemoryAccountStore(),
		ledger:   NewMemoryLedger(),
		notifier: &recordingNotifier{},
	}
	f.engine = NewEngine(f.ledger, f.notifier, nil, 0, zap.NewNop())
	f.coordinator = NewCoordinator(f.agents, f.accounts, f.ledger, f.engine, nil, 4, zap.NewNop())
	f.evaluator = NewEvaluator(f.accounts, f.agents, f.ledger, nil, zap.NewNop())
	return f
}

func (f *coordinatorFixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := f.agents.Save(ctx, &AgentConfig{AgentID: "agent-1", IsActive: true})
	require.NoError(t, err)
	require.NoError(t, f.accounts.Save(ctx, &Account{AccountID: "acct-1", Platform: "whatsapp", DefaultAgentID: "agent-1"}))
	require.NoError(t, f.accounts.Save(ctx, &Account{AccountID: "acct-2", Platform: "instagram", DefaultAgentID: "agent-1"}))

	// three bot-owned conversations across the agent's accounts, one
	// already with a human
	for _, pair := range [][2]string{
		{"conv-a", "acct-1"}, {"conv-b", "acct-1"}, {"conv-c", "acct-2"},
	} {
		_, err := f.ledger.Get(ctx, pair[0], pair[1])
		require.NoError(t, err)
	}
	_, _, err = f.engine.TransferToHuman(ctx, "conv-d", "acct-1", "maria", "maria", "")
	require.NoError(t, err)
}

func TestCoordinator_OnAgentDeactivated(t *testing.T) {
	f := newCoordinatorFixture(t, NewMemoryAgentStore())
	f.seed(t)
	ctx := context.Background()

	cfg, transferred, err := f.coordinator.OnAgentDeactivated(ctx, "agent-1", "admin")
	require.NoError(t, err)

	assert.False(t, cfg.IsActive)
	assert.Equal(t, 3, transferred, "only bot-owned conversations count")

	// every conversation of the agent is now human-owned
	for _, conv := range []string{"conv-a", "conv-b", "conv-c", "conv-d"} {
		rec, err := f.ledger.Get(ctx, conv, "")
		require.NoError(t, err)
		assert.Equal(t, OwnerHuman, rec.Owner, conv)
	}

	// the already-human conversation gained no history entry
	history, err := f.ledger.History(ctx, "conv-d")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// swept conversations carry the system reason
	history, err = f.ledger.History(ctx, "conv-a")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ReasonAgentDisabled, history[0].Reason)
	assert.Equal(t, "admin", history[0].Actor)
}

func TestCoordinator_DeactivationIsIdempotent(t *testing.T) {
	f := newCoordinatorFixture(t, NewMemoryAgentStore())
	f.seed(t)
	ctx := context.Background()

	_, transferred, err := f.coordinator.OnAgentDeactivated(ctx, "agent-1", "admin")
	require.NoError(t, err)
	require.Equal(t, 3, transferred)

	// a second deactivation finds nothing left to transfer
	cfg, transferred, err := f.coordinator.OnAgentDeactivated(ctx, "agent-1", "admin")
	require.NoError(t, err)
	assert.False(t, cfg.IsActive)
	assert.Equal(t, 0, transferred)
}

func TestCoordinator_EligibilityAfterDeactivation(t *testing.T) {
	f := newCoordinatorFixture(t, NewMemoryAgentStore())
	f.seed(t)
	ctx := context.Background()

	d, err := f.evaluator.Evaluate(ctx, "conv-a", "acct-1")
	require.NoError(t, err)
	require.Equal(t, Eligible, d.Disposition)

	_, _, err = f.coordinator.OnAgentDeactivated(ctx, "agent-1", "admin")
	require.NoError(t, err)

	d, err = f.evaluator.Evaluate(ctx, "conv-a", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, AgentInactive, d.Disposition)
	assert.False(t, d.WouldRespond())
}

func TestCoordinator_OnAgentActivated(t *testing.T) {
	f := newCoordinatorFixture(t, NewMemoryAgentStore())
	f.seed(t)
	ctx := context.Background()

	_, _, err := f.coordinator.OnAgentDeactivated(ctx, "agent-1", "admin")
	require.NoError(t, err)

	cfg, err := f.coordinator.OnAgentActivated(ctx, "agent-1", "admin")
	require.NoError(t, err)
	assert.True(t, cfg.IsActive)

	// reactivation does not take conversations back from humans
	rec, err := f.ledger.Get(ctx, "conv-a", "")
	require.NoError(t, err)
	assert.Equal(t, OwnerHuman, rec.Owner)

	// but the conversation can be handed back explicitly
	_, applied, err := f.engine.TransferToBot(ctx, "conv-a", "acct-1", "maria", "resolved")
	require.NoError(t, err)
	assert.True(t, applied)

	d, err := f.evaluator.Evaluate(ctx, "conv-a", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, Eligible, d.Disposition)
}

func TestCoordinator_SweepSkipsSuspendedAccounts(t *testing.T) {
	f := newCoordinatorFixture(t, NewMemoryAgentStore())
	f.seed(t)
	ctx := context.Background()

	// a suspended account of the same agent with a bot-owned conversation
	require.NoError(t, f.accounts.Save(ctx, &Account{
		AccountID: "acct-frozen", Platform: "whatsapp", DefaultAgentID: "agent-1", Status: "suspended",
	}))
	_, err := f.ledger.Get(ctx, "conv-frozen", "acct-frozen")
	require.NoError(t, err)

	_, transferred, err := f.coordinator.OnAgentDeactivated(ctx, "agent-1", "admin")
	require.NoError(t, err)
	assert.Equal(t, 3, transferred, "suspended account conversations are not counted")

	// the suspended account's conversation was left alone
	rec, err := f.ledger.Get(ctx, "conv-frozen", "")
	require.NoError(t, err)
	assert.Equal(t, OwnerBot, rec.Owner)
	history, err := f.ledger.History(ctx, "conv-frozen")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCoordinator_UnknownAgent(t *testing.T) {
	f := newCoordinatorFixture(t, NewMemoryAgentStore())

	_, _, err := f.coordinator.OnAgentDeactivated(context.Background(), "nope", "admin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCoordinator_DeactivationPurgesCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	mgr, err := cache.NewManager(cache.Config{Addr: mr.Addr(), DefaultTTL: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	cached := NewCachedAgentStore(NewMemoryAgentStore(), mgr, 5*time.Second, nil, zap.NewNop())
	f := newCoordinatorFixture(t, cached)
	f.seed(t)
	ctx := context.Background()

	// warm the cache and plant account bindings
	_, err = cached.Get(ctx, "agent-1")
	require.NoError(t, err)
	require.NoError(t, mr.Set(AccountAgentKey("acct-1"), "agent-1"))
	require.NoError(t, mr.Set(AccountAgentKey("acct-2"), "agent-1"))

	_, _, err = f.coordinator.OnAgentDeactivated(ctx, "agent-1", "admin")
	require.NoError(t, err)

	assert.False(t, mr.Exists(AgentConfigKey("agent-1")))
	assert.False(t, mr.Exists(AccountAgentKey("acct-1")))
	assert.False(t, mr.Exists(AccountAgentKey("acct-2")))

	// and the next read observes the deactivated config
	cfg, err := cached.Get(ctx, "agent-1")
	require.NoError(t, err)
	assert.False(t, cfg.IsActive)
}

func TestCoordinator_VersionBumpOnDeactivation(t *testing.T) {
	f := newCoordinatorFixture(t, NewMemoryAgentStore())
	f.seed(t)
	ctx := context.Background()

	before, err := f.agents.Get(ctx, "agent-1")
	require.NoError(t, err)

	cfg, _, err := f.coordinator.OnAgentDeactivated(ctx, "agent-1", "admin")
	require.NoError(t, err)
	assert.Greater(t, cfg.Version, before.Version)
}
