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
// 🧪 CachedAccountStore Tests
// =============================================================================

func newTestCachedAccountStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *MemoryAccountStore, *CachedAccountStore) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	mgr, err := cache.NewManager(cache.Config{Addr: mr.Addr(), DefaultTTL: ttl}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	inner := NewMemoryAccountStore()
	cached := NewCachedAccountStore(inner, mgr, ttl, nil, zap.NewNop())
	return mr, inner, cached
}

func TestCachedAccountStore_GetPopulatesBinding(t *testing.T) {
	mr, inner, cached := newTestCachedAccountStore(t, 5*time.Second)
	ctx := context.Background()

	require.NoError(t, inner.Save(ctx, &Account{
		AccountID: "acct-1", Platform: "whatsapp", DefaultAgentID: "agent-1",
	}))

	acc, err := cached.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", acc.DefaultAgentID)

	assert.True(t, mr.Exists(AccountAgentKey("acct-1")))
}

func TestCachedAccountStore_GetServesFromCache(t *testing.T) {
	mr, inner, cached := newTestCachedAccountStore(t, 5*time.Second)
	ctx := context.Background()

	require.NoError(t, inner.Save(ctx, &Account{
		AccountID: "acct-1", Platform: "whatsapp", DefaultAgentID: "agent-1",
	}))
	_, err := cached.Get(ctx, "acct-1")
	require.NoError(t, err)

	// a direct inner rebind stays invisible until the TTL lapses
	require.NoError(t, inner.Save(ctx, &Account{
		AccountID: "acct-1", Platform: "whatsapp", DefaultAgentID: "agent-2",
	}))

	acc, err := cached.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", acc.DefaultAgentID, "cached binding inside the TTL")

	mr.FastForward(6 * time.Second)

	acc, err = cached.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-2", acc.DefaultAgentID, "TTL expiry forces a fresh read")
}

func TestCachedAccountStore_SaveRefreshesBinding(t *testing.T) {
	_, _, cached := newTestCachedAccountStore(t, 5*time.Second)
	ctx := context.Background()

	require.NoError(t, cached.Save(ctx, &Account{
		AccountID: "acct-1", Platform: "whatsapp", DefaultAgentID: "agent-1",
	}))
	require.NoError(t, cached.Save(ctx, &Account{
		AccountID: "acct-1", Platform: "whatsapp", DefaultAgentID: "agent-2",
	}))

	acc, err := cached.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-2", acc.DefaultAgentID)
	assert.Equal(t, "active", acc.Status, "defaulted status lands in the cache too")
}

func TestCachedAccountStore_GetUnknown(t *testing.T) {
	_, _, cached := newTestCachedAccountStore(t, 5*time.Second)

	_, err := cached.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedAccountStore_CacheDownFallsThrough(t *testing.T) {
	mr, inner, cached := newTestCachedAccountStore(t, 5*time.Second)
	ctx := context.Background()

	require.NoError(t, inner.Save(ctx, &Account{
		AccountID: "acct-1", Platform: "whatsapp", DefaultAgentID: "agent-1",
	}))

	mr.Close()

	acc, err := cached.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", acc.DefaultAgentID)
}

// Deactivation must purge bindings the read-through path populated, so the
// next lookup observes the store.
func TestCachedAccountStore_PurgedByDeactivation(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	mgr, err := cache.NewManager(cache.Config{Addr: mr.Addr(), DefaultTTL: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	agents := NewCachedAgentStore(NewMemoryAgentStore(), mgr, 5*time.Second, nil, zap.NewNop())
	accounts := NewCachedAccountStore(NewMemoryAccountStore(), mgr, 5*time.Second, nil, zap.NewNop())
	ledger := NewMemoryLedger()
	engine := NewEngine(ledger, NopNotifier{}, nil, 0, zap.NewNop())
	coordinator := NewCoordinator(agents, accounts, ledger, engine, nil, 4, zap.NewNop())

	ctx := context.Background()
	_, err = agents.Save(ctx, &AgentConfig{AgentID: "agent-1", IsActive: true})
	require.NoError(t, err)
	require.NoError(t, accounts.Save(ctx, &Account{
		AccountID: "acct-1", Platform: "whatsapp", DefaultAgentID: "agent-1",
	}))

	// warm both key families through their normal read paths
	_, err = agents.Get(ctx, "agent-1")
	require.NoError(t, err)
	_, err = accounts.Get(ctx, "acct-1")
	require.NoError(t, err)
	require.True(t, mr.Exists(AgentConfigKey("agent-1")))
	require.True(t, mr.Exists(AccountAgentKey("acct-1")))

	_, _, err = coordinator.OnAgentDeactivated(ctx, "agent-1", "admin")
	require.NoError(t, err)

	assert.False(t, mr.Exists(AgentConfigKey("agent-1")))
	assert.False(t, mr.Exists(AccountAgentKey("acct-1")))
}
