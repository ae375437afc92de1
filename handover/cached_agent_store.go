package handover

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chatforge/switchboard/internal/cache"
	"github.com/chatforge/switchboard/internal/metrics"
)

// =============================================================================
// 💾 Cached Agent Store
// =============================================================================

// Cache key prefixes. The coordinator deletes both families on
// deactivation so no consumer acts on a stale activation flag.
const (
	agentConfigKeyPrefix  = "agent_config:"
	accountAgentKeyPrefix = "account_agent:"
)

// AgentConfigKey returns the cache key for an agent's config.
func AgentConfigKey(agentID string) string {
	return agentConfigKeyPrefix + agentID
}

// AccountAgentKey returns the cache key for an account's agent binding.
func AccountAgentKey(accountID string) string {
	return accountAgentKeyPrefix + accountID
}

// CachedAgentStore layers a short-TTL cache over an AgentStore. The TTL
// bounds how long a deactivated agent can still look active to readers that
// missed the eager invalidation; keep it in single-digit seconds.
//
// Cache failures are never fatal: reads fall through to the inner store and
// writes proceed with a logged warning.
type CachedAgentStore struct {
	inner     AgentStore
	cache     *cache.Manager
	ttl       time.Duration
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewCachedAgentStore wraps inner with a cache. Collector may be nil.
func NewCachedAgentStore(inner AgentStore, cacheMgr *cache.Manager, ttl time.Duration, collector *metrics.Collector, logger *zap.Logger) *CachedAgentStore {
	return &CachedAgentStore{
		inner:     inner,
		cache:     cacheMgr,
		ttl:       ttl,
		collector: collector,
		logger:    logger.With(zap.String("component", "cached_agent_store")),
	}
}

func (s *CachedAgentStore) recordHit() {
	if s.collector != nil {
		s.collector.RecordCacheHit("agent_config")
	}
}

func (s *CachedAgentStore) recordMiss() {
	if s.collector != nil {
		s.collector.RecordCacheMiss("agent_config")
	}
}

// Get returns the agent config, preferring the cache.
func (s *CachedAgentStore) Get(ctx context.Context, agentID string) (*AgentConfig, error) {
	key := AgentConfigKey(agentID)

	var cached AgentConfig
	err := s.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		s.recordHit()
		return &cached, nil
	}
	if !cache.IsCacheMiss(err) {
		s.logger.Warn("cache read failed, falling through to store",
			zap.String("agent_id", agentID), zap.Error(err))
	}
	s.recordMiss()

	cfg, err := s.inner.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, cfg, s.ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("agent_id", agentID), zap.Error(err))
	}

	return cfg, nil
}

// Save writes through to the inner store and eagerly replaces the cached
// copy with the new version.
func (s *CachedAgentStore) Save(ctx context.Context, cfg *AgentConfig) (*AgentConfig, error) {
	saved, err := s.inner.Save(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, AgentConfigKey(saved.AgentID), saved, s.ttl); err != nil {
		s.logger.Warn("cache refresh failed after save",
			zap.String("agent_id", saved.AgentID), zap.Error(err))
	}

	return saved, nil
}

// SetActive flips activation on the inner store and deletes the cached copy
// rather than replacing it, so the next read observes the store directly.
func (s *CachedAgentStore) SetActive(ctx context.Context, agentID string, active bool) (*AgentConfig, error) {
	updated, err := s.inner.SetActive(ctx, agentID, active)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, AgentConfigKey(agentID)); err != nil {
		s.logger.Warn("cache invalidation failed after activation change",
			zap.String("agent_id", agentID), zap.Error(err))
	}

	return updated, nil
}

// Invalidate removes the agent's cached config and any account bindings.
// Failures are logged and swallowed; the TTL is the backstop.
func (s *CachedAgentStore) Invalidate(ctx context.Context, agentID string, accountIDs ...string) {
	keys := make([]string, 0, len(accountIDs)+1)
	keys = append(keys, AgentConfigKey(agentID))
	for _, accountID := range accountIDs {
		keys = append(keys, AccountAgentKey(accountID))
	}

	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidation failed",
			zap.String("agent_id", agentID),
			zap.Strings("keys", keys),
			zap.Error(err))
	}
}
