package handover

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chatforge/switchboard/internal/cache"
	"github.com/chatforge/switchboard/internal/metrics"
)

// =============================================================================
// 💾 Cached Account Store
// =============================================================================

// CachedAccountStore layers a short-TTL cache over an AccountStore under the
// account_agent key family, so the per-message account lookup rarely hits
// the database. The coordinator deletes these keys on agent deactivation;
// the TTL bounds staleness for readers that miss the eager invalidation.
//
// ListByAgent always reads the inner store: the deactivation sweep must see
// current account status, never a cached copy.
type CachedAccountStore struct {
	inner     AccountStore
	cache     *cache.Manager
	ttl       time.Duration
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewCachedAccountStore wraps inner with a cache. Collector may be nil.
func NewCachedAccountStore(inner AccountStore, cacheMgr *cache.Manager, ttl time.Duration, collector *metrics.Collector, logger *zap.Logger) *CachedAccountStore {
	return &CachedAccountStore{
		inner:     inner,
		cache:     cacheMgr,
		ttl:       ttl,
		collector: collector,
		logger:    logger.With(zap.String("component", "cached_account_store")),
	}
}

// Get returns the account, preferring the cached binding.
func (s *CachedAccountStore) Get(ctx context.Context, accountID string) (*Account, error) {
	key := AccountAgentKey(accountID)

	var cached Account
	err := s.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		if s.collector != nil {
			s.collector.RecordCacheHit("account_agent")
		}
		return &cached, nil
	}
	if !cache.IsCacheMiss(err) {
		s.logger.Warn("cache read failed, falling through to store",
			zap.String("account_id", accountID), zap.Error(err))
	}
	if s.collector != nil {
		s.collector.RecordCacheMiss("account_agent")
	}

	acc, err := s.inner.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, acc, s.ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("account_id", accountID), zap.Error(err))
	}

	return acc, nil
}

// Save writes through to the inner store and eagerly refreshes the cached
// binding.
func (s *CachedAccountStore) Save(ctx context.Context, acc *Account) error {
	if err := s.inner.Save(ctx, acc); err != nil {
		return err
	}

	saved, err := s.inner.Get(ctx, acc.AccountID)
	if err != nil {
		return err
	}
	if err := s.cache.SetJSON(ctx, AccountAgentKey(saved.AccountID), saved, s.ttl); err != nil {
		s.logger.Warn("cache refresh failed after save",
			zap.String("account_id", saved.AccountID), zap.Error(err))
	}
	return nil
}

// ListByAgent reads the inner store directly.
func (s *CachedAccountStore) ListByAgent(ctx context.Context, agentID string) ([]Account, error) {
	return s.inner.ListByAgent(ctx, agentID)
}
