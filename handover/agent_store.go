package handover

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chatforge/switchboard/types"
)

// =============================================================================
// 🤖 Agent Config Store
// =============================================================================

// AgentStore holds agent configuration. Every write bumps the version so
// cached copies can be detected as stale.
type AgentStore interface {
	Get(ctx context.Context, agentID string) (*AgentConfig, error)
	Save(ctx context.Context, cfg *AgentConfig) (*AgentConfig, error)

	// SetActive flips the activation flag and bumps the version in one
	// atomic write. Returns the updated config.
	SetActive(ctx context.Context, agentID string, active bool) (*AgentConfig, error)
}

// -----------------------------------------------------------------------------
// In-memory implementation
// -----------------------------------------------------------------------------

// MemoryAgentStore is the test and development AgentStore.
type MemoryAgentStore struct {
	mu     sync.RWMutex
	agents map[string]*AgentConfig
}

// NewMemoryAgentStore creates an empty in-memory agent store.
func NewMemoryAgentStore() *MemoryAgentStore {
	return &MemoryAgentStore{agents: make(map[string]*AgentConfig)}
}

func (s *MemoryAgentStore) Get(ctx context.Context, agentID string) (*AgentConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.agents[agentID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cfg
	return &cp, nil
}

func (s *MemoryAgentStore) Save(ctx context.Context, cfg *AgentConfig) (*AgentConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.agents[cfg.AgentID]
	if !ok {
		cp := *cfg
		if cp.Version == 0 {
			cp.Version = 1
		}
		cp.UpdatedAt = time.Now().UTC()
		s.agents[cfg.AgentID] = &cp
		out := cp
		return &out, nil
	}

	stored.Name = cfg.Name
	stored.Model = cfg.Model
	stored.IsActive = cfg.IsActive
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()

	cp := *stored
	return &cp, nil
}

func (s *MemoryAgentStore) SetActive(ctx context.Context, agentID string, active bool) (*AgentConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.agents[agentID]
	if !ok {
		return nil, ErrNotFound
	}

	stored.IsActive = active
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()

	cp := *stored
	return &cp, nil
}

// -----------------------------------------------------------------------------
// GORM implementation
// -----------------------------------------------------------------------------

// GormAgentStore is the relational AgentStore.
type GormAgentStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormAgentStore creates an agent store on an open GORM handle.
func NewGormAgentStore(db *gorm.DB, logger *zap.Logger) *GormAgentStore {
	return &GormAgentStore{
		db:     db,
		logger: logger.With(zap.String("component", "agent_store")),
	}
}

// AutoMigrate creates the agent config table.
func (s *GormAgentStore) AutoMigrate() error {
	return s.db.AutoMigrate(&AgentConfig{})
}

func (s *GormAgentStore) Get(ctx context.Context, agentID string) (*AgentConfig, error) {
	var cfg AgentConfig
	err := s.db.WithContext(ctx).First(&cfg, "agent_id = ?", agentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, types.NewStoreUnavailableError("failed to load agent config", err)
	}
	return &cfg, nil
}

func (s *GormAgentStore) Save(ctx context.Context, cfg *AgentConfig) (*AgentConfig, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing AgentConfig
		err := tx.First(&existing, "agent_id = ?", cfg.AgentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if cfg.Version == 0 {
				cfg.Version = 1
			}
			cfg.UpdatedAt = time.Now().UTC()
			return tx.Create(cfg).Error
		}
		if err != nil {
			return err
		}

		// version bump happens in SQL so concurrent saves never reuse a
		// version number
		return tx.Model(&AgentConfig{}).
			Where("agent_id = ?", cfg.AgentID).
			Updates(map[string]interface{}{
				"name":       cfg.Name,
				"model":      cfg.Model,
				"is_active":  cfg.IsActive,
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, types.NewStoreUnavailableError("failed to save agent config", err)
	}

	return s.Get(ctx, cfg.AgentID)
}

func (s *GormAgentStore) SetActive(ctx context.Context, agentID string, active bool) (*AgentConfig, error) {
	res := s.db.WithContext(ctx).Model(&AgentConfig{}).
		Where("agent_id = ?", agentID).
		Updates(map[string]interface{}{
			"is_active":  active,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, types.NewStoreUnavailableError("failed to update agent activation", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.Get(ctx, agentID)
}
