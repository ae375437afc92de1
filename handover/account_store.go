package handover

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chatforge/switchboard/types"
)

// =============================================================================
// 📇 Account Store
// =============================================================================

// AccountStore resolves messaging accounts and their agent bindings.
type AccountStore interface {
	Get(ctx context.Context, accountID string) (*Account, error)
	Save(ctx context.Context, acc *Account) error

	// ListByAgent returns every active account whose default agent is
	// agentID. Suspended and disabled accounts are excluded so the
	// deactivation sweep never touches their conversations.
	ListByAgent(ctx context.Context, agentID string) ([]Account, error)
}

// -----------------------------------------------------------------------------
// In-memory implementation
// -----------------------------------------------------------------------------

// MemoryAccountStore is the test and development AccountStore.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewMemoryAccountStore creates an empty in-memory account store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string]*Account)}
}

func (s *MemoryAccountStore) Get(ctx context.Context, accountID string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (s *MemoryAccountStore) Save(ctx context.Context, acc *Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *acc
	if cp.Status == "" {
		cp.Status = "active"
	}
	s.accounts[acc.AccountID] = &cp
	return nil
}

func (s *MemoryAccountStore) ListByAgent(ctx context.Context, agentID string) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Account
	for _, acc := range s.accounts {
		if acc.DefaultAgentID == agentID && acc.Status == "active" {
			out = append(out, *acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

// -----------------------------------------------------------------------------
// GORM implementation
// -----------------------------------------------------------------------------

// GormAccountStore is the relational AccountStore.
type GormAccountStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormAccountStore creates an account store on an open GORM handle.
func NewGormAccountStore(db *gorm.DB, logger *zap.Logger) *GormAccountStore {
	return &GormAccountStore{
		db:     db,
		logger: logger.With(zap.String("component", "account_store")),
	}
}

// AutoMigrate creates the accounts table.
func (s *GormAccountStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Account{})
}

func (s *GormAccountStore) Get(ctx context.Context, accountID string) (*Account, error) {
	var acc Account
	err := s.db.WithContext(ctx).First(&acc, "account_id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, types.NewStoreUnavailableError("failed to load account", err)
	}
	return &acc, nil
}

func (s *GormAccountStore) Save(ctx context.Context, acc *Account) error {
	if acc.Status == "" {
		acc.Status = "active"
	}
	if err := s.db.WithContext(ctx).Save(acc).Error; err != nil {
		return types.NewStoreUnavailableError("failed to save account", err)
	}
	return nil
}

func (s *GormAccountStore) ListByAgent(ctx context.Context, agentID string) ([]Account, error) {
	var out []Account
	err := s.db.WithContext(ctx).
		Where("default_agent_id = ? AND status = ?", agentID, "active").
		Order("account_id asc").
		Find(&out).Error
	if err != nil {
		return nil, types.NewStoreUnavailableError("failed to list accounts by agent", err)
	}
	return out, nil
}
