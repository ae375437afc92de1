package handover

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chatforge/switchboard/types"
)

// =============================================================================
// 🗄️ GORM Ledger
// =============================================================================

// GormLedger is the relational Ledger implementation. It runs on postgres
// and mysql in production and on sqlite in tests.
type GormLedger struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormLedger creates a ledger on an open GORM handle.
func NewGormLedger(db *gorm.DB, logger *zap.Logger) *GormLedger {
	return &GormLedger{
		db:     db,
		logger: logger.With(zap.String("component", "ledger")),
	}
}

// AutoMigrate creates the ledger tables.
func (l *GormLedger) AutoMigrate() error {
	return l.db.AutoMigrate(&ConversationOwnership{}, &Transition{})
}

// ensure inserts the default bot-owned record if the conversation is new.
// The ON CONFLICT DO NOTHING makes concurrent first-touch races harmless.
func (l *GormLedger) ensure(tx *gorm.DB, conversationID, accountID string) error {
	rec := ConversationOwnership{
		ConversationID: conversationID,
		AccountID:      accountID,
		Owner:          OwnerBot,
		UpdatedAt:      time.Now().UTC(),
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

// Get returns the ownership record, materializing a bot-owned default for
// unknown conversations.
func (l *GormLedger) Get(ctx context.Context, conversationID, accountID string) (*ConversationOwnership, error) {
	db := l.db.WithContext(ctx)

	if err := l.ensure(db, conversationID, accountID); err != nil {
		return nil, types.NewStoreUnavailableError("failed to materialize ownership record", err)
	}

	if accountID != "" {
		// backfill the account binding on records created before the
		// conversation was attributed to an account
		err := db.Model(&ConversationOwnership{}).
			Where("conversation_id = ? AND (account_id = '' OR account_id IS NULL)", conversationID).
			Update("account_id", accountID).Error
		if err != nil {
			return nil, types.NewStoreUnavailableError("failed to bind account", err)
		}
	}

	var rec ConversationOwnership
	if err := db.First(&rec, "conversation_id = ?", conversationID).Error; err != nil {
		return nil, types.NewStoreUnavailableError("failed to load ownership record", err)
	}

	return &rec, nil
}

// AppendTransition applies t atomically. The conditional update is the
// linearization point: only the request that actually flips the owner gets
// RowsAffected == 1 and writes a history entry.
func (l *GormLedger) AppendTransition(ctx context.Context, conversationID, accountID string, t Transition) (*ConversationOwnership, bool, error) {
	applied := false

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.ensure(tx, conversationID, accountID); err != nil {
			return err
		}

		operator := ""
		if t.Owner == OwnerHuman {
			operator = t.Operator
		}

		res := tx.Model(&ConversationOwnership{}).
			Where("conversation_id = ? AND owner <> ?", conversationID, t.Owner).
			Updates(map[string]interface{}{
				"owner":             t.Owner,
				"assigned_operator": operator,
				"updated_at":        time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// already at the requested owner, idempotent no-op
			return nil
		}

		applied = true

		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		t.ConversationID = conversationID
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		return tx.Create(&t).Error
	})
	if err != nil {
		return nil, false, types.NewStoreUnavailableError("failed to append transition", err)
	}

	rec, err := l.Get(ctx, conversationID, accountID)
	if err != nil {
		return nil, applied, err
	}
	return rec, applied, nil
}

// History returns the transition log, oldest first.
func (l *GormLedger) History(ctx context.Context, conversationID string) ([]Transition, error) {
	var entries []Transition
	err := l.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at asc").
		Find(&entries).Error
	if err != nil {
		return nil, types.NewStoreUnavailableError("failed to load transition history", err)
	}
	return entries, nil
}

// ListBotOwned returns bot-owned conversations for the given accounts.
func (l *GormLedger) ListBotOwned(ctx context.Context, accountIDs []string) ([]ConversationOwnership, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	var recs []ConversationOwnership
	err := l.db.WithContext(ctx).
		Where("owner = ? AND account_id IN ?", OwnerBot, accountIDs).
		Order("conversation_id asc").
		Find(&recs).Error
	if err != nil {
		return nil, types.NewStoreUnavailableError("failed to list bot-owned conversations", err)
	}
	return recs, nil
}
