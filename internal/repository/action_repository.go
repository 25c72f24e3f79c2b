package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"deadliner/internal/model"
)

// ActionRepository keeps the single undoable action per scope. The scope is
// either the whole chat or chat+user, fixed at construction from config.
type ActionRepository struct {
	db      *gorm.DB
	perUser bool
}

func NewActionRepository(db *gorm.DB, perUser bool) *ActionRepository {
	return &ActionRepository{db: db, perUser: perUser}
}

// Record replaces the scope's current last action with the given one. The
// delete+insert runs in one transaction so concurrent writers in the same
// chat cannot both end up owning "the last action".
func (r *ActionRepository) Record(ctx context.Context, action *model.LastAction) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.scoped(tx, action.ChatID, action.UserID).Delete(&model.LastAction{}).Error; err != nil {
			return err
		}
		return tx.Create(action).Error
	})
	if err != nil {
		return fmt.Errorf("record last action: %w", err)
	}
	return nil
}

// Latest returns the scope's current last action, or gorm.ErrRecordNotFound.
func (r *ActionRepository) Latest(ctx context.Context, chatID, userID int64) (*model.LastAction, error) {
	var action model.LastAction
	if err := r.scoped(r.db.WithContext(ctx), chatID, userID).
		Order("created_at DESC, id DESC").
		First(&action).Error; err != nil {
		return nil, err
	}
	return &action, nil
}

func (r *ActionRepository) Clear(ctx context.Context, chatID, userID int64) error {
	if err := r.scoped(r.db.WithContext(ctx), chatID, userID).Delete(&model.LastAction{}).Error; err != nil {
		return fmt.Errorf("clear last action: %w", err)
	}
	return nil
}

func (r *ActionRepository) scoped(db *gorm.DB, chatID, userID int64) *gorm.DB {
	if r.perUser {
		return db.Where("chat_id = ? AND user_id = ?", chatID, userID)
	}
	return db.Where("chat_id = ?", chatID)
}
