package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"deadliner/internal/model"
)

// CompletionRepository manages per-user acknowledgment marks on tasks.
type CompletionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// GetOrCreate inserts a completion for (taskID, userID) or returns the
// existing one. The bool reports whether a new row was created; a repeat
// acknowledgment is a no-op, never an error.
func (r *CompletionRepository) GetOrCreate(ctx context.Context, taskID uint, userID int64, completedAt time.Time) (*model.Completion, bool, error) {
	var completion model.Completion
	db := r.db.WithContext(ctx)
	err := db.Where("task_id = ? AND user_id = ?", taskID, userID).First(&completion).Error
	switch {
	case err == nil:
		return &completion, false, nil
	case err == gorm.ErrRecordNotFound:
		completion = model.Completion{TaskID: taskID, UserID: userID, CompletedAt: completedAt}
		if createErr := db.Create(&completion).Error; createErr != nil {
			// A concurrent insert may have hit the unique index first.
			if err := db.Where("task_id = ? AND user_id = ?", taskID, userID).First(&completion).Error; err == nil {
				return &completion, false, nil
			}
			return nil, false, fmt.Errorf("create completion: %w", createErr)
		}
		return &completion, true, nil
	default:
		return nil, false, fmt.Errorf("find completion: %w", err)
	}
}

// ListByTask returns a task's completions in the order users first marked it.
func (r *CompletionRepository) ListByTask(ctx context.Context, taskID uint) ([]model.Completion, error) {
	var completions []model.Completion
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("completed_at ASC, id ASC").
		Find(&completions).Error; err != nil {
		return nil, err
	}
	return completions, nil
}

func (r *CompletionRepository) DeleteByID(ctx context.Context, completionID uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Completion{}, completionID).Error; err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}
