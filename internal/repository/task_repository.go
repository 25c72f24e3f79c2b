package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"deadliner/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListActiveByChat returns the chat's open tasks, closest deadline first.
func (r *TaskRepository) ListActiveByChat(ctx context.Context, chatID int64) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("chat_id = ? AND status = ?", chatID, model.StatusActive).
		Order("deadline ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListActive returns all open tasks across chats, used to rebuild reminder
// jobs after a restart.
func (r *TaskRepository) ListActive(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("status = ?", model.StatusActive).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) SetStatus(ctx context.Context, taskID uint, status string) error {
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("set task status: %w", err)
	}
	return nil
}
