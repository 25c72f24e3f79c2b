package model

import "time"

// Action types that /undo knows how to revert.
const (
	ActionAddTask    = "add_task"
	ActionCloseTask  = "close_task"
	ActionCompletion = "completion"
)

// LastAction is the most recent mutating operation in a chat, kept for
// one-step undo. At most one row exists per scope; recording a new action
// replaces the previous one.
type LastAction struct {
	ID           uint  `gorm:"primaryKey"`
	ChatID       int64 `gorm:"index"`
	UserID       int64
	ActionType   string
	TaskID       uint
	CompletionID *uint
	CreatedAt    time.Time
}
