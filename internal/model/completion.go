package model

import "time"

// Completion records that a user acknowledged a task. The composite unique
// index keeps acknowledgment idempotent: one row per user per task.
type Completion struct {
	ID          uint  `gorm:"primaryKey"`
	TaskID      uint  `gorm:"index:idx_task_user,unique"`
	UserID      int64 `gorm:"index:idx_task_user,unique"`
	CompletedAt time.Time
}
