package model

import "time"

// Task statuses. Tasks are never deleted: a closed task keeps its row and its
// completion history, it just stops showing up in listings and reminders.
const (
	StatusActive = "active"
	StatusDone   = "done"
)

// Task is a deadline-bound item shared by all members of a chat.
type Task struct {
	ID        uint  `gorm:"primaryKey"`
	ChatID    int64 `gorm:"index"`
	CreatorID int64
	Title     string
	Deadline  time.Time
	Status    string `gorm:"index;default:active"`
	CreatedAt time.Time
}

// Active reports whether the task should appear in listings and fire reminders.
func (t Task) Active() bool { return t.Status == StatusActive }
