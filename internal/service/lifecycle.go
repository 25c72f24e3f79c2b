package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"deadliner/internal/model"
	"deadliner/internal/repository"
)

var (
	ErrEmptyTitle      = errors.New("task title is empty")
	ErrNotFound        = errors.New("task not found")
	ErrWrongChat       = errors.New("task belongs to another chat")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrMalformedAction = errors.New("last action has no completion id")
)

// Scheduler runs callbacks at fixed future times.
type Scheduler interface {
	ScheduleAt(at time.Time, job func()) cron.EntryID
}

// Notifier delivers rendered text to a chat. Delivery is fire-and-forget:
// failures are logged, never propagated into the task state.
type Notifier interface {
	Send(chatID int64, text string) error
}

// TaskView is a task together with the users who acknowledged it, in the
// order they first did.
type TaskView struct {
	Task        model.Task
	CompletedBy []int64
}

// UndoResult describes what a successful undo reverted.
type UndoResult struct {
	ActionType string
	Task       *model.Task
}

// LifecycleService owns the task state machine: creation, acknowledgment
// marks, closing, one-step undo and reminder scheduling. It is the only
// writer of task status; the scheduler and notifier are injected
// collaborators.
type LifecycleService struct {
	tasks       *repository.TaskRepository
	completions *repository.CompletionRepository
	actions     *repository.ActionRepository
	scheduler   Scheduler
	notifier    Notifier
	now         func() time.Time
}

func NewLifecycleService(
	tasks *repository.TaskRepository,
	completions *repository.CompletionRepository,
	actions *repository.ActionRepository,
	scheduler Scheduler,
	notifier Notifier,
) *LifecycleService {
	return &LifecycleService{
		tasks:       tasks,
		completions: completions,
		actions:     actions,
		scheduler:   scheduler,
		notifier:    notifier,
		now:         time.Now,
	}
}

// CreateTask stores a new active task, remembers it as the chat's last action
// and schedules its reminders. A deadline in the past is not an error, it
// just produces no reminder jobs.
func (s *LifecycleService) CreateTask(ctx context.Context, chatID, creatorID int64, title string, deadline time.Time) (*model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	task := model.Task{
		ChatID:    chatID,
		CreatorID: creatorID,
		Title:     title,
		Deadline:  deadline,
		Status:    model.StatusActive,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}

	if err := s.actions.Record(ctx, &model.LastAction{
		ChatID:     chatID,
		UserID:     creatorID,
		ActionType: model.ActionAddTask,
		TaskID:     task.ID,
	}); err != nil {
		return nil, err
	}

	s.scheduleReminders(task)
	log.Printf("[info] task created id=%d chat=%d deadline=%s", task.ID, chatID, deadline.Format("2006-01-02 15:04"))
	return &task, nil
}

// ListActiveTasks returns the chat's open tasks ordered by deadline, each
// with the distinct user ids that acknowledged it.
func (s *LifecycleService) ListActiveTasks(ctx context.Context, chatID int64) ([]TaskView, error) {
	tasks, err := s.tasks.ListActiveByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		completions, err := s.completions.ListByTask(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		seen := make(map[int64]struct{}, len(completions))
		var users []int64
		for _, c := range completions {
			if _, ok := seen[c.UserID]; ok {
				continue
			}
			seen[c.UserID] = struct{}{}
			users = append(users, c.UserID)
		}
		views = append(views, TaskView{Task: task, CompletedBy: users})
	}
	return views, nil
}

// GetTask fetches a single task by id regardless of status.
func (s *LifecycleService) GetTask(ctx context.Context, taskID uint) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// AcknowledgeTask marks the task done for one user without changing its
// status. A repeat call by the same user returns the existing completion and
// records nothing new.
func (s *LifecycleService) AcknowledgeTask(ctx context.Context, taskID uint, userID int64) (*model.Completion, bool, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}

	completion, created, err := s.completions.GetOrCreate(ctx, task.ID, userID, s.now())
	if err != nil {
		return nil, false, err
	}
	if !created {
		return completion, false, nil
	}

	if err := s.actions.Record(ctx, &model.LastAction{
		ChatID:       task.ChatID,
		UserID:       userID,
		ActionType:   model.ActionCompletion,
		TaskID:       task.ID,
		CompletionID: &completion.ID,
	}); err != nil {
		return nil, false, err
	}
	return completion, true, nil
}

// CloseTask sets the task to done for the whole chat. Closing an already
// closed task succeeds as a no-op. The chat ownership check applies to every
// caller, command and inline button alike.
func (s *LifecycleService) CloseTask(ctx context.Context, chatID, userID int64, taskID uint) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if task.ChatID != chatID {
		return nil, ErrWrongChat
	}
	if task.Status == model.StatusDone {
		return task, nil
	}

	if err := s.tasks.SetStatus(ctx, task.ID, model.StatusDone); err != nil {
		return nil, err
	}
	task.Status = model.StatusDone

	if err := s.actions.Record(ctx, &model.LastAction{
		ChatID:     chatID,
		UserID:     userID,
		ActionType: model.ActionCloseTask,
		TaskID:     task.ID,
	}); err != nil {
		return nil, err
	}
	log.Printf("[info] task closed id=%d chat=%d", task.ID, chatID)
	return task, nil
}

// UndoLast reverts the scope's most recent action. Undo is single-shot: the
// action is consumed on success and on a malformed record alike, so the next
// call reports there is nothing to undo.
func (s *LifecycleService) UndoLast(ctx context.Context, chatID, userID int64) (*UndoResult, error) {
	action, err := s.actions.Latest(ctx, chatID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNothingToUndo
		}
		return nil, err
	}

	task, undoErr := s.applyUndo(ctx, action)
	if undoErr != nil && !errors.Is(undoErr, ErrMalformedAction) {
		return nil, undoErr
	}

	// Consumed on success and on a malformed action alike, so a broken
	// record can never wedge further undos.
	if err := s.actions.Clear(ctx, chatID, userID); err != nil {
		log.Printf("clear last action chat=%d: %v", chatID, err)
	}
	if undoErr != nil {
		return nil, undoErr
	}

	log.Printf("[info] undo %s chat=%d task=%d", action.ActionType, chatID, action.TaskID)
	return &UndoResult{ActionType: action.ActionType, Task: task}, nil
}

func (s *LifecycleService) applyUndo(ctx context.Context, action *model.LastAction) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, action.TaskID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	switch action.ActionType {
	case model.ActionAddTask:
		// Creation is undone by hiding the task, not deleting it, so its
		// completion history stays inspectable.
		if task != nil && task.Status != model.StatusDone {
			if err := s.tasks.SetStatus(ctx, task.ID, model.StatusDone); err != nil {
				return nil, err
			}
			task.Status = model.StatusDone
		}
	case model.ActionCloseTask:
		if task != nil && task.Status != model.StatusActive {
			if err := s.tasks.SetStatus(ctx, task.ID, model.StatusActive); err != nil {
				return nil, err
			}
			task.Status = model.StatusActive
		}
	case model.ActionCompletion:
		if action.CompletionID == nil {
			return nil, ErrMalformedAction
		}
		if err := s.completions.DeleteByID(ctx, *action.CompletionID); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown action type %q", action.ActionType)
	}

	return task, nil
}

// RestoreReminders re-registers reminder jobs for every active task from its
// persisted deadline. Scheduled jobs do not survive a restart, only the task
// rows do, so this runs once at process start.
func (s *LifecycleService) RestoreReminders(ctx context.Context) error {
	tasks, err := s.tasks.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		s.scheduleReminders(task)
	}
	log.Printf("[info] restored reminders for %d active tasks", len(tasks))
	return nil
}

func (s *LifecycleService) scheduleReminders(task model.Task) {
	for _, rem := range PlanReminders(task.Deadline, s.now()) {
		offset := rem.Offset
		taskID := task.ID
		s.scheduler.ScheduleAt(rem.FireAt, func() {
			s.fireReminder(taskID, offset)
		})
	}
}

// fireReminder re-reads the task at fire time. The status check happens here
// and not at scheduling time: a task may be closed or undone in between, and
// stale jobs must self-cancel instead of messaging the chat.
func (s *LifecycleService) fireReminder(taskID uint, offset int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("reminder lookup task=%d: %v", taskID, err)
		}
		return
	}
	if !task.Active() {
		return
	}

	if err := s.notifier.Send(task.ChatID, reminderText(offset, task.Title)); err != nil {
		log.Printf("reminder send task=%d offset=%d: %v", taskID, offset, err)
	}
}

func reminderText(offset int, title string) string {
	title = html.EscapeString(title)
	switch offset {
	case 3:
		return fmt.Sprintf("⏳ Через ТРИ дня дедлайн по задаче: «%s»", title)
	case 1:
		return fmt.Sprintf("⚡ Завтра сдавать: «%s»", title)
	default:
		return fmt.Sprintf("🔥 Сегодня дедлайн по: «%s»", title)
	}
}
