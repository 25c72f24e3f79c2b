package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deadliner/internal/config"
	"deadliner/internal/model"
	"deadliner/internal/service"
)

const (
	cbDonePrefix  = "done:"
	cbClosePrefix = "close:"
)

const (
	menuLabelNewTask = "➕ Новая задача"
	menuLabelTasks   = "📋 Мои задачи"
)

// maxNamesShown limits how many completers are listed per task before
// collapsing the rest into "и ещё N".
const maxNamesShown = 3

// Bot wires Telegram updates to the lifecycle service.
type Bot struct {
	api       *tgbotapi.BotAPI
	lifecycle *service.LifecycleService
	config    *config.Config
}

func New(api *tgbotapi.BotAPI, lifecycle *service.LifecycleService, cfg *config.Config) *Bot {
	log.Printf("[info] bot authorized on account %s", api.Self.UserName)
	return &Bot{
		api:       api,
		lifecycle: lifecycle,
		config:    cfg,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	switch strings.TrimSpace(msg.Text) {
	case menuLabelNewTask:
		return b.sendText(msg.Chat.ID,
			"📝 Кидай задачу одной строкой:\n\n"+
				"<b>Название задачи 28.10.2025 14:30</b>\n\n"+
				"Дата и время — в конце строки.")
	case menuLabelTasks:
		return b.sendTaskList(ctx, msg.Chat.ID)
	}

	// Any other plain text is treated as a single-line task.
	return b.createTaskFromLine(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "tasks":
		return b.sendTaskList(ctx, msg.Chat.ID)
	case "done":
		return b.handleDone(ctx, msg)
	case "close":
		return b.handleClose(ctx, msg)
	case "undo":
		return b.handleUndo(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}
	text := fmt.Sprintf(
		"🙌 Привет, %s!\n\n"+
			"Я бот-дедлайнер: напомню о задачах за три дня, за день и в день сдачи.\n\n"+
			"Кидай задачу одной строкой:\n<b>Сделать отчёт 28.10.2025 14:30</b>\n\n"+
			"Команды:\n"+
			"• /tasks — активные задачи чата\n"+
			"• /done &lt;id&gt; — отметить, что ты выполнил(а)\n"+
			"• /close &lt;id&gt; — закрыть задачу для всех\n"+
			"• /undo — отменить последнее действие",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• Новая задача — одной строкой: <b>Название 28.10.2025 14:30</b>\n" +
		"• /tasks — список активных задач с кнопками\n" +
		"• /done &lt;id&gt; — отметить выполнение (только за себя)\n" +
		"• /close &lt;id&gt; — закрыть задачу для всех\n" +
		"• /undo — отменить последнее действие\n\n" +
		"Напоминания приходят в 09:00 за 3 дня, за 1 день и в день дедлайна; " +
		"выходные сдвигаются на понедельник."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) createTaskFromLine(ctx context.Context, msg *tgbotapi.Message) error {
	title, deadline, err := parseTaskLine(msg.Text, b.config.Timezone)
	if err != nil {
		// Group chatter rarely is a task; only private chats get the hint.
		if !msg.Chat.IsPrivate() {
			return nil
		}
		return b.sendText(msg.Chat.ID,
			"❌ Нужен формат:\n<b>Сделать отчёт 28.10.2025 14:30</b>")
	}

	task, err := b.lifecycle.CreateTask(ctx, msg.Chat.ID, msg.From.ID, title, deadline)
	if err != nil {
		if errors.Is(err, service.ErrEmptyTitle) {
			return b.sendText(msg.Chat.ID, "❌ Не вижу названия задачи перед датой.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось сохранить задачу: %s", escape(err.Error())))
	}

	return b.sendText(msg.Chat.ID, fmt.Sprintf(
		"✅ Задача «<b>%s</b>» сохранена (#%d).\nДедлайн: <b>%s</b>\n\nСписок задач — /tasks.",
		escape(task.Title), task.ID, task.Deadline.Format(deadlineLayout)))
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArgument(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Используй: /done 5 (где 5 — номер задачи)")
	}
	return b.acknowledge(ctx, msg.Chat.ID, msg.From.ID, taskID)
}

func (b *Bot) handleClose(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArgument(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Чтобы закрыть задачу для всех, используй: /close 5")
	}
	return b.closeTask(ctx, msg.Chat.ID, msg.From.ID, taskID)
}

func (b *Bot) acknowledge(ctx context.Context, chatID, userID int64, taskID uint) error {
	task, err := b.lifecycle.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendText(chatID, "❌ Задача с таким ID не найдена.")
		}
		return b.sendText(chatID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}

	_, created, err := b.lifecycle.AcknowledgeTask(ctx, taskID, userID)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}
	if !created {
		return b.sendText(chatID, fmt.Sprintf("Ты уже отмечал(а) выполнение задачи «%s» ✅", escape(task.Title)))
	}
	return b.sendText(chatID, fmt.Sprintf("Отметили, что ты выполнил(а) задачу «%s» ✅", escape(task.Title)))
}

func (b *Bot) closeTask(ctx context.Context, chatID, userID int64, taskID uint) error {
	task, err := b.lifecycle.CloseTask(ctx, chatID, userID, taskID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrWrongChat):
			return b.sendText(chatID, "❌ Задача с таким ID не найдена в этом чате.")
		default:
			return b.sendText(chatID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
		}
	}
	return b.sendText(chatID, fmt.Sprintf(
		"🔒 Задача #%d «%s» закрыта и больше не будет в списке.", task.ID, escape(task.Title)))
}

func (b *Bot) handleUndo(ctx context.Context, msg *tgbotapi.Message) error {
	result, err := b.lifecycle.UndoLast(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNothingToUndo):
			return b.sendText(msg.Chat.ID, "🤷 Нечего отменять.")
		case errors.Is(err, service.ErrMalformedAction):
			return b.sendText(msg.Chat.ID, "❌ Не удалось отменить последнее действие: запись повреждена.")
		default:
			return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
		}
	}

	title := ""
	if result.Task != nil {
		title = fmt.Sprintf(" «%s»", escape(result.Task.Title))
	}
	switch result.ActionType {
	case model.ActionAddTask:
		return b.sendText(msg.Chat.ID, fmt.Sprintf("↩️ Создание задачи%s отменено, задача скрыта.", title))
	case model.ActionCloseTask:
		return b.sendText(msg.Chat.ID, fmt.Sprintf("↩️ Задача%s снова активна.", title))
	default:
		return b.sendText(msg.Chat.ID, fmt.Sprintf("↩️ Отметка выполнения%s снята.", title))
	}
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64) error {
	views, err := b.lifecycle.ListActiveTasks(ctx, chatID)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить задачи: %s", escape(err.Error())))
	}
	if len(views) == 0 {
		return b.sendText(chatID, "📭 Активных задач нет — можно официально прокрастинировать 🙌")
	}

	var builder strings.Builder
	builder.WriteString("🗓 <b>Активные задачи:</b>\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, view := range views {
		task := view.Task
		builder.WriteString(fmt.Sprintf("• <b>#%d %s</b>\n   🕒 до <b>%s</b>\n   %s\n\n",
			task.ID, escape(task.Title), task.Deadline.Format(deadlineLayout),
			b.completersLine(chatID, view.CompletedBy)))

		buttons = append(buttons, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✅ Я сделал(а): %s", shortTitle(task.Title, 20)),
				fmt.Sprintf("%s%d", cbDonePrefix, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData(
				"🔒 Закрыть задачу",
				fmt.Sprintf("%s%d", cbClosePrefix, task.ID)),
		})
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) completersLine(chatID int64, userIDs []int64) string {
	if len(userIDs) == 0 {
		return "⏳ Пока никто не отметил выполнение"
	}

	shown := userIDs
	if len(shown) > maxNamesShown {
		shown = shown[:maxNamesShown]
	}
	names := make([]string, 0, len(shown))
	for _, userID := range shown {
		names = append(names, b.displayName(chatID, userID))
	}

	line := fmt.Sprintf("✅ Выполнили: %s", strings.Join(names, ", "))
	if extra := len(userIDs) - len(shown); extra > 0 {
		line += fmt.Sprintf(" и ещё %d", extra)
	}
	return line
}

// displayName resolves a user id to @username or full name, falling back to
// the raw id when the member is no longer visible to the bot.
func (b *Bot) displayName(chatID, userID int64) string {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil || member.User == nil {
		return strconv.FormatInt(userID, 10)
	}

	user := member.User
	if user.UserName != "" {
		return escape("@" + user.UserName)
	}
	fullName := strings.TrimSpace(strings.TrimSpace(user.FirstName) + " " + strings.TrimSpace(user.LastName))
	if fullName == "" {
		return strconv.FormatInt(userID, 10)
	}
	return escape(fullName)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, cbDonePrefix):
		taskID, err := parseTaskID(data, cbDonePrefix)
		if err != nil {
			return nil
		}
		log.Printf("[info] callback done user=%d task=%d", cb.From.ID, taskID)
		return b.acknowledge(ctx, chatID, cb.From.ID, taskID)
	case strings.HasPrefix(data, cbClosePrefix):
		taskID, err := parseTaskID(data, cbClosePrefix)
		if err != nil {
			return nil
		}
		log.Printf("[info] callback close user=%d task=%d", cb.From.ID, taskID)
		return b.closeTask(ctx, chatID, cb.From.ID, taskID)
	default:
		return nil
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func parseIDArgument(args string) (uint, error) {
	args = strings.TrimSpace(args)
	id, err := strconv.ParseUint(args, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimPrefix(data, prefix)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse task id %q: %w", raw, err)
	}
	return uint(id), nil
}

func shortTitle(title string, limit int) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
