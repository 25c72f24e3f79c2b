package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deadliner/internal/bot"
	"deadliner/internal/config"
	"deadliner/internal/repository"
	"deadliner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	taskRepo := repository.NewTaskRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	actionRepo := repository.NewActionRepository(db, cfg.UndoScope == config.UndoScopeUser)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("bot api: %v", err)
	}

	scheduler := service.NewSchedulerService(cfg.Timezone)
	lifecycle := service.NewLifecycleService(taskRepo, completionRepo, actionRepo, scheduler, bot.NewClient(api))

	scheduler.Start()
	defer scheduler.Stop()

	// Reminder jobs live only in memory; rebuild them from persisted tasks.
	if err := lifecycle.RestoreReminders(ctx); err != nil {
		log.Fatalf("restore reminders: %v", err)
	}

	telegramBot := bot.New(api, lifecycle, &cfg)

	log.Println("Deadliner bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
