package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Undo scopes: chat-wide undo reverts the last action by anyone in the chat,
// user undo reverts only the caller's own last action.
const (
	UndoScopeChat = "chat"
	UndoScopeUser = "user"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	Timezone      *time.Location
	UndoScope     string
}

// Load reads configuration from environment variables (and an optional .env
// file) with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		UndoScope:     strings.TrimSpace(os.Getenv("UNDO_SCOPE")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "deadliner.db"
	}

	switch cfg.UndoScope {
	case "":
		cfg.UndoScope = UndoScopeChat
	case UndoScopeChat, UndoScopeUser:
	default:
		return cfg, fmt.Errorf("UNDO_SCOPE must be %q or %q, got %q", UndoScopeChat, UndoScopeUser, cfg.UndoScope)
	}

	loc, err := parseTimezone(strings.TrimSpace(os.Getenv("TIMEZONE")))
	if err != nil {
		return cfg, err
	}
	cfg.Timezone = loc

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func parseTimezone(raw string) (*time.Location, error) {
	if raw == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", raw, err)
	}
	return loc, nil
}
