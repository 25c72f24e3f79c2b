package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client delivers rendered text to a chat. It is the notifier handed to the
// lifecycle service, kept separate from Bot so the service never sees the
// update loop.
type Client struct {
	api *tgbotapi.BotAPI
}

func NewClient(api *tgbotapi.BotAPI) *Client {
	return &Client{api: api}
}

func (c *Client) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := c.api.Send(msg)
	return err
}
