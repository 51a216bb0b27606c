package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
)

// Telegram sends messages to a single chat through the Bot API.
type Telegram struct {
	bot    *bot.Bot
	chatID int64
	token  []byte
}

// NewTelegram creates a Telegram notifier. chatID must already be
// validated as digits-only by the caller.
func NewTelegram(token, chatID string) (*Telegram, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing chat id: %w", err)
	}

	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &Telegram{
		bot:    b,
		chatID: id,
		token:  []byte(token),
	}, nil
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

// Close overwrites the retained token copy. The Bot API client holds its
// own copy internally; this clears what we control.
func (t *Telegram) Close() {
	for i := range t.token {
		t.token[i] = 0
	}
}
