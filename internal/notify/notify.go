// Package notify delivers outbound "someone is here" messages. The
// controller treats delivery as fire-and-forget; a failed send is logged
// and never affects door state.
package notify

import (
	"context"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/facegate/facegate/internal/config"
)

// Notifier sends a short text message to the configured destination.
type Notifier interface {
	Send(ctx context.Context, text string) error
	// Close releases the transport and overwrites credential material.
	Close()
}

// Noop swallows every message. Used when notification is not configured.
type Noop struct{}

func (Noop) Send(ctx context.Context, text string) error { return nil }
func (Noop) Close()                                      {}

// chatIDPattern accepts digits only; anything else silently disables the
// sink rather than failing startup.
var chatIDPattern = regexp.MustCompile(`^[0-9]+$`)

// NewFromConfig builds a notifier from the environment-derived config.
// Missing token or chat id, or a malformed chat id, yields a Noop sink
// and the rest of the system runs with notifications disabled.
func NewFromConfig(cfg config.NotifyConfig, log zerolog.Logger) Notifier {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		log.Info().Msg("notifications disabled: bot token or chat id not set")
		return Noop{}
	}
	if !chatIDPattern.MatchString(cfg.ChatID) {
		log.Warn().Str("chat_id", cfg.ChatID).Msg("notifications disabled: chat id is not digits-only")
		return Noop{}
	}

	tg, err := NewTelegram(cfg.BotToken, cfg.ChatID)
	if err != nil {
		log.Warn().Err(err).Msg("notifications disabled: telegram init failed")
		return Noop{}
	}
	return tg
}
