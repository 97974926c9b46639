package notify

import (
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/statusbeat/statusbeat/internal/logger"
)

// TelegramNotifier sends status transition notifications to a Telegram chat.
// It is send-only: no poller is started, the bot token is only used for the
// outbound sendMessage calls.
type TelegramNotifier struct {
	bot    *tele.Bot
	chatID int64
	log    logger.Logger
}

// NewTelegramNotifier creates a Telegram-backed notifier. The token is
// validated against the Telegram API during construction.
func NewTelegramNotifier(token string, chatID int64, log logger.Logger) (*TelegramNotifier, error) {
	if log == nil {
		log = logger.Default()
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Client: nil,
		// Send-only: no long polling.
		Offline: false,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	return &TelegramNotifier{bot: bot, chatID: chatID, log: log}, nil
}

func (n *TelegramNotifier) Send(title, body string) {
	msg := fmt.Sprintf("*%s*\n%s\n_%s_", title, body, time.Now().UTC().Format("15:04:05 MST"))

	chat := &tele.Chat{ID: n.chatID}
	if _, err := n.bot.Send(chat, msg, tele.ModeMarkdown); err != nil {
		// Fire-and-forget: a delivery failure must never stall event processing.
		n.log.Error("telegram send failed: %v", err)
	}
}
