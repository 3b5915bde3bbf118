package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tarolog/internal/storage"
	"tarolog/internal/tarot"
)

// SpreadSize is the number of cards drawn for one spread
const SpreadSize = 3

// telegramAPI is the part of *tgbotapi.BotAPI the bot talks to
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
	StopReceivingUpdates()
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api          telegramAPI
	ledger       storage.Ledger
	drawer       *tarot.Drawer
	allowedUsers map[int64]bool // Empty means no restriction
	logger       *zap.Logger

	inflight sync.WaitGroup
}
