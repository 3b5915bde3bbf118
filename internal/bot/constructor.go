package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tarolog/internal/storage"
	"tarolog/internal/tarot"
)

// NewBot creates a new Telegram bot
func NewBot(token string, ledger storage.Ledger, drawer *tarot.Drawer, allowedUserIDs []int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	return newBot(api, ledger, drawer, allowedUserIDs, logger), nil
}

func newBot(api telegramAPI, ledger storage.Ledger, drawer *tarot.Drawer, allowedUserIDs []int64, logger *zap.Logger) *Bot {
	allowedUsers := make(map[int64]bool)
	for _, id := range allowedUserIDs {
		allowedUsers[id] = true
	}

	return &Bot{
		api:          api,
		ledger:       ledger,
		drawer:       drawer,
		allowedUsers: allowedUsers,
		logger:       logger,
	}
}

func (b *Bot) isAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || b.allowedUsers[userID]
}
