package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tarolog/internal/metrics"
)

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	// Answer the callback query to remove loading state
	if b.api != nil {
		if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			b.logger.Warn("Failed to answer callback query", zap.Error(err))
		}
	}

	switch query.Data {
	case callbackReplenish, callbackEditData:
		// Account actions are not available yet.
		metrics.IncUpdate(query.Data)
		b.logger.Info("Account action pressed",
			zap.String("action", query.Data),
			zap.Int64("user_id", query.From.ID),
		)
	default:
		metrics.IncUpdate("ignored")
		b.logger.Debug("Unknown callback data", zap.String("callback_data", query.Data))
	}
}
