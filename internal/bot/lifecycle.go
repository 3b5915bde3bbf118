package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Start runs the bot in polling mode until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}
	b.registerCommands()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot started successfully. Waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			// select does not prefer Done over a queued update
			if ctx.Err() != nil {
				b.api.StopReceivingUpdates()
				return nil
			}
			b.Dispatch(update)
		}
	}
}

// StartWebhook registers webhookURL with Telegram
func (b *Bot) StartWebhook(webhookURL string) error {
	b.logger.Info("Setting up webhook", zap.String("webhook_url", webhookURL))

	webhookConfig, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	webhookConfig.MaxConnections = 40

	if _, err := b.api.Request(webhookConfig); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", webhookURL))
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	// Get webhook info to verify
	info, err := b.api.GetWebhookInfo()
	if err != nil {
		b.logger.Warn("Failed to get webhook info", zap.Error(err))
	} else {
		b.logger.Info("Webhook set successfully",
			zap.String("url", info.URL),
			zap.Int("pending_updates", info.PendingUpdateCount),
		)
	}

	b.registerCommands()
	return nil
}

// registerCommands publishes the command list shown in the Telegram menu
func (b *Bot) registerCommands() {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(botCommands()...)); err != nil {
		b.logger.Warn("Failed to register bot commands", zap.Error(err))
	}
}

// Dispatch handles the update on its own goroutine.
// It must not be called once Wait has started.
func (b *Bot) Dispatch(update tgbotapi.Update) {
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		b.HandleUpdate(context.Background(), update)
	}()
}

// Wait blocks until every dispatched update has been handled
func (b *Bot) Wait() {
	b.inflight.Wait()
}

// HandleUpdate processes a single update
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	// Handle regular messages
	if update.Message != nil && update.Message.From != nil {
		userID := update.Message.From.ID
		if !b.isAllowed(userID) {
			b.logger.Warn("Unauthorized access attempt",
				zap.Int64("user_id", userID),
				zap.String("username", update.Message.From.UserName),
				zap.String("text", update.Message.Text),
			)
			b.reply(update.Message, "Sorry, you are not authorized to use this bot.")
			return
		}
		b.handleMessage(ctx, update.Message)
	}

	// Handle callback queries (inline keyboard button clicks)
	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		userID := update.CallbackQuery.From.ID
		if !b.isAllowed(userID) {
			b.logger.Warn("Unauthorized callback query attempt",
				zap.Int64("user_id", userID),
				zap.String("callback_data", update.CallbackQuery.Data),
			)
			return
		}
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}
