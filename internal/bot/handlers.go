package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tarolog/internal/metrics"
)

// handleMessage routes a single message to its handler
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.reply(message, "An error occurred while processing your request. Please try again.")
		}
	}()

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}
	b.handleMenu(ctx, message)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	b.logger.Info("Command received",
		zap.String("command", command),
		zap.Int64("user_id", message.From.ID),
	)

	switch command {
	case "start":
		metrics.IncUpdate("start")
		b.handleStart(ctx, message)
	case "spread":
		metrics.IncUpdate("spread")
		b.handleSpread(message)
	case "account":
		metrics.IncUpdate("account")
		b.handleAccount(ctx, message)
	case "help":
		metrics.IncUpdate("help")
		b.handleHelp(message)
	case "about":
		metrics.IncUpdate("about")
		b.handleAbout(message)
	default:
		metrics.IncUpdate("ignored")
	}
}

// handleMenu handles the reply keyboard buttons; any other text is ignored
func (b *Bot) handleMenu(ctx context.Context, message *tgbotapi.Message) {
	switch message.Text {
	case buttonMenu:
		b.logger.Info("Menu requested again")
		metrics.IncUpdate("start")
		b.handleStart(ctx, message)
	case buttonSpread:
		b.logger.Info("Spread requested from menu")
		metrics.IncUpdate("spread")
		b.handleSpread(message)
	case buttonAccount:
		b.logger.Info("Personal account opened")
		metrics.IncUpdate("account")
		b.handleAccount(ctx, message)
	case buttonAbout:
		b.logger.Info("About requested")
		metrics.IncUpdate("about")
		b.handleAbout(message)
	case buttonHelp:
		b.logger.Info("Help requested")
		metrics.IncUpdate("help")
		b.handleHelp(message)
	default:
		metrics.IncUpdate("ignored")
	}
}
