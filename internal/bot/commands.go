package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tarolog/internal/metrics"
	"tarolog/internal/tarot"
)

const (
	welcomeText = "Welcome to TarologForYou! Choose an action:"
	aboutText   = "This is a tarot reading bot. You can make a spread and get a consultation."
	helpText    = `Available commands:
🔮 Make a spread - Get a tarot spread
🔑 Personal account - Check your balance
ℹ️ About the bot - Information about the bot
❓ Help - Usage tips`
	failureText = "Something went wrong. Please try again later."
)

// handleStart registers the user and shows the main menu
func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	if err := b.ledger.EnsureAccount(ctx, userID, username(message.From)); err != nil {
		b.logger.Error("Failed to ensure account",
			zap.Error(err),
			zap.Int64("user_id", userID),
		)
		b.reply(message, failureText)
		return
	}

	b.replyWithMarkup(message, welcomeText, mainMenuKeyboard())
}

// handleSpread draws a spread and sends it back
func (b *Bot) handleSpread(message *tgbotapi.Message) {
	spreadID := uuid.NewString()
	b.logger.Info("Starting tarot spread",
		zap.String("spread_id", spreadID),
		zap.Int64("user_id", message.From.ID),
	)

	cards, err := b.drawer.Draw(SpreadSize)
	if err != nil {
		metrics.IncSpread(false)
		var sizeErr *tarot.InsufficientDeckSizeError
		if errors.As(err, &sizeErr) {
			b.logger.Warn("Deck too small for spread",
				zap.String("spread_id", spreadID),
				zap.Int("requested", sizeErr.Requested),
				zap.Int("available", sizeErr.Available),
			)
			b.reply(message, fmt.Sprintf("Not enough cards in the deck. Available: %d.", sizeErr.Available))
			return
		}
		b.logger.Error("Failed to draw spread", zap.Error(err), zap.String("spread_id", spreadID))
		b.reply(message, failureText)
		return
	}

	b.reply(message, "Your spread:\n"+tarot.FormatSpread(cards))
	metrics.IncSpread(true)
	b.logger.Info("Spread sent", zap.String("spread_id", spreadID))
}

// handleAccount shows the balance with the account actions
func (b *Bot) handleAccount(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	balance, err := b.ledger.GetBalance(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to get balance",
			zap.Error(err),
			zap.Int64("user_id", userID),
		)
		b.reply(message, failureText)
		return
	}

	text := fmt.Sprintf("Your balance: %s rubles\n\nWhat would you like to do?", balance.StringFixed(2))
	b.replyWithMarkup(message, text, accountKeyboard())
}

func (b *Bot) handleAbout(message *tgbotapi.Message) {
	b.reply(message, aboutText)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	b.reply(message, helpText)
}
