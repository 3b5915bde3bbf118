package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// sendMessage sends a message and logs delivery failures
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if b.api == nil {
		return // For testing
	}

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", msg.ChatID),
		)
	}
}

// reply sends plain text to the chat the message came from
func (b *Bot) reply(message *tgbotapi.Message, text string) {
	b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, text))
}

// replyWithMarkup sends text with a keyboard attached
func (b *Bot) replyWithMarkup(message *tgbotapi.Message, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyMarkup = markup
	b.sendMessage(msg)
}

func username(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	return user.UserName
}
