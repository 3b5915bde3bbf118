package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Menu button texts
const (
	buttonSpread  = "🔮 Make a spread"
	buttonAccount = "🔑 Personal account"
	buttonAbout   = "ℹ️ About the bot"
	buttonHelp    = "❓ Help"
	buttonMenu    = "📜 Menu"
)

// Callback data for the account view
const (
	callbackReplenish = "replenish"
	callbackEditData  = "edit_data"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonSpread),
			tgbotapi.NewKeyboardButton(buttonAccount),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonAbout),
			tgbotapi.NewKeyboardButton(buttonHelp),
		),
	)
	keyboard.ResizeKeyboard = true
	keyboard.OneTimeKeyboard = true
	return keyboard
}

func accountKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Top up", callbackReplenish),
			tgbotapi.NewInlineKeyboardButtonData("Edit data", callbackEditData),
		),
	)
}

func botCommands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "start", Description: "Main menu"},
		{Command: "spread", Description: "Make a tarot spread"},
		{Command: "account", Description: "Personal account"},
		{Command: "help", Description: "How to use the bot"},
	}
}
