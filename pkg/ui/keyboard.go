package ui

import (
	"github.com/go-telegram/bot/models"

	"github.com/smith3v/tg-pantry-reminder/pkg/bot/conversation"
)

// MainKeyboard is the persistent two-column reply keyboard shown after /start.
func MainKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{
				{Text: conversation.LabelAdd},
				{Text: conversation.LabelRemove},
			},
			{
				{Text: conversation.LabelList},
				{Text: conversation.LabelStatus},
			},
			{
				{Text: conversation.LabelReminders},
				{Text: conversation.LabelHelp},
			},
		},
		ResizeKeyboard: true,
	}
}
