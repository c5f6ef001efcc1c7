package service

import (
	"context"

	"github.com/AlexIndustrial/latebot/pkg/telegram"
)

// Sender is the outbound messaging surface the services need. Satisfied by
// *telegram.Client; test doubles record what would have been sent.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
}
