package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mutolaa/internal/model"
)

// HandleCallback answers the delete confirmation keyboard by editing its message.
// It reports false for callbacks it does not know.
func (b *Bot) HandleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) (tgbotapi.EditMessageTextConfig, bool) {
	if query.Message == nil || query.From == nil {
		return tgbotapi.EditMessageTextConfig{}, false
	}
	edit := func(text string) (tgbotapi.EditMessageTextConfig, bool) {
		return tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, text), true
	}

	switch {
	case query.Data == deleteCancel:
		return edit(textCancelled)
	case strings.HasPrefix(query.Data, deleteConfirmPrefix):
		date, err := model.ParseDate(strings.TrimPrefix(query.Data, deleteConfirmPrefix))
		if err != nil {
			return edit(textBadDate)
		}
		db := b.DB.WithContext(ctx)
		user, err := model.FindUserByTelegramID(db, query.From.ID)
		if err != nil {
			if model.IsNotFound(err) {
				return edit(textNotRegistered)
			}
			b.Log.Error().Err(err).Int64("telegram_id", query.From.ID).Msg("cannot load user")
			return edit(textInternalError)
		}
		if err := model.DeleteReadingLog(db, user, date, b.Stats.Now()); err != nil {
			switch {
			case model.IsNotFound(err):
				return edit(textLogNotFound)
			case user.IsBanned():
				return edit(textBanned)
			}
			b.Log.Error().Err(err).Int64("telegram_id", query.From.ID).Msg("cannot delete reading log")
			return edit(textInternalError)
		}
		return edit(textDeleted)
	}
	return tgbotapi.EditMessageTextConfig{}, false
}
