package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mutolaa/internal/model"
	"mutolaa/internal/stats"
)

// this file contains everything regarding telegram bot integration

// Bot answers reader commands received by long polling
type Bot struct {
	API   *tgbotapi.BotAPI
	DB    *gorm.DB
	Stats *stats.Service
	Log   zerolog.Logger
}

// request is one command being handled
type request struct {
	ctx     context.Context
	message *tgbotapi.Message
	args    []string
	user    *model.User
}

func (r *request) reply(text string) tgbotapi.MessageConfig {
	return tgbotapi.NewMessage(r.message.Chat.ID, text)
}

type commandHandler func(b *Bot, r *request) tgbotapi.MessageConfig

// commands that need a registered, non-banned user
var commands = map[string]commandHandler{
	"add":         (*Bot).add,
	"edit":        (*Bot).edit,
	"delete":      (*Bot).delete,
	"mystats":     (*Bot).myStats,
	"setgoal":     (*Bot).setGoal,
	"leaderboard": (*Bot).leaderboard,
	"report":      (*Bot).report,
	"reminder":    (*Bot).reminder,
	"streak":      (*Bot).streak,
}

// Loop handles updates until ctx is cancelled
func (b *Bot) Loop(ctx context.Context) error {
	b.Log.Info().Str("account", b.API.Self.UserName).Msg("telegram bot authorized")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.API.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.API.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		if !update.Message.IsCommand() || update.Message.From == nil {
			return
		}
		b.send(b.HandleCommand(ctx, update.Message))
	case update.CallbackQuery != nil:
		// always answer the callback so the client stops its spinner
		if _, err := b.API.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			b.Log.Warn().Err(err).Msg("cannot answer callback")
		}
		if edit, ok := b.HandleCallback(ctx, update.CallbackQuery); ok {
			b.send(edit)
		}
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.API.Send(c); err != nil {
		b.Log.Warn().Err(err).Msg("cannot send reply")
	}
}

// HandleCommand runs one command message and returns the reply
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) tgbotapi.MessageConfig {
	r := &request{
		ctx:     ctx,
		message: message,
		args:    strings.Fields(message.CommandArguments()),
	}
	command := strings.ToLower(message.Command())
	b.Log.Debug().Int64("telegram_id", message.From.ID).Str("command", command).Msg("command received")

	switch command {
	case "start":
		return b.start(r)
	case "help":
		return r.reply(helpText)
	}
	handler, ok := commands[command]
	if !ok {
		return r.reply(textUnknownCommand)
	}
	user, err := model.FindUserByTelegramID(b.DB.WithContext(ctx), message.From.ID)
	if err != nil {
		return b.failure(r, err)
	}
	if user.IsBanned() {
		return r.reply(textBanned)
	}
	r.user = user
	return handler(b, r)
}

// failure turns an error into a reply; validation errors are shown as they are
func (b *Bot) failure(r *request, err error) tgbotapi.MessageConfig {
	switch {
	case model.IsValidation(err):
		return r.reply("❌ " + err.Error())
	case model.IsNotFound(err) && r.user == nil:
		return r.reply(textNotRegistered)
	case model.IsNotFound(err):
		return r.reply(textLogNotFound)
	case errors.Is(err, model.ErrBanned):
		return r.reply(textBanned)
	}
	b.Log.Error().Err(err).Int64("telegram_id", r.message.From.ID).Str("command", r.message.Command()).
		Msg("command failed")
	return r.reply(textInternalError)
}
