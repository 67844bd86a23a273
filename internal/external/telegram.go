package external

import (
	"context"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"mutolaa/internal/model"
)

// this file contains the outbound side of the telegram integration

// NewTelegramAPI authorizes the bot with an HTTP client bounded by timeout
func NewTelegramAPI(token string, endpoint string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, errors.Wrap(model.ErrUpstreamUnavailable, "telegram authorization: "+err.Error())
	}
	return api, nil
}

// TelegramSender delivers messages with bounded retries.
// Every call is limited by the timeout of the API's HTTP client.
type TelegramSender struct {
	API     *tgbotapi.BotAPI
	Retries int
	Backoff time.Duration
	Log     zerolog.Logger
}

func NewTelegramSender(api *tgbotapi.BotAPI, retries int, backoff time.Duration, log zerolog.Logger) *TelegramSender {
	if retries < 1 {
		retries = 1
	}
	return &TelegramSender{API: api, Retries: retries, Backoff: backoff, Log: log}
}

// Send posts text to chatID and returns the id of the sent message
func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) (int, error) {
	var sent tgbotapi.Message
	err := s.retry(ctx, "sendMessage", chatID, func() (err error) {
		sent, err = s.API.Send(tgbotapi.NewMessage(chatID, text))
		return err
	})
	return sent.MessageID, err
}

// Pin pins a message silently
func (s *TelegramSender) Pin(ctx context.Context, chatID int64, messageID int) error {
	return s.retry(ctx, "pinChatMessage", chatID, func() error {
		_, err := s.API.Request(tgbotapi.PinChatMessageConfig{
			ChatID:              chatID,
			MessageID:           messageID,
			DisableNotification: true,
		})
		return err
	})
}

func (s *TelegramSender) retry(ctx context.Context, method string, chatID int64, call func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = call(); err == nil {
			return nil
		}
		wait, transient := retryDelay(err, s.Backoff, attempt)
		if !transient || attempt >= s.Retries {
			break
		}
		s.Log.Debug().Err(err).Str("method", method).Int64("chat_id", chatID).
			Int("attempt", attempt).Dur("wait", wait).Msg("telegram call failed, retrying")
		select {
		case <-ctx.Done():
			return errors.Wrap(model.ErrUpstreamUnavailable, ctx.Err().Error())
		case <-time.After(wait):
		}
	}
	return errors.Wrapf(model.ErrUpstreamUnavailable, "telegram %s to %d: %v", method, chatID, err)
}

// retryDelay reports whether err is worth another attempt and how long to wait.
// Telegram answers 429 and 5xx are transient, other answers are final; errors
// without an answer (timeouts, resets) are transient.
func retryDelay(err error, backoff time.Duration, attempt int) (time.Duration, bool) {
	wait := backoff << uint(attempt-1)
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return wait, true
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		if apiErr.RetryAfter > 0 {
			wait = time.Duration(apiErr.RetryAfter) * time.Second
		}
		return wait, true
	case apiErr.Code >= http.StatusInternalServerError:
		return wait, true
	}
	return 0, false
}
