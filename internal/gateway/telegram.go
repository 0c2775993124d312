package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramGateway delivers reminders as Telegram messages. The recipient
// address is the chat id in decimal form.
type TelegramGateway struct {
	bot    *tgbotapi.BotAPI
	logger zerolog.Logger
}

// NewTelegramGateway creates the gateway from a bot token.
func NewTelegramGateway(token string, logger zerolog.Logger) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramGateway{
		bot:    bot,
		logger: logger.With().Str("component", "telegram_gateway").Logger(),
	}, nil
}

// Send delivers one message to a chat id.
func (g *TelegramGateway) Send(ctx context.Context, to, body string) (Result, error) {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return Result{}, &DispatchError{Kind: KindInvalidRecipient, Err: fmt.Errorf("recipient %q is not a chat id", to)}
	}

	type sendResult struct {
		msg tgbotapi.Message
		err error
	}
	done := make(chan sendResult, 1)
	go func() {
		msg, err := g.bot.Send(tgbotapi.NewMessage(chatID, body))
		done <- sendResult{msg, err}
	}()

	select {
	case <-ctx.Done():
		return Result{}, &DispatchError{Kind: KindProviderTimeout, Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			return Result{}, classifyTelegramError(res.err)
		}
		return Result{
			ProviderMessageID: strconv.Itoa(res.msg.MessageID),
			Status:            "sent",
		}, nil
	}
}

// SendDocument delivers a file to a chat id, used for audit reports.
func (g *TelegramGateway) SendDocument(ctx context.Context, to, filename string, data []byte, caption string) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return &DispatchError{Kind: KindInvalidRecipient, Err: fmt.Errorf("recipient %q is not a chat id", to)}
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption

	done := make(chan error, 1)
	go func() {
		_, err := g.bot.Send(doc)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return &DispatchError{Kind: KindProviderTimeout, Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			return classifyTelegramError(err)
		}
		return nil
	}
}

func classifyTelegramError(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 400:
			return &DispatchError{Kind: KindInvalidRecipient, Err: err}
		case 403:
			return &DispatchError{Kind: KindProviderRejected, Err: err}
		case 429:
			return &DispatchError{Kind: KindProviderTimeout, Err: err}
		}
	}
	return &DispatchError{Kind: KindProviderTimeout, Err: err}
}
