package notify

import (
	"context"
	"errors"
	"time"

	"github.com/go-telegram/bot"
	"github.com/smith3v/tg-pantry-reminder/pkg/logger"
)

const DefaultSendTimeout = 10 * time.Second

var errNoSender = errors.New("no message sender configured")

// MessageSender abstracts message delivery so scheduler loops can be tested
// without Telegram.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Result is the outcome of one send. Err is nil when the message was delivered.
type Result struct {
	Recipient int64
	Err       error
}

func (r Result) Delivered() bool {
	return r.Err == nil
}

type Dispatcher struct {
	sender      MessageSender
	sendTimeout time.Duration
}

func NewDispatcher(sender MessageSender, sendTimeout time.Duration) *Dispatcher {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Dispatcher{sender: sender, sendTimeout: sendTimeout}
}

// Deliver sends text to one recipient. Failures are logged and returned in the
// Result, never propagated.
func (d *Dispatcher) Deliver(ctx context.Context, recipient int64, text string) Result {
	res := Result{Recipient: recipient}
	if d == nil || d.sender == nil {
		res.Err = errNoSender
		logger.Error("no message sender configured", "chat_id", recipient)
		return res
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	if err := d.sender.SendMessage(sendCtx, recipient, text); err != nil {
		res.Err = err
		logger.Error("failed to deliver notification", "chat_id", recipient, "error", err)
	}
	return res
}

// Broadcast delivers text to every recipient in order. One failed send does
// not stop the others.
func (d *Dispatcher) Broadcast(ctx context.Context, recipients []int64, text string) []Result {
	results := make([]Result, 0, len(recipients))
	for _, recipient := range recipients {
		results = append(results, d.Deliver(ctx, recipient, text))
	}
	return results
}

// BotSender adapts a Telegram bot to MessageSender.
type BotSender struct {
	b *bot.Bot
}

func NewBotSender(b *bot.Bot) BotSender {
	return BotSender{b: b}
}

func (s BotSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := s.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}
