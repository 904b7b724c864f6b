package handlers

import (
	"context"
	"strings"
	"unicode"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-pantry-reminder/pkg/bot/conversation"
	"github.com/smith3v/tg-pantry-reminder/pkg/logger"
	"github.com/smith3v/tg-pantry-reminder/pkg/ui"
)

// Commands lists every slash command the bot answers, in the order shown by /help.
var Commands = []string{
	conversation.CommandStart,
	conversation.CommandAdd,
	conversation.CommandRemove,
	conversation.CommandStatus,
	conversation.CommandList,
	conversation.CommandRemind,
	conversation.CommandReminders,
	conversation.CommandHelp,
}

// Handler adapts Telegram updates to the conversation engine.
type Handler struct {
	engine *conversation.Engine
}

func New(engine *conversation.Engine) *Handler {
	return &Handler{engine: engine}
}

// BotOptions are the options the bot must be built with. Updates run one at a
// time so a user's pending action is always read after the message that set it.
func (h *Handler) BotOptions() []bot.Option {
	return []bot.Option{
		bot.WithDefaultHandler(h.DefaultHandler),
		bot.WithNotAsyncHandlers(),
	}
}

// Register wires one match func per command. Everything else reaches the
// default handler.
func (h *Handler) Register(b *bot.Bot) {
	for _, name := range Commands {
		b.RegisterHandlerMatchFunc(MatchCommand(name), h.HandleCommand)
	}
}

// MatchCommand matches "/name", "/name args" and "/name@botname".
func MatchCommand(name string) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update == nil || update.Message == nil {
			return false
		}
		got, _, ok := ParseCommand(update.Message.Text)
		return ok && got == name
	}
}

// ParseCommand splits a slash command into its lower-cased name and the rest
// of the text.
func ParseCommand(text string) (string, string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, args := text[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, args = head[:i], head[i:]
	}
	name, _, _ := strings.Cut(head, "@")
	if name == "" {
		return "", "", false
	}
	return strings.ToLower(name), strings.TrimSpace(args), true
}

func (h *Handler) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		logger.Error("invalid update in HandleCommand")
		return
	}
	name, args, ok := ParseCommand(update.Message.Text)
	if !ok {
		return
	}
	reply, ok := h.engine.HandleCommand(ctx, update.Message.From.ID, name, args)
	if !ok {
		logger.Debug("command dropped", "user_id", update.Message.From.ID, "command", name)
		return
	}
	sendReply(ctx, b, update.Message.Chat.ID, reply)
}

// DefaultHandler receives every message that is not a known command.
func (h *Handler) DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !validMessage(update) {
		return
	}
	text := update.Message.Text
	if text == "" {
		return
	}
	if _, _, isCommand := ParseCommand(text); isCommand {
		logger.Debug("unknown command dropped", "user_id", update.Message.From.ID, "text", text)
		return
	}

	reply, ok := h.engine.HandleText(ctx, update.Message.From.ID, text)
	if !ok {
		return
	}
	sendReply(ctx, b, update.Message.Chat.ID, reply)
}

func validMessage(update *models.Update) bool {
	return update != nil && update.Message != nil && update.Message.From != nil && update.Message.Chat.ID != 0
}

func sendReply(ctx context.Context, b *bot.Bot, chatID int64, reply conversation.Reply) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   reply.Text,
	}
	if reply.ShowMenu {
		params.ReplyMarkup = ui.MainKeyboard()
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		logger.Error("failed to send reply", "chat_id", chatID, "error", err)
	}
}
