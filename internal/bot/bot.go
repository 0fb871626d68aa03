// Package bot connects Telegram updates to the conversation machine and
// delivers its replies.
package bot

import (
	"context"
	"log/slog"
	"runtime/debug"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"movie-catalog-bot/internal/conversation"
	"movie-catalog-bot/internal/logger"
	"movie-catalog-bot/internal/tg"
)

// Sender is the part of the Telegram client the bot replies through.
type Sender interface {
	SendMessage(ctx context.Context, req tg.SendMessageRequest) error
	SendPhoto(ctx context.Context, req tg.SendPhotoRequest) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID string, text string) error
	SetMyCommands(ctx context.Context, commands []tg.BotCommand) error
}

type Handler interface {
	Handle(ctx context.Context, ev conversation.Event) []conversation.Render
}

type Bot struct {
	tg      Sender
	handler Handler
	locks   *keyedMutex
	log     *slog.Logger
}

func New(sender Sender, handler Handler, log *slog.Logger) *Bot {
	if log == nil {
		log = logger.Default()
	}
	return &Bot{tg: sender, handler: handler, locks: newKeyedMutex(), log: log}
}

var commands = []tg.BotCommand{
	{Command: "start", Description: "🏠 Главное меню"},
	{Command: "add", Description: "🎬 Добавить контент"},
	{Command: "recommend", Description: "🎯 Получить рекомендацию"},
	{Command: "my_movies", Description: "📂 Мой контент"},
	{Command: "help", Description: "ℹ️ Помощь"},
	{Command: "restart", Description: "🔄 Перезапустить"},
}

func (b *Bot) RegisterCommands(ctx context.Context) error {
	return b.tg.SetMyCommands(ctx, commands)
}

// HandleUpdate processes one update to completion. Concurrent calls for the
// same owner are handled one at a time, in no particular order; use a
// Dispatcher when arrival order matters.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	in, ok := Normalize(u)
	if !ok {
		b.log.Debug("skip update", "update_id", u.UpdateID)
		return
	}
	ev := in.Event()
	log := b.log.With("update_id", u.UpdateID, "owner_id", ev.OwnerID, "trace_id", uuid.NewString())
	ctx = logger.WithContext(ctx, log)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while delivering update", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	unlock := b.locks.Lock(ev.OwnerID)
	defer unlock()

	renders := b.handler.Handle(ctx, ev)
	b.deliver(ctx, log, in, renders)
}

func (b *Bot) deliver(ctx context.Context, log *slog.Logger, in Incoming, renders []conversation.Render) {
	if id := in.CallbackID(); id != "" {
		var notice string
		for _, r := range renders {
			if r.Notice != "" {
				notice = r.Notice
				break
			}
		}
		if err := b.tg.AnswerCallbackQuery(ctx, id, notice); err != nil {
			log.Warn("answer callback", "error", err)
		}
	}

	visible := renders[:0:0]
	for _, r := range renders {
		if !r.IsNoticeOnly() {
			visible = append(visible, r)
		}
	}
	if len(visible) == 0 {
		return
	}

	if prior := in.Replaces(); prior != 0 {
		if err := b.tg.DeleteMessage(ctx, in.ChatID(), prior); err != nil {
			log.Debug("delete prior message", "message_id", prior, "error", err)
		}
	}
	for _, r := range visible {
		if err := b.send(ctx, in.ChatID(), r); err != nil {
			log.Error("send reply", "error", err)
		}
	}
}

// send shows one render. A poster whose caption would be too long goes out
// bare, followed by the text; a poster Telegram refuses is dropped.
func (b *Bot) send(ctx context.Context, chatID int64, r conversation.Render) error {
	markup := keyboard(r.Keyboard)
	if r.Photo != "" {
		if utf8.RuneCountInString(r.Text) <= tg.MaxCaptionLength {
			err := b.tg.SendPhoto(ctx, tg.SendPhotoRequest{
				ChatID:      chatID,
				Photo:       r.Photo,
				Caption:     r.Text,
				ParseMode:   tg.ParseModeHTML,
				ReplyMarkup: markup,
			})
			if err == nil {
				return nil
			}
			logger.FromContext(ctx).Warn("send photo, falling back to text", "error", err)
		} else if err := b.tg.SendPhoto(ctx, tg.SendPhotoRequest{ChatID: chatID, Photo: r.Photo}); err != nil {
			logger.FromContext(ctx).Warn("send photo", "error", err)
		}
	}
	return b.tg.SendMessage(ctx, tg.SendMessageRequest{
		ChatID:      chatID,
		Text:        r.Text,
		ParseMode:   tg.ParseModeHTML,
		ReplyMarkup: markup,
	})
}
