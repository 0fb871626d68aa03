package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"movie-catalog-bot/internal/conversation"
)

// Incoming is one user action with what the reply needs to know about
// where it came from.
type Incoming interface {
	Event() conversation.Event
	ChatID() int64
	// Replaces is the bot message the reply supersedes, 0 for none.
	Replaces() int
	// CallbackID is the button press to acknowledge, empty for messages.
	CallbackID() string
}

type messageIn struct {
	ev   conversation.Event
	chat int64
}

func (m messageIn) Event() conversation.Event { return m.ev }
func (m messageIn) ChatID() int64             { return m.chat }
func (m messageIn) Replaces() int             { return 0 }
func (m messageIn) CallbackID() string        { return "" }

type callbackIn struct {
	ev        conversation.Event
	chat      int64
	messageID int
	id        string
}

func (c callbackIn) Event() conversation.Event { return c.ev }
func (c callbackIn) ChatID() int64             { return c.chat }
func (c callbackIn) Replaces() int             { return c.messageID }
func (c callbackIn) CallbackID() string        { return c.id }

// Normalize maps an update to an Incoming. Updates without a user, such as
// channel posts, are reported as not ok.
func Normalize(u tgbotapi.Update) (Incoming, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.From == nil {
			return nil, false
		}
		in := callbackIn{
			ev:   conversation.Event{OwnerID: cq.From.ID, Kind: conversation.KindSelection, Payload: cq.Data},
			chat: cq.From.ID,
			id:   cq.ID,
		}
		if cq.Message != nil {
			in.messageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				in.chat = cq.Message.Chat.ID
			}
		}
		return in, true
	}

	msg := u.Message
	if msg == nil || msg.From == nil {
		return nil, false
	}
	chat := msg.From.ID
	if msg.Chat != nil {
		chat = msg.Chat.ID
	}
	ev := conversation.Event{OwnerID: msg.From.ID, Kind: conversation.KindText, Payload: msg.Text}
	switch {
	case msg.IsCommand():
		ev.Kind, ev.Payload = conversation.KindCommand, msg.Command()
	case len(msg.Photo) > 0:
		// Sizes are ascending; the last is the largest.
		ev.Kind, ev.Payload = conversation.KindMedia, msg.Photo[len(msg.Photo)-1].FileID
	}
	return messageIn{ev: ev, chat: chat}, true
}
