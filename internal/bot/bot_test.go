package bot

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"movie-catalog-bot/internal/conversation"
	"movie-catalog-bot/internal/logger"
	"movie-catalog-bot/internal/tg"
)

type sent struct {
	kind    string
	chat    int64
	text    string
	photo   string
	markup  *tg.InlineKeyboardMarkup
	message int
}

type fakeSender struct {
	mu       sync.Mutex
	out      []sent
	photoErr error
	commands []tg.BotCommand
}

func (f *fakeSender) record(s sent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, s)
}

func (f *fakeSender) SendMessage(_ context.Context, req tg.SendMessageRequest) error {
	f.record(sent{kind: "message", chat: req.ChatID, text: req.Text, markup: req.ReplyMarkup})
	return nil
}

func (f *fakeSender) SendPhoto(_ context.Context, req tg.SendPhotoRequest) error {
	f.record(sent{kind: "photo", chat: req.ChatID, text: req.Caption, photo: req.Photo, markup: req.ReplyMarkup})
	return f.photoErr
}

func (f *fakeSender) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	f.record(sent{kind: "delete", chat: chatID, message: messageID})
	return nil
}

func (f *fakeSender) AnswerCallbackQuery(_ context.Context, id, text string) error {
	f.record(sent{kind: "answer", text: id + "|" + text})
	return nil
}

func (f *fakeSender) SetMyCommands(_ context.Context, cmds []tg.BotCommand) error {
	f.commands = cmds
	return nil
}

func (f *fakeSender) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var k []string
	for _, s := range f.out {
		k = append(k, s.kind)
	}
	return k
}

type handlerFunc func(ctx context.Context, ev conversation.Event) []conversation.Render

func (f handlerFunc) Handle(ctx context.Context, ev conversation.Event) []conversation.Render {
	return f(ctx, ev)
}

func reply(renders ...conversation.Render) handlerFunc {
	return func(context.Context, conversation.Event) []conversation.Render { return renders }
}

func newBot(s Sender, h Handler) *Bot {
	return New(s, h, logger.New(io.Discard, "test", false))
}

func textUpdate(owner int64, text string) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: owner},
		Chat:      &tgbotapi.Chat{ID: owner},
		Text:      text,
	}}
}

func callbackUpdate(owner int64, data string) tgbotapi.Update {
	return tgbotapi.Update{UpdateID: 2, CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: owner},
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: owner}},
	}}
}

func TestNormalize(t *testing.T) {
	cmd := textUpdate(5, "/start@movie_bot")
	cmd.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/start@movie_bot")}}

	photo := textUpdate(5, "")
	photo.Message.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}

	cases := []struct {
		name    string
		u       tgbotapi.Update
		kind    conversation.Kind
		payload string
		replace int
		cb      string
	}{
		{"text", textUpdate(5, "Inception"), conversation.KindText, "Inception", 0, ""},
		{"command", cmd, conversation.KindCommand, "start", 0, ""},
		{"photo", photo, conversation.KindMedia, "large", 0, ""},
		{"callback", callbackUpdate(5, "add_genre:Фильм"), conversation.KindSelection, "add_genre:Фильм", 77, "cb-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, ok := Normalize(tc.u)
			if !ok {
				t.Fatal("not normalized")
			}
			ev := in.Event()
			if ev.OwnerID != 5 || ev.Kind != tc.kind || ev.Payload != tc.payload {
				t.Fatalf("event = %+v", ev)
			}
			if in.ChatID() != 5 || in.Replaces() != tc.replace || in.CallbackID() != tc.cb {
				t.Fatalf("incoming = %+v", in)
			}
		})
	}

	if _, ok := Normalize(tgbotapi.Update{ChannelPost: &tgbotapi.Message{Text: "x"}}); ok {
		t.Fatal("channel post normalized")
	}
}

func TestMessageGetsNewReply(t *testing.T) {
	s := &fakeSender{}
	b := newBot(s, reply(conversation.Render{
		Text:     "menu",
		Keyboard: [][]conversation.Choice{{{Label: "Add", Action: "add"}}, {}},
	}))
	b.HandleUpdate(context.Background(), textUpdate(9, "hi"))

	if got := s.kinds(); len(got) != 1 || got[0] != "message" {
		t.Fatalf("calls = %v", got)
	}
	m := s.out[0]
	if m.chat != 9 || m.text != "menu" || m.markup == nil || len(m.markup.InlineKeyboard) != 1 {
		t.Fatalf("message = %+v", m)
	}
	if btn := m.markup.InlineKeyboard[0][0]; btn.CallbackData != "add" || btn.Text != "Add" {
		t.Fatalf("button = %+v", btn)
	}
}

func TestCallbackReplacesPriorMessage(t *testing.T) {
	s := &fakeSender{}
	b := newBot(s, reply(conversation.Render{Text: "list", Notice: "done"}))
	b.HandleUpdate(context.Background(), callbackUpdate(9, "my_movies"))

	want := []string{"answer", "delete", "message"}
	if got := s.kinds(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	if s.out[0].text != "cb-1|done" || s.out[1].message != 77 {
		t.Fatalf("calls = %+v", s.out)
	}
}

func TestNoticeOnlyKeepsMessage(t *testing.T) {
	s := &fakeSender{}
	b := newBot(s, reply(conversation.Render{Notice: "already at start"}))
	b.HandleUpdate(context.Background(), callbackUpdate(9, "back_step"))

	if got := s.kinds(); len(got) != 1 || got[0] != "answer" {
		t.Fatalf("calls = %v", got)
	}
}

func TestLongCaptionSplitsPhotoAndText(t *testing.T) {
	s := &fakeSender{}
	long := strings.Repeat("я", tg.MaxCaptionLength+1)
	b := newBot(s, reply(conversation.Render{Text: long, Photo: "poster"}))
	b.HandleUpdate(context.Background(), textUpdate(9, "x"))

	if got := s.kinds(); strings.Join(got, ",") != "photo,message" {
		t.Fatalf("calls = %v", got)
	}
	if s.out[0].text != "" || s.out[1].text != long {
		t.Fatal("caption not moved to the text message")
	}
}

func TestRefusedPhotoFallsBackToText(t *testing.T) {
	s := &fakeSender{photoErr: errors.New("wrong file identifier")}
	b := newBot(s, reply(conversation.Render{Text: "card", Photo: "gone"}))
	b.HandleUpdate(context.Background(), textUpdate(9, "x"))

	if got := s.kinds(); strings.Join(got, ",") != "photo,message" {
		t.Fatalf("calls = %v", got)
	}
	if s.out[1].text != "card" {
		t.Fatalf("fallback = %+v", s.out[1])
	}
}

func TestPanicIsContained(t *testing.T) {
	s := &fakeSender{}
	b := newBot(s, handlerFunc(func(context.Context, conversation.Event) []conversation.Render {
		panic("boom")
	}))
	b.HandleUpdate(context.Background(), textUpdate(9, "x"))

	if b.locks.size() != 0 {
		t.Fatal("owner lock leaked after panic")
	}
	// The same owner can still be served.
	b.handler = reply(conversation.Render{Text: "ok"})
	b.HandleUpdate(context.Background(), textUpdate(9, "x"))
	if got := s.kinds(); len(got) != 1 {
		t.Fatalf("calls = %v", got)
	}
}

func TestSameOwnerIsSerialized(t *testing.T) {
	var active, peak int32
	h := handlerFunc(func(_ context.Context, ev conversation.Event) []conversation.Render {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&active, -1)
		return nil
	})
	b := newBot(&fakeSender{}, h)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.HandleUpdate(context.Background(), textUpdate(9, "x"))
		}()
	}
	wg.Wait()
	if p := atomic.LoadInt32(&peak); p != 1 {
		t.Fatalf("peak concurrency for one owner = %d", p)
	}
	if b.locks.size() != 0 {
		t.Fatalf("locks left: %d", b.locks.size())
	}
}

func TestTraceIDInContext(t *testing.T) {
	var seen bool
	b := newBot(&fakeSender{}, handlerFunc(func(ctx context.Context, _ conversation.Event) []conversation.Render {
		seen = logger.FromContext(ctx) != logger.Default()
		return nil
	}))
	b.HandleUpdate(context.Background(), textUpdate(9, "x"))
	if !seen {
		t.Fatal("handler did not get the update logger")
	}
}

func TestRegisterCommands(t *testing.T) {
	s := &fakeSender{}
	if err := newBot(s, reply()).RegisterCommands(context.Background()); err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(s.commands))
	for _, c := range s.commands {
		names = append(names, c.Command)
	}
	if strings.Join(names, ",") != "start,add,recommend,my_movies,help,restart" {
		t.Fatalf("commands = %v", names)
	}
}
