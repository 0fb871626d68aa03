package tg

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	ParseModeHTML = "HTML"

	// Telegram rejects photo captions longer than this many characters.
	MaxCaptionLength = 1024
)

type Client struct {
	api *tgbotapi.BotAPI
}

// NewClient authorizes token against the Bot API. endpoint overrides the
// default "https://api.telegram.org/bot%s/%s" and is meant for tests.
func NewClient(token, endpoint string) (*Client, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	// Long polling holds a request open for up to 30s.
	hc := &http.Client{Timeout: 45 * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, hc)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}
	return &Client{api: api}, nil
}

func (c *Client) Username() string { return c.api.Self.UserName }

func (c *Client) SetDebug(debug bool) { c.api.Debug = debug }

type InlineKeyboardButton struct {
	Text         string
	URL          string
	CallbackData string
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton
}

func NewInlineKeyboardMarkup(rows [][]InlineKeyboardButton) *InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (m *InlineKeyboardMarkup) native() *tgbotapi.InlineKeyboardMarkup {
	if m == nil || len(m.InlineKeyboard) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(m.InlineKeyboard))
	for _, r := range m.InlineKeyboard {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			if b.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.CallbackData))
		}
		rows = append(rows, row)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

type SendMessageRequest struct {
	ChatID      int64
	Text        string
	ParseMode   string
	ReplyMarkup *InlineKeyboardMarkup
}

func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) error {
	msg := tgbotapi.NewMessage(req.ChatID, req.Text)
	msg.ParseMode = req.ParseMode
	if kb := req.ReplyMarkup.native(); kb != nil {
		msg.ReplyMarkup = kb
	}
	return c.request(ctx, "sendMessage", msg)
}

type SendPhotoRequest struct {
	ChatID      int64
	Photo       string
	Caption     string
	ParseMode   string
	ReplyMarkup *InlineKeyboardMarkup
}

// SendPhoto sends a photo by its Telegram file id.
func (c *Client) SendPhoto(ctx context.Context, req SendPhotoRequest) error {
	photo := tgbotapi.NewPhoto(req.ChatID, tgbotapi.FileID(req.Photo))
	photo.Caption = req.Caption
	photo.ParseMode = req.ParseMode
	if kb := req.ReplyMarkup.native(); kb != nil {
		photo.ReplyMarkup = kb
	}
	return c.request(ctx, "sendPhoto", photo)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.request(ctx, "deleteMessage", tgbotapi.NewDeleteMessage(chatID, messageID))
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID string, text string) error {
	return c.request(ctx, "answerCallbackQuery", tgbotapi.NewCallback(callbackQueryID, text))
}

type BotCommand struct {
	Command     string
	Description string
}

func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	native := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, cmd := range commands {
		native = append(native, tgbotapi.BotCommand{Command: cmd.Command, Description: cmd.Description})
	}
	return c.request(ctx, "setMyCommands", tgbotapi.NewSetMyCommands(native...))
}

func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.request(ctx, "deleteWebhook", tgbotapi.DeleteWebhookConfig{})
}

// SetWebhook points the bot at url. A non-empty secret is echoed back by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := tgbotapi.Params{"url": url}
	if secret != "" {
		params["secret_token"] = secret
	}
	if _, err := c.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("telegram api setWebhook: %w", err)
	}
	return nil
}

// Updates starts long polling and returns the update stream. Once ctx is
// done the channel is closed after the in-flight poll returns.
func (c *Client) Updates(ctx context.Context, timeout int) tgbotapi.UpdatesChannel {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = timeout
	updates := c.api.GetUpdatesChan(cfg)
	go func() {
		<-ctx.Done()
		c.api.StopReceivingUpdates()
	}()
	return updates
}

func (c *Client) request(ctx context.Context, method string, chattable tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(chattable); err != nil {
		return fmt.Errorf("telegram api %s: %w", method, err)
	}
	return nil
}
