package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"movie-catalog-bot/internal/logger"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u tgbotapi.Update)
}

// Webhook receives updates pushed by Telegram. Each update is handled
// before the response is written, so Telegram's retry covers crashes.
type Webhook struct {
	bot     UpdateHandler
	secret  string
	timeout time.Duration
}

func NewWebhook(bot UpdateHandler, secret string) *Webhook {
	return &Webhook{bot: bot, secret: secret, timeout: 9 * time.Second}
}

func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(h.secret)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 2<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var upd tgbotapi.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		logger.FromContext(r.Context()).Warn("decode update", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	h.bot.HandleUpdate(ctx, upd)
	w.WriteHeader(http.StatusOK)
}
