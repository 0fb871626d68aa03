package bot

import (
	"movie-catalog-bot/internal/conversation"
	"movie-catalog-bot/internal/tg"
)

func keyboard(rows [][]conversation.Choice) *tg.InlineKeyboardMarkup {
	out := make([][]tg.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		row := make([]tg.InlineKeyboardButton, 0, len(r))
		for _, c := range r {
			row = append(row, tg.InlineKeyboardButton{Text: c.Label, URL: c.URL, CallbackData: c.Action})
		}
		out = append(out, row)
	}
	return tg.NewInlineKeyboardMarkup(out)
}
