package conversation

import (
	"fmt"
	"html"
	"strings"
	"time"

	"movie-catalog-bot/internal/catalog"
)

const (
	txtGreeting      = "👋 Добро пожаловать! Добавляйте и управляйте своим контентом.\n\n"
	txtMainMenu      = "🏠 Главное меню\n\n"
	txtRestarted     = "🔄 Бот перезапущен.\n\n"
	txtNoContent     = "📭 Пока нет контента"
	txtStoreFailed   = "⚠️ Не удалось выполнить действие. Попробуйте ещё раз чуть позже."
	txtNotFound      = "❌ Контент не найден. Возможно, он уже удалён."
	txtStale         = "Сессия устарела, начните заново"
	txtBadRequest    = "Некорректный запрос"
	txtUnknownCmd    = "🤔 Неизвестная команда. Список команд: /help"
	txtUseButtons    = "👇 Воспользуйтесь кнопками меню."
	txtAlreadyStart  = "❌ Вы уже в начале."
	txtTitleEmpty    = "❌ Название не может быть пустым."
	txtDescEmpty     = "❌ Описание не может быть пустым."
	txtSearchEmpty   = "❌ Введите текст для поиска."
	txtSearchPrompt  = "🔍 Введите название или жанр для поиска:"
	txtAddSuccess    = "🎉 <b>Контент успешно добавлен!</b>\n\n"
	txtAnotherTitle  = "✏️ Хорошо, введите другое название."
	txtNoMovies      = "📭 У вас пока нет добавленного контента.\n\nДобавьте первый — нажмите «➕ Добавить»"
	txtNoWatched     = "⭕ Нет просмотренного контента."
	txtNoUnwatched   = "📭 Нет непросмотренного контента."
	txtChooseFilter  = "📂 Выберите категорию:"
	txtRecChoose     = "🎬 Выберите жанр для рекомендации:"
	txtEditChoose    = "✏️ <b>Что изменить?</b>"
	txtEditCancelled = "↩️ Изменение отменено."
	txtSameTitle     = "⚠️ Новое название совпадает с текущим. Введите другое."
	txtExpectPhoto   = "🖼 Пришлите изображение или нажмите «Пропустить»."
	txtExpectGenre   = "🎭 Выберите жанр кнопкой ниже."

	txtStepTitle  = "🎬 <b>Добавление контента</b>\n\n📌 Напишите название.\n\n🔖 <i>Шаг 1 из 4</i>"
	txtStepGenre  = "🎭 <b>Выберите жанр</b>\n\n🔖 <i>Шаг 2 из 4</i>"
	txtStepDesc   = "📝 <b>Напишите описание</b>\n\n🔖 <i>Шаг 3 из 4</i>"
	txtStepPoster = "🖼 <b>Пришлите постер</b> или нажмите «Пропустить»\n\n🔖 <i>Шаг 4 из 4</i>"

	txtHelp = `🤖 <b>Добро пожаловать в бот для управления фильмами!</b>

📌 Вы можете использовать команды:

🎬 /add — Добавить контент
🎯 /recommend — Получить рекомендацию
📂 /my_movies — Мой контент
🔄 /restart — Перезапустить
ℹ️ /help — Показать это сообщение

💡 Нажмите на команду — она выполнится!

🛠 <b>Совет:</b> Используйте /restart, если бот не отвечает.

Приятного просмотра! 🍿`
)

const descriptionLimit = 200

func esc(s string) string { return html.EscapeString(s) }

// pluralize picks the Russian form for n: one, few, many.
func pluralize(n int, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	n %= 100
	if n >= 11 && n <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	}
	return many
}

func progressBar(watched, total int) (string, int) {
	if total <= 0 {
		return strings.Repeat("◽️", 10), 0
	}
	filled := min(watched*10/total, 10)
	return strings.Repeat("🟩", filled) + strings.Repeat("◽️", 10-filled), watched * 100 / total
}

func statsText(st catalog.Stats) string {
	if st.Total == 0 {
		return txtNoContent
	}
	bar, percent := progressBar(st.Watched, st.Total)
	return fmt.Sprintf("📚 <b>%d</b> %s | ✅ <b>%d</b> %s\n📊 Прогресс: %s %d%%",
		st.Total, pluralize(st.Total, "фильм", "фильма", "фильмов"),
		st.Watched, pluralize(st.Watched, "просмотрен", "просмотрено", "просмотрено"),
		bar, percent)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("02.01.2006")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

func movieCard(m catalog.Movie) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎬 <b>%s</b>\n\n", esc(m.Title))
	fmt.Fprintf(&b, "%s <b>Жанр:</b> <i>%s</i>\n\n", m.Genre.Icon(), esc(string(m.Genre)))

	desc := "ℹ️ Описание не добавлено."
	if m.Description != "" {
		desc = truncate(m.Description, descriptionLimit)
	}
	fmt.Fprintf(&b, "📝 <b>Описание:</b>\n<i>%s</i>\n\n", esc(desc))

	if m.AddedAt.IsZero() {
		b.WriteString("➕ <b>Добавлен:</b> <i>неизвестно</i>\n\n")
	} else {
		fmt.Fprintf(&b, "➕ <b>Добавлен:</b> <i>%s</i>\n\n", formatDate(m.AddedAt))
	}

	switch {
	case m.Watched && m.WatchedAt != nil:
		fmt.Fprintf(&b, "✅ <b>Просмотрен:</b> <i>%s</i>", formatDate(*m.WatchedAt))
	case m.Watched:
		b.WriteString("✅ <b>Просмотрен:</b> <i>дата не зафиксирована</i>")
	default:
		b.WriteString("🟡 <b>Статус:</b> <i>в планах</i>")
	}
	return b.String()
}

func listHeader(title string, total, page, totalPages int) string {
	pageInfo := ""
	if totalPages > 1 {
		pageInfo = fmt.Sprintf(" | Страница %d/%d", page+1, totalPages)
	}
	return fmt.Sprintf("%s (%d)%s:", title, total, pageInfo)
}

func searchHeader(total int, query string, page, totalPages int) string {
	pageInfo := ""
	if totalPages > 1 {
		pageInfo = fmt.Sprintf(" | Страница %d/%d", page+1, totalPages)
	}
	return fmt.Sprintf("🔍 Найдено <b>%d</b> по запросу:\n“<i>%s</i>”%s", total, esc(query), pageInfo)
}

func searchNoResults(query string) string {
	return fmt.Sprintf("❌ Ничего не найдено по запросу <b>%s</b>.\n\nПопробуйте другое слово.", esc(query))
}

func myMoviesIntro(total int) string {
	return fmt.Sprintf("📂 У вас %d %s.\nВыберите действие:", total, pluralize(total, "единица контента", "единицы контента", "единиц контента"))
}

func suggestCorrection(input, match string) string {
	return fmt.Sprintf("🔍 Возможно, вы имели в виду: <b>%s</b>?\n\nВы написали: <i>%s</i>\n\nИсправить?", esc(match), esc(input))
}

func confirmDuplicate(title string, similar []string) string {
	text := fmt.Sprintf("⚠️ Контент <i>«%s»</i> уже есть в библиотеке.", esc(title))
	if len(similar) > 0 {
		quoted := make([]string, 0, len(similar))
		for _, s := range similar {
			quoted = append(quoted, "• "+esc(s))
		}
		text += "\n\nПохожие названия:\n" + strings.Join(quoted, "\n")
	}
	return text + "\n\nДобавить повторно?"
}

func confirmDelete(title string) string {
	return fmt.Sprintf("⚠️ Вы уверены, что хотите удалить контент:\n\n<b>%s</b>?", esc(title))
}

// Callback answers are capped at 200 characters by Telegram.
const noticeTitleLimit = 150

func deletedNotice(title string) string {
	return fmt.Sprintf("🗑 «%s» удалён", truncate(title, noticeTitleLimit))
}

func toggledNotice(title string, watched bool) string {
	title = truncate(title, noticeTitleLimit)
	if watched {
		return fmt.Sprintf("✅ «%s» помечен как просмотренный", title)
	}
	return fmt.Sprintf("↩️ «%s» возвращён в список", title)
}

var fieldNames = map[catalog.Field]string{
	catalog.FieldTitle:       "Название",
	catalog.FieldGenre:       "Жанр",
	catalog.FieldDescription: "Описание",
	catalog.FieldPoster:      "Постер",
}

var fieldIcons = map[catalog.Field]string{
	catalog.FieldTitle:       "📝",
	catalog.FieldGenre:       "🎭",
	catalog.FieldDescription: "📄",
	catalog.FieldPoster:      "🖼",
}

func editPrompt(f catalog.Field, current string) string {
	var what string
	switch f {
	case catalog.FieldTitle:
		what = "название"
	case catalog.FieldDescription:
		what = "описание"
	default:
		what = strings.ToLower(fieldNames[f])
	}
	text := fmt.Sprintf("✏️ Введите новое %s:", what)
	if current != "" {
		text += fmt.Sprintf("\n\nСейчас: <i>%s</i>", esc(truncate(current, descriptionLimit)))
	}
	return text
}

func editPosterPrompt(hasPoster bool) string {
	if hasPoster {
		return "🖼 Пришлите новый постер или нажмите «Пропустить», чтобы убрать текущий."
	}
	return "🖼 Пришлите постер или нажмите «Пропустить», чтобы оставить без постера."
}

func confirmEdit(f catalog.Field, oldValue, newValue string) string {
	return fmt.Sprintf("%s <b>Подтвердите изменение</b>\n\n🗂 Поле: <b>%s</b>\n🔄 Старое: <code>%s</code>\n✅ Новое: <code>%s</code>\n\nСохранить изменения?",
		fieldIcons[f], fieldNames[f], esc(truncate(oldValue, descriptionLimit)), esc(truncate(newValue, descriptionLimit)))
}

func editSaved(f catalog.Field, oldValue, newValue string) string {
	return fmt.Sprintf("✅ <b>Поле обновлено</b>\n\n🗂 %s:\n➡️ <code>%s</code> → <code>%s</code>",
		fieldNames[f], esc(truncate(oldValue, descriptionLimit)), esc(truncate(newValue, descriptionLimit)))
}

func posterDisplay(ref string) string {
	if ref == "" {
		return "нет"
	}
	return "есть"
}

func recommendNone(g catalog.Genre) string {
	return fmt.Sprintf("🤷‍♂️ В жанре <b>%s</b> пока нет непросмотренного контента.", esc(string(g)))
}

func recommendCaption(m catalog.Movie) string {
	desc := m.Description
	if desc == "" {
		desc = "Без описания"
	}
	return fmt.Sprintf("<b>🎬 Советую посмотреть: %s</b>\n<i>Жанр: %s</i>\n\n%s",
		esc(m.Title), esc(string(m.Genre)), esc(truncate(desc, 800)))
}
