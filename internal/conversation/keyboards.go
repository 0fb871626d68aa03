package conversation

import (
	"fmt"

	"movie-catalog-bot/internal/catalog"
	"movie-catalog-bot/internal/pager"
)

// Callback action ids.
const (
	actAdd           = "add"
	actBackMain      = "back_main"
	actBackStep      = "back_step"
	actAutoCorrect   = "auto_correct"
	actAutoSkip      = "auto_skip_correction"
	actDupYes        = "dup_yes"
	actDupNo         = "dup_no"
	actAddGenre      = "add_genre"
	actSkipPoster    = "skip_poster"
	actEditSelect    = "edit_select"
	actEditField     = "edit_field"
	actEditGenre     = "edit_genre"
	actEditCorrect   = "edit_correct"
	actEditSkip      = "edit_skip_correct"
	actConfirmEdit   = "confirm_edit"
	actEditDone      = "edit_done"
	actBackToEdit    = "back_to_edit"
	actMyMovies      = "my_movies"
	actMyMoviesAll   = "my_movies_all"
	actMyMoviesFind  = "my_movies_search"
	actSearchPage    = "search_page"
	actList          = "list"
	actMovieInfo     = "movie_info"
	actToggleWatched = "toggle_watched"
	actDelete        = "delete"
	actConfirmDelete = "confirm_delete"
	actRecommend     = "recommend"
	actRecGenre      = "rec_genre"
	actHelp          = "help"
)

// List views a record card can return to.
const (
	viewAll       = "all"
	viewWatched   = "watched"
	viewUnwatched = "unwatched"
	viewSearch    = "search"
)

func parseView(s string) string {
	switch s {
	case viewWatched, viewUnwatched, viewSearch:
		return s
	}
	return viewAll
}

const (
	btnAdd       = "➕ Добавить"
	btnRecommend = "🎯 Рекомендации"
	btnMyMovies  = "📂 Мой контент"
	btnHelp      = "ℹ️ Помощь"
	btnCancel    = "❌ Отмена"
	btnBack      = "🔙 Назад"
	btnBackMenu  = "🔙 Назад в меню"
	btnSkip      = "🖼 Пропустить"
	btnYes       = "✅ Да"
	btnNo        = "❌ Нет"
	btnPrev      = "◀️ Назад"
	btnNext      = "Вперёд ▶️"
)

func row(choices ...Choice) []Choice { return choices }

func btn(label, act string, args ...any) Choice {
	for _, a := range args {
		act += fmt.Sprintf(":%v", a)
	}
	return Choice{Label: label, Action: act}
}

func mainMenuKeyboard() [][]Choice {
	return [][]Choice{
		row(btn(btnAdd, actAdd)),
		row(btn(btnRecommend, actRecommend)),
		row(btn(btnMyMovies, actMyMovies)),
		row(btn(btnHelp, actHelp)),
	}
}

func cancelKeyboard() [][]Choice {
	return [][]Choice{row(btn(btnCancel, actBackMain))}
}

func backKeyboard() [][]Choice {
	return [][]Choice{
		row(btn(btnBack, actBackStep)),
		row(btn(btnCancel, actBackMain)),
	}
}

func backToMainKeyboard() [][]Choice {
	return [][]Choice{row(btn(btnBack, actBackMain))}
}

func skipPosterKeyboard() [][]Choice {
	return [][]Choice{
		row(btn(btnSkip, actSkipPoster)),
		row(btn(btnBack, actBackStep)),
		row(btn(btnCancel, actBackMain)),
	}
}

func editSkipPosterKeyboard() [][]Choice {
	return [][]Choice{
		row(btn(btnSkip, actSkipPoster)),
		row(btn(btnBack, actBackToEdit)),
	}
}

func backToEditKeyboard() [][]Choice {
	return [][]Choice{row(btn(btnBack, actBackToEdit))}
}

func genreButton(g catalog.Genre) string {
	return g.Icon() + " " + string(g)
}

// genreKeyboard lists every genre under prefix, then one trailing button.
func genreKeyboard(prefix string, last Choice) [][]Choice {
	rows := make([][]Choice, 0, len(catalog.Genres)+1)
	for _, g := range catalog.Genres {
		rows = append(rows, row(btn(genreButton(g), prefix, g)))
	}
	return append(rows, row(last))
}

func yesNoKeyboard(yes, no string) [][]Choice {
	return [][]Choice{
		row(btn(btnYes, yes)),
		row(btn(btnNo, no)),
		row(btn(btnCancel, actBackMain)),
	}
}

func movieActionsKeyboard(m catalog.Movie, view string) [][]Choice {
	toggle := "✅ Пометить как просмотренный"
	if m.Watched {
		toggle = "⭕ Пометить как непросмотренный"
	}
	return [][]Choice{
		row(btn(toggle, actToggleWatched, m.ID, view)),
		row(btn("✏️ Редактировать", actEditSelect, m.ID, view)),
		row(btn("🗑 Удалить", actDelete, m.ID, view)),
		row(btn(btnBack, backFromCard(view))),
	}
}

func backFromCard(view string) string {
	switch view {
	case viewSearch:
		return actSearchPage + ":-1"
	case viewWatched, viewUnwatched, viewAll:
		return fmt.Sprintf("%s:%s:0", actList, view)
	}
	return actBackMain
}

func confirmDeleteKeyboard(id int64, view string) [][]Choice {
	return [][]Choice{
		row(btn("✅ Да, удалить", actConfirmDelete, id, view)),
		row(btn(btnNo, actMovieInfo, id, view)),
	}
}

func editMenuKeyboard() [][]Choice {
	rows := make([][]Choice, 0, len(catalog.EditableFields)+1)
	for _, f := range catalog.EditableFields {
		rows = append(rows, row(btn(fieldIcons[f]+" "+fieldNames[f], actEditField, f)))
	}
	return append(rows, row(btn("✅ Готово", actEditDone)))
}

func myMoviesKeyboard(total int) [][]Choice {
	return [][]Choice{
		row(btn(fmt.Sprintf("📋 Все (%d)", total), actMyMoviesAll)),
		row(btn("🔍 Поиск", actMyMoviesFind)),
		row(btn(btnBack, actBackMain)),
	}
}

func emptyLibraryKeyboard() [][]Choice {
	return [][]Choice{
		row(btn(btnAdd, actAdd)),
		row(btn(btnBack, actBackMain)),
	}
}

func filterKeyboard(st catalog.Stats) [][]Choice {
	return [][]Choice{
		row(btn(fmt.Sprintf("📋 Все (%d)", st.Total), actList, viewAll, 0)),
		row(btn(fmt.Sprintf("✅ Просмотренные (%d)", st.Watched), actList, viewWatched, 0)),
		row(btn(fmt.Sprintf("⭕ Непросмотренные (%d)", st.Unwatched()), actList, viewUnwatched, 0)),
		row(btn(btnBackMenu, actMyMovies)),
	}
}

func afterEmptyKeyboard() [][]Choice {
	return [][]Choice{
		row(btn("🔄 Другая категория", actMyMoviesAll)),
		row(btn(btnBackMenu, actMyMovies)),
	}
}

func retrySearchKeyboard() [][]Choice {
	return [][]Choice{
		row(btn("🔄 Попробовать снова", actMyMoviesFind)),
		row(btn(btnBack, actMyMovies)),
	}
}

// pageKeyboard renders one button per item plus prev/next navigation built
// by nav, followed by the footer rows.
func pageKeyboard[T any](p pager.Page[T], item func(T) Choice, nav func(page int) string, footer ...[]Choice) [][]Choice {
	rows := make([][]Choice, 0, len(p.Items)+len(footer)+1)
	for _, it := range p.Items {
		rows = append(rows, row(item(it)))
	}
	var navRow []Choice
	if p.HasPrev() {
		navRow = append(navRow, Choice{Label: btnPrev, Action: nav(p.Number - 1)})
	}
	if p.HasNext() {
		navRow = append(navRow, Choice{Label: btnNext, Action: nav(p.Number + 1)})
	}
	if len(navRow) > 0 {
		rows = append(rows, navRow)
	}
	return append(rows, footer...)
}
