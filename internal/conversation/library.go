package conversation

import (
	"context"

	"movie-catalog-bot/internal/catalog"
	"movie-catalog-bot/internal/pager"
)

func (m *Machine) myMovies(ctx context.Context, ownerID int64) ([]Render, error) {
	if err := m.reset(ctx, ownerID); err != nil {
		return nil, err
	}
	st, err := m.movies.Stats(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if st.Total == 0 {
		return []Render{{Text: txtNoMovies, Keyboard: emptyLibraryKeyboard()}}, nil
	}
	return []Render{{Text: myMoviesIntro(st.Total), Keyboard: myMoviesKeyboard(st.Total)}}, nil
}

func (m *Machine) filterMenu(ctx context.Context, ownerID int64) ([]Render, error) {
	st, err := m.movies.Stats(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if st.Total == 0 {
		return []Render{{Text: txtNoMovies, Keyboard: emptyLibraryKeyboard()}}, nil
	}
	return []Render{{Text: txtChooseFilter, Keyboard: filterKeyboard(st)}}, nil
}

func viewOptions(view string) (catalog.ListOptions, string) {
	switch view {
	case viewWatched:
		return catalog.ListOptions{Watched: catalog.WatchedFilter(true)}, "✅ Просмотренные"
	case viewUnwatched:
		return catalog.ListOptions{Watched: catalog.WatchedFilter(false)}, "⭕ Непросмотренные"
	}
	return catalog.ListOptions{}, "📋 Весь контент"
}

// listView renders one page of a filtered list. A page past the end, as
// left behind by a delete, shows the last page instead.
func (m *Machine) listView(ctx context.Context, ownerID int64, view string, page int, notice string) ([]Render, error) {
	if view == viewSearch {
		view = viewAll
	}
	opts, title := viewOptions(view)
	items, err := m.movies.List(ctx, ownerID, opts)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		r := Render{Text: txtNoMovies, Keyboard: emptyLibraryKeyboard(), Notice: notice}
		switch view {
		case viewWatched:
			r.Text, r.Keyboard = txtNoWatched, afterEmptyKeyboard()
		case viewUnwatched:
			r.Text, r.Keyboard = txtNoUnwatched, afterEmptyKeyboard()
		}
		return []Render{r}, nil
	}

	p := pager.At(items, page, m.cfg.PageSize)
	kb := pageKeyboard(p,
		func(mv catalog.Movie) Choice {
			return btn(mv.Genre.Icon()+" "+mv.Title, actMovieInfo, mv.ID, view)
		},
		func(n int) string { return btn("", actList, view, n).Action },
		afterEmptyKeyboard()...,
	)
	return []Render{{
		Text:     listHeader(title, p.TotalItems, p.Number, p.TotalPages),
		Keyboard: kb,
		Notice:   notice,
	}}, nil
}

func cardRender(movie catalog.Movie, view, notice string) Render {
	return Render{
		Text:     movieCard(movie),
		Keyboard: movieActionsKeyboard(movie, view),
		Photo:    movie.PosterRef,
		Notice:   notice,
	}
}

func (m *Machine) showCard(ctx context.Context, ownerID, id int64, view, notice string) ([]Render, error) {
	movie, err := m.movies.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return []Render{cardRender(movie, view, notice)}, nil
}

func (m *Machine) toggleWatched(ctx context.Context, ownerID, id int64, view string) ([]Render, error) {
	movie, err := m.movies.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := m.movies.SetWatched(ctx, ownerID, id, !movie.Watched); err != nil {
		return nil, err
	}
	return m.showCard(ctx, ownerID, id, view, toggledNotice(movie.Title, !movie.Watched))
}

func (m *Machine) askDelete(ctx context.Context, ownerID, id int64, view string) ([]Render, error) {
	movie, err := m.movies.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return []Render{{Text: confirmDelete(movie.Title), Keyboard: confirmDeleteKeyboard(id, view)}}, nil
}

func (m *Machine) confirmDelete(ctx context.Context, ownerID, id int64, view string) ([]Render, error) {
	title, err := m.movies.Delete(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return m.listView(ctx, ownerID, view, 0, deletedNotice(title))
}
