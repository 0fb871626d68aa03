package conversation

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"movie-catalog-bot/internal/catalog"
	"movie-catalog-bot/internal/pager"
	"movie-catalog-bot/internal/session"
)

func searchKeyboardFooter() [][]Choice {
	return [][]Choice{
		row(btn("🔄 Другой запрос", actMyMoviesFind)),
		row(btn(btnBack, actMyMovies)),
	}
}

func (m *Machine) startSearch(ctx context.Context, ownerID int64) ([]Render, error) {
	s := session.New(ownerID, session.SearchQuery)
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return []Render{{Text: txtSearchPrompt, Keyboard: [][]Choice{row(btn(btnBack, actMyMovies))}}}, nil
}

// matchMovies keeps the movies whose title or genre contains query,
// ignoring case.
func matchMovies(movies []catalog.Movie, query string) []session.Result {
	fold := cases.Fold()
	q := fold.String(query)
	out := make([]session.Result, 0)
	for _, mv := range movies {
		if strings.Contains(fold.String(mv.Title), q) || strings.Contains(fold.String(string(mv.Genre)), q) {
			out = append(out, session.Result{ID: mv.ID, Title: mv.Title})
		}
	}
	return out
}

func (m *Machine) search(ctx context.Context, s *session.Session, text string) ([]Render, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return []Render{{Text: txtSearchEmpty + "\n\n" + txtSearchPrompt, Keyboard: [][]Choice{row(btn(btnBack, actMyMovies))}}}, nil
	}
	movies, err := m.movies.List(ctx, s.OwnerID, catalog.ListOptions{})
	if err != nil {
		return nil, err
	}
	results := matchMovies(movies, query)

	s.Query = query
	s.Page = 0
	if len(results) == 0 {
		s.State = session.SearchQuery
		s.Results = nil
		if err := m.save(ctx, s); err != nil {
			return nil, err
		}
		return []Render{{Text: searchNoResults(query), Keyboard: retrySearchKeyboard()}}, nil
	}
	s.State = session.SearchResults
	s.Results = results
	return m.searchPage(ctx, s, 0)
}

// searchPage shows a page of the stored results; page < 0 means the page
// the user was last on.
func (m *Machine) searchPage(ctx context.Context, s *session.Session, page int) ([]Render, error) {
	if s.State != session.SearchResults {
		if s.State == session.Idle {
			return m.startSearch(ctx, s.OwnerID)
		}
		return m.reprompt(ctx, s, txtStale)
	}
	if page < 0 {
		page = s.Page
	}
	p := pager.At(s.Results, page, m.cfg.PageSize)
	s.Page = p.Number
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	kb := pageKeyboard(p,
		func(r session.Result) Choice { return btn("🎬 "+r.Title, actMovieInfo, r.ID, viewSearch) },
		func(n int) string { return btn("", actSearchPage, n).Action },
		searchKeyboardFooter()...,
	)
	return []Render{{Text: searchHeader(p.TotalItems, s.Query, p.Number, p.TotalPages), Keyboard: kb}}, nil
}
