package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"movie-catalog-bot/internal/catalog"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "movies.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	base := time.Date(2025, 4, 17, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s
}

func mustCreate(t *testing.T, s *SQLite, owner int64, title string, genre catalog.Genre) catalog.Movie {
	t.Helper()
	m, err := s.Create(context.Background(), owner, catalog.NewMovie{Title: title, Genre: genre, Description: "d"})
	if err != nil {
		t.Fatalf("Create(%q): %v", title, err)
	}
	return m
}

func TestSQLiteCreateGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	created := mustCreate(t, s, 1, "Inception", catalog.GenreFilm)
	if created.ID == 0 || created.Watched || created.WatchedAt != nil {
		t.Fatalf("unexpected created movie: %+v", created)
	}
	got, err := s.Get(ctx, 1, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Inception" || got.Genre != catalog.GenreFilm || got.Description != "d" {
		t.Fatalf("Get = %+v", got)
	}
	if !got.AddedAt.Equal(created.AddedAt) {
		t.Fatalf("AddedAt = %v, want %v", got.AddedAt, created.AddedAt)
	}
	if got.PosterRef != "" {
		t.Fatalf("PosterRef = %q", got.PosterRef)
	}
}

func TestSQLiteOwnerIsolation(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	a := mustCreate(t, s, 1, "Alien", catalog.GenreFilm)
	mustCreate(t, s, 2, "Bleach", catalog.GenreAnime)
	mustCreate(t, s, 2, "Cars", catalog.GenreCartoon)

	list, err := s.List(ctx, 1, catalog.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("owner 1 sees %v", catalog.Titles(list))
	}
	if _, err := s.Get(ctx, 2, a.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("cross-owner Get err = %v", err)
	}
	if _, err := s.Delete(ctx, 2, a.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("cross-owner Delete err = %v", err)
	}
	if err := s.SetWatched(ctx, 2, a.ID, true); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("cross-owner SetWatched err = %v", err)
	}
	title := "Hijacked"
	if err := s.Update(ctx, 2, a.ID, catalog.Patch{Title: &title}); err != nil {
		t.Fatalf("cross-owner Update err = %v", err)
	}
	got, _ := s.Get(ctx, 1, a.ID)
	if got.Title != "Alien" {
		t.Fatalf("foreign update applied: %q", got.Title)
	}
}

func TestSQLiteListFiltersAndOrder(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	a := mustCreate(t, s, 1, "Alien", catalog.GenreFilm)
	b := mustCreate(t, s, 1, "Bleach", catalog.GenreAnime)
	c := mustCreate(t, s, 1, "Cars", catalog.GenreFilm)
	if err := s.SetWatched(ctx, 1, b.ID, true); err != nil {
		t.Fatalf("SetWatched: %v", err)
	}

	list, err := s.List(ctx, 1, catalog.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].ID != c.ID || list[2].ID != a.ID {
		t.Fatalf("default order = %v", catalog.Titles(list))
	}

	list, _ = s.List(ctx, 1, catalog.ListOptions{OrderField: "title", OrderDirection: "asc"})
	if got := catalog.Titles(list); got[0] != "Alien" || got[1] != "Bleach" || got[2] != "Cars" {
		t.Fatalf("title asc = %v", got)
	}

	list, _ = s.List(ctx, 1, catalog.ListOptions{Watched: catalog.WatchedFilter(true)})
	if len(list) != 1 || list[0].ID != b.ID {
		t.Fatalf("watched = %v", catalog.Titles(list))
	}
	list, _ = s.List(ctx, 1, catalog.ListOptions{Watched: catalog.WatchedFilter(false), Genre: catalog.GenreFilm})
	if len(list) != 2 {
		t.Fatalf("unwatched films = %v", catalog.Titles(list))
	}
}

func TestSQLiteOrderInjectionFallsBack(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	mustCreate(t, s, 1, "Alien", catalog.GenreFilm)
	last := mustCreate(t, s, 1, "Bleach", catalog.GenreAnime)

	list, err := s.List(ctx, 1, catalog.ListOptions{OrderField: "id; DROP TABLE movies", OrderDirection: "ASC"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != last.ID {
		t.Fatalf("fallback order = %v", catalog.Titles(list))
	}
	if _, err := s.Stats(ctx, 1); err != nil {
		t.Fatalf("table gone after injection attempt: %v", err)
	}
}

func TestSQLiteUpdate(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	m := mustCreate(t, s, 1, "Alien", catalog.GenreFilm)

	if err := s.Update(ctx, 1, m.ID, catalog.Patch{}); err != nil {
		t.Fatalf("empty Update: %v", err)
	}
	p, dropped := catalog.PatchFromMap(map[string]any{"user_id": 2, "id": 99})
	if len(dropped) != 2 {
		t.Fatalf("dropped = %v", dropped)
	}
	if err := s.Update(ctx, 1, m.ID, p); err != nil {
		t.Fatalf("disallowed Update: %v", err)
	}
	got, _ := s.Get(ctx, 1, m.ID)
	if got.Title != m.Title || got.Genre != m.Genre || got.Description != m.Description || got.OwnerID != 1 {
		t.Fatalf("no-op update changed record: %+v", got)
	}

	genre := catalog.GenreSeries
	empty := ""
	if err := s.Update(ctx, 1, m.ID, catalog.Patch{Genre: &genre, Description: &empty}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = s.Get(ctx, 1, m.ID)
	if got.Genre != catalog.GenreSeries || got.Description != "" {
		t.Fatalf("after update: %+v", got)
	}

	blank := " "
	if err := s.Update(ctx, 1, m.ID, catalog.Patch{Title: &blank}); err != nil {
		t.Fatalf("blank title Update: %v", err)
	}
	if err := s.Update(ctx, 1, m.ID, catalog.Patch{Title: &blank, Description: &blank}); err != nil {
		t.Fatalf("blank title with description Update: %v", err)
	}
	got, _ = s.Get(ctx, 1, m.ID)
	if got.Title != "Alien" {
		t.Fatalf("title overwritten with blank: %q", got.Title)
	}

	if err := s.Update(ctx, 1, 12345, catalog.Patch{Genre: &genre}); err != nil {
		t.Fatalf("Update of missing row: %v", err)
	}
}

func TestSQLiteDeleteIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	m := mustCreate(t, s, 1, "Alien", catalog.GenreFilm)

	title, err := s.Delete(ctx, 1, m.ID)
	if err != nil || title != "Alien" {
		t.Fatalf("Delete = %q, %v", title, err)
	}
	if _, err := s.Delete(ctx, 1, m.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("second Delete err = %v", err)
	}
	list, _ := s.List(ctx, 1, catalog.ListOptions{})
	if len(list) != 0 {
		t.Fatalf("list after delete = %v", catalog.Titles(list))
	}
}

func TestSQLiteSetWatched(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	m := mustCreate(t, s, 1, "Alien", catalog.GenreFilm)

	if err := s.SetWatched(ctx, 1, m.ID, true); err != nil {
		t.Fatalf("SetWatched(true): %v", err)
	}
	got, _ := s.Get(ctx, 1, m.ID)
	if !got.Watched || got.WatchedAt == nil {
		t.Fatalf("after watch: %+v", got)
	}

	if err := s.SetWatched(ctx, 1, m.ID, false); err != nil {
		t.Fatalf("SetWatched(false): %v", err)
	}
	got, _ = s.Get(ctx, 1, m.ID)
	if got.Watched || got.WatchedAt != nil {
		t.Fatalf("after unwatch: %+v", got)
	}

	if err := s.SetWatched(ctx, 1, 999, true); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("SetWatched missing err = %v", err)
	}
}

func TestSQLiteExistsByTitle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	mustCreate(t, s, 1, "Inception", catalog.GenreFilm)
	mustCreate(t, s, 1, "Брат", catalog.GenreFilm)

	cases := []struct {
		owner int64
		title string
		want  bool
	}{
		{1, "inception", true},
		{1, "  INCEPTION ", true},
		{1, "брат", true},
		{1, "Inceptio", false},
		{2, "Inception", false},
	}
	for _, c := range cases {
		got, err := s.ExistsByTitle(ctx, c.owner, c.title)
		if err != nil {
			t.Fatalf("ExistsByTitle: %v", err)
		}
		if got != c.want {
			t.Errorf("ExistsByTitle(%d, %q) = %v, want %v", c.owner, c.title, got, c.want)
		}
	}
}

func TestSQLiteStats(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	st, err := s.Stats(ctx, 1)
	if err != nil || st.Total != 0 || st.Watched != 0 {
		t.Fatalf("empty Stats = %+v, %v", st, err)
	}
	a := mustCreate(t, s, 1, "Alien", catalog.GenreFilm)
	mustCreate(t, s, 1, "Bleach", catalog.GenreAnime)
	mustCreate(t, s, 2, "Cars", catalog.GenreCartoon)
	_ = s.SetWatched(ctx, 1, a.ID, true)

	st, _ = s.Stats(ctx, 1)
	if st.Total != 2 || st.Watched != 1 || st.Unwatched() != 1 {
		t.Fatalf("Stats = %+v", st)
	}
}

func TestSQLiteMigratesOldSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE movies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		genre TEXT NOT NULL,
		description TEXT,
		poster_id TEXT
	)`)
	if err != nil {
		t.Fatalf("create old schema: %v", err)
	}
	if _, err := db.Exec("INSERT INTO movies (user_id, title, genre) VALUES (1, 'Legacy', 'Фильм')"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = db.Close()

	s, err := NewSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("NewSQLite on old schema: %v", err)
	}
	defer s.Close(context.Background())

	list, err := s.List(context.Background(), 1, catalog.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Legacy" || list[0].Watched {
		t.Fatalf("migrated rows = %+v", list)
	}
	if err := s.SetWatched(context.Background(), 1, list[0].ID, true); err != nil {
		t.Fatalf("SetWatched after migration: %v", err)
	}
}
