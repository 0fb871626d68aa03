package catalog

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("movie not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidGenre     = errors.New("invalid genre")
	ErrInvalidField     = errors.New("invalid field")
)

type Genre string

const (
	GenreFilm    Genre = "Фильм"
	GenreSeries  Genre = "Сериал"
	GenreAnime   Genre = "Аниме"
	GenreCartoon Genre = "Мультфильм"
)

// Genres lists the closed genre enumeration in display order.
var Genres = []Genre{GenreFilm, GenreSeries, GenreAnime, GenreCartoon}

func ParseGenre(s string) (Genre, error) {
	s = strings.TrimSpace(s)
	for _, g := range Genres {
		if strings.EqualFold(string(g), s) {
			return g, nil
		}
	}
	return "", ErrInvalidGenre
}

func (g Genre) Icon() string {
	switch g {
	case GenreFilm:
		return "🎬"
	case GenreSeries:
		return "📺"
	case GenreAnime:
		return "🌸"
	case GenreCartoon:
		return "🎨"
	}
	return "📌"
}

type Movie struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	Title       string     `json:"title"`
	Genre       Genre      `json:"genre"`
	Description string     `json:"description,omitempty"`
	PosterRef   string     `json:"poster_ref,omitempty"`
	AddedAt     time.Time  `json:"added_at"`
	Watched     bool       `json:"watched"`
	WatchedAt   *time.Time `json:"watched_at,omitempty"`
}

type NewMovie struct {
	Title       string
	Genre       Genre
	Description string
	PosterRef   string
}

type Stats struct {
	Total   int
	Watched int
}

func (s Stats) Unwatched() int { return s.Total - s.Watched }

// Store is the owner-scoped movie catalogue. Implementations wrap I/O
// failures in ErrStoreUnavailable and report missing or foreign rows as
// ErrNotFound.
type Store interface {
	List(ctx context.Context, ownerID int64, opts ListOptions) ([]Movie, error)
	Get(ctx context.Context, ownerID, id int64) (Movie, error)
	Create(ctx context.Context, ownerID int64, in NewMovie) (Movie, error)
	Update(ctx context.Context, ownerID, id int64, p Patch) error
	Delete(ctx context.Context, ownerID, id int64) (string, error)
	ExistsByTitle(ctx context.Context, ownerID int64, title string) (bool, error)
	SetWatched(ctx context.Context, ownerID, id int64, watched bool) error
	Stats(ctx context.Context, ownerID int64) (Stats, error)
	Close(ctx context.Context) error
}

func Titles(movies []Movie) []string {
	out := make([]string, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.Title)
	}
	return out
}
