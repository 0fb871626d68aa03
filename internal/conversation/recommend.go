package conversation

import (
	"context"

	"movie-catalog-bot/internal/catalog"
)

func (m *Machine) recommendMenu(ctx context.Context, ownerID int64) ([]Render, error) {
	if err := m.reset(ctx, ownerID); err != nil {
		return nil, err
	}
	return []Render{{Text: txtRecChoose, Keyboard: genreKeyboard(actRecGenre, btn(btnBack, actBackMain))}}, nil
}

// recommend picks a random unwatched movie of genre g from the owner's
// catalogue.
func (m *Machine) recommend(ctx context.Context, ownerID int64, value string) ([]Render, error) {
	g, err := catalog.ParseGenre(value)
	if err != nil {
		return badRequest(), nil
	}
	items, err := m.movies.List(ctx, ownerID, catalog.ListOptions{Watched: catalog.WatchedFilter(false), Genre: g})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []Render{{
			Text: recommendNone(g),
			Keyboard: [][]Choice{
				row(btn("🔄 Другой жанр", actRecommend)),
				row(btn(btnBack, actBackMain)),
			},
		}}, nil
	}
	pick := items[m.pick(len(items))]
	return []Render{{
		Text:  recommendCaption(pick),
		Photo: pick.PosterRef,
		Keyboard: [][]Choice{
			row(btn("🎲 Ещё вариант", actRecGenre, g)),
			row(btn("📄 Подробнее", actMovieInfo, pick.ID, viewUnwatched)),
			row(btn("🔄 Другой жанр", actRecommend)),
			row(btn(btnBack, actBackMain)),
		},
	}}, nil
}
