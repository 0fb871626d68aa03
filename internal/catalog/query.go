package catalog

import (
	"strings"
	"time"
)

type OrderField string

const (
	OrderByID        OrderField = "id"
	OrderByTitle     OrderField = "title"
	OrderByGenre     OrderField = "genre"
	OrderByAddedAt   OrderField = "added_at"
	OrderByWatched   OrderField = "watched"
	OrderByWatchedAt OrderField = "watched_at"
)

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ListOptions filters and orders List. Zero value lists everything,
// newest first.
type ListOptions struct {
	Watched        *bool
	Genre          Genre
	OrderField     string
	OrderDirection string
}

// Order returns the validated ORDER BY pair. Anything outside the
// allow-list falls back to added_at DESC as a whole, so no caller-supplied
// text ever reaches a query.
func (o ListOptions) Order() (OrderField, Direction) {
	field, ok := parseOrderField(o.OrderField)
	if !ok {
		return OrderByAddedAt, Desc
	}
	switch strings.ToUpper(strings.TrimSpace(o.OrderDirection)) {
	case "ASC":
		return field, Asc
	default:
		return field, Desc
	}
}

func parseOrderField(s string) (OrderField, bool) {
	switch OrderField(strings.ToLower(strings.TrimSpace(s))) {
	case OrderByID:
		return OrderByID, true
	case OrderByTitle:
		return OrderByTitle, true
	case OrderByGenre:
		return OrderByGenre, true
	case OrderByAddedAt:
		return OrderByAddedAt, true
	case OrderByWatched:
		return OrderByWatched, true
	case OrderByWatchedAt:
		return OrderByWatchedAt, true
	}
	return "", false
}

func WatchedFilter(v bool) *bool { return &v }

// Field names an updatable column.
type Field string

const (
	FieldTitle       Field = "title"
	FieldGenre       Field = "genre"
	FieldDescription Field = "description"
	FieldPoster      Field = "poster_ref"
	FieldWatched     Field = "watched"
	FieldWatchedAt   Field = "watched_at"
)

// EditableFields are the fields the edit dialog offers, in menu order.
var EditableFields = []Field{FieldTitle, FieldGenre, FieldDescription, FieldPoster}

func ParseField(s string) (Field, bool) {
	switch Field(strings.TrimSpace(s)) {
	case FieldTitle:
		return FieldTitle, true
	case FieldGenre:
		return FieldGenre, true
	case FieldDescription:
		return FieldDescription, true
	case FieldPoster, "poster", "poster_id":
		return FieldPoster, true
	case FieldWatched:
		return FieldWatched, true
	case FieldWatchedAt:
		return FieldWatchedAt, true
	}
	return "", false
}

// Patch is a partial update. Nil fields are left untouched; an empty
// string clears Description or PosterRef, and a zero WatchedAt clears it.
type Patch struct {
	Title       *string
	Genre       *Genre
	Description *string
	PosterRef   *string
	Watched     *bool
	WatchedAt   *time.Time
}

// Sanitized drops a blank Title; a record's title is never cleared.
func (p Patch) Sanitized() Patch {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		p.Title = nil
	}
	return p
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Genre == nil && p.Description == nil &&
		p.PosterRef == nil && p.Watched == nil && p.WatchedAt == nil
}

// Fields reports the set fields in allow-list order.
func (p Patch) Fields() []Field {
	var out []Field
	if p.Title != nil {
		out = append(out, FieldTitle)
	}
	if p.Genre != nil {
		out = append(out, FieldGenre)
	}
	if p.Description != nil {
		out = append(out, FieldDescription)
	}
	if p.PosterRef != nil {
		out = append(out, FieldPoster)
	}
	if p.Watched != nil {
		out = append(out, FieldWatched)
	}
	if p.WatchedAt != nil {
		out = append(out, FieldWatchedAt)
	}
	return out
}

// SetText sets one of the text-valued editable fields. A blank title is
// rejected with ErrInvalidField.
func (p *Patch) SetText(f Field, value string) error {
	switch f {
	case FieldTitle:
		if strings.TrimSpace(value) == "" {
			return ErrInvalidField
		}
		p.Title = &value
	case FieldDescription:
		p.Description = &value
	case FieldPoster:
		p.PosterRef = &value
	case FieldGenre:
		g, err := ParseGenre(value)
		if err != nil {
			return err
		}
		p.Genre = &g
	default:
		return ErrInvalidField
	}
	return nil
}

// PatchFromMap builds a Patch from dynamically named fields. Unknown names
// and unusable values, such as a blank title, are skipped and returned in
// dropped.
func PatchFromMap(fields map[string]any) (p Patch, dropped []string) {
	for name, raw := range fields {
		f, ok := ParseField(name)
		if !ok {
			dropped = append(dropped, name)
			continue
		}
		switch f {
		case FieldWatched:
			v, ok := raw.(bool)
			if !ok {
				dropped = append(dropped, name)
				continue
			}
			p.Watched = &v
		case FieldWatchedAt:
			switch v := raw.(type) {
			case time.Time:
				p.WatchedAt = &v
			case nil:
				zero := time.Time{}
				p.WatchedAt = &zero
			default:
				dropped = append(dropped, name)
			}
		default:
			var s string
			switch v := raw.(type) {
			case string:
				s = v
			case Genre:
				s = string(v)
			case nil:
				s = ""
			default:
				dropped = append(dropped, name)
				continue
			}
			if err := p.SetText(f, s); err != nil {
				dropped = append(dropped, name)
			}
		}
	}
	return p, dropped
}
