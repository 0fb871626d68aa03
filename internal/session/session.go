// Package session keeps the per-owner conversation state between updates.
package session

import (
	"context"
	"errors"
	"time"

	"movie-catalog-bot/internal/catalog"
)

var ErrNotFound = errors.New("session not found")

type State string

const (
	Idle State = ""

	AddTitle       State = "add:title"
	AddGenre       State = "add:genre"
	AddDescription State = "add:description"
	AddPoster      State = "add:poster"

	EditField   State = "edit:field"
	EditValue   State = "edit:value"
	EditConfirm State = "edit:confirm"

	SearchQuery   State = "search:query"
	SearchResults State = "search:results"
)

func (s State) IsEdit() bool {
	return s == EditField || s == EditValue || s == EditConfirm
}

// Draft collects the fields of a movie being added.
type Draft struct {
	Title       string        `json:"title,omitempty"`
	Genre       catalog.Genre `json:"genre,omitempty"`
	Description string        `json:"description,omitempty"`
	PosterRef   string        `json:"poster_ref,omitempty"`
}

// PendingEdit is a validated edit waiting for confirmation.
type PendingEdit struct {
	Field catalog.Field `json:"field"`
	Value string        `json:"value"`
	Old   string        `json:"old"`
	New   string        `json:"new"`
}

type Result struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type Session struct {
	OwnerID int64 `json:"owner_id"`
	State   State `json:"state"`

	Draft            Draft  `json:"draft"`
	Suggestion       string `json:"suggestion,omitempty"`
	ConfirmDuplicate bool   `json:"confirm_duplicate,omitempty"`

	MovieID   int64         `json:"movie_id,omitempty"`
	EditField catalog.Field `json:"edit_field,omitempty"`
	// EditSuggestion is a near-match offered for a new title during edit.
	EditSuggestion string       `json:"edit_suggestion,omitempty"`
	EditTyped      string       `json:"edit_typed,omitempty"`
	Pending        *PendingEdit `json:"pending,omitempty"`
	// View is the list the record card was opened from.
	View string `json:"view,omitempty"`

	Query   string   `json:"query,omitempty"`
	Results []Result `json:"results,omitempty"`
	Page    int      `json:"page,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func New(ownerID int64, state State) *Session {
	return &Session{OwnerID: ownerID, State: state}
}

func (s *Session) Clone() *Session {
	c := *s
	if s.Pending != nil {
		p := *s.Pending
		c.Pending = &p
	}
	if s.Results != nil {
		c.Results = append([]Result(nil), s.Results...)
	}
	return &c
}

// Store persists sessions by owner. Get reports a missing or expired
// session as ErrNotFound.
type Store interface {
	Get(ctx context.Context, ownerID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, ownerID int64) error
}
