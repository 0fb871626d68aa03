package conversation

import (
	"context"
	"strings"

	"movie-catalog-bot/internal/catalog"
	"movie-catalog-bot/internal/logger"
	"movie-catalog-bot/internal/session"
	"movie-catalog-bot/internal/similarity"
)

func confirmEditKeyboard() [][]Choice {
	return [][]Choice{
		row(btn(btnYes, actConfirmEdit, "yes")),
		row(btn(btnNo, actConfirmEdit, "no")),
		row(btn(btnBack, actBackToEdit)),
	}
}

func editSuggestionKeyboard() [][]Choice {
	return [][]Choice{
		row(btn(btnYes, actEditCorrect)),
		row(btn(btnNo, actEditSkip)),
		row(btn(btnBack, actBackToEdit)),
	}
}

func editMenuRender(prefix string, movie catalog.Movie) Render {
	text := movieCard(movie) + "\n\n" + txtEditChoose
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	return Render{Text: text, Keyboard: editMenuKeyboard()}
}

func (m *Machine) startEdit(ctx context.Context, ownerID, id int64, view string) ([]Render, error) {
	movie, err := m.movies.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	s := session.New(ownerID, session.EditField)
	s.MovieID = id
	s.View = view
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return []Render{editMenuRender("", movie)}, nil
}

func (m *Machine) editMovie(ctx context.Context, s *session.Session) (catalog.Movie, error) {
	return m.movies.Get(ctx, s.OwnerID, s.MovieID)
}

func (m *Machine) editReprompt(ctx context.Context, s *session.Session, notice string) ([]Render, error) {
	movie, err := m.editMovie(ctx, s)
	if err != nil {
		return nil, err
	}
	var r Render
	switch {
	case s.State == session.EditConfirm && s.Pending != nil:
		r = Render{Text: confirmEdit(s.Pending.Field, s.Pending.Old, s.Pending.New), Keyboard: confirmEditKeyboard()}
	case s.State == session.EditValue:
		r = editValuePrompt(s, movie)
	default:
		r = editMenuRender("", movie)
	}
	r.Notice = notice
	return []Render{r}, nil
}

func editValuePrompt(s *session.Session, movie catalog.Movie) Render {
	if s.EditSuggestion != "" {
		return Render{Text: suggestCorrection(s.EditTyped, s.EditSuggestion), Keyboard: editSuggestionKeyboard()}
	}
	switch s.EditField {
	case catalog.FieldGenre:
		return Render{
			Text:     "🎭 <b>Выберите новый жанр</b>\n\nСейчас: <i>" + esc(string(movie.Genre)) + "</i>",
			Keyboard: genreKeyboard(actEditGenre, btn(btnBack, actBackToEdit)),
		}
	case catalog.FieldPoster:
		return Render{Text: editPosterPrompt(movie.PosterRef != ""), Keyboard: editSkipPosterKeyboard()}
	case catalog.FieldDescription:
		return Render{Text: editPrompt(catalog.FieldDescription, movie.Description), Keyboard: backToEditKeyboard()}
	}
	return Render{Text: editPrompt(catalog.FieldTitle, movie.Title), Keyboard: backToEditKeyboard()}
}

func (m *Machine) editChooseField(ctx context.Context, s *session.Session, name string) ([]Render, error) {
	if !s.State.IsEdit() {
		return m.reprompt(ctx, s, txtStale)
	}
	f, ok := catalog.ParseField(name)
	if !ok || !editable(f) {
		return m.reprompt(ctx, s, txtBadRequest)
	}
	movie, err := m.editMovie(ctx, s)
	if err != nil {
		return nil, err
	}
	s.State = session.EditValue
	s.EditField = f
	s.Pending = nil
	s.EditSuggestion, s.EditTyped = "", ""
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return []Render{editValuePrompt(s, movie)}, nil
}

func editable(f catalog.Field) bool {
	for _, e := range catalog.EditableFields {
		if e == f {
			return true
		}
	}
	return false
}

func (m *Machine) editText(ctx context.Context, s *session.Session, text string) ([]Render, error) {
	movie, err := m.editMovie(ctx, s)
	if err != nil {
		return nil, err
	}
	value := strings.TrimSpace(text)
	prompt := editValuePrompt(s, movie)

	switch s.EditField {
	case catalog.FieldGenre:
		prompt.Text = txtExpectGenre
		return []Render{prompt}, nil
	case catalog.FieldPoster:
		prompt.Text = txtExpectPhoto
		return []Render{prompt}, nil
	case catalog.FieldDescription:
		if value == "" {
			prompt.Text = txtDescEmpty + "\n\n" + prompt.Text
			return []Render{prompt}, nil
		}
		return m.editStage(ctx, s, movie, catalog.FieldDescription, value)
	}

	if value == "" {
		prompt.Text = txtTitleEmpty + "\n\n" + prompt.Text
		return []Render{prompt}, nil
	}
	if sameTitle(movie.Title, value) {
		return []Render{{Text: txtSameTitle, Keyboard: backToEditKeyboard()}}, nil
	}

	movies, err := m.movies.List(ctx, s.OwnerID, catalog.ListOptions{})
	if err != nil {
		return nil, err
	}
	others := make([]string, 0, len(movies))
	for _, other := range movies {
		if other.ID != movie.ID {
			others = append(others, other.Title)
		}
	}
	if similar := similarity.FindSimilar(others, value, m.cfg.TypoThreshold); len(similar) > 0 {
		s.EditTyped = value
		s.EditSuggestion = similar[0]
		if err := m.save(ctx, s); err != nil {
			return nil, err
		}
		return []Render{editValuePrompt(s, movie)}, nil
	}
	return m.editStage(ctx, s, movie, catalog.FieldTitle, value)
}

func sameTitle(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// editStage records a validated value as the pending edit and asks for
// confirmation. Nothing is written yet.
func (m *Machine) editStage(ctx context.Context, s *session.Session, movie catalog.Movie, f catalog.Field, value string) ([]Render, error) {
	if f == catalog.FieldTitle && sameTitle(movie.Title, value) {
		s.EditSuggestion, s.EditTyped = "", ""
		if err := m.save(ctx, s); err != nil {
			return nil, err
		}
		return []Render{{Text: txtSameTitle, Keyboard: backToEditKeyboard()}}, nil
	}

	pending := &session.PendingEdit{Field: f, Value: value}
	switch f {
	case catalog.FieldTitle:
		pending.Old, pending.New = movie.Title, value
	case catalog.FieldGenre:
		pending.Old, pending.New = string(movie.Genre), value
	case catalog.FieldDescription:
		pending.Old, pending.New = movie.Description, value
	case catalog.FieldPoster:
		pending.Old, pending.New = posterDisplay(movie.PosterRef), posterDisplay(value)
	}

	s.State = session.EditConfirm
	s.Pending = pending
	s.EditSuggestion, s.EditTyped = "", ""
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	r := Render{Text: confirmEdit(f, pending.Old, pending.New), Keyboard: confirmEditKeyboard()}
	if f == catalog.FieldPoster && value != "" {
		r.Photo = value
	}
	return []Render{r}, nil
}

func (m *Machine) editStageCurrent(ctx context.Context, s *session.Session, f catalog.Field, value string) ([]Render, error) {
	movie, err := m.editMovie(ctx, s)
	if err != nil {
		return nil, err
	}
	return m.editStage(ctx, s, movie, f, value)
}

func (m *Machine) editGenre(ctx context.Context, s *session.Session, value string) ([]Render, error) {
	if s.State != session.EditValue || s.EditField != catalog.FieldGenre {
		return m.reprompt(ctx, s, txtStale)
	}
	g, err := catalog.ParseGenre(value)
	if err != nil {
		return m.reprompt(ctx, s, txtBadRequest)
	}
	return m.editStageCurrent(ctx, s, catalog.FieldGenre, string(g))
}

func (m *Machine) editAcceptSuggestion(ctx context.Context, s *session.Session) ([]Render, error) {
	if s.State != session.EditValue || s.EditSuggestion == "" {
		return m.reprompt(ctx, s, txtStale)
	}
	return m.editStageCurrent(ctx, s, catalog.FieldTitle, s.EditSuggestion)
}

func (m *Machine) editRejectSuggestion(ctx context.Context, s *session.Session) ([]Render, error) {
	if s.State != session.EditValue || s.EditSuggestion == "" {
		return m.reprompt(ctx, s, txtStale)
	}
	return m.editStageCurrent(ctx, s, catalog.FieldTitle, s.EditTyped)
}

func (m *Machine) editConfirm(ctx context.Context, s *session.Session, accept bool) ([]Render, error) {
	if s.State != session.EditConfirm || s.Pending == nil {
		return m.reprompt(ctx, s, txtStale)
	}
	movie, err := m.editMovie(ctx, s)
	if err != nil {
		return nil, err
	}
	pending := *s.Pending
	s.Pending = nil
	s.State = session.EditField

	if !accept {
		if err := m.save(ctx, s); err != nil {
			return nil, err
		}
		return []Render{editMenuRender(txtEditCancelled, movie)}, nil
	}

	p, dropped := catalog.PatchFromMap(map[string]any{string(pending.Field): pending.Value})
	if len(dropped) > 0 {
		logger.FromContext(ctx).Warn("edit fields dropped", "owner_id", s.OwnerID, "id", s.MovieID, "fields", dropped)
	}
	if p.IsEmpty() {
		return m.reprompt(ctx, s, txtBadRequest)
	}
	if err := m.movies.Update(ctx, s.OwnerID, s.MovieID, p); err != nil {
		return nil, err
	}
	updated, err := m.editMovie(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	r := editMenuRender(editSaved(pending.Field, pending.Old, pending.New), updated)
	r.Notice = "Сохранено"
	return []Render{r}, nil
}

func (m *Machine) editBack(ctx context.Context, s *session.Session) ([]Render, error) {
	if !s.State.IsEdit() {
		return m.reprompt(ctx, s, txtStale)
	}
	s.State = session.EditField
	s.Pending = nil
	s.EditSuggestion, s.EditTyped = "", ""
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return m.editReprompt(ctx, s, "")
}

func (m *Machine) editDone(ctx context.Context, s *session.Session) ([]Render, error) {
	if !s.State.IsEdit() {
		return m.reprompt(ctx, s, txtStale)
	}
	movie, err := m.editMovie(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := m.reset(ctx, s.OwnerID); err != nil {
		return nil, err
	}
	return []Render{cardRender(movie, s.View, "")}, nil
}
