package conversation

import (
	"context"
	"strings"

	"movie-catalog-bot/internal/catalog"
	"movie-catalog-bot/internal/logger"
	"movie-catalog-bot/internal/session"
	"movie-catalog-bot/internal/similarity"
)

func (m *Machine) startAdd(ctx context.Context, ownerID int64) ([]Render, error) {
	s := session.New(ownerID, session.AddTitle)
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return []Render{{Text: txtStepTitle, Keyboard: cancelKeyboard()}}, nil
}

// addTitlePrompt is the title step, or the pending yes/no question when the
// title step is waiting on one.
func (m *Machine) addTitlePrompt(s *session.Session) Render {
	switch {
	case s.Suggestion != "":
		return Render{Text: suggestCorrection(s.Draft.Title, s.Suggestion), Keyboard: yesNoKeyboard(actAutoCorrect, actAutoSkip)}
	case s.ConfirmDuplicate:
		return Render{Text: confirmDuplicate(s.Draft.Title, nil), Keyboard: yesNoKeyboard(actDupYes, actDupNo)}
	}
	return Render{Text: txtStepTitle, Keyboard: cancelKeyboard()}
}

func (m *Machine) addTitle(ctx context.Context, s *session.Session, text string) ([]Render, error) {
	title := strings.TrimSpace(text)
	if title == "" {
		return []Render{{Text: txtTitleEmpty + "\n\n" + txtStepTitle, Keyboard: cancelKeyboard()}}, nil
	}

	movies, err := m.movies.List(ctx, s.OwnerID, catalog.ListOptions{})
	if err != nil {
		return nil, err
	}
	if similar := similarity.FindSimilar(catalog.Titles(movies), title, m.cfg.TypoThreshold); len(similar) > 0 {
		s.Draft.Title = title
		s.Suggestion = similar[0]
		s.ConfirmDuplicate = false
		if err := m.save(ctx, s); err != nil {
			return nil, err
		}
		return []Render{m.addTitlePrompt(s)}, nil
	}
	return m.addCheckDuplicate(ctx, s, title, catalog.Titles(movies))
}

// addCheckDuplicate asks before adding a title the owner already has, or
// moves on to the genre step.
func (m *Machine) addCheckDuplicate(ctx context.Context, s *session.Session, title string, titles []string) ([]Render, error) {
	exists, err := m.movies.ExistsByTitle(ctx, s.OwnerID, title)
	if err != nil {
		return nil, err
	}
	s.Draft.Title = title
	s.Suggestion = ""
	if !exists {
		return m.addToGenre(ctx, s)
	}

	if titles == nil {
		movies, err := m.movies.List(ctx, s.OwnerID, catalog.ListOptions{})
		if err != nil {
			return nil, err
		}
		titles = catalog.Titles(movies)
	}
	s.ConfirmDuplicate = true
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	similar := similarity.FindSimilar(titles, title, m.cfg.DuplicateThreshold)
	return []Render{{Text: confirmDuplicate(title, similar), Keyboard: yesNoKeyboard(actDupYes, actDupNo)}}, nil
}

func (m *Machine) addToGenre(ctx context.Context, s *session.Session) ([]Render, error) {
	s.Suggestion = ""
	s.ConfirmDuplicate = false
	s.State = session.AddGenre
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return m.reprompt(ctx, s, "")
}

func (m *Machine) addAcceptSuggestion(ctx context.Context, s *session.Session) ([]Render, error) {
	if s.State != session.AddTitle || s.Suggestion == "" {
		return m.reprompt(ctx, s, txtStale)
	}
	s.Draft.Title = s.Suggestion
	return m.addToGenre(ctx, s)
}

func (m *Machine) addRejectSuggestion(ctx context.Context, s *session.Session) ([]Render, error) {
	if s.State != session.AddTitle || s.Suggestion == "" {
		return m.reprompt(ctx, s, txtStale)
	}
	return m.addCheckDuplicate(ctx, s, s.Draft.Title, nil)
}

func (m *Machine) addConfirmDuplicate(ctx context.Context, s *session.Session) ([]Render, error) {
	if s.State != session.AddTitle || !s.ConfirmDuplicate {
		return m.reprompt(ctx, s, txtStale)
	}
	return m.addToGenre(ctx, s)
}

func (m *Machine) addRejectDuplicate(ctx context.Context, s *session.Session) ([]Render, error) {
	if s.State != session.AddTitle || !s.ConfirmDuplicate {
		return m.reprompt(ctx, s, txtStale)
	}
	s.ConfirmDuplicate = false
	s.Draft.Title = ""
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return []Render{{Text: txtAnotherTitle + "\n\n" + txtStepTitle, Keyboard: cancelKeyboard()}}, nil
}

func (m *Machine) addGenre(ctx context.Context, s *session.Session, value string) ([]Render, error) {
	if s.State != session.AddGenre {
		return m.reprompt(ctx, s, txtStale)
	}
	g, err := catalog.ParseGenre(value)
	if err != nil {
		return m.reprompt(ctx, s, txtBadRequest)
	}
	s.Draft.Genre = g
	s.State = session.AddDescription
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return m.reprompt(ctx, s, "")
}

func (m *Machine) addDescription(ctx context.Context, s *session.Session, text string) ([]Render, error) {
	desc := strings.TrimSpace(text)
	if desc == "" {
		return []Render{{Text: txtDescEmpty + "\n\n" + txtStepDesc, Keyboard: backKeyboard()}}, nil
	}
	s.Draft.Description = desc
	s.State = session.AddPoster
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return m.reprompt(ctx, s, "")
}

func (m *Machine) addBack(ctx context.Context, s *session.Session) ([]Render, error) {
	switch s.State {
	case session.AddTitle:
		return []Render{{Notice: txtAlreadyStart}}, nil
	case session.AddGenre:
		s.State = session.AddTitle
		s.Suggestion = ""
		s.ConfirmDuplicate = false
	case session.AddDescription:
		s.State = session.AddGenre
	case session.AddPoster:
		s.State = session.AddDescription
	default:
		return m.reprompt(ctx, s, txtStale)
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return m.reprompt(ctx, s, "")
}

func (m *Machine) finishAdd(ctx context.Context, s *session.Session) ([]Render, error) {
	d := s.Draft
	if strings.TrimSpace(d.Title) == "" || d.Genre == "" {
		// Draft lost its earlier steps; start over rather than store a partial record.
		return m.startAdd(ctx, s.OwnerID)
	}
	created, err := m.movies.Create(ctx, s.OwnerID, catalog.NewMovie{
		Title:       d.Title,
		Genre:       d.Genre,
		Description: d.Description,
		PosterRef:   d.PosterRef,
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("add flow finished", "owner_id", s.OwnerID, "id", created.ID)

	if err := m.reset(ctx, s.OwnerID); err != nil {
		return nil, err
	}
	st, err := m.movies.Stats(ctx, s.OwnerID)
	if err != nil {
		return nil, err
	}
	return []Render{{Text: txtAddSuccess + statsText(st), Keyboard: mainMenuKeyboard(), Notice: "Добавлено"}}, nil
}
