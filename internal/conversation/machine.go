// Package conversation drives the chat dialog: it turns normalized user
// events into catalog operations and the messages to show in reply.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime/debug"
	"strconv"
	"strings"

	"movie-catalog-bot/internal/catalog"
	"movie-catalog-bot/internal/logger"
	"movie-catalog-bot/internal/session"
)

type Config struct {
	PageSize           int
	TypoThreshold      int
	DuplicateThreshold int
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 5
	}
	if c.TypoThreshold <= 0 {
		c.TypoThreshold = 75
	}
	if c.DuplicateThreshold <= 0 {
		c.DuplicateThreshold = 70
	}
	return c
}

type Machine struct {
	movies   catalog.Store
	sessions session.Store
	cfg      Config
	pick     func(n int) int
}

func New(movies catalog.Store, sessions session.Store, cfg Config) *Machine {
	return &Machine{
		movies:   movies,
		sessions: sessions,
		cfg:      cfg.withDefaults(),
		pick:     rand.Intn,
	}
}

// Handle processes one event and returns what to show. It never fails:
// errors and panics are turned into a user-visible message.
func (m *Machine) Handle(ctx context.Context, ev Event) (out []Render) {
	log := logger.FromContext(ctx).With("owner_id", ev.OwnerID, "kind", ev.Kind.String())
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling event", "panic", r, "stack", string(debug.Stack()))
			out = []Render{{Text: txtStoreFailed, Keyboard: mainMenuKeyboard()}}
		}
	}()

	s, err := m.loadSession(ctx, ev.OwnerID)
	if err != nil {
		log.Error("load session", "error", err)
		return []Render{{Text: txtStoreFailed, Keyboard: mainMenuKeyboard()}}
	}
	log.Debug("event", "state", string(s.State), "payload", ev.Payload)

	var renders []Render
	switch ev.Kind {
	case KindCommand:
		renders, err = m.onCommand(ctx, s, ev.Payload)
	case KindSelection:
		renders, err = m.onSelection(ctx, s, ev.Payload)
	case KindText:
		renders, err = m.onText(ctx, s, ev.Payload)
	case KindMedia:
		renders, err = m.onMedia(ctx, s, ev.Payload)
	default:
		err = fmt.Errorf("unknown event kind %d", ev.Kind)
	}
	if err != nil {
		return m.fail(ctx, ev.OwnerID, err)
	}
	return renders
}

func (m *Machine) fail(ctx context.Context, ownerID int64, err error) []Render {
	log := logger.FromContext(ctx).With("owner_id", ownerID)
	if errors.Is(err, catalog.ErrNotFound) {
		log.Info("record not found", "error", err)
		if cerr := m.sessions.Delete(ctx, ownerID); cerr != nil {
			log.Warn("clear session", "error", cerr)
		}
		return []Render{{Text: txtNotFound, Keyboard: mainMenuKeyboard(), Notice: "Не найдено"}}
	}
	// Session is left as it was so the user can retry.
	log.Error("handle event", "error", err)
	return []Render{{Text: txtStoreFailed, Keyboard: backToMainKeyboard()}}
}

func (m *Machine) loadSession(ctx context.Context, ownerID int64) (*session.Session, error) {
	s, err := m.sessions.Get(ctx, ownerID)
	if errors.Is(err, session.ErrNotFound) {
		return session.New(ownerID, session.Idle), nil
	}
	return s, err
}

func (m *Machine) save(ctx context.Context, s *session.Session) error {
	if err := m.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (m *Machine) reset(ctx context.Context, ownerID int64) error {
	if err := m.sessions.Delete(ctx, ownerID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (m *Machine) onCommand(ctx context.Context, s *session.Session, cmd string) ([]Render, error) {
	cmd = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cmd), "/"))
	if name, _, ok := strings.Cut(cmd, "@"); ok {
		cmd = name
	}
	switch cmd {
	case "start":
		return m.mainMenu(ctx, s.OwnerID, txtGreeting)
	case "restart":
		return m.mainMenu(ctx, s.OwnerID, txtRestarted)
	case "cancel":
		return m.mainMenu(ctx, s.OwnerID, txtMainMenu)
	case "help":
		return m.help(), nil
	case "add":
		return m.startAdd(ctx, s.OwnerID)
	case "recommend":
		return m.recommendMenu(ctx, s.OwnerID)
	case "my_movies":
		return m.myMovies(ctx, s.OwnerID)
	}
	return []Render{{Text: txtUnknownCmd}}, nil
}

func (m *Machine) onSelection(ctx context.Context, s *session.Session, payload string) ([]Render, error) {
	name, args := action(payload)
	switch name {
	case actBackMain:
		return m.mainMenu(ctx, s.OwnerID, txtMainMenu)
	case actHelp:
		return m.help(), nil
	case actAdd:
		return m.startAdd(ctx, s.OwnerID)
	case actBackStep:
		return m.addBack(ctx, s)
	case actAutoCorrect:
		return m.addAcceptSuggestion(ctx, s)
	case actAutoSkip:
		return m.addRejectSuggestion(ctx, s)
	case actDupYes:
		return m.addConfirmDuplicate(ctx, s)
	case actDupNo:
		return m.addRejectDuplicate(ctx, s)
	case actAddGenre:
		return m.addGenre(ctx, s, arg(args, 0))
	case actSkipPoster:
		return m.skipPoster(ctx, s)

	case actEditSelect:
		id, ok := parseID(arg(args, 0))
		if !ok {
			return badRequest(), nil
		}
		return m.startEdit(ctx, s.OwnerID, id, parseView(arg(args, 1)))
	case actEditField:
		return m.editChooseField(ctx, s, arg(args, 0))
	case actEditGenre:
		return m.editGenre(ctx, s, arg(args, 0))
	case actEditCorrect:
		return m.editAcceptSuggestion(ctx, s)
	case actEditSkip:
		return m.editRejectSuggestion(ctx, s)
	case actConfirmEdit:
		return m.editConfirm(ctx, s, arg(args, 0) == "yes")
	case actBackToEdit:
		return m.editBack(ctx, s)
	case actEditDone:
		return m.editDone(ctx, s)

	case actMyMovies:
		return m.myMovies(ctx, s.OwnerID)
	case actMyMoviesAll:
		return m.filterMenu(ctx, s.OwnerID)
	case actMyMoviesFind:
		return m.startSearch(ctx, s.OwnerID)
	case actSearchPage:
		page, err := strconv.Atoi(arg(args, 0))
		if err != nil {
			return badRequest(), nil
		}
		return m.searchPage(ctx, s, page)
	case actList:
		page, _ := strconv.Atoi(arg(args, 1))
		return m.listView(ctx, s.OwnerID, parseView(arg(args, 0)), page, "")

	case actMovieInfo, actToggleWatched, actDelete, actConfirmDelete:
		id, ok := parseID(arg(args, 0))
		if !ok {
			return badRequest(), nil
		}
		view := parseView(arg(args, 1))
		switch name {
		case actMovieInfo:
			return m.showCard(ctx, s.OwnerID, id, view, "")
		case actToggleWatched:
			return m.toggleWatched(ctx, s.OwnerID, id, view)
		case actDelete:
			return m.askDelete(ctx, s.OwnerID, id, view)
		default:
			return m.confirmDelete(ctx, s.OwnerID, id, view)
		}

	case actRecommend:
		return m.recommendMenu(ctx, s.OwnerID)
	case actRecGenre:
		return m.recommend(ctx, s.OwnerID, arg(args, 0))
	}
	return []Render{{Notice: txtBadRequest}}, nil
}

func (m *Machine) onText(ctx context.Context, s *session.Session, text string) ([]Render, error) {
	switch s.State {
	case session.AddTitle:
		return m.addTitle(ctx, s, text)
	case session.AddDescription:
		return m.addDescription(ctx, s, text)
	case session.EditValue:
		return m.editText(ctx, s, text)
	case session.SearchQuery, session.SearchResults:
		return m.search(ctx, s, text)
	case session.Idle:
		return []Render{{Text: txtUseButtons, Keyboard: mainMenuKeyboard()}}, nil
	}
	return m.reprompt(ctx, s, "")
}

func (m *Machine) onMedia(ctx context.Context, s *session.Session, fileID string) ([]Render, error) {
	switch {
	case s.State == session.AddPoster:
		s.Draft.PosterRef = fileID
		return m.finishAdd(ctx, s)
	case s.State == session.EditValue && s.EditField == catalog.FieldPoster:
		return m.editStageCurrent(ctx, s, catalog.FieldPoster, fileID)
	case s.State == session.Idle:
		return []Render{{Text: txtUseButtons, Keyboard: mainMenuKeyboard()}}, nil
	}
	return m.reprompt(ctx, s, "")
}

func (m *Machine) skipPoster(ctx context.Context, s *session.Session) ([]Render, error) {
	switch {
	case s.State == session.AddPoster:
		s.Draft.PosterRef = ""
		return m.finishAdd(ctx, s)
	case s.State == session.EditValue && s.EditField == catalog.FieldPoster:
		return m.editStageCurrent(ctx, s, catalog.FieldPoster, "")
	}
	return m.reprompt(ctx, s, txtStale)
}

// reprompt repeats the prompt of the current state with notice attached.
// Out-of-place input never moves the conversation.
func (m *Machine) reprompt(ctx context.Context, s *session.Session, notice string) ([]Render, error) {
	var r Render
	switch s.State {
	case session.AddTitle:
		r = m.addTitlePrompt(s)
	case session.AddGenre:
		r = Render{Text: txtStepGenre, Keyboard: genreKeyboard(actAddGenre, btn(btnBack, actBackStep))}
	case session.AddDescription:
		r = Render{Text: txtStepDesc, Keyboard: backKeyboard()}
	case session.AddPoster:
		r = Render{Text: txtStepPoster, Keyboard: skipPosterKeyboard()}
	case session.EditField, session.EditValue, session.EditConfirm:
		return m.editReprompt(ctx, s, notice)
	case session.SearchQuery:
		r = Render{Text: txtSearchPrompt, Keyboard: retrySearchKeyboard()}
	case session.SearchResults:
		return m.searchPage(ctx, s, s.Page)
	default:
		return []Render{{Text: txtStale, Keyboard: mainMenuKeyboard(), Notice: notice}}, nil
	}
	r.Notice = notice
	return []Render{r}, nil
}

func (m *Machine) help() []Render {
	return []Render{{Text: txtHelp, Keyboard: backToMainKeyboard()}}
}

func (m *Machine) mainMenu(ctx context.Context, ownerID int64, header string) ([]Render, error) {
	if err := m.reset(ctx, ownerID); err != nil {
		return nil, err
	}
	st, err := m.movies.Stats(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return []Render{{Text: header + statsText(st), Keyboard: mainMenuKeyboard()}}, nil
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

func badRequest() []Render {
	return []Render{{Notice: txtBadRequest}}
}
