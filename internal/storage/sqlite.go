package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"movie-catalog-bot/internal/catalog"
)

const timeLayout = "2006-01-02 15:04:05"

type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (creating if needed) the database file at path and brings
// the schema up to date.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("DB_PATH is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	db.SetMaxOpenConns(4)

	s := &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Info("connected to SQLite", "path", path)
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS movies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			genre TEXT NOT NULL,
			description TEXT,
			poster_id TEXT,
			added_at TEXT DEFAULT (datetime('now')),
			watched_at TEXT,
			watched INTEGER DEFAULT 0
		)`)
	if err != nil {
		return err
	}

	columns, err := s.pragmaNames(ctx, "PRAGMA table_info(movies)", 1)
	if err != nil {
		return err
	}
	// Older databases predate these columns.
	addColumns := []struct{ name, ddl string }{
		{"watched", "ALTER TABLE movies ADD COLUMN watched INTEGER DEFAULT 0"},
		{"watched_at", "ALTER TABLE movies ADD COLUMN watched_at TEXT"},
		{"added_at", "ALTER TABLE movies ADD COLUMN added_at TEXT"},
	}
	for _, c := range addColumns {
		if columns[c.name] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, c.ddl); err != nil {
			return fmt.Errorf("add column %s: %w", c.name, err)
		}
		slog.Info("added column", "column", c.name)
	}

	indexes, err := s.pragmaNames(ctx, "PRAGMA index_list(movies)", 1)
	if err != nil {
		return err
	}
	required := []struct{ name, ddl string }{
		{"idx_user_watched", "CREATE INDEX idx_user_watched ON movies(user_id, watched)"},
		{"idx_user_genre", "CREATE INDEX idx_user_genre ON movies(user_id, genre)"},
		{"idx_user_title_lower", "CREATE INDEX idx_user_title_lower ON movies(user_id, LOWER(title))"},
	}
	for _, idx := range required {
		if indexes[idx.name] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, idx.ddl); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// pragmaNames collects column col (as text) of a PRAGMA listing.
func (s *SQLite) pragmaNames(ctx context.Context, query string, col int) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := map[string]bool{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		if name, ok := vals[col].(string); ok {
			out[name] = true
		}
	}
	return out, rows.Err()
}

const movieColumns = "id, user_id, title, genre, COALESCE(description, ''), COALESCE(poster_id, ''), added_at, watched, watched_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(r rowScanner) (catalog.Movie, error) {
	var (
		m         catalog.Movie
		genre     string
		addedAt   sql.NullString
		watched   sql.NullInt64
		watchedAt sql.NullString
	)
	if err := r.Scan(&m.ID, &m.OwnerID, &m.Title, &genre, &m.Description, &m.PosterRef, &addedAt, &watched, &watchedAt); err != nil {
		return m, err
	}
	m.Genre = catalog.Genre(genre)
	m.Watched = watched.Valid && watched.Int64 != 0
	if t, ok := parseTime(addedAt); ok {
		m.AddedAt = t
	}
	if t, ok := parseTime(watchedAt); ok {
		m.WatchedAt = &t
	}
	return m, nil
}

func parseTime(v sql.NullString) (time.Time, bool) {
	if !v.Valid || v.String == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, v.String); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, catalog.ErrStoreUnavailable, err)
}

func (s *SQLite) List(ctx context.Context, ownerID int64, opts catalog.ListOptions) ([]catalog.Movie, error) {
	conditions := []string{"user_id = ?"}
	args := []any{ownerID}
	if opts.Watched != nil {
		conditions = append(conditions, "watched = ?")
		args = append(args, boolInt(*opts.Watched))
	}
	if opts.Genre != "" {
		conditions = append(conditions, "genre = ?")
		args = append(args, string(opts.Genre))
	}

	// Both identifiers come from the allow-list in ListOptions.Order.
	field, dir := opts.Order()
	query := fmt.Sprintf("SELECT %s FROM movies WHERE %s ORDER BY %s %s, id %s",
		movieColumns, strings.Join(conditions, " AND "), field, dir, dir)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list movies", err)
	}
	defer rows.Close()

	items := make([]catalog.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, unavailable("scan movie", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list movies", err)
	}
	slog.Debug("listed movies", "owner_id", ownerID, "count", len(items), "order", string(field)+" "+string(dir))
	return items, nil
}

func (s *SQLite) Get(ctx context.Context, ownerID, id int64) (catalog.Movie, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies WHERE id = ? AND user_id = ?", id, ownerID)
	m, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Movie{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Movie{}, unavailable("get movie", err)
	}
	return m, nil
}

func (s *SQLite) Create(ctx context.Context, ownerID int64, in catalog.NewMovie) (catalog.Movie, error) {
	addedAt := s.now()
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO movies (user_id, title, genre, description, poster_id, added_at, watched)
		VALUES (?, ?, ?, ?, ?, ?, 0)
		RETURNING id`,
		ownerID, in.Title, string(in.Genre), nullString(in.Description), nullString(in.PosterRef), formatTime(addedAt),
	).Scan(&id)
	if err != nil {
		return catalog.Movie{}, unavailable("create movie", err)
	}
	slog.Info("movie added", "owner_id", ownerID, "id", id, "title", in.Title)
	return catalog.Movie{
		ID:          id,
		OwnerID:     ownerID,
		Title:       in.Title,
		Genre:       in.Genre,
		Description: in.Description,
		PosterRef:   in.PosterRef,
		AddedAt:     addedAt.Truncate(time.Second),
	}, nil
}

func (s *SQLite) Update(ctx context.Context, ownerID, id int64, p catalog.Patch) error {
	p = p.Sanitized()
	if p.IsEmpty() {
		return nil
	}
	var (
		sets []string
		args []any
	)
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Genre != nil {
		sets = append(sets, "genre = ?")
		args = append(args, string(*p.Genre))
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(*p.Description))
	}
	if p.PosterRef != nil {
		sets = append(sets, "poster_id = ?")
		args = append(args, nullString(*p.PosterRef))
	}
	if p.Watched != nil {
		sets = append(sets, "watched = ?")
		args = append(args, boolInt(*p.Watched))
	}
	if p.WatchedAt != nil {
		sets = append(sets, "watched_at = ?")
		if p.WatchedAt.IsZero() {
			args = append(args, nil)
		} else {
			args = append(args, formatTime(*p.WatchedAt))
		}
	}
	args = append(args, id, ownerID)

	res, err := s.db.ExecContext(ctx, "UPDATE movies SET "+strings.Join(sets, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return unavailable("update movie", err)
	}
	n, _ := res.RowsAffected()
	slog.Info("movie updated", "owner_id", ownerID, "id", id, "fields", p.Fields(), "rows", n)
	return nil
}

func (s *SQLite) Delete(ctx context.Context, ownerID, id int64) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx, "DELETE FROM movies WHERE id = ? AND user_id = ? RETURNING title", id, ownerID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", catalog.ErrNotFound
	}
	if err != nil {
		return "", unavailable("delete movie", err)
	}
	slog.Info("movie deleted", "owner_id", ownerID, "id", id, "title", title)
	return title, nil
}

func (s *SQLite) ExistsByTitle(ctx context.Context, ownerID int64, title string) (bool, error) {
	// SQLite's LOWER only folds ASCII; Cyrillic titles are compared here.
	rows, err := s.db.QueryContext(ctx, "SELECT title FROM movies WHERE user_id = ?", ownerID)
	if err != nil {
		return false, unavailable("exists by title", err)
	}
	defer rows.Close()
	title = strings.TrimSpace(title)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return false, unavailable("exists by title", err)
		}
		if strings.EqualFold(strings.TrimSpace(t), title) {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, unavailable("exists by title", err)
	}
	return false, nil
}

func (s *SQLite) SetWatched(ctx context.Context, ownerID, id int64, watched bool) error {
	var watchedAt any
	if watched {
		watchedAt = formatTime(s.now())
	}
	res, err := s.db.ExecContext(ctx, "UPDATE movies SET watched = ?, watched_at = ? WHERE id = ? AND user_id = ?",
		boolInt(watched), watchedAt, id, ownerID)
	if err != nil {
		return unavailable("set watched", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *SQLite) Stats(ctx context.Context, ownerID int64) (catalog.Stats, error) {
	var st catalog.Stats
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(CASE WHEN watched = 1 THEN 1 ELSE 0 END), 0) FROM movies WHERE user_id = ?", ownerID).
		Scan(&st.Total, &st.Watched)
	if err != nil {
		return st, unavailable("stats", err)
	}
	return st, nil
}

func (s *SQLite) Close(context.Context) error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
