// Package store persists scores, contests, users and local sessions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/neontype/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite is the embedded single-file backend.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// database/sql pools connections; SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	store := &SQLite{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Backend implements Store.
func (s *SQLite) Backend() string { return "sqlite" }

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			time_limit INTEGER NOT NULL,
			cursor INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			net_wpm INTEGER NOT NULL,
			accuracy INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS scores (
			id TEXT PRIMARY KEY,
			user_key TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			wpm INTEGER NOT NULL,
			accuracy INTEGER NOT NULL,
			mode TEXT NOT NULL,
			time_limit INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			contest_date TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS daily_contests (
			date TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			email TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			year_of_birth INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_mode_created_at ON scores(mode, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_user_key ON scores(user_key);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	// Databases created before contest_date existed need the column added.
	if err := s.ensureColumn("scores", "contest_date", "TEXT"); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_scores_user_date
		ON scores(user_key, contest_date) WHERE contest_date IS NOT NULL;`)
	return err
}

func (s *SQLite) ensureColumn(table, column, typ string) error {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, typ)); err != nil {
		return fmt.Errorf("failed to add %s.%s: %w", table, column, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time %q: %w", v, err)
	}
	return t, nil
}

func closeRows(rows *sql.Rows) {
	if cerr := rows.Close(); cerr != nil {
		// Best-effort rows close.
		_ = cerr
	}
}

// InsertScore stores a score, assigning an ID when empty.
func (s *SQLite) InsertScore(ctx context.Context, score model.Score) (model.Score, error) {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now()
	}
	var date any
	if score.Date != "" {
		date = score.Date
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (id, user_key, name, email, wpm, accuracy, mode, time_limit, created_at, contest_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_key, contest_date) WHERE contest_date IS NOT NULL DO NOTHING`,
		score.ID,
		score.UserKey,
		score.Name,
		score.Email,
		score.WPM,
		score.Accuracy,
		string(score.Mode),
		score.TimeLimit,
		formatTime(score.CreatedAt),
		date,
	)
	if err != nil {
		return model.Score{}, fmt.Errorf("failed to insert score: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Score{}, fmt.Errorf("failed to insert score: %w", err)
	}
	if n == 0 {
		return model.Score{}, ErrExists
	}
	return score, nil
}

const scoreColumns = `id, user_key, name, email, wpm, accuracy, mode, time_limit, created_at`

func scanScores(rows *sql.Rows) ([]model.Score, error) {
	defer closeRows(rows)
	var scores []model.Score
	for rows.Next() {
		var sc model.Score
		var mode, createdAt string
		if err := rows.Scan(&sc.ID, &sc.UserKey, &sc.Name, &sc.Email, &sc.WPM, &sc.Accuracy, &mode, &sc.TimeLimit, &createdAt); err != nil {
			return nil, err
		}
		parsed, err := parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		sc.Mode = model.Mode(mode)
		sc.CreatedAt = parsed
		scores = append(scores, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}

// TopScores implements Store.
func (s *SQLite) TopScores(ctx context.Context, q ScoreQuery, limit int) ([]model.Score, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoreColumns+` FROM scores
		 WHERE mode = ? AND created_at >= ? AND created_at < ?
		 ORDER BY wpm DESC, accuracy DESC, created_at ASC
		 LIMIT ?`,
		string(q.Mode), formatTime(q.From), formatTime(q.To), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	return scanScores(rows)
}

// BestScore implements Store.
func (s *SQLite) BestScore(ctx context.Context, q ScoreQuery, userKey string) (model.Score, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoreColumns+` FROM scores
		 WHERE mode = ? AND created_at >= ? AND created_at < ? AND user_key = ?
		 ORDER BY wpm DESC, accuracy DESC, created_at ASC
		 LIMIT 1`,
		string(q.Mode), formatTime(q.From), formatTime(q.To), userKey)
	if err != nil {
		return model.Score{}, fmt.Errorf("failed to query best score: %w", err)
	}
	scores, err := scanScores(rows)
	if err != nil {
		return model.Score{}, err
	}
	if len(scores) == 0 {
		return model.Score{}, ErrNotFound
	}
	return scores[0], nil
}

// CountBetter implements Store.
func (s *SQLite) CountBetter(ctx context.Context, q ScoreQuery, wpm, accuracy int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scores
		 WHERE mode = ? AND created_at >= ? AND created_at < ?
		 AND (wpm > ? OR (wpm = ? AND accuracy > ?))`,
		string(q.Mode), formatTime(q.From), formatTime(q.To), wpm, wpm, accuracy).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scores: %w", err)
	}
	return count, nil
}

// HasScore implements Store.
func (s *SQLite) HasScore(ctx context.Context, q ScoreQuery, userKey string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM scores
		 WHERE mode = ? AND created_at >= ? AND created_at < ? AND user_key = ?)`,
		string(q.Mode), formatTime(q.From), formatTime(q.To), userKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check score: %w", err)
	}
	return exists == 1, nil
}

// GetDailyContest implements Store.
func (s *SQLite) GetDailyContest(ctx context.Context, date string) (model.DailyContest, error) {
	var c model.DailyContest
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT date, text, created_at FROM daily_contests WHERE date = ?`, date).
		Scan(&c.Date, &c.Text, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DailyContest{}, ErrNotFound
	}
	if err != nil {
		return model.DailyContest{}, fmt.Errorf("failed to query daily contest: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.DailyContest{}, err
	}
	return c, nil
}

// CreateDailyContest implements Store.
func (s *SQLite) CreateDailyContest(ctx context.Context, contest model.DailyContest) error {
	if contest.CreatedAt.IsZero() {
		contest.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_contests (date, text, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(date) DO NOTHING`,
		contest.Date, contest.Text, formatTime(contest.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert daily contest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert daily contest: %w", err)
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

// GetUser implements Store.
func (s *SQLite) GetUser(ctx context.Context, email string) (model.User, error) {
	var u model.User
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT email, name, year_of_birth, created_at FROM users WHERE email = ?`,
		strings.ToLower(email)).Scan(&u.Email, &u.Name, &u.YearOfBirth, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// UpsertUser creates the user or updates name and year of birth, keeping the
// original creation time.
func (s *SQLite) UpsertUser(ctx context.Context, user model.User) (model.User, error) {
	user.Email = strings.ToLower(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, name, year_of_birth, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET name = excluded.name, year_of_birth = excluded.year_of_birth`,
		user.Email, user.Name, user.YearOfBirth, formatTime(user.CreatedAt))
	if err != nil {
		return model.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}
	return s.GetUser(ctx, user.Email)
}

// InsertSession stores a completed local practice session.
func (s *SQLite) InsertSession(ctx context.Context, session model.PracticeSession) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, mode, time_limit, cursor, errors, net_wpm, accuracy)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(session.StartedAt),
		formatTime(session.EndedAt),
		string(session.Mode),
		session.TimeLimit,
		session.Cursor,
		session.Errors,
		session.NetWPM,
		session.Accuracy,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read session id: %w", err)
	}
	return id, nil
}

// ListSessions returns sessions oldest first, filtered by cfg.
func (s *SQLite) ListSessions(ctx context.Context, cfg model.HistoryConfig) ([]model.PracticeSession, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, mode, time_limit, cursor, errors, net_wpm, accuracy
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer closeRows(rows)

	var sessions []model.PracticeSession
	for rows.Next() {
		var ps model.PracticeSession
		var startedAt, endedAt, mode string
		if err := rows.Scan(&ps.ID, &startedAt, &endedAt, &mode, &ps.TimeLimit, &ps.Cursor, &ps.Errors, &ps.NetWPM, &ps.Accuracy); err != nil {
			return nil, err
		}
		if ps.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if ps.EndedAt, err = parseTime(endedAt); err != nil {
			return nil, err
		}
		ps.Mode = model.Mode(mode)
		sessions = append(sessions, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return trimLast(sessions, cfg.Last), nil
}
