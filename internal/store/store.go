// Package store persists scores, contests, users and local sessions.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/verte-zerg/neontype/internal/model"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when a unique record already exists.
	ErrExists = errors.New("already exists")
)

// ScoreQuery selects scores of one mode created in [From, To).
type ScoreQuery struct {
	Mode model.Mode
	From time.Time
	To   time.Time
}

// Store is implemented by every persistence backend.
type Store interface {
	// InsertScore returns ErrExists when the user already has a score for
	// score.Date. Scores without a date are not constrained.
	InsertScore(ctx context.Context, score model.Score) (model.Score, error)
	// TopScores returns up to limit scores ordered by wpm then accuracy, both descending.
	TopScores(ctx context.Context, q ScoreQuery, limit int) ([]model.Score, error)
	// BestScore returns the highest ranked score of userKey, or ErrNotFound.
	BestScore(ctx context.Context, q ScoreQuery, userKey string) (model.Score, error)
	// CountBetter counts scores that rank strictly above wpm/accuracy.
	CountBetter(ctx context.Context, q ScoreQuery, wpm, accuracy int) (int, error)
	HasScore(ctx context.Context, q ScoreQuery, userKey string) (bool, error)

	GetDailyContest(ctx context.Context, date string) (model.DailyContest, error)
	// CreateDailyContest returns ErrExists when the date is already taken.
	CreateDailyContest(ctx context.Context, contest model.DailyContest) error

	GetUser(ctx context.Context, email string) (model.User, error)
	UpsertUser(ctx context.Context, user model.User) (model.User, error)

	InsertSession(ctx context.Context, session model.PracticeSession) (int64, error)
	ListSessions(ctx context.Context, cfg model.HistoryConfig) ([]model.PracticeSession, error)

	Backend() string
	Close() error
}

func trimLast(sessions []model.PracticeSession, last int) []model.PracticeSession {
	if last > 0 && len(sessions) > last {
		return sessions[len(sessions)-last:]
	}
	return sessions
}
