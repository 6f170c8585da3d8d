// Package scores records contest results and builds the daily leaderboard.
package scores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/verte-zerg/neontype/internal/model"
	"github.com/verte-zerg/neontype/internal/store"
)

// LeaderboardSize is the number of top scores returned.
const LeaderboardSize = 10

const (
	MessageNotSaved = "Practice/Test score received but not saved."
	MessageSaved    = "Contest score submitted successfully!"
)

var (
	// ErrInvalidScore is returned for submissions missing required fields.
	ErrInvalidScore = errors.New("invalid score submission")
	// ErrAlreadyPlayed is returned for a second contest score on the same day.
	ErrAlreadyPlayed = errors.New("already played today's contest")
	// ErrMissingIdentity is returned when no user key is supplied.
	ErrMissingIdentity = errors.New("user identity is required")
)

// Accepted is the outcome of a valid submission.
type Accepted struct {
	Saved   bool         `json:"-"`
	Message string       `json:"message"`
	Entry   *model.Score `json:"entry,omitempty"`
}

// Service implements score submission and leaderboard queries.
type Service struct {
	store store.Store
	key   model.IdentityKey
	loc   *time.Location
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the location that defines contest day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// NewService creates a Service keyed by the given identity field.
func NewService(st store.Store, key model.IdentityKey, opts ...Option) *Service {
	s := &Service{store: st, key: key, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IdentityKey returns the configured identity field.
func (s *Service) IdentityKey() model.IdentityKey { return s.key }

// Today returns the contest date key for now.
func (s *Service) Today() string {
	return model.DateKey(s.now(), s.loc)
}

func (s *Service) todayQuery() store.ScoreQuery {
	from, to := model.DayBounds(s.now(), s.loc)
	return store.ScoreQuery{Mode: model.ModeContest, From: from, To: to}
}

// Submit validates a submission and persists it when it is a contest score.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (Accepted, error) {
	name := strings.TrimSpace(sub.Name)
	key := model.UserKey(s.key, sub.Name, sub.Email)
	switch {
	case name == "":
		return Accepted{}, fmt.Errorf("%w: name is required", ErrInvalidScore)
	case key == "":
		return Accepted{}, fmt.Errorf("%w: %s is required", ErrInvalidScore, s.key)
	case sub.WPM == nil || sub.Accuracy == nil:
		return Accepted{}, fmt.Errorf("%w: wpm and accuracy are required", ErrInvalidScore)
	case *sub.WPM < 0:
		return Accepted{}, fmt.Errorf("%w: wpm must not be negative", ErrInvalidScore)
	case *sub.Accuracy < 0 || *sub.Accuracy > 100:
		return Accepted{}, fmt.Errorf("%w: accuracy must be within 0..100", ErrInvalidScore)
	}

	if sub.Mode != model.ModeContest {
		return Accepted{Message: MessageNotSaved}, nil
	}

	q := s.todayQuery()
	played, err := s.store.HasScore(ctx, q, key)
	if err != nil {
		return Accepted{}, err
	}
	if played {
		return Accepted{}, ErrAlreadyPlayed
	}
	now := s.now()
	score, err := s.store.InsertScore(ctx, model.Score{
		UserKey:   key,
		Name:      name,
		Email:     strings.TrimSpace(sub.Email),
		WPM:       *sub.WPM,
		Accuracy:  *sub.Accuracy,
		Mode:      model.ModeContest,
		TimeLimit: sub.TimeLimit,
		CreatedAt: now,
		Date:      model.DateKey(now, s.loc),
	})
	// A concurrent submission can pass HasScore; the store index settles it.
	if errors.Is(err, store.ErrExists) {
		return Accepted{}, ErrAlreadyPlayed
	}
	if err != nil {
		return Accepted{}, err
	}
	return Accepted{Saved: true, Message: MessageSaved, Entry: &score}, nil
}

// Status reports whether userKey has a contest score today.
func (s *Service) Status(ctx context.Context, userKey string) (bool, error) {
	if strings.TrimSpace(userKey) == "" {
		return false, ErrMissingIdentity
	}
	return s.store.HasScore(ctx, s.todayQuery(), userKey)
}

// Leaderboard returns today's top scores. When userKey has a score today
// that is not in the top list, its best score and rank are included.
func (s *Service) Leaderboard(ctx context.Context, userKey string) (model.Leaderboard, error) {
	q := s.todayQuery()
	top, err := s.store.TopScores(ctx, q, LeaderboardSize)
	if err != nil {
		return model.Leaderboard{}, err
	}
	board := model.Leaderboard{Top: lo.Ternary(top == nil, []model.Score{}, top)}
	if userKey == "" {
		return board, nil
	}
	if lo.ContainsBy(top, func(sc model.Score) bool { return sc.UserKey == userKey }) {
		return board, nil
	}

	best, err := s.store.BestScore(ctx, q, userKey)
	if errors.Is(err, store.ErrNotFound) {
		return board, nil
	}
	if err != nil {
		return model.Leaderboard{}, err
	}
	better, err := s.store.CountBetter(ctx, q, best.WPM, best.Accuracy)
	if err != nil {
		return model.Leaderboard{}, err
	}
	board.UserRank = &model.RankedScore{Rank: better + 1, Score: best}
	return board, nil
}
