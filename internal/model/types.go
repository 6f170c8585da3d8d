// Package model defines shared data structures.
package model

import (
	"strings"
	"time"
)

// Mode is the kind of typing test a score was produced by.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeTest     Mode = "test"
	ModeContest  Mode = "contest"
)

// ParseMode validates a mode name. Empty input maps to practice.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModePractice:
		return ModePractice, true
	case ModeTest:
		return ModeTest, true
	case ModeContest:
		return ModeContest, true
	default:
		return "", false
	}
}

// IdentityKey selects which user field identifies a contestant.
type IdentityKey string

const (
	IdentityEmail IdentityKey = "email"
	IdentityName  IdentityKey = "name"
)

// UserKey returns the identity value for name/email under key.
func UserKey(key IdentityKey, name, email string) string {
	if key == IdentityName {
		return strings.TrimSpace(name)
	}
	return strings.ToLower(strings.TrimSpace(email))
}

// Config defines practice settings.
type Config struct {
	Minutes      int
	Mode         Mode
	Name         string
	Email        string
	TextsPath    string
	WordListPath string
}

// ValidMinutes reports whether n is an offered time limit: 1, 2 or 5 minutes.
func ValidMinutes(n int) bool {
	return n == 1 || n == 2 || n == 5
}

// TimeLimitSeconds converts the configured minutes to a session limit.
func (c Config) TimeLimitSeconds() int {
	return c.Minutes * 60
}

// HistoryConfig defines filters for local history output.
type HistoryConfig struct {
	Since  *time.Time
	Last   int
	Window int
}

// Submission is a score sent by a client, before validation.
type Submission struct {
	Name      string
	Email     string
	WPM       *int
	Accuracy  *int
	Mode      Mode
	TimeLimit int
}

// Score is a persisted contest result.
type Score struct {
	ID        string    `json:"id" bson:"_id"`
	UserKey   string    `json:"-" bson:"userKey"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty"`
	WPM       int       `json:"wpm" bson:"wpm"`
	Accuracy  int       `json:"accuracy" bson:"accuracy"`
	Mode      Mode      `json:"mode" bson:"mode"`
	TimeLimit int       `json:"timeLimit" bson:"timeLimit"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	// Date is the contest day key. A user holds at most one score per date.
	Date string `json:"-" bson:"date,omitempty"`
}

// Better reports whether s ranks above o on a leaderboard.
func (s Score) Better(o Score) bool {
	if s.WPM != o.WPM {
		return s.WPM > o.WPM
	}
	return s.Accuracy > o.Accuracy
}

// RankedScore is a score with its 1-based leaderboard position.
type RankedScore struct {
	Rank  int   `json:"rank"`
	Score Score `json:"score"`
}

// Leaderboard is the day's top scores plus the caller's position when it
// falls outside the top list.
type Leaderboard struct {
	Top      []Score      `json:"top10"`
	UserRank *RankedScore `json:"userRank"`
}

// DailyContest is the shared text for one contest day.
type DailyContest struct {
	Date      string    `json:"date" bson:"date"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// User is a registered contestant.
type User struct {
	Email       string    `json:"email" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	YearOfBirth int       `json:"yearOfBirth,omitempty" bson:"yearOfBirth,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// PracticeSession captures a completed local typing session. TimeLimit is
// in seconds.
type PracticeSession struct {
	ID        int64     `bson:"_id"`
	StartedAt time.Time `bson:"startedAt"`
	EndedAt   time.Time `bson:"endedAt"`
	Mode      Mode      `bson:"mode"`
	TimeLimit int       `bson:"timeLimit"`
	Cursor    int       `bson:"cursor"`
	Errors    int       `bson:"errors"`
	NetWPM    int       `bson:"netWPM"`
	Accuracy  int       `bson:"accuracy"`
}

// DateKey formats t as a contest day in loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02")
}

// DayBounds returns the [start, end) instants of t's day in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
