package scores

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/neontype/internal/model"
	"github.com/verte-zerg/neontype/internal/store"
	"github.com/verte-zerg/neontype/internal/textgen"
	"github.com/verte-zerg/neontype/internal/typing"
)

var noon = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func openStore(t *testing.T) *store.SQLite {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "scores.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newService(t *testing.T, key model.IdentityKey) (*Service, *clock) {
	t.Helper()
	c := &clock{now: noon}
	return NewService(openStore(t), key, WithNow(c.Now), WithLocation(time.UTC)), c
}

func contest(name, email string, wpm, acc int) model.Submission {
	return model.Submission{Name: name, Email: email, WPM: &wpm, Accuracy: &acc, Mode: model.ModeContest, TimeLimit: 1}
}

func TestSubmitValidation(t *testing.T) {
	svc, _ := newService(t, model.IdentityEmail)
	ctx := context.Background()
	wpm := 50

	cases := map[string]model.Submission{
		"missing name":     contest("  ", "a@x.io", 50, 90),
		"missing email":    contest("Ann", "", 50, 90),
		"missing wpm":      {Name: "Ann", Email: "a@x.io", Accuracy: &wpm, Mode: model.ModeContest},
		"negative wpm":     contest("Ann", "a@x.io", -1, 90),
		"accuracy too big": contest("Ann", "a@x.io", 50, 101),
	}
	for name, sub := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submit(ctx, sub)
			assert.ErrorIs(t, err, ErrInvalidScore)
		})
	}
}

func TestSubmitNonContestNotSaved(t *testing.T) {
	svc, _ := newService(t, model.IdentityEmail)
	sub := contest("Ann", "a@x.io", 50, 90)
	sub.Mode = model.ModeTest

	got, err := svc.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.False(t, got.Saved)
	assert.Equal(t, MessageNotSaved, got.Message)
	assert.Nil(t, got.Entry)

	played, err := svc.Status(context.Background(), "a@x.io")
	require.NoError(t, err)
	assert.False(t, played)
}

func TestSubmitContestOncePerDay(t *testing.T) {
	svc, c := newService(t, model.IdentityEmail)
	ctx := context.Background()

	got, err := svc.Submit(ctx, contest("Ann", "Ann@X.io", 60, 95))
	require.NoError(t, err)
	assert.True(t, got.Saved)
	assert.Equal(t, MessageSaved, got.Message)
	require.NotNil(t, got.Entry)
	assert.Equal(t, "ann@x.io", got.Entry.UserKey)
	assert.NotEmpty(t, got.Entry.ID)

	_, err = svc.Submit(ctx, contest("Ann", "ann@x.io", 70, 99))
	assert.ErrorIs(t, err, ErrAlreadyPlayed)

	played, err := svc.Status(ctx, "ann@x.io")
	require.NoError(t, err)
	assert.True(t, played)

	c.now = noon.AddDate(0, 0, 1)
	played, err = svc.Status(ctx, "ann@x.io")
	require.NoError(t, err)
	assert.False(t, played, "a new day resets the status")

	_, err = svc.Submit(ctx, contest("Ann", "ann@x.io", 70, 99))
	require.NoError(t, err)
}

func TestStatusRequiresIdentity(t *testing.T) {
	svc, _ := newService(t, model.IdentityEmail)
	_, err := svc.Status(context.Background(), " ")
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestLeaderboardTopAndUserRank(t *testing.T) {
	svc, c := newService(t, model.IdentityName)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		c.now = noon.Add(time.Duration(i) * time.Minute)
		_, err := svc.Submit(ctx, contest(fmt.Sprintf("user%02d", i), "", 100-i, 90))
		require.NoError(t, err)
	}
	c.now = noon.Add(time.Hour)

	board, err := svc.Leaderboard(ctx, "")
	require.NoError(t, err)
	require.Len(t, board.Top, LeaderboardSize)
	assert.Equal(t, "user00", board.Top[0].Name)
	assert.Equal(t, 91, board.Top[9].WPM)
	assert.Nil(t, board.UserRank)

	board, err = svc.Leaderboard(ctx, "user03")
	require.NoError(t, err)
	assert.Nil(t, board.UserRank, "users inside the top list get no separate rank")

	board, err = svc.Leaderboard(ctx, "user11")
	require.NoError(t, err)
	require.NotNil(t, board.UserRank)
	assert.Equal(t, 12, board.UserRank.Rank)
	assert.Equal(t, 89, board.UserRank.Score.WPM)

	board, err = svc.Leaderboard(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, board.UserRank)
}

func TestLeaderboardEmptyDay(t *testing.T) {
	svc, _ := newService(t, model.IdentityEmail)
	board, err := svc.Leaderboard(context.Background(), "a@x.io")
	require.NoError(t, err)
	assert.NotNil(t, board.Top)
	assert.Empty(t, board.Top)
	assert.Nil(t, board.UserRank)
}

func TestScoreSinkSubmitsInBackground(t *testing.T) {
	svc, _ := newService(t, model.IdentityEmail)
	sink := NewScoreSink(context.Background(), svc, "Ann", "ann@x.io", model.ModeContest, nil)

	sink.Report(typing.Result{NetWPM: 42, Accuracy: 97, TimeLimitSeconds: 60})
	got, err := sink.Wait()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Saved)
	assert.Equal(t, 42, got.Entry.WPM)
	assert.Equal(t, 1, got.Entry.TimeLimit)

	sink.Report(typing.Result{NetWPM: 50, Accuracy: 97, TimeLimitSeconds: 60})
	_, err = sink.Wait()
	assert.ErrorIs(t, err, ErrAlreadyPlayed)
}

type textSource struct {
	calls atomic.Int32
	err   error
}

func (s *textSource) DailyText(context.Context) (textgen.Text, error) {
	s.calls.Add(1)
	if s.err != nil {
		return textgen.Text{}, s.err
	}
	return textgen.Text{Body: "Daily words.", Source: textgen.SourceProvider}, nil
}

func TestContestsEnsure(t *testing.T) {
	st := openStore(t)
	src := &textSource{}
	c := NewContests(st, src, time.UTC, nil)
	c.now = func() time.Time { return noon }
	ctx := context.Background()

	_, err := c.Today(ctx)
	require.ErrorIs(t, err, ErrContestNotReady)

	got, created, err := c.Ensure(ctx)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "2024-05-01", got.Date)
	assert.Equal(t, "Daily words.", got.Text)

	again, created, err := c.Ensure(ctx)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, got.Text, again.Text)
	assert.Equal(t, int32(1), src.calls.Load())

	today, err := c.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Daily words.", today.Text)
}

func TestContestsEnsureLosesRace(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateDailyContest(ctx, model.DailyContest{Date: "2024-05-01", Text: "first", CreatedAt: noon}))

	c := NewContests(&racingStore{Store: st}, &textSource{}, time.UTC, nil)
	c.now = func() time.Time { return noon }
	got, created, err := c.Ensure(ctx)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "first", got.Text)
}

func TestContestsEnsureSourceError(t *testing.T) {
	c := NewContests(openStore(t), &textSource{err: context.Canceled}, time.UTC, nil)
	_, _, err := c.Ensure(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContestsRunStopsOnCancel(t *testing.T) {
	st := openStore(t)
	src := &textSource{}
	c := NewContests(st, src, time.UTC, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Hour)
		close(done)
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after cancel")
	}
}

// racingStore hides the first lookup so Ensure sees a concurrent insert.
type racingStore struct {
	store.Store
	lookups int
}

func (r *racingStore) GetDailyContest(ctx context.Context, date string) (model.DailyContest, error) {
	r.lookups++
	if r.lookups == 1 {
		return model.DailyContest{}, store.ErrNotFound
	}
	return r.Store.GetDailyContest(ctx, date)
}

// blindStore never reports an existing score, as if every lookup raced a
// concurrent submission.
type blindStore struct {
	store.Store
}

func (blindStore) HasScore(context.Context, store.ScoreQuery, string) (bool, error) {
	return false, nil
}

func TestSubmitConcurrentDuplicateRejected(t *testing.T) {
	c := &clock{now: noon}
	svc := NewService(blindStore{Store: openStore(t)}, model.IdentityEmail, WithNow(c.Now), WithLocation(time.UTC))
	ctx := context.Background()

	accepted, err := svc.Submit(ctx, contest("Ann", "ann@x.io", 50, 90))
	require.NoError(t, err)
	require.True(t, accepted.Saved)

	_, err = svc.Submit(ctx, contest("Ann", "ann@x.io", 70, 95))
	assert.ErrorIs(t, err, ErrAlreadyPlayed)

	c.now = noon.Add(24 * time.Hour)
	_, err = svc.Submit(ctx, contest("Ann", "ann@x.io", 70, 95))
	assert.NoError(t, err, "a new day accepts a new score")
}
