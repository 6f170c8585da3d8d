package scores

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/verte-zerg/neontype/internal/model"
	"github.com/verte-zerg/neontype/internal/store"
	"github.com/verte-zerg/neontype/internal/textgen"
)

// ErrContestNotReady is returned when today's contest text does not exist yet.
var ErrContestNotReady = errors.New("today's contest is not yet available")

// TextSource produces the shared daily contest text.
type TextSource interface {
	DailyText(ctx context.Context) (textgen.Text, error)
}

// Contests creates and serves one contest text per day.
type Contests struct {
	store  store.Store
	src    TextSource
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewContests creates a Contests whose days are measured in loc.
func NewContests(st store.Store, src TextSource, loc *time.Location, logger *slog.Logger) *Contests {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Contests{store: st, src: src, loc: loc, now: time.Now, logger: logger}
}

// Today returns today's contest or ErrContestNotReady.
func (c *Contests) Today(ctx context.Context) (model.DailyContest, error) {
	contest, err := c.store.GetDailyContest(ctx, model.DateKey(c.now(), c.loc))
	if errors.Is(err, store.ErrNotFound) {
		return model.DailyContest{}, ErrContestNotReady
	}
	return contest, err
}

// Ensure creates today's contest if it is missing. It reports whether this
// call created it. Concurrent callers converge on the first stored text.
func (c *Contests) Ensure(ctx context.Context) (model.DailyContest, bool, error) {
	date := model.DateKey(c.now(), c.loc)
	contest, err := c.store.GetDailyContest(ctx, date)
	if err == nil {
		return contest, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.DailyContest{}, false, err
	}

	text, err := c.src.DailyText(ctx)
	if err != nil {
		return model.DailyContest{}, false, fmt.Errorf("failed to produce daily text: %w", err)
	}
	contest = model.DailyContest{Date: date, Text: text.Body, CreatedAt: c.now()}
	err = c.store.CreateDailyContest(ctx, contest)
	if errors.Is(err, store.ErrExists) {
		existing, gerr := c.store.GetDailyContest(ctx, date)
		return existing, false, gerr
	}
	if err != nil {
		return model.DailyContest{}, false, err
	}
	c.logger.Info("created daily contest", "date", date, "source", text.Source)
	return contest, true, nil
}

// Run ensures the contest at start and then on every interval until ctx is
// done.
func (c *Contests) Run(ctx context.Context, interval time.Duration) {
	c.ensureLogged(ctx)
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.ensureLogged(ctx)
		}
	}
}

func (c *Contests) ensureLogged(ctx context.Context) {
	if _, _, err := c.Ensure(ctx); err != nil && ctx.Err() == nil {
		c.logger.Error("failed to ensure daily contest", "error", err)
	}
}
