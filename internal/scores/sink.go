package scores

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/verte-zerg/neontype/internal/model"
	"github.com/verte-zerg/neontype/internal/typing"
)

// ScoreSink submits finished session results in the background so the
// session owner never waits on storage.
type ScoreSink struct {
	ctx    context.Context
	svc    *Service
	name   string
	email  string
	mode   model.Mode
	logger *slog.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	lastErr error
	last    *Accepted
}

var _ typing.Sink = (*ScoreSink)(nil)

// NewScoreSink creates a sink for one contestant and mode. ctx bounds the
// background submissions.
func NewScoreSink(ctx context.Context, svc *Service, name, email string, mode model.Mode, logger *slog.Logger) *ScoreSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoreSink{ctx: ctx, svc: svc, name: name, email: email, mode: mode, logger: logger}
}

// Report implements typing.Sink.
func (k *ScoreSink) Report(r typing.Result) {
	wpm, acc := r.NetWPM, r.Accuracy
	sub := model.Submission{
		Name:      k.name,
		Email:     k.email,
		WPM:       &wpm,
		Accuracy:  &acc,
		Mode:      k.mode,
		TimeLimit: r.TimeLimitSeconds / 60,
	}
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		accepted, err := k.svc.Submit(k.ctx, sub)
		k.mu.Lock()
		k.lastErr = err
		if err == nil {
			k.last = &accepted
		}
		k.mu.Unlock()
		switch {
		case errors.Is(err, ErrAlreadyPlayed):
			k.logger.Info("contest score ignored, already played", "name", k.name)
		case err != nil:
			k.logger.Error("failed to submit score", "name", k.name, "mode", k.mode, "error", err)
		default:
			k.logger.Info("score submitted", "name", k.name, "mode", k.mode, "wpm", wpm, "saved", accepted.Saved)
		}
	}()
}

// Wait blocks until pending submissions finish and returns the outcome of
// the latest one.
func (k *ScoreSink) Wait() (*Accepted, error) {
	k.wg.Wait()
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.last, k.lastErr
}
