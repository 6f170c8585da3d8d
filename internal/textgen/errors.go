package textgen

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyResponse indicates the model returned no usable text, for example
// because the prompt was blocked.
var ErrEmptyResponse = errors.New("model returned no text")

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("text provider unavailable: %v", e.Err)
	}
	return "text provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

func mapStatus(status int, err error) error {
	switch {
	case status == 429:
		return &ErrRateLimit{Err: err}
	default:
		return &ErrProviderUnavailable{Err: err}
	}
}
