package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/billie-coop/volley/internal/request"
)

// The pipeline folds every failure into one of four shapes. Results carry
// them in Result.Err; nothing is ever thrown across the queue boundary.
var (
	// ErrCancelled means the caller's token fired. Not retried.
	ErrCancelled = errors.New("exchange: cancelled")

	// ErrTimeout means the per-request deadline fired. Distinguished from
	// ErrCancelled only for user-facing text.
	ErrTimeout = errors.New("exchange: timed out")
)

// TransportError wraps a DNS/connect/TLS/reset failure with the URL it was
// talking to, so the surfaced message has context.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsInvalidURL reports whether err is the "never touched the network" failure.
func IsInvalidURL(err error) bool { return errors.Is(err, request.ErrInvalidURL) }

// IsCancelled reports whether err is a user/shutdown cancellation.
func IsCancelled(err error) bool { return errors.Is(err, ErrCancelled) }

// IsTimeout reports whether err is a configured-deadline expiry.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// classify maps a raw transport/context error onto the taxonomy. The
// http.Client wraps context errors in *url.Error; errors.Is unwraps them, so
// which token tripped is recoverable here: a fired deadline surfaces as
// DeadlineExceeded, a cancelled parent as Canceled.
func classify(err error, url string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled):
		return ErrCancelled
	default:
		return &TransportError{URL: url, Err: err}
	}
}
