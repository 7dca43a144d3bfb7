package batch

import (
	"context"
	"time"
)

// Status strings reported for each entry as a batch runs.
const (
	StatusStarted   = "started"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Progress describes one entry's position in a running batch. Index is
// 1-based over the eligible set. Elapsed is zero on StatusStarted and the
// entry's wall time on the terminal statuses.
type Progress struct {
	Index   int
	Total   int
	Name    string
	Status  string
	Elapsed time.Duration
}

// progressKey is the context key for the progress callback.
type progressKey struct{}

// ProgressFunc receives progress updates as entries start and finish. Entries
// run concurrently, so the callback must tolerate concurrent calls.
type ProgressFunc func(Progress)

// WithProgress stores a progress callback in the context.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	if ctx == nil || fn == nil {
		return ctx
	}
	return context.WithValue(ctx, progressKey{}, fn)
}

// Report invokes the progress callback in the context if present.
func Report(ctx context.Context, p Progress) {
	if ctx == nil {
		return
	}
	if v := ctx.Value(progressKey{}); v != nil {
		if fn, ok := v.(ProgressFunc); ok && fn != nil {
			fn(p)
		}
	}
}
