package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/billie-coop/volley/internal/exchange"
	"github.com/billie-coop/volley/internal/request"
)

// DefaultConcurrency caps how many exchanges are in flight at once unless
// WithConcurrency overrides it.
const DefaultConcurrency = 5

// Runner executes one exchange. *exchange.Pipeline satisfies it; the batch
// always passes nil callbacks, so bodies are captured whole rather than
// streamed.
type Runner interface {
	Run(ctx context.Context, spec *request.Spec, onHeader func(string), onChunk func(string)) exchange.Result
}

// Result aggregates one batch run. Succeeded+Failed always equals Total once
// RunAll returns; entries the cancellation caught before starting count as
// failed with an entry in Errors.
type Result struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    []string
	Elapsed   time.Duration
	Cancelled bool
}

// Orchestrator fans a list of specs through a Runner, bounded by a counting
// semaphore. Entries run independently; one failing never aborts the rest.
type Orchestrator struct {
	runner      Runner
	log         zerolog.Logger
	concurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency sets the in-flight cap. Values below 1 are raised to 1.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
	}
}

// New builds an Orchestrator around runner.
func New(runner Runner, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner:      runner,
		log:         log.With().Str("component", "batch").Logger(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunAll executes every spec with a non-empty URL and folds the outcomes into
// one Result. Failures land as strings in Result.Errors, never as a returned
// error. Cancelling ctx marks the result cancelled, stops entries that have
// not started, and lets in-flight exchanges observe the same context; whatever
// already finished stays counted.
//
// Progress callbacks installed with WithProgress fire on each entry's start
// and completion.
func (o *Orchestrator) RunAll(ctx context.Context, specs []*request.Spec) Result {
	start := time.Now()

	runnable := make([]*request.Spec, 0, len(specs))
	for _, spec := range specs {
		if spec == nil || strings.TrimSpace(spec.URL) == "" {
			continue
		}
		runnable = append(runnable, spec)
	}

	total := len(runnable)
	result := Result{Total: total}
	if total == 0 {
		return result
	}

	o.log.Info().Int("total", total).Int("concurrency", o.concurrency).Msg("batch started")

	semaphore := make(chan struct{}, o.concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex

	cancelledEntry := func(index int, name string) {
		mu.Lock()
		result.Failed++
		result.Errors = append(result.Errors, name+": cancelled before start")
		result.Cancelled = true
		mu.Unlock()
		Report(ctx, Progress{Index: index, Total: total, Name: name, Status: StatusCancelled})
	}

	for i, spec := range runnable {
		wg.Add(1)
		go func(index int, spec *request.Spec) {
			defer wg.Done()

			name := spec.DisplayName()

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				cancelledEntry(index, name)
				return
			}
			defer func() { <-semaphore }()

			// The select can pick the semaphore even when ctx is already
			// dead; skip rather than report a start that never happens.
			if ctx.Err() != nil {
				cancelledEntry(index, name)
				return
			}

			Report(ctx, Progress{Index: index, Total: total, Name: name, Status: StatusStarted})

			began := time.Now()
			res := o.runOne(ctx, spec)
			elapsed := time.Since(began)

			status := StatusSucceeded
			mu.Lock()
			if res.Err != nil {
				result.Failed++
				result.Errors = append(result.Errors, name+": "+res.Err.Error())
				status = StatusFailed
				if exchange.IsCancelled(res.Err) {
					result.Cancelled = true
					status = StatusCancelled
				}
			} else {
				result.Succeeded++
			}
			mu.Unlock()

			Report(ctx, Progress{Index: index, Total: total, Name: name, Status: status, Elapsed: elapsed})
		}(i+1, spec)
	}

	wg.Wait()

	// Cancellation may fire without tripping any single exchange, for
	// example when every in-flight body read finishes first.
	if ctx.Err() != nil {
		result.Cancelled = true
	}

	result.Elapsed = time.Since(start)

	o.log.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Bool("cancelled", result.Cancelled).
		Dur("elapsed", result.Elapsed).
		Msg("batch finished")

	return result
}

// runOne shields the batch from a panicking exchange.
func (o *Orchestrator) runOne(ctx context.Context, spec *request.Spec) (res exchange.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Str("url", spec.URL).Msg("exchange panicked")
			res = exchange.Result{Err: fmt.Errorf("internal error: %v", r)}
		}
	}()
	return o.runner.Run(ctx, spec, nil, nil)
}
