// Package app wires the tool together: configuration, logging, the shared
// HTTP client, both exchange pipelines, the dispatcher, and the batch runner.
// Everything is constructed once here and passed by handle; nothing in the
// repo reaches for a package global.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/billie-coop/volley/internal/batch"
	"github.com/billie-coop/volley/internal/config"
	"github.com/billie-coop/volley/internal/dispatch"
	"github.com/billie-coop/volley/internal/exchange"
)

// App holds all the core services.
type App struct {
	Config *config.Config
	Log    zerolog.Logger

	// Client is the shared transport. Every exchange, interactive or batch,
	// draws from its connection pool. No Client.Timeout: deadlines are
	// per-request contexts so streams can run long when asked to.
	Client *http.Client

	// Streaming executes interactive exchanges: chunks flow to the UI queue
	// as they arrive, capture stops at the smaller interactive cap.
	Streaming *exchange.Pipeline

	// OneShot executes headless and batch exchanges: no chunk callbacks,
	// full single-shot capture cap.
	OneShot *exchange.Pipeline

	Dispatcher *dispatch.Dispatcher
	Batch      *batch.Orchestrator
}

// New wires an App around the given sink. The dispatcher is constructed but
// not started; callers attach their UI consumer first, then call
// Dispatcher.Start.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, sink dispatch.Sink) *App {
	client := &http.Client{}

	exchangeLog := log.With().Str("component", "exchange").Logger()
	streaming := exchange.New(client, exchangeLog, cfg.MaxStreamBytes)
	oneShot := exchange.New(client, exchangeLog, cfg.MaxCaptureBytes)

	dispatcher := dispatch.New(ctx, streaming, sink,
		log.With().Str("component", "dispatch").Logger(),
		dispatch.WithFlushInterval(cfg.FlushInterval))

	runner := batch.New(oneShot, log, batch.WithConcurrency(cfg.Concurrency))

	return &App{
		Config:     cfg,
		Log:        log,
		Client:     client,
		Streaming:  streaming,
		OneShot:    oneShot,
		Dispatcher: dispatcher,
		Batch:      runner,
	}
}

// Shutdown stops the dispatcher, joining its workers within timeout.
func (a *App) Shutdown(timeout time.Duration) error {
	return a.Dispatcher.Shutdown(timeout)
}
