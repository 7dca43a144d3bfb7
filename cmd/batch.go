package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/billie-coop/volley/internal/batch"
	"github.com/billie-coop/volley/internal/collection"
	"github.com/billie-coop/volley/internal/exchange"
	"github.com/billie-coop/volley/internal/logging"
)

var (
	batchConcurrency int
	batchTimeout     time.Duration
)

func init() {
	batchCmd := &cobra.Command{
		Use:   "batch <collection.json>",
		Short: "Run every request in a collection and summarize the results",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runBatch(cmd, args[0]); err != nil {
				printError(err)
				os.Exit(1)
			}
		},
	}
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 0, "Max requests in flight (0 uses config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 0, "Per-request timeout for entries that set none (0 uses config)")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	col, err := collection.Load(path)
	if err != nil {
		return err
	}

	concurrency := cfg.Concurrency
	if batchConcurrency > 0 {
		concurrency = batchConcurrency
	}
	timeout := cfg.Timeout
	if batchTimeout > 0 {
		timeout = batchTimeout
	}

	// Config fills in only where an entry is silent.
	for _, spec := range col.Entries {
		if spec.Timeout == 0 {
			spec.Timeout = timeout
		}
		if cfg.FormatJSON {
			spec.FormatJSON = true
		}
	}

	log := logging.New(logging.Options{Debug: cfg.Debug, Console: true})
	pipe := exchange.New(&http.Client{}, log.With().Str("component", "exchange").Logger(), cfg.MaxCaptureBytes)
	orch := batch.New(pipe, log, batch.WithConcurrency(concurrency))

	// The first interrupt cancels the batch; in-flight exchanges stop at
	// their next read and the partial summary still prints.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Progress callbacks arrive from worker goroutines; the mutex keeps
	// each line whole.
	var mu sync.Mutex
	ctx = batch.WithProgress(ctx, func(p batch.Progress) {
		mu.Lock()
		defer mu.Unlock()
		switch p.Status {
		case batch.StatusStarted:
			dimColor.Printf("[%d/%d] %s ...\n", p.Index, p.Total, p.Name)
		case batch.StatusSucceeded:
			successColor.Printf("[%d/%d] ", p.Index, p.Total)
			fmt.Print(p.Name + " ")
			dimColor.Printf("(%s)\n", p.Elapsed.Round(time.Millisecond))
		case batch.StatusFailed:
			clientErrColor.Printf("[%d/%d] ", p.Index, p.Total)
			fmt.Println(p.Name + " failed")
		case batch.StatusCancelled:
			warnColor.Printf("[%d/%d] %s cancelled\n", p.Index, p.Total, p.Name)
		}
	})

	res := orch.RunAll(ctx, col.Entries)
	printBatchSummary(col.Name, res)

	if res.Failed > 0 || res.Cancelled {
		os.Exit(1)
	}
	return nil
}

func printBatchSummary(name string, res batch.Result) {
	fmt.Println()
	if res.Cancelled {
		warnColor.Println("batch cancelled")
	}

	fmt.Printf("%s: ", name)
	successColor.Printf("%d ok", res.Succeeded)
	fmt.Print(" • ")
	if res.Failed > 0 {
		clientErrColor.Printf("%d failed", res.Failed)
	} else {
		fmt.Printf("%d failed", res.Failed)
	}
	dimColor.Printf(" • %d total • %s\n", res.Total, res.Elapsed.Round(time.Millisecond))

	for _, e := range res.Errors {
		clientErrColor.Print("  ✗ ")
		fmt.Println(e)
	}
}
