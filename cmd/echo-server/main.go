// Command echo-server is a local target for poking at volley itself:
// predictable endpoints for echoes, status codes, delays, streaming, and
// oversized bodies. It is a development fixture, not part of the tool.
//
// Usage:
//
//	go run ./cmd/echo-server -addr :8123
//	volley send http://localhost:8123/echo
//	volley send --timeout 1s http://localhost:8123/delay/5s
//	volley send http://localhost:8123/stream/20
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/billie-coop/volley/internal/logging"
)

func main() {
	addr := flag.String("addr", ":8123", "listen address")
	flag.Parse()

	log := logging.New(logging.Options{Console: true})

	r := chi.NewRouter()

	// Reflect the request back as JSON.
	r.HandleFunc("/echo", func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		out, _ := json.MarshalIndent(map[string]any{
			"method":  req.Method,
			"path":    req.URL.Path,
			"query":   req.URL.Query(),
			"headers": req.Header,
			"body":    string(body),
		}, "", "  ")
		w.Header().Set("Content-Type", "application/json")
		w.Write(out)
		w.Write([]byte("\n"))
	})

	// Respond with an arbitrary status code.
	r.Get("/status/{code}", func(w http.ResponseWriter, req *http.Request) {
		code, err := strconv.Atoi(chi.URLParam(req, "code"))
		if err != nil || code < 100 || code > 599 {
			http.Error(w, "bad status code", http.StatusBadRequest)
			return
		}
		w.WriteHeader(code)
		fmt.Fprintf(w, "%d %s\n", code, http.StatusText(code))
	})

	// Sleep before answering; pair with volley's timeout and cancel.
	r.Get("/delay/{dur}", func(w http.ResponseWriter, req *http.Request) {
		d, err := time.ParseDuration(chi.URLParam(req, "dur"))
		if err != nil {
			http.Error(w, "bad duration", http.StatusBadRequest)
			return
		}
		select {
		case <-time.After(d):
			fmt.Fprintf(w, "slept %s\n", d)
		case <-req.Context().Done():
		}
	})

	// Send one line every 100ms with explicit flushes, for watching
	// chunks arrive live.
	r.Get("/stream/{count}", func(w http.ResponseWriter, req *http.Request) {
		n, err := strconv.Atoi(chi.URLParam(req, "count"))
		if err != nil || n < 1 {
			http.Error(w, "bad count", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		flusher, canFlush := w.(http.Flusher)
		for i := 1; i <= n; i++ {
			fmt.Fprintf(w, "line %d of %d\n", i, n)
			if canFlush {
				flusher.Flush()
			}
			select {
			case <-time.After(100 * time.Millisecond):
			case <-req.Context().Done():
				return
			}
		}
	})

	// Send exactly n bytes; pair with the capture caps.
	r.Get("/bytes/{n}", func(w http.ResponseWriter, req *http.Request) {
		n, err := strconv.ParseInt(chi.URLParam(req, "n"), 10, 64)
		if err != nil || n < 0 {
			http.Error(w, "bad byte count", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.FormatInt(n, 10))
		chunk := make([]byte, 32<<10)
		for i := range chunk {
			chunk[i] = 'a' + byte(i%26)
		}
		for n > 0 {
			c := int64(len(chunk))
			if c > n {
				c = n
			}
			if _, err := w.Write(chunk[:c]); err != nil {
				return
			}
			n -= c
		}
	})

	log.Info().Str("addr", *addr).Msg("echo server listening")
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatal().Err(err).Msg("echo server stopped")
	}
}
