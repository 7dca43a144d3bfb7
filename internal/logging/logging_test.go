package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFiltersBelowInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Writer: &buf})

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("info line missing: %q", out)
	}
}

func TestNewDebugEmitsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Debug: true, Writer: &buf})

	log.Debug().Str("id", "req-1").Msg("queued")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not a JSON line: %v\n%s", err, buf.String())
	}
	if line["level"] != "debug" || line["id"] != "req-1" || line["message"] != "queued" {
		t.Fatalf("unexpected line: %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Fatal("line has no timestamp")
	}
}

func TestNewFileCreatesParentsAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "volley.log")

	log, closeLog, err := NewFile(path, false)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	log.Info().Msg("first run")
	if err := closeLog(); err != nil {
		t.Fatal(err)
	}

	log, closeLog, err = NewFile(path, false)
	if err != nil {
		t.Fatalf("NewFile reopen: %v", err)
	}
	log.Info().Msg("second run")
	if err := closeLog(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "first run") || !strings.Contains(string(data), "second run") {
		t.Fatalf("log file did not accumulate both runs:\n%s", data)
	}
}
