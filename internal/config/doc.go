// Package config loads the tool configuration for Volley.
//
// Configuration is deliberately flat: a handful of knobs that tune the
// dispatch core, read once at startup into a Config value that is passed by
// handle to whatever needs it. There is no package-level singleton and no
// hot reload.
//
// The file is YAML, conventionally ~/.volley/config.yaml:
//
//	concurrency: 5
//	max_capture_bytes: 104857600
//	max_stream_bytes: 10485760
//	flush_interval: 300ms
//	timeout: 30s
//	format_json: true
//	debug: false
//
// Every key is optional; defaults cover a fresh install with no file at all.
// Durations use Go syntax ("300ms", "1m30s").
//
// Example usage:
//
//	cfg, err := config.Load(path)
//	if err != nil {
//		return err
//	}
//	fmt.Println("batch concurrency:", cfg.Concurrency)
package config
