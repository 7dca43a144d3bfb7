// Package cmd wires the volley commands: the interactive TUI on a bare
// invocation, plus headless send and batch subcommands for scripting.
package cmd

import (
	"context"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/billie-coop/volley/internal/app"
	"github.com/billie-coop/volley/internal/collection"
	"github.com/billie-coop/volley/internal/config"
	"github.com/billie-coop/volley/internal/logging"
	"github.com/billie-coop/volley/internal/tui"
)

var (
	successColor   = color.New(color.FgGreen, color.Bold)
	redirectColor  = color.New(color.FgYellow, color.Bold)
	clientErrColor = color.New(color.FgRed, color.Bold)
	serverErrColor = color.New(color.FgRed, color.Bold, color.BgWhite)
	headerKeyColor = color.New(color.FgCyan)
	warnColor      = color.New(color.FgYellow)
	dimColor       = color.New(color.Faint)
)

var rootCmd = &cobra.Command{
	Use:   "volley [collection.json]",
	Short: "A terminal HTTP client for poking at APIs",
	Long: `volley is a terminal HTTP client, similar to Postman without the desktop app.

Run it bare (or with a collection file) for the interactive TUI; use the
send and batch subcommands for scripting and CI.

Examples:
  volley api.json
  volley send https://api.example.com/users
  volley send -X POST -d '{"name": "Ada"}' https://api.example.com/users
  volley batch smoke.json`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTUI(cmd, args); err != nil {
			printError(err)
			os.Exit(1)
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ~/.volley/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	col := &collection.Collection{Name: "scratch"}
	if len(args) == 1 {
		col, err = collection.Load(args[0])
		if err != nil {
			return err
		}
	}

	// The TUI owns the terminal, so logs go to a file. When the file
	// can't be opened the session just runs unlogged.
	log, closeLog, err := logging.NewFile(logging.DefaultFilePath(), cfg.Debug)
	if err != nil {
		log = zerolog.Nop()
		closeLog = func() error { return nil }
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := tui.NewSink()
	a := app.New(ctx, cfg, log, sink)
	model := tui.New(a, sink, col)

	if err := a.Dispatcher.Start(); err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, runErr := p.Run()

	cancel()
	if err := a.Shutdown(5 * time.Second); err != nil {
		log.Warn().Err(err).Msg("dispatcher did not drain before deadline")
	}
	return runErr
}

// loadConfig reads the config named by --config, falling back to the
// default path only when a file actually exists there.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		if p := config.DefaultPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func printError(err error) {
	clientErrColor.Fprintf(os.Stderr, "Error: %v\n", err)
}
