package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/billie-coop/volley/internal/exchange"
	"github.com/billie-coop/volley/internal/logging"
	"github.com/billie-coop/volley/internal/request"
)

var (
	sendMethod  string
	sendHeaders []string
	sendData    string
	sendBearer  string
	sendBasic   string
	sendTimeout time.Duration
	sendRaw     bool
	sendVerbose bool
)

func init() {
	sendCmd := &cobra.Command{
		Use:   "send <url>",
		Short: "Send one request and print the response",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSend(cmd, args[0]); err != nil {
				printError(err)
				os.Exit(1)
			}
		},
	}
	sendCmd.Flags().StringVarP(&sendMethod, "method", "X", "GET", "HTTP method")
	sendCmd.Flags().StringArrayVarP(&sendHeaders, "header", "H", nil, "Add header (repeatable, \"Key: value\")")
	sendCmd.Flags().StringVarP(&sendData, "data", "d", "", "Request body (string or @filename)")
	sendCmd.Flags().StringVar(&sendBearer, "bearer", "", "Bearer token")
	sendCmd.Flags().StringVar(&sendBasic, "basic", "", "Basic credentials as user:pass")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 0, "Abort the exchange after this long (0 uses config)")
	sendCmd.Flags().BoolVar(&sendRaw, "raw", false, "Skip JSON pretty-printing")
	sendCmd.Flags().BoolVarP(&sendVerbose, "verbose", "v", false, "Show response headers")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, rawURL string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	body := sendData
	if strings.HasPrefix(body, "@") {
		b, err := os.ReadFile(strings.TrimPrefix(body, "@"))
		if err != nil {
			return fmt.Errorf("read body file: %w", err)
		}
		body = string(b)
	}

	spec := &request.Spec{
		Method:     sendMethod,
		URL:        rawURL,
		Body:       body,
		Timeout:    sendTimeout,
		FormatJSON: cfg.FormatJSON && !sendRaw,
	}
	if spec.Timeout == 0 {
		spec.Timeout = cfg.Timeout
	}

	for _, h := range sendHeaders {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("header %q is not in \"Key: value\" form", h)
		}
		spec.Headers = append(spec.Headers, request.Header{
			Key:     strings.TrimSpace(k),
			Value:   strings.TrimSpace(v),
			Enabled: true,
		})
	}

	switch {
	case sendBearer != "":
		spec.Auth = request.Auth{Kind: request.AuthBearer, Token: sendBearer}
	case sendBasic != "":
		user, pass, ok := strings.Cut(sendBasic, ":")
		if !ok {
			return errors.New("basic credentials must be user:pass")
		}
		spec.Auth = request.Auth{Kind: request.AuthBasic, Username: user, Password: pass}
	default:
		spec.Auth = request.Auth{Kind: request.AuthNone}
	}

	log := logging.New(logging.Options{Debug: cfg.Debug, Console: true})
	pipe := exchange.New(&http.Client{}, log.With().Str("component", "exchange").Logger(), cfg.MaxCaptureBytes)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The header callback gives us the header block separately from the
	// body, so the pieces can be colored on their own.
	var header string
	res := pipe.Run(ctx, spec, func(h string) { header = h }, nil)
	if res.Err != nil {
		return res.Err
	}

	printResponse(header, res, sendVerbose)
	return nil
}

func printResponse(header string, res exchange.Result, verbose bool) {
	statusColor(res.StatusCode).Printf("%s\n", res.Status)
	dimColor.Printf("  Time: %s • %s\n\n",
		res.Elapsed.Round(time.Millisecond), exchange.HumanBytes(res.ByteSize))

	if verbose {
		// Skip the first header line; the status line above already shows it.
		lines := strings.Split(strings.TrimRight(header, "\n"), "\n")
		for _, line := range lines[1:] {
			if line == "" {
				continue
			}
			k, v, ok := strings.Cut(line, ":")
			if !ok {
				fmt.Println(line)
				continue
			}
			headerKeyColor.Printf("  %s:", k)
			fmt.Println(v)
		}
		fmt.Println()
	}

	body := strings.TrimPrefix(res.FullText, header)
	if body == "" {
		dimColor.Println("(empty body)")
		return
	}
	fmt.Println(body)
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return successColor
	case code >= 300 && code < 400:
		return redirectColor
	case code >= 400 && code < 500:
		return clientErrColor
	default:
		return serverErrColor
	}
}
