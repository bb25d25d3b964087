package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"reelgen/internal/domain"
	"reelgen/internal/infra"
	"reelgen/internal/poller"
)

func main() {
	_ = godotenv.Load()

	var (
		prompt      string
		server      string
		interval    time.Duration
		maxAttempts int
		sync        bool
	)
	flag.StringVar(&prompt, "prompt", "", "Text prompt describing the video")
	flag.StringVar(&server, "server", envOr("REELGEN_SERVER", "http://localhost:8080"), "Base URL of the reelgen API")
	flag.DurationVar(&interval, "interval", poller.DefaultInterval, "Delay between status checks")
	flag.IntVar(&maxAttempts, "max-attempts", poller.DefaultMaxAttempts, "Status checks before giving up")
	flag.BoolVar(&sync, "sync", false, "Use the synchronous endpoint instead of submit and poll")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: reelctl -prompt \"...\" photo.jpg [photo2.png ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 || strings.TrimSpace(prompt) == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := infra.NewLogger(envOr("APP_ENV", "development")).With().Str("cmd", "reelctl").Logger()

	photos := make([]domain.Photo, 0, flag.NArg())
	for _, path := range flag.Args() {
		ph, err := poller.LoadPhoto(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", path, err)
			os.Exit(1)
		}
		photos = append(photos, ph)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := poller.NewClient(server, nil)

	if sync {
		res, err := client.Generate(ctx, photos, prompt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("video: %s (model %s)\n", res.VideoURL, res.ModelUsed)
		return
	}

	p := poller.New(client, poller.Options{
		Interval:    interval,
		MaxAttempts: maxAttempts,
		Logger:      &logger,
		OnProgress: func(s poller.State) {
			if s.Phase == poller.PhasePolling {
				fmt.Fprintf(os.Stderr, "\rwaiting for %s... %s (check %d/%d)", s.JobID, s.Elapsed.Truncate(time.Second), s.Attempts, s.MaxAttempts)
			}
		},
	})
	state, err := p.Run(ctx, photos, prompt)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stopped: %v (job %s keeps running on the server)\n", err, state.JobID)
		os.Exit(1)
	}

	switch state.Outcome {
	case poller.OutcomeCompleted:
		fmt.Printf("video: %s\n", state.VideoURL)
	case poller.OutcomeFailed:
		fmt.Fprintf(os.Stderr, "generation failed: %s\n", state.Error)
		os.Exit(1)
	case poller.OutcomeTimedOut:
		fmt.Fprintf(os.Stderr, "gave up after %d checks; job %s may still finish\n", state.Attempts, state.JobID)
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "submission rejected: %s\n", state.Error)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
