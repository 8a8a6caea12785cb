package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/gridcast/internal/ecrseed"
	"github.com/okian/gridcast/pkg/logger"
)

// Default configuration constants.
const (
	defaultWorkers  = 4
	defaultTimeout  = 30 * time.Second
	defaultDeadline = 5 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		dir     = flag.String("dir", "./data", "Folder holding the ECR CSV exports")
		season  = flag.Int("season", 0, "Only upload files naming this year (0 uploads all)")
		workers = flag.Int("workers", defaultWorkers, "Number of concurrent uploads")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose = flag.Bool("verbose", false, "Log every upload")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		ecrseed.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultDeadline)
	defer cancel()

	cfg := &ecrseed.Config{
		BaseURL: *baseURL,
		Dir:     *dir,
		Season:  *season,
		Workers: *workers,
		Timeout: *timeout,
		Verbose: *verbose,
	}

	if _, err := ecrseed.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "seed failed", logger.Error(err))
		stop()
		cancel()
		os.Exit(1)
	}
}
