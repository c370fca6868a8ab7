package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ReviewHub/internal/reviews"
	"ReviewHub/internal/stress"
	"ReviewHub/pkg/kit"
)

const (
	exitOK         = 0
	exitAborted    = 1
	exitViolations = 2
	exitUsage      = 64
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes one stress run and writes the JSON report to out. Its result
// is the process exit code.
func run(args []string, out io.Writer) int {
	var (
		cfg      stress.Config
		timeout  time.Duration
		logLevel string
	)
	fs := flag.NewFlagSet("reviewstress", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&cfg.Writers, "writers", 16, "concurrent review writers")
	fs.IntVar(&cfg.ReviewsPerWriter, "reviews", 1000, "reviews appended by each writer")
	fs.IntVar(&cfg.Readers, "readers", 8, "concurrent readers, -1 for none")
	fs.IntVar(&cfg.Products, "products", 8, "product ids the writers spread over")
	fs.DurationVar(&timeout, "timeout", time.Minute, "stop the run after this long")
	fs.StringVar(&logLevel, "log-level", getenv("LOG_LEVEL", "info"), "log level")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	log := kit.NewLogger("reviewstress", logLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rep, err := stress.Run(ctx, reviews.NewRegistry(), cfg, log)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(rep); encErr != nil {
		log.Error("write report failed", zap.Error(encErr))
		if err == nil {
			return exitAborted
		}
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, stress.ErrViolations):
		log.Error("invariants violated", zap.Error(err))
		return exitViolations
	default:
		log.Error("stress run aborted", zap.Error(err))
		return exitAborted
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
