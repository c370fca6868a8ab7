package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ReviewHub/internal/reviews"
	"ReviewHub/pkg/kit"
)

func main() {
	envErr := godotenv.Load()

	service := "reviews"
	log := kit.NewLogger(service, getenv("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		log.Warn("load .env failed", zap.Error(envErr))
	}

	port := getenv("PORT", "8084")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &reviews.Server{Store: reviews.NewRegistry(), Log: log}
	h, err := reviews.NewHandler(s, reviews.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: getenvBool("METRICS_ENABLED", true),
		MetricsToken:   os.Getenv("METRICS_TOKEN"),
		ReviewLimit:    getenvInt("REVIEW_RATE_LIMIT", 30),
		ReviewWindow:   time.Duration(getenvInt("REVIEW_RATE_WINDOW_SECONDS", 60)) * time.Second,
		TrustProxy:     getenvBool("TRUST_PROXY", false),
	})
	if err != nil {
		log.Fatal("init reviews handler failed", zap.Error(err))
	}

	cfg := kit.ServerConfig{
		Addr:            ":" + port,
		ShutdownTimeout: time.Duration(getenvInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
	}
	if err := kit.RunHTTPServer(context.Background(), cfg, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	n, err := strconv.Atoi(getenv(k, ""))
	if err != nil {
		return def
	}
	return n
}

func getenvBool(k string, def bool) bool {
	b, err := strconv.ParseBool(getenv(k, ""))
	if err != nil {
		return def
	}
	return b
}
