package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockdash/config"
	"stockdash/internal/apiclient"
	"stockdash/internal/indicator"
	"stockdash/internal/logger"
	"stockdash/internal/prefs"
	"stockdash/internal/search"
	"stockdash/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Getenv("STOCKDASH_CONFIG"), "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		return 2
	}
	// stderr, warnings and up
	level := logger.ParseLevel(cfg.LogLevel)
	if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	lg := logger.New(os.Stderr, "stockctl", level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := store.Open(cfg, nil, lg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "store:", err)
		return 1
	}
	defer be.KV.Close()

	history, err := search.LoadHistory(ctx, be.KV)
	if err != nil {
		fmt.Fprintln(os.Stderr, "history:", err)
		return 1
	}
	specs, err := indicator.ParseSpecs(cfg.Dashboard.Indicators)
	if err != nil {
		fmt.Fprintln(os.Stderr, "indicators:", err)
		return 2
	}

	client := apiclient.New(apiclient.Config{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		AnalysisTimeout: cfg.API.AnalysisTimeout,
		TOTPSecret:      cfg.API.TOTPSecret,
		Logger:          lg,
		OnLogout: func() {
			fmt.Fprintln(os.Stderr, "session expired, run `stockctl login` again")
		},
	}, be.KV)

	a := &app{
		client:     client,
		history:    history,
		disclaimer: prefs.NewDisclaimer(be.KV),
		specs:      specs,
		limit:      cfg.Search.Limit,
		out:        os.Stdout,
		now:        time.Now,
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return 3
		}
		return 1
	}
	return 0
}
