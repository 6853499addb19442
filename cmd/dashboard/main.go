package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"stockdash/config"
	"stockdash/internal/apiclient"
	"stockdash/internal/gateway"
	"stockdash/internal/indicator"
	"stockdash/internal/logger"
	"stockdash/internal/markethours"
	"stockdash/internal/metrics"
	"stockdash/internal/notification"
	"stockdash/internal/scheduler"
	"stockdash/internal/search"
	"stockdash/internal/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("STOCKDASH_CONFIG"), "Path to YAML config file")
	envPath := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[dashboard] starting...")

	// ---- Config ----
	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		log.Fatalf("[dashboard] config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[dashboard] invalid config: %v", err)
	}
	lg := logger.Init("dashboard", logger.ParseLevel(cfg.LogLevel))

	if err := markethours.AddHolidays(cfg.Dashboard.Holidays); err != nil {
		log.Fatalf("[dashboard] holidays: %v", err)
	}
	specs, err := indicator.ParseSpecs(cfg.Dashboard.Indicators)
	if err != nil {
		log.Fatalf("[dashboard] indicators: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Metrics & store ----
	prom := metrics.NewMetrics()
	be, err := store.Open(cfg, prom, lg)
	if err != nil {
		log.Fatalf("[dashboard] store init failed: %v", err)
	}
	defer be.KV.Close()
	lg.Info("store ready", "kind", be.Kind, "bar_cache", be.Bars != nil)

	history, err := search.LoadHistory(ctx, be.KV)
	if err != nil {
		log.Fatalf("[dashboard] search history: %v", err)
	}

	// ---- Alerts ----
	notifiers := notification.Multi{notification.NewLogNotifier(lg)}
	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.Notify.WebhookURL, "stockdash"))
	}
	if cfg.Notify.TelegramToken != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChat))
	}
	alerts := notification.NewDispatcher(notifiers, lg, 10*time.Minute)
	defer alerts.Wait()

	// ---- Backend client ----
	expiry := &sessionExpiry{alerts: alerts}
	client := apiclient.New(apiclient.Config{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		AnalysisTimeout: cfg.API.AnalysisTimeout,
		TOTPSecret:      cfg.API.TOTPSecret,
		Logger:          lg,
		Metrics:         prom,
		OnLogout:        expiry.onLogout,
	}, be.KV)
	if !client.LoggedIn(ctx) {
		lg.Warn("no stored session, run `stockctl login` first")
	}

	// ---- Health ----
	health := metrics.NewHealthStatus(be.Kind)
	health.Check(ctx, client.Ping, be.Ping)
	health.StartLivenessChecker(ctx, client.Ping, be.Ping, 15*time.Second)

	// ---- Warm-up scheduler ----
	sched := scheduler.New(ctx, client, scheduler.Options{
		Bars:    be.Bars,
		Logger:  lg,
		Metrics: prom,
		OnWarm:  health.SetLastWarmup,
		OnError: func(err error) {
			alerts.Notify(notification.Alert{
				Level:   notification.LevelCritical,
				Title:   "warm-up failed",
				Message: err.Error(),
				Fields:  map[string]string{"store": be.Kind},
			})
		},
	})
	if err := sched.Register(cfg.Dashboard.WarmupCron); err != nil {
		log.Fatalf("[dashboard] warmup cron: %v", err)
	}

	// ---- Gateway ----
	engine := indicator.NewEngine(specs)
	engine.Observe = func(d time.Duration) { prom.IndicatorComputeDur.Observe(d.Seconds()) }

	srv := gateway.New(gateway.Config{
		API:            client,
		Bars:           be.Bars,
		Engine:         engine,
		History:        history,
		Overview:       sched,
		Metrics:        prom,
		Health:         health,
		Logger:         lg,
		SearchDebounce: cfg.Search.Debounce,
		SearchLimit:    cfg.Search.Limit,
	})
	expiry.attach(srv)

	sched.Start()
	defer sched.Stop()
	go func() {
		if err := sched.RunNow(); err != nil {
			lg.Warn("initial warm-up failed", "error", err)
		}
	}()

	httpSrv := &http.Server{
		Addr:              cfg.Dashboard.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ---- Graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		lg.Info("serving", "addr", cfg.Dashboard.HTTPAddr, "market", markethours.StatusString(time.Now()))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[dashboard] server error: %v", err)
		}
	}()

	<-sigCh
	lg.Info("shutting down")
	cancel()
	srv.Close()
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	httpSrv.Shutdown(shutdownCtx)
}

// sessionExpiry raises the session-expired alert and tells dashboard clients
// once the gateway is attached. A teardown during startup only alerts.
type sessionExpiry struct {
	alerts *notification.Dispatcher
	gw     atomic.Pointer[gateway.Server]
}

func (e *sessionExpiry) attach(srv *gateway.Server) { e.gw.Store(srv) }

func (e *sessionExpiry) onLogout() {
	e.alerts.Notify(notification.Alert{
		Level:   notification.LevelWarning,
		Title:   "session expired",
		Message: "backend session expired, dashboard clients were asked to log in again",
	})
	if srv := e.gw.Load(); srv != nil {
		srv.Hub().NotifySessionExpired()
	}
}
