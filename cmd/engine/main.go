package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"statarb-engine/config"
	"statarb-engine/internal/alert"
	"statarb-engine/internal/analytics"
	"statarb-engine/internal/api"
	"statarb-engine/internal/feed"
	"statarb-engine/internal/ingest"
	"statarb-engine/internal/logger"
	"statarb-engine/internal/metrics"
	"statarb-engine/internal/notification"
	"statarb-engine/internal/orchestrator"
	"statarb-engine/internal/resample"
	redisstore "statarb-engine/internal/store/redis"
	"statarb-engine/internal/ws"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[engine] starting...")

	cfg := config.Load()
	logger.Init("statarb-engine", logger.ParseLevel(cfg.LogLevel))
	log.Printf("[engine] symbols: %v", cfg.Symbols)

	prom := metrics.NewMetrics()

	// ---- Optional Redis mirror ----
	mirror, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("[engine] redis mirror init failed: %v", err)
	}
	if mirror != nil {
		mirror.OnPublish = func(d time.Duration) { prom.RedisPublishDur.Observe(d.Seconds()) }
		defer mirror.Close()
	}

	// ---- Assemble the pipeline ----
	orch := orchestrator.New(orchestrator.Orchestrator{
		Feed:      feed.NewClient(cfg.Symbols),
		Ingest:    ingest.NewEngine(cfg.TickBufferSize),
		Resample:  resample.NewEngine(cfg.MaxBars),
		Analytics: analytics.NewEngine(cfg.RollingWindow, cfg.CorrelationWindow),
		Alerts:    alert.NewManager(cfg.MaxAlerts, alert.DefaultCooldown),
		Hub:       ws.NewHub(),
		Settings:  orchestrator.NewSettingsStore(),
		Mirror:    mirror,
		Metrics:   prom,
	})

	if cfg.AlertWebhookURL != "" {
		hook := notification.NewWebhookNotifier(cfg.AlertWebhookURL)
		orch.Alerts.Subscribe(hook.Subscriber())
		log.Printf("[engine] alert webhook enabled: %s", cfg.AlertWebhookURL)
	}

	// ---- Graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Background loops ----
	go orch.Feed.Run(ctx)
	go resample.NewFinalizer(orch.Resample, time.Second).Run(ctx)
	go orch.Run(ctx)

	// ---- HTTP surface ----
	srv := api.NewServer(cfg.ListenAddr, api.NewRouter(api.Deps{
		Orch:      orch,
		StartedAt: time.Now().UTC(),
	}))
	srv.Start()

	<-sigCh
	log.Println("[engine] shutdown signal received")

	cancel()
	orch.Feed.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Stop(shutdownCtx)

	log.Println("[engine] stopped")
}
