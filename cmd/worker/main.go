package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/citypulse/cityhub/internal/config"
	"github.com/citypulse/cityhub/internal/notifications"
	"github.com/citypulse/cityhub/internal/observability"
	"github.com/citypulse/cityhub/internal/queue"
	"github.com/citypulse/cityhub/internal/queue/redisclient"
	"github.com/citypulse/cityhub/internal/queue/worker"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	redisC := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer func() { _ = redisC.Close() }()

	pingCtx, cancel := config.WithTimeout(3 * time.Second)
	err := redisC.Ping(pingCtx)
	cancel()

	if err != nil {
		log.Error("redis connect failed", "err", err)
		os.Exit(1)
	}

	// Mailgun when configured, log delivery otherwise (dev)
	var notifier notifications.Notifier

	if cfg.MailgunDomain != "" && cfg.MailgunAPIKey != "" {
		notifier = notifications.NewMailgunNotifier(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailSender)
	} else {
		notifier = notifications.NewLogNotifier(log)
	}

	protected := notifications.NewProtectedNotifier(notifier, notifications.ProtectedNotifierConfig{
		Timeout: 10 * time.Second,
	})

	w := worker.New(worker.Config{
		Key:          queue.MailKey,
		BlockTimeout: 2 * time.Second,
		Concurrency:  4,
	}, redisC, protected, prom, log)

	log.Info("worker has started")

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}
}
