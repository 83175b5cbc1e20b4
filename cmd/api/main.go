package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/citypulse/cityhub/internal/auth"
	"github.com/citypulse/cityhub/internal/config"
	"github.com/citypulse/cityhub/internal/db"
	httpx "github.com/citypulse/cityhub/internal/http"
	"github.com/citypulse/cityhub/internal/http/handlers"
	"github.com/citypulse/cityhub/internal/observability"
	"github.com/citypulse/cityhub/internal/queue"
	"github.com/citypulse/cityhub/internal/queue/redisclient"
	"github.com/citypulse/cityhub/internal/store"
	memorystore "github.com/citypulse/cityhub/internal/store/memory"
	mongostore "github.com/citypulse/cityhub/internal/store/mongo"
	pgstore "github.com/citypulse/cityhub/internal/store/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	prom := observability.NewProm(reg)

	// tracing is optional; only wire it when an endpoint is configured
	if cfg.OtelEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), "cityhub-api", cfg.OtelEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	// credential store selection

	users, storePing, cleanup, err := buildStore(cfg, prom)

	if err != nil {
		log.Error("credential store init failed", "backend", cfg.AuthStore, "err", err)
		os.Exit(1)
	}

	defer cleanup()

	// redis-backed welcome mail producer

	redisC := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer func() { _ = redisC.Close() }()

	tokens := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	svc := auth.NewService(users, tokens, queue.NewMailProducer(redisC), log)

	router := httpx.NewRouter(httpx.Deps{
		Log:      log,
		Cfg:      cfg,
		Auth:     svc,
		Verifier: tokens,
		Prom:     prom,
		PromReg:  reg,
		Pings: map[string]handlers.Ping{
			"store": storePing,
			"redis": redisC.Ping,
		},
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.AuthStore)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// buildStore wires the configured credential store backend. Exactly one
// backend is live per deployment; the others stay dormant adapters.
func buildStore(cfg config.Config, prom *observability.Prom) (store.CredentialStore, handlers.Ping, func(), error) {
	switch cfg.AuthStore {
	case "postgres":
		pool, err := db.NewPool(cfg.DBURL)

		if err != nil {
			return nil, nil, nil, err
		}

		return pgstore.NewUsersStore(pool, prom), pool.Ping, pool.Close, nil

	case "mongo":
		client, err := mongostore.Connect(cfg.MongoURI)

		if err != nil {
			return nil, nil, nil, err
		}

		ctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()

		users, err := mongostore.NewUsersStore(ctx, client.Database(cfg.MongoDB), prom)

		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, err
		}

		ping := func(ctx context.Context) error { return client.Ping(ctx, nil) }
		cleanup := func() { _ = client.Disconnect(context.Background()) }

		return users, ping, cleanup, nil

	case "memory":
		return memorystore.NewUsersStore(), nil, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown AUTH_STORE %q", cfg.AuthStore)
	}
}
