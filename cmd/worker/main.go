package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tsurugroups/wa-platform/internal/config"
	"github.com/tsurugroups/wa-platform/internal/core"
	"github.com/tsurugroups/wa-platform/internal/db"
	"github.com/tsurugroups/wa-platform/internal/gateway"
	"github.com/tsurugroups/wa-platform/internal/jobs"
	"github.com/tsurugroups/wa-platform/internal/worker"
)

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	cfg := config.Load()
	config.SetupLogging()

	opts := worker.Options{
		Concurrency:     config.AtoiEnv("WORKER_CONCURRENCY", 8),
		PollTimeout:     config.DurEnv("WORKER_POLL_MS", 2*time.Second),
		QueueBackoffMin: config.DurEnv("WORKER_QUEUE_BACKOFF_MIN_MS", 200*time.Millisecond),
		QueueBackoffMax: config.DurEnv("WORKER_QUEUE_BACKOFF_MAX_MS", 5*time.Second),
		GatewayQPS:      config.AtofEnv("GATEWAY_QPS", 10),
		GatewayBurst:    config.AtoiEnv("GATEWAY_BURST", 20),
		JobTimeout:      config.DurEnv("WORKER_JOB_TIMEOUT_MS", 150*time.Second),
	}

	rootCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(rootCtx, cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Error("db pool")
		exitCode = 1
		return
	}
	defer pool.Close()

	if err := pool.Ping(rootCtx); err != nil {
		logrus.WithError(err).Error("db ping")
		exitCode = 1
		return
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()

	store := &core.Store{
		DB:       db.NewDB(pool),
		Gateway:  core.GatewayDefaults{URL: cfg.GatewayURL, AdminToken: cfg.GatewayAdminToken},
		MaxInsts: cfg.DefaultInstanceLimit,
	}
	rec := core.NewReconciler(store, gateway.NewClient(cfg.GatewayAdminToken))
	queue := jobs.NewQueue(rdb, cfg.QueueName)

	go serveHealthz()

	if err := worker.Run(rootCtx, rec, queue, opts); err != nil && !errors.Is(err, context.Canceled) {
		logrus.WithError(err).Error("worker exited")
		exitCode = 1
		return
	}
}

func serveHealthz() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	addr := config.Env("HEALTH_ADDR", "0.0.0.0:9090")
	_ = http.ListenAndServe(addr, mux)
}
