package main

import (
	"context"
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
	httpapi "github.com/tsurugroups/wa-platform/internal/http"
	"github.com/tsurugroups/wa-platform/internal/jobs"
	"github.com/tsurugroups/wa-platform/internal/metrics"
)

func main() {
	cfg := config.Load()
	config.SetupLogging()

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(rootCtx, cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("db connect")
	}
	defer pool.Close()

	if err := db.Migrate(rootCtx, pool); err != nil {
		logrus.WithError(err).Fatal("db migrate")
	}
	poolStats := metrics.NewPGXPoolStats(pool)
	go poolStats.Start(15*time.Second, rootCtx.Done())

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()

	database := db.NewDB(pool)
	store := &core.Store{
		DB:       database,
		Gateway:  core.GatewayDefaults{URL: cfg.GatewayURL, AdminToken: cfg.GatewayAdminToken},
		MaxInsts: cfg.DefaultInstanceLimit,
	}
	gw := gateway.NewClient(cfg.GatewayAdminToken)
	mgr := core.NewManager(store, gw)
	rec := core.NewReconciler(store, gw)
	syncQ := jobs.NewQueue(rdb, cfg.QueueName)
	campaignQ := jobs.NewQueue(rdb, "campaigns")

	srv := httpapi.NewServer(store, mgr, rec, syncQ, campaignQ)
	server := &http.Server{
		Addr:         cfg.HTTPHost + ":" + cfg.HTTPPort,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 150 * time.Second, // media sends can run up to the gateway's long timeout
	}

	go func() {
		logrus.WithField("addr", server.Addr).Info("HTTP listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	cancel()
	_ = server.Shutdown(shutdownCtx)
}
