package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"attendboard/internal/banner"
	"attendboard/internal/config"
	"attendboard/internal/events"
	"attendboard/internal/logging"
	"attendboard/internal/queue"
	"attendboard/internal/store"
)

// Worker consumes domain events from the queue: it keeps the live banner
// cache warm after banner writes and records attendance activity.
func main() {
	cfg := config.Load()
	logging.Setup("worker", cfg.LogLevel, cfg.Production())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Fatal("worker needs QUEUE_BACKEND=redis; the in-memory queue is not shared between processes")
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(ctx, store.RedisOptions{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUser,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	var cache banner.LiveCache
	if cfg.CacheTTL > 0 {
		cache = banner.NewRedisCache(redisClient.Client, "", cfg.CacheTTL)
	}
	// the worker never writes blobs
	bannerSvc := banner.NewService(banner.NewRepository(db.Client), cache, nil, nil)

	go serveMetrics(ctx, cfg.WorkerMetricsPort)

	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	log.Info("worker started, waiting for messages...")
	if err := events.NewConsumer(bannerSvc).Run(ctx, q); err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}
	log.Info("worker stopped")
}

func serveMetrics(ctx context.Context, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("worker metrics on :%s", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Warn("metrics server stopped")
	}
}
