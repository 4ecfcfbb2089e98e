package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"attendboard/internal/attendance"
	"attendboard/internal/banner"
	"attendboard/internal/blob"
	"attendboard/internal/config"
	"attendboard/internal/events"
	"attendboard/internal/httpmiddleware"
	"attendboard/internal/logging"
	"attendboard/internal/queue"
	"attendboard/internal/store"
)

func main() {
	cfg := config.Load()
	logging.Setup("api", cfg.LogLevel, cfg.Production())

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func newBlobStore(cfg config.App) (blob.Store, *blob.Local) {
	if cfg.BlobBackend == "cloudinary" {
		if cfg.CloudinaryName != "" && cfg.CloudinaryKey != "" && cfg.CloudinarySecret != "" {
			log.Infof("blob store: cloudinary (%s)", cfg.CloudinaryName)
			return blob.NewCloudinary(cfg.CloudinaryName, cfg.CloudinaryKey, cfg.CloudinarySecret, cfg.CloudinaryFolder), nil
		}
		log.Warn("cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set), using local storage")
	}
	local := blob.NewLocal(cfg.UploadDir, cfg.UploadPublicPath)
	if err := local.EnsureDir(); err != nil {
		log.Warnf("failed to create uploads directory: %v", err)
	}
	log.Infof("blob store: local (%s)", cfg.UploadDir)
	return local, local
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()

	db, err := store.NewDB(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		if db == nil {
			return err
		}
		log.Warnf("db not reachable: %v", err)
	} else if cfg.AutoMigrate {
		if err := store.Migrate(ctx, db.Client, cfg.Seed); err != nil {
			return err
		}
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

	blobs, local := newBlobStore(cfg)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	attendanceSvc := attendance.NewService(attendance.NewRepository(db.Client), q)
	bannerSvc := banner.NewService(banner.NewRepository(db.Client), cache, blobs, q)

	// with the in-memory queue there is no separate worker, so consume here
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if mem, ok := q.(*queue.InMemory); ok {
		go func() {
			if err := events.NewConsumer(bannerSvc).Run(consumerCtx, mem); err != nil {
				log.WithError(err).Warn("in-process consumer stopped")
			}
		}()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger("/healthz", "/metrics"))
	r.Use(httpmiddleware.Metrics())
	r.Use(httpmiddleware.CORS(cfg.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewClientLimiter(cfg.RateLimitPerMin, 0).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	if local != nil {
		r.Static(cfg.UploadPublicPath, local.Root())
	}

	api := r.Group("/api")
	attendance.RegisterRoutes(api, attendanceSvc)
	banner.RegisterRoutes(api, bannerSvc, cfg.MaxUploadBytes)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("server forced shutdown: %v", err)
	}

	log.Info("server exited")
	return nil
}
