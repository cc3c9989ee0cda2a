package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/guestbook/config"
	"github.com/d60-Lab/guestbook/internal/api/handler"
	"github.com/d60-Lab/guestbook/internal/api/router"
	"github.com/d60-Lab/guestbook/internal/cache"
	"github.com/d60-Lab/guestbook/internal/repository"
	"github.com/d60-Lab/guestbook/internal/service"
	"github.com/d60-Lab/guestbook/pkg/database"
	"github.com/d60-Lab/guestbook/pkg/flash"
	"github.com/d60-Lab/guestbook/pkg/logger"
	"github.com/d60-Lab/guestbook/pkg/tracing"
)

// @title Guestbook API
// @version 1.0
// @description Sign the guestbook and read recent entries.
// @BasePath /

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := repository.InitSchema(db); err != nil {
		return err
	}
	repo := repository.NewEntryRepository(db)

	var entryCache service.EntryCache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}

		recent := cache.NewRecentEntries(client, cfg.Redis.CacheSize)
		poller := service.NewCachePoller(repo, recent, cfg.Redis.PollInterval)
		if err := poller.Warm(ctx); err != nil {
			logger.Warn("warm cache failed", logger.Err(err))
		}
		stopPoller := poller.Start()
		defer func() { _ = stopPoller(context.Background()) }()
		entryCache = recent
	}

	svc := service.NewGuestbookService(repo, entryCache, cfg.Guestbook.RecentLimit)

	secret := []byte(cfg.Security.SecretKey)
	if len(secret) == 0 {
		// 未配置时每次启动随机生成，重启后旧的 flash cookie 失效
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
		logger.Warn("security.secret_key not set, using a random key")
	}
	flashStore := flash.NewStore(secret, cfg.Security.FlashTTL, cfg.Security.ForceHTTPS)

	h := handler.NewHandler(svc, flashStore, repo)
	limiters := router.NewLimiters(cfg.RateLimit)
	defer limiters.StartJanitors()()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.Setup(cfg, h, limiters),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("guestbook listening", zap.String("addr", srv.Addr), zap.String("db", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
