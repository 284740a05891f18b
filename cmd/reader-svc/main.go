// Package main 阅读服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sherry-reader/internal/application/reader"
	"sherry-reader/internal/config"
	"sherry-reader/internal/domain/repository"
	"sherry-reader/internal/infrastructure/persistence/file"
	"sherry-reader/internal/infrastructure/persistence/redis"
	"sherry-reader/internal/interfaces/http/handler"
	"sherry-reader/internal/interfaces/http/middleware"
	"sherry-reader/internal/interfaces/http/router"
	"sherry-reader/pkg/logger"
	"sherry-reader/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting reader-svc",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 小说存储：文件系统，可选 Redis Read-Through 缓存
	var stories repository.StoryRepository = file.NewStoryStore(cfg.Storage.NovelsDir)
	var redisClient *redis.Client
	var limiter middleware.RateLimiter
	if cfg.Cache.Enabled {
		redisClient, err = redis.NewClient(&cfg.Cache.Redis)
		if err != nil {
			logger.Fatal(ctx, "failed to connect redis", err)
		}
		defer redisClient.Close()

		stories = redis.NewCachingStoryRepository(stories, redis.NewCache(redisClient), cfg.Cache.TTL)
		limiter = redis.NewRateLimiter(redisClient)
	}

	// 阅读会话管理
	sessions := reader.NewManager(stories, reader.ManagerOptions{
		Session: reader.Options{
			TypingDelay:      cfg.Reader.TypingDelay,
			ProgressionDelay: cfg.Reader.ProgressionDelay,
			DividerDelay:     cfg.Reader.DividerDelay,
			AdvanceDelay:     cfg.Reader.AdvanceDelay,
		},
		SessionTTL:  cfg.Reader.SessionTTL,
		MaxSessions: cfg.Reader.MaxSessions,
	})
	defer sessions.Shutdown()

	evictCtx, stopEviction := context.WithCancel(ctx)
	defer stopEviction()
	go sessions.RunEviction(evictCtx, time.Minute)

	// 路由
	r := router.New(cfg, router.Handlers{
		Health:  handler.NewHealthHandler(cfg.Storage.NovelsDir, redisClient),
		Story:   handler.NewStoryHandler(stories),
		Session: handler.NewSessionHandler(sessions),
	}, limiter)

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
