package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/better-gpt/gateway/internal/auth"
	"github.com/better-gpt/gateway/internal/chat"
	"github.com/better-gpt/gateway/internal/config"
	"github.com/better-gpt/gateway/internal/identity"
	applogger "github.com/better-gpt/gateway/internal/logger"
	"github.com/better-gpt/gateway/internal/provider"
	"github.com/better-gpt/gateway/internal/ratelimit"
	"github.com/better-gpt/gateway/internal/store"
	"github.com/better-gpt/gateway/internal/titlegen"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	log := applogger.New(applogger.FromConfig(cfg.LogLevel, cfg.LogFormat))
	log.Info("starting chat gateway", slog.String("port", cfg.Port))

	// Conversation store: postgres when configured, in-memory otherwise.
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pg.Close()
		st = pg
		log.Info("using postgres conversation store")
	} else {
		st = store.NewMemoryStore()
		log.Info("using in-memory conversation store")
	}

	// Rate limit counters: redis when configured so the quota holds
	// across instances, in-process otherwise.
	var limiterStore ratelimit.Store
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("invalid REDIS_URL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		limiterStore = ratelimit.NewRedisStore(client)
		log.Info("using redis rate limit store")
	} else {
		limiterStore = ratelimit.NewMemoryStore(cfg.RateLimitSweepSize)
		log.Info("using in-process rate limit store")
	}
	limiter := ratelimit.NewLimiter(limiterStore, cfg.RateLimitPerDay, 24*time.Hour)

	var sessions auth.SessionResolver
	if cfg.AuthBaseURL != "" {
		sessions = auth.NewHTTPSessionResolver(cfg.AuthBaseURL)
	}
	resolver := identity.NewResolver(sessions, st, log)

	client := provider.NewClient(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey)

	titles := titlegen.NewService(
		titlegen.NewGenerator(client, cfg.DefaultModel),
		st, log,
		titlegen.Options{
			WorkerPoolSize: cfg.TitleWorkerPoolSize,
			BufferSize:     cfg.TitleBufferSize,
			Timeout:        time.Duration(cfg.TitleTimeoutSeconds) * time.Second,
		},
	)

	catalog := chat.NewCatalog()
	if cfg.ModelCatalogFile != "" {
		if err := catalog.LoadFile(cfg.ModelCatalogFile); err != nil {
			log.Error("failed to load model catalog", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("loaded model catalog", slog.String("file", cfg.ModelCatalogFile))
	}

	handler := chat.NewHandler(
		log, st, resolver, limiter, client, titles, catalog,
		cfg.DefaultModel,
		time.Duration(cfg.RequestDeadlineSeconds)*time.Second,
	)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(corsMiddleware(cfg.CORSAllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/chat", handler.HandleChat)
		api.GET("/chats", handler.HandleListChats)
		api.DELETE("/chats/:id", handler.HandleDeleteChat)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	// Finish queued title work before closing the listener so freshly
	// created chats keep their titles.
	titles.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("server stopped")
}

// requestIDMiddleware tags every request context so log lines from the
// whole pipeline correlate.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = applogger.GenerateRequestID()
		}
		c.Request = c.Request.WithContext(applogger.WithRequestID(c.Request.Context(), requestID))
		c.Header("X-Request-Id", requestID)
		c.Next()
	}
}

func corsMiddleware(allowedOrigins string) gin.HandlerFunc {
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		for _, allowed := range origins {
			if allowed == "*" || allowed == origin {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Credentials", "true")
				c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
				break
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
