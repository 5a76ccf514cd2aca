// Command feedrecd runs the feed recommendation HTTP service: it loads the
// bundled DAG graphs, wires a gateway and cache, and exposes the
// recommendation facade behind a single route.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/kleon1024/mini-feeds/internal/config"
	"github.com/kleon1024/mini-feeds/internal/logger"
	"github.com/kleon1024/mini-feeds/pkg/gateway/cache"
	"github.com/kleon1024/mini-feeds/pkg/gateway/memory"
	"github.com/kleon1024/mini-feeds/pkg/models"
	"github.com/kleon1024/mini-feeds/pkg/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Logging)
	logger.SetDefault(appLogger)

	appLogger.Info("starting feedrecd", "port", cfg.Server.Port)

	baseGateway := memory.New()
	var gw models.DataGateway = baseGateway
	if redisOpts, err := redis.ParseURL(cfg.Redis.URL); err != nil {
		appLogger.Warn("redis cache disabled, falling back to uncached gateway", "error", err)
	} else {
		rdb := redis.NewClient(redisOpts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			appLogger.Warn("redis unreachable, falling back to uncached gateway", "error", err)
		} else {
			gw = cache.New(baseGateway, rdb, cfg.Redis.TTL)
			appLogger.Info("redis cache gateway attached")
		}
	}

	runtime, err := pipeline.NewRuntime(cfg.Pipeline.GraphsDir)
	if err != nil {
		appLogger.Error("failed to build pipeline runtime", "error", err)
		os.Exit(1)
	}
	appLogger.Info("loaded graphs", "count", len(runtime.Graphs))

	// Periodic popularity cache warmup keeps the hot recall path off the
	// cold-gateway path during traffic spikes.
	c := cron.New()
	_, err = c.AddFunc("@every 5m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		windowStart := time.Now().Add(-24 * time.Hour)
		eventTypes := []string{"pv", "like", "comment", "share", "favorite"}
		if _, err := gw.PopularityByWindow(ctx, eventTypes, windowStart, 200, models.DefaultEventWeights()); err != nil {
			appLogger.Warn("popularity cache warmup failed", "error", err)
		}
	})
	if err != nil {
		appLogger.Warn("failed to schedule popularity warmup", "error", err)
	} else {
		c.Start()
		defer c.Stop()
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(appLogger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.GET("/posts", func(c *gin.Context) {
		handleGetPosts(c, runtime, gw)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		appLogger.Info("http server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		appLogger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		appLogger.Info("shutdown initiated", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			appLogger.Error("graceful shutdown failed", "error", err)
			server.Close()
		}
		appLogger.Info("server stopped")
	}
}

func requestLogger(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func handleGetPosts(c *gin.Context, runtime *pipeline.Runtime, gw models.DataGateway) {
	var userID *int64
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		userID = &id
	}

	count := 10
	if v := c.Query("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			count = n
		}
	}

	offset, seed, err := pipeline.DecodeCursor(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
		return
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	req := pipeline.Request{
		UserID: userID,
		Count:  count,
		Offset: offset,
		Scene:  c.DefaultQuery("scene", "home_feed"),
		Device: c.Query("device"),
	}

	result := runtime.GetRecommendedItems(c.Request.Context(), gw, req)

	nextCursor := pipeline.EncodeCursor(offset+len(result.Items), seed)
	c.JSON(http.StatusOK, gin.H{
		"items":       result.Items,
		"next_cursor": nextCursor,
		"trace_id":    result.Trace.TraceID,
		"status":      result.Trace.Status,
	})
}
