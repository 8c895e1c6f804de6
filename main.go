package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/yeremiapane/restaurant-orders/board"
	"github.com/yeremiapane/restaurant-orders/config"
	"github.com/yeremiapane/restaurant-orders/database"
	"github.com/yeremiapane/restaurant-orders/kds"
	"github.com/yeremiapane/restaurant-orders/middlewares"
	"github.com/yeremiapane/restaurant-orders/repository"
	"github.com/yeremiapane/restaurant-orders/router"
	"github.com/yeremiapane/restaurant-orders/services"
	"github.com/yeremiapane/restaurant-orders/storage"
	"github.com/yeremiapane/restaurant-orders/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	utils.InitLogger(cfg.LogLevel)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	if n, err := database.ResetChangeBacklog(db); err != nil {
		utils.ErrorLogger.Printf("Error clearing change backlog: %v", err)
	} else if n > 0 {
		utils.InfoLogger.Printf("Skipped %d stale changes", n)
	}

	kv := newCartStorage(cfg)
	repo := repository.NewOrderRepository(db)
	hub := kds.NewHub()
	boards := board.NewRegistry(repo, hub, kds.NewHubAlerter(hub))

	monitor := services.NewChangeMonitor(repo, hub)
	monitor.Interval = cfg.ChangePollInterval
	monitor.Start()

	r := router.SetupRouter(router.Deps{
		Repo:        repo,
		KV:          kv,
		Hub:         hub,
		Boards:      boards,
		RateLimiter: middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		CORSOrigin:  cfg.CORSOrigin,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.InfoLogger.Println("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Printf("Server shutdown: %v", err)
	}
	boards.Close()
	monitor.Stop()
}

// newCartStorage uses Redis when REDIS_ADDR is set and falls back to memory.
func newCartStorage(cfg *config.Config) storage.KV {
	if cfg.RedisAddr == "" {
		utils.InfoLogger.Println("REDIS_ADDR not set, carts are kept in memory")
		return storage.NewMemoryKV()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to redis: %v", err)
	}
	return storage.NewRedisKV(client, cfg.CartTTL)
}
