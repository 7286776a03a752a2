package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/usefiko/pilito-sub003/internal/api"
	"github.com/usefiko/pilito-sub003/internal/api/handlers"
	"github.com/usefiko/pilito-sub003/internal/repository"
	"github.com/usefiko/pilito-sub003/internal/service"
	"github.com/usefiko/pilito-sub003/pkg/cache"
	"github.com/usefiko/pilito-sub003/pkg/config"
	"github.com/usefiko/pilito-sub003/pkg/logger"
	"github.com/usefiko/pilito-sub003/pkg/postgres"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting retrieval service")

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	cacheStore := newCacheStore(ctx, &cfg.Redis, appLogger)

	knowledgeRepo := repository.NewKnowledgeRepository(db, appLogger)
	routingRepo := repository.NewRoutingRepository(db, appLogger)

	provider := service.NewHTTPEmbeddingProvider(&cfg.Embedding, appLogger)
	embeddingService := service.NewEmbeddingService(provider, cacheStore, appLogger)
	routerService := service.NewRouterService(routingRepo, cacheStore, appLogger)

	retrieverCfg := service.DefaultRetrieverConfig()
	if cfg.Retrieval.TopK > 0 {
		retrieverCfg.TopK = cfg.Retrieval.TopK
	}
	retrievalService := service.NewRetrievalService(knowledgeRepo, embeddingService, routerService, retrieverCfg, appLogger)

	retrievalHandler := handlers.NewRetrievalHandler(retrievalService, routerService, appLogger)

	app := api.SetupRouter(retrievalHandler)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

// newCacheStore connects to Redis when configured, otherwise falls back to
// the in-process cache so the service still runs single-node.
func newCacheStore(ctx context.Context, cfg *config.RedisConfig, appLogger *zap.Logger) cache.Cache {
	if cfg.Addr == "" {
		appLogger.Info("Redis not configured, using in-memory cache")
		return cache.NewMemoryCache()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		appLogger.Warn("Redis unreachable, using in-memory cache", zap.Error(err))
		return cache.NewMemoryCache()
	}

	appLogger.Info("Redis cache connected", zap.String("addr", cfg.Addr))
	return cache.NewRedisCache(client, appLogger)
}
