// cmd/api-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bench-archive/internal/common/auth"
	"bench-archive/internal/common/config"
	"bench-archive/internal/common/database"
	"bench-archive/internal/common/logger"
	"bench-archive/internal/common/observability"
	"bench-archive/internal/query"
	"bench-archive/internal/query/cache"
	"bench-archive/internal/query/resources/datasetsdetail"
	"bench-archive/internal/query/resources/datasetslist"
	"bench-archive/internal/query/resources/espassthrough"
	"bench-archive/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("delay", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := logger.NewZapAdapter(zapLogger)

	log.Info("starting bench-archive API server", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	esClient, err := database.NewElasticsearch(cfg.Elasticsearch)
	if err != nil {
		zapLogger.Fatal("failed to create elasticsearch client", zap.Error(err))
	}
	connectES := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return esClient.Ping(ctx)
	}
	if err := retryWithBackoff(connectES, 5, 2*time.Second, zapLogger, "elasticsearch connect"); err != nil {
		zapLogger.Fatal("elasticsearch unreachable", zap.Error(err))
	}

	var responseCache *cache.ResponseCache
	if cfg.Redis.Enabled && cfg.Query.CacheTTL > 0 {
		redisClient, err := database.NewRedis(cfg.Redis)
		if err != nil {
			zapLogger.Fatal("failed to create redis client", zap.Error(err))
		}
		defer redisClient.Close()

		connect := func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		}
		if err := retryWithBackoff(connect, 5, 2*time.Second, zapLogger, "redis connect"); err != nil {
			zapLogger.Fatal("redis unreachable", zap.Error(err))
		}

		responseCache = cache.New(redisClient, time.Duration(cfg.Query.CacheTTL)*time.Second, log)
	}

	users := auth.NewKeycloakClient(
		cfg.Auth.Keycloak.URL,
		cfg.Auth.Keycloak.Realm,
		cfg.Auth.Keycloak.ClientID,
		cfg.Auth.Keycloak.ClientSecret,
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	executor := query.NewESExecutor(esClient.Client, config.GetDuration(cfg.Elasticsearch.Timeout), log)

	srv := server.New(cfg.Server, log, func(ctx context.Context) error {
		return esClient.Info(ctx)
	})

	srv.Register("/api/v1/datasets/list",
		server.NewQueryHandler(datasetslist.New(cfg.Query, users, log), executor, responseCache, obs, log))
	srv.Register("/api/v1/datasets/detail",
		server.NewQueryHandler(datasetsdetail.New(cfg.Query, users, log), executor, responseCache, obs, log))
	srv.Register("/api/v1/elasticsearch",
		server.NewQueryHandler(espassthrough.New(log), executor, nil, obs, log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case sig := <-sigCh:
		log.Info("shutting down", map[string]interface{}{"signal": sig.String()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
