package infra

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"github.com/zacharykka/campaign-console/internal/config"
	"github.com/zacharykka/campaign-console/internal/domain"
	"github.com/zacharykka/campaign-console/internal/infra/cache"
	"github.com/zacharykka/campaign-console/internal/infra/database"
	"github.com/zacharykka/campaign-console/internal/infra/repository"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Container 持有应用依赖资源，负责集中关闭。
type Container struct {
	DB    *sql.DB
	Redis *redis.Client
	Repos *domain.Repositories
	// Limiter 在限流关闭时为 nil。
	Limiter *limiter.Limiter
}

// Initialize 构建各类依赖并返回关闭函数。
func Initialize(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, func(context.Context) error, error) {
	container := &Container{}

	db, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	container.DB = db

	dialect := database.NewDialect(cfg.Database.Driver)
	container.Repos = repository.NewSQLRepositories(db, dialect)

	redisClient, err := cache.New(ctx, cfg.Redis, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	container.Redis = redisClient

	cleanup := func(ctx context.Context) error {
		var errs error
		if container.DB != nil {
			if err := container.DB.Close(); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		if container.Redis != nil {
			if err := container.Redis.Close(); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		return errs
	}

	rateLimiter, err := newLimiter(cfg.RateLimit, redisClient)
	if err != nil {
		return nil, nil, multierr.Append(err, cleanup(ctx))
	}
	container.Limiter = rateLimiter
	if rateLimiter != nil {
		logger.Info("rate limiter ready",
			zap.String("rate", cfg.RateLimit.Rate),
			zap.Bool("redis_store", redisClient != nil))
	}

	return container, cleanup, nil
}

// newLimiter 按配置选择存储：配置了 Redis 时多实例共享计数，否则使用进程内存储。
func newLimiter(cfg config.RateLimitConfig, client *redis.Client) (*limiter.Limiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate limit %q: %w", cfg.Rate, err)
	}

	options := limiter.StoreOptions{
		Prefix:          cfg.KeyPrefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	}

	var store limiter.Store
	if client != nil {
		store, err = redisstore.NewStoreWithOptions(client, options)
		if err != nil {
			return nil, fmt.Errorf("build redis limiter store: %w", err)
		}
	} else {
		store = memorystore.NewStoreWithOptions(options)
	}

	return limiter.New(store, rate), nil
}
