package app

import (
	"io"

	"github.com/Monthlyaway/shortlink-redirect/config"
	"github.com/Monthlyaway/shortlink-redirect/internal/cache"
	"github.com/Monthlyaway/shortlink-redirect/internal/repository"
	"github.com/Monthlyaway/shortlink-redirect/internal/service"
	"github.com/Monthlyaway/shortlink-redirect/internal/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Store is a link store the process owns and must close
type Store interface {
	service.LinkStore
	io.Closer
}

// OpenStore builds the link store selected by storage.driver
func OpenStore(cfg *config.Config, log *logrus.Logger) (Store, error) {
	ids, err := utils.NewIDGenerator(cfg.Snowflake.DatacenterID, cfg.Snowflake.WorkerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize id generator")
	}

	switch cfg.Storage.Driver {
	case "mysql":
		repo, err := repository.NewMySQLRepository(cfg.MySQL.DSN(), cfg.MySQL.MaxIdleConns, cfg.MySQL.MaxOpenConns, ids, log)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "sqlite":
		repo, err := repository.NewSQLiteRepository(cfg.Storage.SQLitePath, ids, log)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "memory":
		log.Warn("using in-memory store, links are lost on restart")
		return repository.NewMemoryRepository(ids), nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Cache is a redirect cache the process owns and must close
type Cache interface {
	service.LinkCache
	io.Closer
}

// OpenCache builds the redirect cache selected by cache.driver. redis is the
// shared client for the limiter when Redis is in use and may be nil otherwise.
func OpenCache(cfg *config.Config, redis *cache.RedisCache) (Cache, error) {
	switch cfg.Cache.Driver {
	case "redis":
		if redis == nil {
			return nil, errors.New("redis cache selected but redis is not connected")
		}
		return redis, nil
	case "local":
		return cache.NewLocalCache(cfg.Cache.CleanupInterval), nil
	default:
		return nil, errors.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}

// ConnectRedis opens the Redis connection when any component needs it
func ConnectRedis(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.NeedsRedis() {
		return nil, nil
	}
	return cache.NewRedisCache(cache.RedisOptions{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
}
