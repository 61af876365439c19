package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Monthlyaway/shortlink-redirect/config"
	"github.com/Monthlyaway/shortlink-redirect/internal/app"
	"github.com/Monthlyaway/shortlink-redirect/internal/auth"
	"github.com/Monthlyaway/shortlink-redirect/internal/filter"
	"github.com/Monthlyaway/shortlink-redirect/internal/handler"
	"github.com/Monthlyaway/shortlink-redirect/internal/logging"
	"github.com/Monthlyaway/shortlink-redirect/internal/middleware"
	"github.com/Monthlyaway/shortlink-redirect/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize logger")
	}

	store, err := app.OpenStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize store")
	}
	defer store.Close()

	redisCache, err := app.ConnectRedis(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to Redis")
	}
	if redisCache != nil {
		defer redisCache.Close()
	}

	linkCache, err := app.OpenCache(cfg, redisCache)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize cache")
	}
	if cfg.Cache.Driver == "local" {
		defer linkCache.Close()
	}

	var codes *filter.CodeFilter
	if cfg.BloomFilter.Enabled {
		codes = filter.NewCodeFilter(cfg.BloomFilter.Capacity, cfg.BloomFilter.FalsePositiveRate)
	}

	linkService := service.NewLinkService(store, linkCache, codes, service.Options{
		BaseURL:      cfg.Server.BaseURL,
		CacheTTL:     cfg.Cache.TTL,
		StoreTimeout: cfg.Resolver.StoreTimeout,
	}, log)

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := linkService.InitFilter(initCtx); err != nil {
		// without the preloaded codes every lookup would be rejected
		log.WithError(err).Fatal("failed to initialize bloom filter")
	}
	cancelInit()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sweeper.Enabled {
		sweeper := service.NewSweeper(store, nil, log)
		go sweeper.Run(ctx, cfg.Sweeper.Interval)
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(middleware.RequestLogger(log), gin.Recovery())

	limits := handler.RouteLimits{}
	if cfg.RateLimit.Enabled {
		strategy, err := middleware.ParseStrategy(cfg.RateLimit.Strategy)
		if err != nil {
			log.WithError(err).Fatal("invalid rate limit config")
		}
		log.WithField("strategy", strategy).Info("rate limiting enabled")

		limits.Redirect = middleware.NewRateLimiter(redisCache.Client(), middleware.RateLimitConfig{
			Strategy: strategy,
			Limit:    cfg.RateLimit.Redirect.Limit,
			Window:   cfg.RateLimit.Redirect.Window,
		}, log).Middleware()
		limits.Shorten = middleware.NewRateLimiter(redisCache.Client(), middleware.RateLimitConfig{
			Strategy: strategy,
			Limit:    cfg.RateLimit.Shorten.Limit,
			Window:   cfg.RateLimit.Shorten.Window,
		}, log).Middleware()
	}

	handler.NewLinkHandler(linkService, log).Register(router, auth.NewJWTAuthenticator(cfg.Auth.JWTSecret), limits)

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":    cfg.Server.Port,
			"storage": cfg.Storage.Driver,
			"cache":   cfg.Cache.Driver,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("server exited")
}
