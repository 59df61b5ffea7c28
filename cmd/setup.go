package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/domeara/becool/internal/cache"
	"github.com/domeara/becool/internal/circuitbreaker"
	"github.com/domeara/becool/internal/client"
	"github.com/domeara/becool/internal/config"
	"github.com/domeara/becool/internal/geo"
	"github.com/domeara/becool/internal/observability"
	"github.com/domeara/becool/internal/service"
)

// pipeline bundles the wired-up lookup components shared by find and serve.
type pipeline struct {
	cfg       *config.Config
	svc       *service.CoolestService
	memcached *cache.MemcachedCache // nil unless the memcached backend is active
}

// buildPipeline loads config and constructs resolver, forecast client,
// cache, and service.
func buildPipeline(logger *zap.Logger) (*pipeline, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	entries, err := geo.LoadDataset(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	resolver, err := geo.NewResolver(entries)
	if err != nil {
		return nil, fmt.Errorf("index dataset: %w", err)
	}
	logger.Debug("zip dataset loaded", zap.String("path", cfg.DatasetPath), zap.Int("zips", resolver.Size()))

	forecastClient, err := client.NewOpenMeteoClientWithRetry(
		cfg.ForecastAPIURL,
		cfg.ForecastAPIKey,
		cfg.TemperatureUnit,
		cfg.ForecastAPITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if err != nil {
		return nil, fmt.Errorf("forecast client: %w", err)
	}
	if err := forecastClient.SetBatchLimit(cfg.BatchLimit); err != nil {
		return nil, fmt.Errorf("forecast client: %w", err)
	}

	if cfg.CircuitBreakerEnabled {
		cb := circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
			OnStateChange: func(from, to circuitbreaker.State) {
				observability.CircuitBreakerTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
				logger.Warn("circuit breaker transition", zap.String("from", from.String()), zap.String("to", to.String()))
			},
		})
		forecastClient.SetCircuitBreaker(cb)
		logger.Debug("circuit breaker enabled",
			zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold),
			zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	p := &pipeline{cfg: cfg}
	var cacheSvc cache.Cache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, fmt.Errorf("memcached cache: %w", err)
		}
		p.memcached = mc
		cacheSvc = mc
		logger.Debug("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Debug("cache backend: in_memory")
	}

	p.svc = service.NewCoolestService(resolver, forecastClient, cacheSvc, cfg.CacheTTL, cfg.TemperatureUnit)
	return p, nil
}

func (p *pipeline) close(logger *zap.Logger) {
	if p.memcached != nil {
		if err := p.memcached.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
}
