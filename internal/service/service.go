package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/domeara/becool/internal/cache"
	"github.com/domeara/becool/internal/client"
	"github.com/domeara/becool/internal/forecast"
	"github.com/domeara/becool/internal/geo"
	"github.com/domeara/becool/internal/observability"
	"github.com/domeara/becool/internal/rank"
)

// Result is one completed coolest-zip lookup.
type Result struct {
	Origin      string               `json:"origin"`
	RadiusMiles float64              `json:"radiusMiles"`
	Candidates  int                  `json:"candidates"` // zips within radius
	Excluded    int                  `json:"excluded"`   // candidates without usable forecast data
	Selection   rank.SelectionResult `json:"selection"`
}

// CoolestService runs the lookup pipeline: radius resolution, cached fetch,
// normalization, selection. One synchronous pass per call; the first
// component error aborts the lookup with no partial result.
type CoolestService struct {
	resolver *geo.Resolver
	client   client.ForecastClient
	cache    cache.Cache
	ttl      time.Duration
	unit     string
	now      func() time.Time
}

// NewCoolestService creates a CoolestService. ttl bounds how long a completed
// selection may be served from cache.
func NewCoolestService(resolver *geo.Resolver, forecastClient client.ForecastClient, resultCache cache.Cache, ttl time.Duration, unit string) *CoolestService {
	return &CoolestService{
		resolver: resolver,
		client:   forecastClient,
		cache:    resultCache,
		ttl:      ttl,
		unit:     unit,
		now:      time.Now,
	}
}

// FindCoolest resolves the radius set for originZip and returns the zip with
// the lowest forecast daily maximum temperature.
func (s *CoolestService) FindCoolest(ctx context.Context, originZip string, radiusMiles float64) (Result, error) {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx)
	observability.LookupsTotal.Inc()

	candidates, err := s.resolver.WithinRadius(originZip, radiusMiles)
	if err != nil {
		return Result{}, err
	}
	if logger != nil {
		logger.Debug("radius resolved",
			zap.String("origin", originZip),
			zap.Float64("radius_miles", radiusMiles),
			zap.Int("candidates", len(candidates)))
	}

	result := Result{
		Origin:      originZip,
		RadiusMiles: radiusMiles,
		Candidates:  len(candidates),
	}

	// Each distinct (origin, radius, unit, date) is a fresh logical request;
	// the date component keeps yesterday's selections from leaking in.
	key := s.cacheKey(originZip, radiusMiles)
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		if logger != nil {
			logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("selection").Inc()
		if logger != nil {
			logger.Debug("cache hit", zap.String("key", key), zap.Duration("duration", time.Since(start)))
		}
		result.Selection = cached
		result.Excluded = result.Candidates - len(cached.Ranked)
		return result, nil
	}

	payloads, err := s.client.GetDailyForecast(ctx, candidates)
	if err != nil {
		return Result{}, fmt.Errorf("fetch forecasts for %s: %w", originZip, err)
	}

	records := make([]forecast.WeatherRecord, 0, len(candidates))
	for _, cand := range candidates {
		payload, ok := payloads[cand.Zip]
		if !ok {
			continue
		}
		record, ok := forecast.Normalize(cand.Zip, cand.City, s.unit, payload)
		if !ok {
			if logger != nil {
				logger.Debug("unusable forecast payload", zap.String("zip", cand.Zip))
			}
			continue
		}
		records = append(records, record)
	}
	result.Excluded = result.Candidates - len(records)

	selection, err := rank.Select(records)
	if err != nil {
		return Result{}, err
	}
	result.Selection = selection

	if setErr := s.cache.Set(ctx, key, selection, s.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		if logger != nil {
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(setErr))
		}
	}

	if logger != nil {
		logger.Debug("lookup complete",
			zap.String("origin", originZip),
			zap.String("coolest", selection.Winner.Zip),
			zap.Float64("max_temp", selection.Winner.MaxTemp),
			zap.Int("excluded", result.Excluded),
			zap.Duration("duration", time.Since(start)))
	}
	return result, nil
}

// CandidateCount reports how many zips a radius query would cover, without
// any network traffic. The CLI uses it for its pre-fetch status line.
func (s *CoolestService) CandidateCount(originZip string, radiusMiles float64) (int, error) {
	candidates, err := s.resolver.WithinRadius(originZip, radiusMiles)
	if err != nil {
		return 0, err
	}
	return len(candidates), nil
}

func (s *CoolestService) cacheKey(originZip string, radiusMiles float64) string {
	date := s.now().UTC().Format("2006-01-02")
	return fmt.Sprintf("coolest:%s:%g:%s:%s", originZip, radiusMiles, s.unit, date)
}
