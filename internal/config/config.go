package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for a zero-config run. Open-Meteo needs no API key on the free
// tier, so the CLI works out of the box.
const (
	DefaultForecastAPIURL = "https://api.open-meteo.com/v1/forecast"
	DefaultRadiusMiles    = 10
	DefaultDatasetPath    = "data/zipcodes.csv"
)

// Config holds pipeline configuration loaded from YAML and env.
type Config struct {
	TemperatureUnit    string
	DefaultRadiusMiles float64
	MaxRadiusMiles     float64
	DatasetPath        string

	ForecastAPIURL     string
	ForecastAPIKey     string
	ForecastAPITimeout time.Duration
	RetryAttempts      int
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration
	BatchLimit         int

	CacheBackend          string // "in_memory" or "memcached"
	CacheTTL              time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	ServerPort      string
	RequestTimeout  time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

type fileConfig struct {
	Lookup struct {
		Unit          string  `yaml:"unit"`
		DefaultRadius float64 `yaml:"default_radius_miles"`
		MaxRadius     float64 `yaml:"max_radius_miles"`
		DatasetPath   string  `yaml:"dataset_path"`
	} `yaml:"lookup"`

	ForecastAPI struct {
		URL        string `yaml:"url"`
		Timeout    string `yaml:"timeout"`
		BatchLimit int    `yaml:"batch_limit"`
	} `yaml:"forecast_api"`

	Reliability struct {
		RetryMaxAttempts int    `yaml:"retry_max_attempts"`
		RetryBaseDelay   string `yaml:"retry_base_delay"`
		RetryMaxDelay    string `yaml:"retry_max_delay"`

		CircuitBreakerEnabled          bool   `yaml:"circuit_breaker_enabled"`
		CircuitBreakerFailureThreshold int    `yaml:"circuit_breaker_failure_threshold"`
		CircuitBreakerSuccessThreshold int    `yaml:"circuit_breaker_success_threshold"`
		CircuitBreakerTimeout          string `yaml:"circuit_breaker_timeout"`
	} `yaml:"reliability"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Server struct {
		Port            string `yaml:"port"`
		RequestTimeout  string `yaml:"request_timeout"`
		RateLimitRPS    int    `yaml:"rate_limit_rps"`
		RateLimitBurst  int    `yaml:"rate_limit_burst"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`
}

// Load reads configuration. path, when non-empty, names an explicit YAML
// file; otherwise config/{ENV_NAME}.yaml is used when present and defaults
// otherwise. A .env file in the working directory is applied first, then
// env vars override file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // missing .env is fine

	var fc fileConfig
	if path == "" {
		env := os.Getenv("ENV_NAME")
		if env == "" {
			env = "dev"
		}
		candidate := filepath.Join("config", env+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg := &Config{}

	cfg.TemperatureUnit = strings.TrimSpace(strings.ToLower(os.Getenv("TEMPERATURE_UNIT")))
	if cfg.TemperatureUnit == "" {
		cfg.TemperatureUnit = strings.TrimSpace(strings.ToLower(fc.Lookup.Unit))
	}
	if cfg.TemperatureUnit == "" {
		cfg.TemperatureUnit = "fahrenheit"
	}

	cfg.DefaultRadiusMiles = fc.Lookup.DefaultRadius
	if cfg.DefaultRadiusMiles <= 0 {
		cfg.DefaultRadiusMiles = DefaultRadiusMiles
	}
	cfg.MaxRadiusMiles = fc.Lookup.MaxRadius
	if cfg.MaxRadiusMiles <= 0 {
		cfg.MaxRadiusMiles = 100
	}
	cfg.DatasetPath = strings.TrimSpace(os.Getenv("ZIP_DATASET_PATH"))
	if cfg.DatasetPath == "" {
		cfg.DatasetPath = strings.TrimSpace(fc.Lookup.DatasetPath)
	}
	if cfg.DatasetPath == "" {
		cfg.DatasetPath = DefaultDatasetPath
	}

	cfg.ForecastAPIURL = strings.TrimSpace(os.Getenv("OPEN_METEO_API_URL"))
	if cfg.ForecastAPIURL == "" {
		cfg.ForecastAPIURL = fc.ForecastAPI.URL
	}
	if cfg.ForecastAPIURL == "" {
		cfg.ForecastAPIURL = DefaultForecastAPIURL
	}
	// Optional; only commercial Open-Meteo plans use a key.
	cfg.ForecastAPIKey = os.Getenv("OPEN_METEO_API_KEY")
	cfg.ForecastAPITimeout = parseDuration(fc.ForecastAPI.Timeout, 10*time.Second)
	cfg.BatchLimit = fc.ForecastAPI.BatchLimit
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 1000
	}

	cfg.RetryAttempts = fc.Reliability.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 200*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)

	cfg.CircuitBreakerEnabled = fc.Reliability.CircuitBreakerEnabled
	cfg.CircuitBreakerFailureThreshold = fc.Reliability.CircuitBreakerFailureThreshold
	cfg.CircuitBreakerSuccessThreshold = fc.Reliability.CircuitBreakerSuccessThreshold
	cfg.CircuitBreakerTimeout = parseDuration(fc.Reliability.CircuitBreakerTimeout, 30*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 10*time.Minute)
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.ServerPort = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	cfg.RequestTimeout = parseDuration(fc.Server.RequestTimeout, 30*time.Second)
	cfg.RateLimitRPS = fc.Server.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 10
	}
	cfg.RateLimitBurst = fc.Server.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 20
	}
	cfg.ShutdownTimeout = parseDuration(fc.Server.ShutdownTimeout, 15*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal on empty
// string, parse error, or a non-positive result.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	switch cfg.TemperatureUnit {
	case "fahrenheit", "celsius":
	default:
		return fmt.Errorf("lookup.unit must be fahrenheit or celsius, got %q", cfg.TemperatureUnit)
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.BatchLimit > 1000 {
		return fmt.Errorf("forecast_api.batch_limit must not exceed the provider bulk limit of 1000, got %d", cfg.BatchLimit)
	}
	if cfg.MaxRadiusMiles < cfg.DefaultRadiusMiles {
		return fmt.Errorf("lookup.max_radius_miles %g below default radius %g", cfg.MaxRadiusMiles, cfg.DefaultRadiusMiles)
	}
	if _, err := strconv.Atoi(cfg.ServerPort); err != nil {
		return fmt.Errorf("server.port must be numeric, got %q", cfg.ServerPort)
	}
	return nil
}
