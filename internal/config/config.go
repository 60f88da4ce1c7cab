// Package config defines the configuration surface for the QueryOpt server.
//
// Every externally tunable knob lives in the Config struct with a documented
// default. A Config is constructed once at startup (Default or FromEnv) and
// treated as immutable thereafter; components receive the values they need
// at construction time and never re-read configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for every tunable
const (
	DefaultCacheCapacity      = 1000
	DefaultCacheTTL           = 1 * time.Hour
	DefaultTargetResponseTime = 200 * time.Millisecond
	DefaultTargetHitRate      = 0.30
	DefaultMetricsRetention   = 1000
	DefaultMetricsWindow      = 100
	DefaultMaxFilterValues    = 10
	DefaultMemoryThresholdMB  = 4096
	DefaultReclaimInterval    = 100
	DefaultBackendTimeout     = 10 * time.Second
)

// Config enumerates every tunable of the optimization layer
type Config struct {
	// CacheCapacity is the maximum number of entries the result cache
	// holds before LRU eviction
	CacheCapacity int

	// CacheTTL is the maximum age of a cache entry before it is treated
	// as expired
	CacheTTL time.Duration

	// TargetResponseTime is the mean latency target used by the
	// performance reporter
	TargetResponseTime time.Duration

	// TargetHitRate is the cache hit-rate target in [0, 1]
	TargetHitRate float64

	// MetricsRetention is the maximum number of query samples kept
	MetricsRetention int

	// MetricsWindow is the number of recent samples aggregates are
	// computed over
	MetricsWindow int

	// MaxFilterValues bounds list-valued filters; longer lists are
	// truncated to their first MaxFilterValues elements
	MaxFilterValues int

	// MemoryThresholdMB is the resident memory level above which the
	// governor requests a reclamation pass
	MemoryThresholdMB uint64

	// ReclaimInterval is how many recorded samples pass between proactive
	// history compactions
	ReclaimInterval int

	// BackendTimeout caps the backend search phase; a timeout behaves
	// like a backend failure
	BackendTimeout time.Duration
}

// Default returns a Config populated with documented defaults
func Default() Config {
	return Config{
		CacheCapacity:      DefaultCacheCapacity,
		CacheTTL:           DefaultCacheTTL,
		TargetResponseTime: DefaultTargetResponseTime,
		TargetHitRate:      DefaultTargetHitRate,
		MetricsRetention:   DefaultMetricsRetention,
		MetricsWindow:      DefaultMetricsWindow,
		MaxFilterValues:    DefaultMaxFilterValues,
		MemoryThresholdMB:  DefaultMemoryThresholdMB,
		ReclaimInterval:    DefaultReclaimInterval,
		BackendTimeout:     DefaultBackendTimeout,
	}
}

// FromEnv returns a Config with QUERYOPT_* environment overrides applied
// on top of defaults. Unset or malformed variables keep their default.
func FromEnv() Config {
	cfg := Default()

	cfg.CacheCapacity = envInt("QUERYOPT_CACHE_CAPACITY", cfg.CacheCapacity)
	cfg.CacheTTL = envDuration("QUERYOPT_CACHE_TTL", cfg.CacheTTL)
	if ms := envInt("QUERYOPT_TARGET_RESPONSE_MS", 0); ms > 0 {
		cfg.TargetResponseTime = time.Duration(ms) * time.Millisecond
	}
	cfg.TargetHitRate = envFloat("QUERYOPT_TARGET_HIT_RATE", cfg.TargetHitRate)
	cfg.MetricsRetention = envInt("QUERYOPT_METRICS_RETENTION", cfg.MetricsRetention)
	cfg.MetricsWindow = envInt("QUERYOPT_METRICS_WINDOW", cfg.MetricsWindow)
	cfg.MaxFilterValues = envInt("QUERYOPT_MAX_FILTER_VALUES", cfg.MaxFilterValues)
	if mb := envInt("QUERYOPT_MEMORY_THRESHOLD_MB", 0); mb > 0 {
		cfg.MemoryThresholdMB = uint64(mb)
	}
	cfg.ReclaimInterval = envInt("QUERYOPT_RECLAIM_INTERVAL", cfg.ReclaimInterval)
	cfg.BackendTimeout = envDuration("QUERYOPT_BACKEND_TIMEOUT", cfg.BackendTimeout)

	return cfg
}

// Validate checks that the configuration is internally consistent
func (c Config) Validate() error {
	if c.CacheCapacity <= 0 {
		return fmt.Errorf("cache capacity must be positive, got %d", c.CacheCapacity)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %v", c.CacheTTL)
	}
	if c.TargetHitRate < 0 || c.TargetHitRate > 1 {
		return fmt.Errorf("target hit rate must be in [0, 1], got %v", c.TargetHitRate)
	}
	if c.MetricsRetention <= 0 {
		return fmt.Errorf("metrics retention must be positive, got %d", c.MetricsRetention)
	}
	if c.MetricsWindow <= 0 {
		return fmt.Errorf("metrics window must be positive, got %d", c.MetricsWindow)
	}
	if c.MetricsWindow > c.MetricsRetention {
		return fmt.Errorf("metrics window %d exceeds retention %d", c.MetricsWindow, c.MetricsRetention)
	}
	if c.MaxFilterValues <= 0 {
		return fmt.Errorf("max filter values must be positive, got %d", c.MaxFilterValues)
	}
	if c.ReclaimInterval <= 0 {
		return fmt.Errorf("reclaim interval must be positive, got %d", c.ReclaimInterval)
	}
	return nil
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
