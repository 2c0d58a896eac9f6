package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hep-clue/clue/pkg/geometry"
)

// Config holds all server configuration.
type Config struct {
	Server    ServerConfig
	CLUE      CLUEConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        // Server host (default: "0.0.0.0")
	Port            int           // Server port (default: 8080)
	MaxConnections  int           // Max concurrent connections
	RequestTimeout  time.Duration // Request timeout
	ShutdownTimeout time.Duration // Graceful shutdown timeout
	EnableTLS       bool          // Enable TLS
	CertFile        string        // TLS certificate file
	KeyFile         string        // TLS key file
}

// CLUEConfig holds clustering-engine configuration.
type CLUEConfig struct {
	Preset        string  // detector-layer preset name (see pkg/geometry.Presets)
	DC            float32 // critical distance
	RhoC          float32 // critical density
	OutlierFactor float32 // multiplier applied to DC for the outlier/nh radius
	BlockSize     int     // worker-pool granularity under parallel execution
	Parallel      bool    // true selects clue.Parallel, false clue.Sequential
	MaxPoints     int     // per-batch point capacity ceiling
	MaxSeeds      int
	MaxFollowers  int
	MaxTileDepth  int
	Verbose       bool
}

// CacheConfig holds clustering-result cache configuration.
type CacheConfig struct {
	Enabled  bool          // Enable batch-result caching
	Capacity int           // Max cache entries
	TTL      time.Duration // Time to live for cache entries
}

// RateLimitConfig holds HTTP rate-limiting configuration.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// AuthConfig holds JWT authentication configuration.
type AuthConfig struct {
	Enabled   bool
	Secret    string
	PublicPaths []string
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxConnections:  1000,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableTLS:       false,
		},
		CLUE: CLUEConfig{
			Preset:        "CLD-Barrel",
			DC:            4,
			RhoC:          8,
			OutlierFactor: 2,
			BlockSize:     256,
			Parallel:      true,
			MaxPoints:     geometry.MaxPointsHard,
			MaxSeeds:      geometry.MaxSeeds,
			MaxFollowers:  geometry.MaxFollowers,
			MaxTileDepth:  geometry.MaxTileDepth,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Capacity: 1000,
			TTL:      5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Auth: AuthConfig{
			Enabled:     false,
			PublicPaths: []string{"/v1/health"},
		},
	}
}

// LoadFromEnv loads configuration from environment variables, overlaying
// the defaults.
func LoadFromEnv() *Config {
	cfg := Default()

	// Server configuration
	if host := os.Getenv("CLUE_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("CLUE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if maxConn := os.Getenv("CLUE_MAX_CONNECTIONS"); maxConn != "" {
		if mc, err := strconv.Atoi(maxConn); err == nil {
			cfg.Server.MaxConnections = mc
		}
	}
	if timeout := os.Getenv("CLUE_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.RequestTimeout = t
		}
	}
	if enableTLS := os.Getenv("CLUE_ENABLE_TLS"); enableTLS == "true" {
		cfg.Server.EnableTLS = true
		cfg.Server.CertFile = os.Getenv("CLUE_TLS_CERT")
		cfg.Server.KeyFile = os.Getenv("CLUE_TLS_KEY")
	}

	// CLUE algorithm configuration
	if preset := os.Getenv("CLUE_PRESET"); preset != "" {
		cfg.CLUE.Preset = preset
	}
	if dc := os.Getenv("CLUE_DC"); dc != "" {
		if v, err := strconv.ParseFloat(dc, 32); err == nil {
			cfg.CLUE.DC = float32(v)
		}
	}
	if rhoc := os.Getenv("CLUE_RHOC"); rhoc != "" {
		if v, err := strconv.ParseFloat(rhoc, 32); err == nil {
			cfg.CLUE.RhoC = float32(v)
		}
	}
	if of := os.Getenv("CLUE_OUTLIER_FACTOR"); of != "" {
		if v, err := strconv.ParseFloat(of, 32); err == nil {
			cfg.CLUE.OutlierFactor = float32(v)
		}
	}
	if bs := os.Getenv("CLUE_BLOCK_SIZE"); bs != "" {
		if v, err := strconv.Atoi(bs); err == nil {
			cfg.CLUE.BlockSize = v
		}
	}
	if par := os.Getenv("CLUE_PARALLEL"); par == "false" {
		cfg.CLUE.Parallel = false
	}
	if mp := os.Getenv("CLUE_MAX_POINTS"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil {
			cfg.CLUE.MaxPoints = v
		}
	}
	if verbose := os.Getenv("CLUE_VERBOSE"); verbose == "true" {
		cfg.CLUE.Verbose = true
	}

	// Cache configuration
	if cacheEnabled := os.Getenv("CLUE_CACHE_ENABLED"); cacheEnabled == "false" {
		cfg.Cache.Enabled = false
	}
	if capacity := os.Getenv("CLUE_CACHE_CAPACITY"); capacity != "" {
		if c, err := strconv.Atoi(capacity); err == nil {
			cfg.Cache.Capacity = c
		}
	}
	if ttl := os.Getenv("CLUE_CACHE_TTL"); ttl != "" {
		if t, err := time.ParseDuration(ttl); err == nil {
			cfg.Cache.TTL = t
		}
	}

	// Rate-limit configuration
	if rlEnabled := os.Getenv("CLUE_RATE_LIMIT_ENABLED"); rlEnabled == "false" {
		cfg.RateLimit.Enabled = false
	}
	if rps := os.Getenv("CLUE_RATE_LIMIT_RPS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimit.RequestsPerSecond = v
		}
	}
	if burst := os.Getenv("CLUE_RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimit.Burst = v
		}
	}

	// Auth configuration
	if authEnabled := os.Getenv("CLUE_AUTH_ENABLED"); authEnabled == "true" {
		cfg.Auth.Enabled = true
	}
	if secret := os.Getenv("CLUE_AUTH_SECRET"); secret != "" {
		cfg.Auth.Secret = secret
	}

	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("invalid max connections: %d (must be > 0)", c.Server.MaxConnections)
	}
	if c.Server.EnableTLS {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
	}

	if _, ok := geometry.Presets[c.CLUE.Preset]; !ok {
		return fmt.Errorf("invalid CLUE preset: %q", c.CLUE.Preset)
	}
	if c.CLUE.DC <= 0 {
		return fmt.Errorf("invalid CLUE dc: %v (must be > 0)", c.CLUE.DC)
	}
	if c.CLUE.RhoC <= 0 {
		return fmt.Errorf("invalid CLUE rhoc: %v (must be > 0)", c.CLUE.RhoC)
	}
	if c.CLUE.OutlierFactor < 1 {
		return fmt.Errorf("invalid CLUE outlier_factor: %v (must be >= 1)", c.CLUE.OutlierFactor)
	}
	if c.CLUE.BlockSize < 1 {
		return fmt.Errorf("invalid CLUE block_size: %d (must be > 0)", c.CLUE.BlockSize)
	}
	if c.CLUE.MaxPoints < 1 {
		return fmt.Errorf("invalid CLUE max_points: %d (must be > 0)", c.CLUE.MaxPoints)
	}

	if c.Cache.Enabled && c.Cache.Capacity < 1 {
		return fmt.Errorf("invalid cache capacity: %d (must be > 0)", c.Cache.Capacity)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid rate limit: %v requests/sec (must be > 0)", c.RateLimit.RequestsPerSecond)
	}

	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth enabled but no secret configured")
	}

	return nil
}

// Address returns the server address (host:port).
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
