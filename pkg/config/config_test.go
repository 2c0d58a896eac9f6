package config

import (
	"os"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Test Server defaults
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections != 1000 {
		t.Errorf("Expected max connections 1000, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("Expected request timeout 30s, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected shutdown timeout 10s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.EnableTLS {
		t.Error("Expected TLS disabled by default")
	}

	// Test CLUE defaults
	if cfg.CLUE.Preset != "CLD-Barrel" {
		t.Errorf("Expected preset CLD-Barrel, got %s", cfg.CLUE.Preset)
	}
	if cfg.CLUE.DC != 4 {
		t.Errorf("Expected dc=4, got %v", cfg.CLUE.DC)
	}
	if cfg.CLUE.RhoC != 8 {
		t.Errorf("Expected rhoc=8, got %v", cfg.CLUE.RhoC)
	}
	if cfg.CLUE.OutlierFactor != 2 {
		t.Errorf("Expected outlier_factor=2, got %v", cfg.CLUE.OutlierFactor)
	}
	if !cfg.CLUE.Parallel {
		t.Error("Expected parallel execution enabled by default")
	}

	// Test Cache defaults
	if !cfg.Cache.Enabled {
		t.Error("Expected cache enabled by default")
	}
	if cfg.Cache.Capacity != 1000 {
		t.Errorf("Expected cache capacity 1000, got %d", cfg.Cache.Capacity)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Expected cache TTL 5m, got %v", cfg.Cache.TTL)
	}

	// Test RateLimit defaults
	if !cfg.RateLimit.Enabled {
		t.Error("Expected rate limiting enabled by default")
	}
	if cfg.RateLimit.RequestsPerSecond != 50 {
		t.Errorf("Expected 50 requests/sec, got %v", cfg.RateLimit.RequestsPerSecond)
	}

	// Test Auth defaults
	if cfg.Auth.Enabled {
		t.Error("Expected auth disabled by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	envVars := []string{
		"CLUE_HOST", "CLUE_PORT", "CLUE_MAX_CONNECTIONS",
		"CLUE_REQUEST_TIMEOUT", "CLUE_ENABLE_TLS",
		"CLUE_PRESET", "CLUE_DC", "CLUE_RHOC", "CLUE_OUTLIER_FACTOR",
		"CLUE_CACHE_ENABLED", "CLUE_CACHE_CAPACITY", "CLUE_CACHE_TTL",
		"CLUE_RATE_LIMIT_ENABLED", "CLUE_RATE_LIMIT_RPS",
	}

	originalEnv := make(map[string]string)
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	os.Setenv("CLUE_HOST", "127.0.0.1")
	os.Setenv("CLUE_PORT", "9090")
	os.Setenv("CLUE_MAX_CONNECTIONS", "5000")
	os.Setenv("CLUE_REQUEST_TIMEOUT", "60s")
	os.Setenv("CLUE_ENABLE_TLS", "true")

	os.Setenv("CLUE_PRESET", "CLICdet-Endcap")
	os.Setenv("CLUE_DC", "2.5")
	os.Setenv("CLUE_RHOC", "10")
	os.Setenv("CLUE_OUTLIER_FACTOR", "3")

	os.Setenv("CLUE_CACHE_ENABLED", "false")
	os.Setenv("CLUE_CACHE_CAPACITY", "5000")
	os.Setenv("CLUE_CACHE_TTL", "10m")

	os.Setenv("CLUE_RATE_LIMIT_ENABLED", "false")
	os.Setenv("CLUE_RATE_LIMIT_RPS", "100")

	cfg := LoadFromEnv()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections != 5000 {
		t.Errorf("Expected max connections 5000, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.RequestTimeout != 60*time.Second {
		t.Errorf("Expected request timeout 60s, got %v", cfg.Server.RequestTimeout)
	}
	if !cfg.Server.EnableTLS {
		t.Error("Expected TLS enabled")
	}

	if cfg.CLUE.Preset != "CLICdet-Endcap" {
		t.Errorf("Expected preset CLICdet-Endcap, got %s", cfg.CLUE.Preset)
	}
	if cfg.CLUE.DC != 2.5 {
		t.Errorf("Expected dc=2.5, got %v", cfg.CLUE.DC)
	}
	if cfg.CLUE.RhoC != 10 {
		t.Errorf("Expected rhoc=10, got %v", cfg.CLUE.RhoC)
	}
	if cfg.CLUE.OutlierFactor != 3 {
		t.Errorf("Expected outlier_factor=3, got %v", cfg.CLUE.OutlierFactor)
	}

	if cfg.Cache.Enabled {
		t.Error("Expected cache disabled")
	}
	if cfg.Cache.Capacity != 5000 {
		t.Errorf("Expected cache capacity 5000, got %d", cfg.Cache.Capacity)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("Expected cache TTL 10m, got %v", cfg.Cache.TTL)
	}

	if cfg.RateLimit.Enabled {
		t.Error("Expected rate limiting disabled")
	}
	if cfg.RateLimit.RequestsPerSecond != 100 {
		t.Errorf("Expected 100 requests/sec, got %v", cfg.RateLimit.RequestsPerSecond)
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	originalPort := os.Getenv("CLUE_PORT")
	defer func() {
		if originalPort == "" {
			os.Unsetenv("CLUE_PORT")
		} else {
			os.Setenv("CLUE_PORT", originalPort)
		}
	}()

	os.Setenv("CLUE_PORT", "invalid")
	cfg := LoadFromEnv()

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080 for invalid value, got %d", cfg.Server.Port)
	}
}

func TestLoadFromEnv_DefaultsWhenNotSet(t *testing.T) {
	envVars := []string{
		"CLUE_HOST", "CLUE_PORT", "CLUE_MAX_CONNECTIONS",
		"CLUE_REQUEST_TIMEOUT", "CLUE_ENABLE_TLS",
		"CLUE_PRESET", "CLUE_DC", "CLUE_RHOC", "CLUE_OUTLIER_FACTOR",
		"CLUE_CACHE_ENABLED", "CLUE_CACHE_CAPACITY", "CLUE_CACHE_TTL",
	}

	originalEnv := make(map[string]string)
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
		os.Unsetenv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				os.Setenv(key, value)
			}
		}
	}()

	cfg := LoadFromEnv()
	defaults := Default()

	if cfg.Server.Host != defaults.Server.Host {
		t.Errorf("Expected default host, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != defaults.Server.Port {
		t.Errorf("Expected default port, got %d", cfg.Server.Port)
	}
	if cfg.CLUE.Preset != defaults.CLUE.Preset {
		t.Errorf("Expected default preset, got %s", cfg.CLUE.Preset)
	}
	if cfg.Cache.Enabled != defaults.Cache.Enabled {
		t.Errorf("Expected default cache enabled, got %v", cfg.Cache.Enabled)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "Valid default config",
			config:  Default(),
			wantErr: false,
		},
		{
			name: "Invalid port (too low)",
			config: &Config{
				Server: ServerConfig{Port: 0},
				CLUE:   Default().CLUE,
			},
			wantErr: true,
		},
		{
			name: "Invalid port (too high)",
			config: &Config{
				Server: ServerConfig{Port: 70000},
				CLUE:   Default().CLUE,
			},
			wantErr: true,
		},
		{
			name: "Unknown preset",
			config: &Config{
				Server: ServerConfig{Port: 8080, MaxConnections: 1},
				CLUE: CLUEConfig{
					Preset: "NotAPreset", DC: 1, RhoC: 1, OutlierFactor: 1, BlockSize: 1, MaxPoints: 1,
				},
			},
			wantErr: true,
		},
		{
			name: "Invalid dc",
			config: &Config{
				Server: ServerConfig{Port: 8080, MaxConnections: 1},
				CLUE: CLUEConfig{
					Preset: "CLD-Barrel", DC: 0, RhoC: 1, OutlierFactor: 1, BlockSize: 1, MaxPoints: 1,
				},
			},
			wantErr: true,
		},
		{
			name: "Invalid outlier factor below 1",
			config: &Config{
				Server: ServerConfig{Port: 8080, MaxConnections: 1},
				CLUE: CLUEConfig{
					Preset: "CLD-Barrel", DC: 1, RhoC: 1, OutlierFactor: 0.5, BlockSize: 1, MaxPoints: 1,
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{
		Host: "localhost",
		Port: 8080,
	}

	addr := cfg.Address()
	expected := "localhost:8080"

	if addr != expected {
		t.Errorf("Expected address %s, got %s", expected, addr)
	}

	defaultCfg := Default()
	addr = defaultCfg.Server.Address()
	expected = "0.0.0.0:8080"

	if addr != expected {
		t.Errorf("Expected default address %s, got %s", expected, addr)
	}
}
