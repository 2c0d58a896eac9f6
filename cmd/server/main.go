// Command clue-server runs the clustering HTTP API: one *clue.Engine per
// configured detector layer, fronted by a REST handler with optional
// batch-result caching, JWT auth and rate limiting.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hep-clue/clue/pkg/api/rest"
	"github.com/hep-clue/clue/pkg/api/rest/middleware"
	"github.com/hep-clue/clue/pkg/cache"
	"github.com/hep-clue/clue/pkg/clue"
	"github.com/hep-clue/clue/pkg/config"
	"github.com/hep-clue/clue/pkg/geometry"
	"github.com/hep-clue/clue/pkg/kernel"
	"github.com/hep-clue/clue/pkg/layer"
	"github.com/hep-clue/clue/pkg/observability"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		showHelp    = flag.Bool("help", false, "show help and exit")
		host        = flag.String("host", "", "server host (overrides config/env)")
		port        = flag.Int("port", 0, "server port (overrides config/env)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("clue-server v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}
	if *showHelp {
		showUsage()
		os.Exit(0)
	}

	printBanner()

	cfg := config.LoadFromEnv()
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewDefaultLogger()
	if cfg.CLUE.Verbose {
		logger.SetLevel(observability.DEBUG)
	}
	observability.SetGlobalLogger(logger)
	metrics := observability.NewMetrics()

	registry, err := buildRegistry(cfg)
	if err != nil {
		logger.Fatalf("failed to build layer registry: %v", err)
	}

	var batchCache *cache.LRUCache
	if cfg.Cache.Enabled {
		batchCache = cache.NewLRUCache(cfg.Cache.Capacity, cfg.Cache.TTL)
	}

	restConfig := rest.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSEnabled: true,
		CORSOrigins: []string{"*"},
		Version:     version,
		Auth: middleware.AuthConfig{
			Enabled:     cfg.Auth.Enabled,
			JWTSecret:   cfg.Auth.Secret,
			PublicPaths: cfg.Auth.PublicPaths,
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled:        cfg.RateLimit.Enabled,
			RequestsPerSec: cfg.RateLimit.RequestsPerSecond,
			Burst:          cfg.RateLimit.Burst,
			PerIP:          true,
		},
	}

	server := rest.NewServer(restConfig, registry, batchCache, metrics, logger)

	printStartupInfo(cfg, registry)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	logger.Info("server ready, press Ctrl+C to stop", nil)
	select {
	case sig := <-sigChan:
		logger.Infof("received signal: %v", sig)
	case err := <-errChan:
		logger.Errorf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Errorf("error stopping server: %v", err)
	}
	logger.Info("server stopped, goodbye", nil)
}

// buildRegistry registers one engine per detector preset known to
// pkg/geometry, all sharing the single CLUE parameter set from
// configuration. A production deployment that only cares about a subset of
// detector layers would register a narrower list; registering every preset
// keeps this entry point a usable reference for all five.
func buildRegistry(cfg *config.Config) (*layer.Registry, error) {
	registry := layer.NewRegistry()

	params := clue.Params{
		DC:            cfg.CLUE.DC,
		RhoC:          cfg.CLUE.RhoC,
		OutlierFactor: cfg.CLUE.OutlierFactor,
		BlockSize:     cfg.CLUE.BlockSize,
		Kernel:        kernel.Flat{C: 1},
		Verbose:       cfg.CLUE.Verbose,
	}
	if cfg.CLUE.Parallel {
		params.Mode = clue.Parallel
	} else {
		params.Mode = clue.Sequential
	}

	for _, name := range geometry.PresetNames() {
		quota := layer.Quota{MaxPointsPerBatch: cfg.CLUE.MaxPoints}
		if err := registry.Register(name, params, quota,
			cfg.CLUE.MaxPoints, cfg.CLUE.MaxSeeds, cfg.CLUE.MaxFollowers, cfg.CLUE.MaxTileDepth); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║    ____ _     _   _ _____                                  ║
║   / ___| |   | | | | ____|                                 ║
║  | |   | |   | | | |  _|                                   ║
║  | |___| |___| |_| | |___                                  ║
║   \____|_____|\___/|_____|                                 ║
║                                                              ║
║   CLUster-of-Energy density-peak clustering service         ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("Version: %s (commit: %s)\n\n", version, commit)
}

func printStartupInfo(cfg *config.Config, registry *layer.Registry) {
	fmt.Println("\n╔════════════════════════════════════════════════════════╗")
	fmt.Println("║               Server Configuration                     ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Address:          %-35s ║\n", cfg.Server.Address())
	fmt.Printf("║ TLS Enabled:      %-35v ║\n", cfg.Server.EnableTLS)
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║               CLUE Configuration                       ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ dc:               %-35v ║\n", cfg.CLUE.DC)
	fmt.Printf("║ rhoc:             %-35v ║\n", cfg.CLUE.RhoC)
	fmt.Printf("║ outlier_factor:   %-35v ║\n", cfg.CLUE.OutlierFactor)
	fmt.Printf("║ Parallel:         %-35v ║\n", cfg.CLUE.Parallel)
	fmt.Printf("║ Layers:           %-35s ║\n", fmt.Sprintf("%d registered", len(registry.Names())))
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║               Cache Configuration                      ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Enabled:          %-35v ║\n", cfg.Cache.Enabled)
	fmt.Printf("║ Capacity:         %-35d ║\n", cfg.Cache.Capacity)
	fmt.Printf("║ TTL:              %-35s ║\n", cfg.Cache.TTL)
	fmt.Println("╚════════════════════════════════════════════════════════╝")
	fmt.Println()
}

func showUsage() {
	fmt.Println("clue-server - HTTP clustering service for the CLUE density-peak algorithm")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  clue-server [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -help             Show this help message")
	fmt.Println("  -version          Show version information")
	fmt.Println("  -host HOST        Server host (default: 0.0.0.0)")
	fmt.Println("  -port PORT        Server port (default: 8080)")
	fmt.Println()
	fmt.Println("Environment variables (CLUE_* prefix):")
	fmt.Println("  CLUE_HOST, CLUE_PORT, CLUE_MAX_CONNECTIONS, CLUE_REQUEST_TIMEOUT")
	fmt.Println("  CLUE_ENABLE_TLS, CLUE_TLS_CERT, CLUE_TLS_KEY")
	fmt.Println("  CLUE_PRESET, CLUE_DC, CLUE_RHOC, CLUE_OUTLIER_FACTOR, CLUE_BLOCK_SIZE")
	fmt.Println("  CLUE_PARALLEL, CLUE_MAX_POINTS, CLUE_VERBOSE")
	fmt.Println("  CLUE_CACHE_ENABLED, CLUE_CACHE_CAPACITY, CLUE_CACHE_TTL")
	fmt.Println("  CLUE_RATE_LIMIT_ENABLED, CLUE_RATE_LIMIT_RPS, CLUE_RATE_LIMIT_BURST")
	fmt.Println("  CLUE_AUTH_ENABLED, CLUE_AUTH_SECRET")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  clue-server")
	fmt.Println("  clue-server -port 9090")
	fmt.Println("  CLUE_PORT=9090 CLUE_DC=4.0 clue-server")
	fmt.Println()
}
