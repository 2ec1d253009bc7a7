// Package main provides scoutd, the Scout browser daemon. It keeps a
// pool of headless browser instances alive and exposes them over a
// REST API so external clients can drive navigation, scraping, and
// page interaction remotely.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entrhq/scout/pkg/actions"
	"github.com/entrhq/scout/pkg/api"
	"github.com/entrhq/scout/pkg/browser"
	appconfig "github.com/entrhq/scout/pkg/config"
	"github.com/entrhq/scout/pkg/logging"
	"github.com/entrhq/scout/pkg/search"
)

const (
	version = "0.1.0"

	// shutdownGrace bounds graceful shutdown: in-flight requests and
	// browser teardown share this window before the daemon gives up.
	shutdownGrace = 15 * time.Second
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	Addr        string
	ConfigFile  string
	ShowVersion bool
}

func main() {
	// Parse command line flags
	config := parseFlags()

	// Show version if requested
	if config.ShowVersion {
		fmt.Printf("Scout v%s\n", version)
		return
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	// Run the daemon
	if err := run(ctx, config); err != nil {
		cancel() // Cancel context before exiting
		log.Printf("scoutd failed: %v", err)
		os.Exit(1)
	}
	cancel() // Clean up context on success
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	config := &CLIConfig{}

	flag.StringVar(&config.Addr, "addr", "", "Listen address (overrides the configured value)")
	flag.StringVar(&config.ConfigFile, "config", "", "Path to configuration file (JSON)")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Scout - Remote Browser Automation Daemon\n\n")
		fmt.Fprintf(os.Stderr, "Usage: scoutd [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Run with defaults (listens on :8000)\n")
		fmt.Fprintf(os.Stderr, "  scoutd\n\n")
		fmt.Fprintf(os.Stderr, "  # Listen on a different address\n")
		fmt.Fprintf(os.Stderr, "  scoutd -addr :9000\n\n")
		fmt.Fprintf(os.Stderr, "  # Use an explicit config file\n")
		fmt.Fprintf(os.Stderr, "  scoutd -config ./scout.json\n\n")
	}

	flag.Parse()
	return config
}

// run wires the daemon together and blocks until the context is
// cancelled or the server fails.
func run(ctx context.Context, cliConfig *CLIConfig) error {
	// Initialize global configuration
	if initErr := appconfig.Initialize(cliConfig.ConfigFile); initErr != nil {
		return fmt.Errorf("failed to initialize configuration: %w", initErr)
	}

	logger, err := logging.NewLogger("scoutd")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	serverCfg := appconfig.GetServer()
	browserCfg := appconfig.GetBrowser()
	searchCfg := appconfig.GetSearch()

	matcher, err := appconfig.GetNavigation().Matcher()
	if err != nil {
		return fmt.Errorf("invalid navigation policy: %w", err)
	}

	// Start the browser engine. The first run installs the Playwright
	// driver, which can take a while.
	width, height := browserCfg.GetViewport()
	engine, err := browser.NewPlaywrightEngine(browser.EngineOptions{
		Headless:         browserCfg.GetHeadless(),
		ViewportWidth:    width,
		ViewportHeight:   height,
		DefaultTimeoutMs: browserCfg.GetNavigationTimeoutMs(),
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start browser engine: %w", err)
	}
	defer engine.Close()

	store := browser.NewProfileStore(browserCfg.GetProfilesDir())
	pool := browser.NewPool(engine, store, browser.PoolOptions{
		Headless:       browserCfg.GetHeadless(),
		ViewportWidth:  width,
		ViewportHeight: height,
		MaxBrowsers:    browserCfg.GetMaxBrowsers(),
		Policy:         matcher,
		Logger:         logger,
	})
	resolver := browser.NewResolver(pool)

	addr := cliConfig.Addr
	if addr == "" {
		addr = serverCfg.GetListenAddr()
	}

	server := api.NewServer(api.ServerConfig{
		Address:      addr,
		ReadTimeout:  serverCfg.GetReadTimeout(),
		WriteTimeout: serverCfg.GetWriteTimeout(),
		Pool:         pool,
		Resolver:     resolver,
		Actions: actions.NewEngine(actions.Options{
			DefaultNavigationTimeoutMs: browserCfg.GetNavigationTimeoutMs(),
			Logger:                     logger,
		}),
		Search: search.NewService(search.Options{
			BaseURL: searchCfg.GetBaseURL(),
			Logger:  logger,
		}),
		DefaultSearchCount: searchCfg.GetDefaultCount(),
		Logger:             logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("scoutd v%s listening on %s (run %s)", version, addr, logger.RunID())
		log.Printf("scoutd listening on %s", addr)
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Shut down outside-in: stop accepting requests, then close every
	// browser. The deferred engine.Close stops the driver last.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("pool shutdown: %v", err)
	}

	logger.Infof("scoutd stopped")
	return nil
}
