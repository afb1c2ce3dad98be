package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rulefeed/rulefeed/internal/rules/common/clock"
	"github.com/rulefeed/rulefeed/internal/rules/common/log"
	"github.com/rulefeed/rulefeed/internal/rules/config"
	"github.com/rulefeed/rulefeed/internal/rules/domain"
	"github.com/rulefeed/rulefeed/internal/rules/gateways/feed"
	"github.com/rulefeed/rulefeed/internal/rules/repos/rulecache"
	"github.com/rulefeed/rulefeed/internal/rules/repos/ruleset"
	"github.com/rulefeed/rulefeed/internal/rules/services/engine"
	"github.com/rulefeed/rulefeed/internal/rules/services/refresher"
)

const (
	version = "0.1.0-dev"
	appName = "rulefeedd"
)

// Application holds the wired components of the rules service.
type Application struct {
	config    *config.AppConfig
	store     *rulecache.Store
	refresher *refresher.Refresher
}

func (a *Application) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

func main() {
	checkURL := flag.String("check", "", "evaluate a request URL against the refreshed rules")
	sourceURL := flag.String("source", "", "source page URL for -check")
	resource := flag.String("type", "script", "resource type for -check")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":     version,
		"env":         cfg.Env,
		"log_level":   cfg.LogLevel,
		"feed_url":    cfg.FeedURL,
		"feed_path":   cfg.FeedPath,
		"storage_dir": cfg.StorageDir,
		"aggressive":  cfg.Aggressive,
	}, "Starting rulefeed refresh")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := app.refresher.RefreshContentRules(ctx)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Refresh failed")
	}

	stats := app.store.Stats()
	log.Info(map[string]any{
		"fingerprint":    result.Fingerprint,
		"truncated":      result.Truncated,
		"raw_rules_size": stats.RawRulesSize,
	}, "Content rules are up to date")

	if *checkURL != "" {
		if err := runCheck(cfg, result, *checkURL, *sourceURL, *resource); err != nil {
			log.Fatal(map[string]any{"error": err}, "Check failed")
		}
	}
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	logger := log.GetLogger()

	store, err := rulecache.Open(cfg.StorageDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules cache: %w", err)
	}

	client, err := feed.New(feed.Options{
		Endpoint: cfg.Endpoint(),
		Timeout:  time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to build feed client: %w", err)
	}

	svc := refresher.New(refresher.Options{
		Store:    store,
		Feed:     client,
		Compiler: refresher.CompilerFunc(ruleset.Compile),
		Clock:    clock.RealClock{},
		Logger:   logger,
	})

	return &Application{config: cfg, store: store, refresher: svc}, nil
}

// runCheck builds a decision engine from the freshly refreshed rules and
// reports the verdict for one request.
func runCheck(cfg *config.AppConfig, result domain.ContentRulesResult, requestURL, sourceURL, resource string) error {
	rt, err := domain.ParseResourceType(resource)
	if err != nil {
		return err
	}
	if sourceURL == "" {
		return fmt.Errorf("-source is required with -check")
	}

	eng, err := engine.New(engine.Options{
		SerializedRules: result.SerializedRules,
		CacheSize:       cfg.DecisionCacheSize,
		Logger:          log.GetLogger(),
	})
	if err != nil {
		return err
	}

	blocked := eng.ShouldBlock(requestURL, sourceURL, rt, cfg.Aggressive)
	log.Info(map[string]any{
		"request_url": requestURL,
		"source_url":  sourceURL,
		"type":        rt.String(),
		"aggressive":  cfg.Aggressive,
		"blocked":     blocked,
	}, "Check result")
	return nil
}
