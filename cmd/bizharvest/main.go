package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bizharvest/config"
	"bizharvest/pipeline"
	"bizharvest/scrape"
	"bizharvest/store"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("BIZHARVEST_CONFIG", ""), "Path to YAML config file (BIZHARVEST_CONFIG)")
	dbPath := flag.String("db", getEnv("BIZHARVEST_DB", ""), "Path to SQLite database, overrides config (BIZHARVEST_DB)")
	baseURL := flag.String("base-url", getEnv("BIZHARVEST_BASE_URL", ""), "Site homepage URL, overrides config (BIZHARVEST_BASE_URL)")
	marker := flag.String("marker", getEnv("BIZHARVEST_MARKER", ""), "Section path marker, overrides config (BIZHARVEST_MARKER)")
	delay := flag.Duration("delay", 0, "Politeness delay between article fetches, overrides config")
	feedURL := flag.String("feed", getEnv("BIZHARVEST_FEED_URL", ""), "Section RSS/Atom feed URL, overrides config")
	robots := flag.Bool("robots", false, "Respect the site's robots.txt")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags and environment win over the config file.
	if *dbPath != "" {
		cfg.Database = *dbPath
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *marker != "" {
		cfg.PathMarker = *marker
	}
	if *delay > 0 {
		cfg.RequestDelay = delay.String()
	}
	if *feedURL != "" {
		cfg.FeedURL = *feedURL
	}
	if *robots {
		cfg.RespectRobots = true
	}

	// Interrupt signals cancel the run; whatever was stored so far stays
	// stored.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Printf("ERROR: Run failed: %v", err)
		os.Exit(1)
	}
}

// run opens the store, executes one scrape, and prints the summary. It
// returns rather than exiting so the deferred store close always happens,
// even when the run aborts partway.
func run(ctx context.Context, cfg *config.Config) error {
	log.Printf("Opening article store: %s", cfg.Database)
	db, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open article store: %w", err)
	}
	defer db.Close()

	clientOpts := []scrape.Option{scrape.WithRobots(cfg.RespectRobots)}
	if cfg.UserAgent != "" {
		clientOpts = append(clientOpts, scrape.WithUserAgent(cfg.UserAgent))
	}
	client := scrape.NewClient(clientOpts...)

	var rate pipeline.RatePolicy = pipeline.FixedDelay{Delay: cfg.Delay()}
	if jitter := cfg.JitterDuration(); jitter > 0 {
		rate = pipeline.JitteredDelay{Base: cfg.Delay(), Jitter: jitter}
	}

	var strategy scrape.Strategy
	if cfg.Strategy != nil {
		strategy = *cfg.Strategy
	}

	runner := pipeline.NewRunner(pipeline.Config{
		BaseURL:    cfg.BaseURL,
		PathMarker: cfg.PathMarker,
		FeedURL:    cfg.FeedURL,
		Strategy:   strategy,
		Rate:       rate,
	}, client, db)

	start := time.Now()
	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Done in %v: %d links discovered, %d inserted, %d duplicate, %d failed\n",
		time.Since(start).Round(time.Millisecond),
		summary.Discovered, summary.Inserted, summary.Duplicates, summary.Failed)
	fmt.Printf("Database: %s (table business_articles)\n", cfg.Database)
	return nil
}
