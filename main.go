package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hogar_scrooper/api"
	"hogar_scrooper/config"
	"hogar_scrooper/httputil"
	"hogar_scrooper/logging"
	"hogar_scrooper/parsers"
	"hogar_scrooper/scheduler"
	"hogar_scrooper/services"
	"hogar_scrooper/storage"
	"hogar_scrooper/workers"
)

var (
	parseFile     = flag.String("parse", "", "Parse a saved listing page and print it as JSON")
	importFile    = flag.String("import", "", "Import a saved listing page and exit")
	platformID    = flag.String("platform", "", "Platform id for -parse/-import (detected from -url when empty)")
	listingURL    = flag.String("url", "", "Listing URL for -parse/-import")
	phone         = flag.String("phone", "", "Contact phone overriding the parsed one (-import)")
	listPlatforms = flag.Bool("platforms", false, "List supported platforms and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logging.SetLevel(cfg.LogLevel)

	registry := parsers.Default()
	if err := config.ApplyPlatformOverrides(registry, cfg.Platforms); err != nil {
		log.Fatalf("Failed to apply platform overrides: %v", err)
	}

	// One-shot commands that need no storage
	if *listPlatforms {
		printJSON(registry.ListOptions())
		return
	}
	if *parseFile != "" {
		html := readFile(*parseFile)
		svc := services.NewImportService(nil, registry, nil)
		listing, _, err := svc.Parse(services.ImportRequest{HTML: html, URL: *listingURL, PlatformID: *platformID})
		if err != nil {
			log.Fatalf("Parse failed: %v", err)
		}
		printJSON(listing)
		return
	}

	logFile, err := logging.Setup(cfg.LogFile)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting hogar_scrooper...")
	for _, o := range registry.ListOptions() {
		logging.Debugf("  - %s (%s)", o.Label, o.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	mediaService := services.NewMediaService(store)
	importService := services.NewImportService(store, registry, mediaService)

	if *importFile != "" {
		res, err := importService.Import(ctx, services.ImportRequest{
			HTML:       readFile(*importFile),
			URL:        *listingURL,
			PlatformID: *platformID,
			Phone:      *phone,
		})
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		printJSON(res)
		return
	}

	// Daemon mode
	clients := httputil.NewClients(cfg.Proxy)
	if cfg.Proxy.URL != "" {
		log.Printf("Proxy: %s", maskConnectionString(cfg.Proxy.URL))
	}

	var uploader workers.Uploader = workers.NewNoOpUploader()
	if cfg.S3.Enabled() {
		s3Uploader, err := storage.NewS3Uploader(ctx, storage.S3Config(cfg.S3))
		if err != nil {
			log.Fatalf("Failed to configure S3: %v", err)
		}
		uploader = s3Uploader
		log.Printf("Archiving photos to bucket %s", cfg.S3.Bucket)
	} else {
		log.Println("S3 not configured, photos are downloaded but not archived")
	}

	mediaWorker := workers.NewMediaWorker(mediaService, registry, clients.Media, uploader, cfg.Scheduler.Batch)
	mediaWorker.SetLogger(workers.StoreLogger(store))

	sched := scheduler.New(cfg.Scheduler, mediaWorker)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	relay := httputil.NewImageRelay(registry, clients.Relay)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(importService, mediaService, registry, relay).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("API listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("API shutdown: %v", err)
	}
	cancel()
	sched.Stop()
	log.Println("Goodbye!")
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (storage.Store, error) {
	if cfg.URL != "" {
		store, err := storage.NewPostgresStore(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.URL))
		return store, nil
	}
	store, err := storage.NewSQLiteStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	log.Printf("SQLite database: %s", cfg.Path)
	return store, nil
}

func readFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	// Simple mask - find :// and mask until @
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	// Find : after user
	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
