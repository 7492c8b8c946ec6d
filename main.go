package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"feedsync/api"
	"feedsync/config"
	"feedsync/feed"
	"feedsync/httputil"
	"feedsync/logging"
	"feedsync/models"
	"feedsync/scheduler"
	"feedsync/services"
	"feedsync/storage"
)

var (
	ingestNow = flag.Bool("ingest", false, "Run one ingestion and exit")
	ownerID   = flag.String("owner", "", "Owner id stamped on ingested listings")
	enqueue   = flag.String("enqueue", "", "Queue a command (ingest, pause, resume) for a running daemon and exit")
)

// listingStore is what the services need from the listing database.
type listingStore interface {
	services.ListingWriter
	services.ListingReader
	services.IdentityLookup
}

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.Log.Path, cfg.Log.MaxBytes, cfg.Log.Backups)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting feedsync...")
	log.Printf("Feed: %s (%s)", cfg.Feed.ID, cfg.Feed.URL)

	// Operational store: command queue and run history
	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)
	if last, err := sqliteStore.GetLastRunTime(); err != nil {
		log.Printf("Warning: could not read run history: %v", err)
	} else if !last.IsZero() {
		log.Printf("Last completed ingestion: %s", last.Format(time.RFC3339))
	}

	if *enqueue != "" {
		cmd, err := models.ParseCommandType(*enqueue)
		if err != nil {
			log.Fatalf("Invalid -enqueue: %v", err)
		}
		id, err := sqliteStore.EnqueueCommand(cmd, models.CommandParams{OwnerID: *ownerID})
		if err != nil {
			log.Fatalf("Failed to enqueue command: %v", err)
		}
		log.Printf("Queued command %s (#%d)", *enqueue, id)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store listingStore
	if cfg.DatabaseURL != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))
		store = pgStore
	} else {
		log.Println("Warning: DATABASE_URL not set, listings are kept in memory")
		store = storage.NewMemoryStore()
	}

	clients := httputil.NewClients(&cfg.Ingestion)
	if cfg.Ingestion.ProxyURL != "" {
		log.Printf("Proxy: %s", maskConnectionString(cfg.Ingestion.ProxyURL))
	}

	auth := feed.NewAuthClient(cfg.Feed.TokenURL, feed.Credentials{
		ClientID:     cfg.Feed.ClientID,
		ClientSecret: cfg.Feed.ClientSecret,
		Scope:        cfg.Feed.Scope,
		GrantType:    cfg.Feed.GrantType,
	}, clients.Auth)
	tokens := feed.NewTokenCache(auth)
	feedClient := feed.NewClient(cfg.Feed.URL, cfg.Feed.PageSize, clients.Feed)

	reconciler := services.NewReconciler(store, cfg.Ingestion.UpsertConcurrency)
	ingestion := services.NewIngestionService(tokens, feedClient, reconciler)
	ingestion.SetFeedID(cfg.Feed.ID)
	ingestion.SetRuns(sqliteStore)

	if cfg.S3.Enabled() {
		archive, err := storage.NewS3Archive(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			log.Printf("Warning: raw archive disabled: %v", err)
		} else {
			ingestion.SetArchive(archive)
			log.Printf("Archiving raw pages to s3://%s", cfg.S3.Bucket)
		}
	}

	catalog := services.NewCatalogService(store, store)
	log.Println("Services initialized")

	owner := *ownerID
	if owner == "" {
		owner = cfg.Ingestion.OwnerID
	}

	// Handle one-shot commands
	if *ingestNow {
		log.Println("Running ingestion...")
		var ownerPtr *string
		if owner != "" {
			ownerPtr = &owner
		}
		report, err := ingestion.Ingest(ctx, ownerPtr)
		if err != nil {
			log.Fatalf("Ingestion failed: %v", err)
		}
		for _, e := range report.Errors {
			log.Printf("  - %s", e)
		}
		log.Println("Ingestion complete!")
		return
	}

	// Daemon mode
	sched := scheduler.New(scheduler.Options{
		Cron:         cfg.Scheduler.Cron,
		OwnerID:      owner,
		PollInterval: cfg.Scheduler.PollInterval,
	}, ingestion, sqliteStore)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	handler := api.NewServer(ingestion, catalog)
	handler.SetRuns(sqliteStore)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: HTTP shutdown: %v", err)
	}
	sched.Stop()
	cancel()
	log.Println("Goodbye!")
}

// maskConnectionString hides the password of a URL or keyword/value DSN
// before it reaches the log.
func maskConnectionString(connStr string) string {
	if u, err := url.Parse(connStr); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			return u.Redacted()
		}
		return connStr
	}

	fields := strings.Fields(connStr)
	masked := false
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=xxxxx"
			masked = true
		}
	}
	if !masked {
		return connStr
	}
	return strings.Join(fields, " ")
}
