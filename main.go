package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dataanalyst/adapters/sqlstore"
	"dataanalyst/internal"
	"dataanalyst/internal/config"
	"dataanalyst/internal/container"
	"dataanalyst/internal/errors"
	"dataanalyst/internal/migration"
	"dataanalyst/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

// initDatabase opens the configured database and applies migrations
func initDatabase(ctx context.Context, appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlstore.Open(ctx, appConfig.Database.Driver, appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := migration.NewRunner(appConfig.Database.Driver).Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	internal.DefaultLogger.SetLevel(internal.ParseLevel(appConfig.Logging.Level))
	if appConfig.Logging.Dir != "" {
		sink, err := internal.EnableFileSink(appConfig.Logging.Dir)
		if err != nil {
			log.Printf("Warning: file logging disabled: %v", err)
		} else {
			defer sink.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	if err := appContainer.InitWithDatabase(ctx, db); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	if err := appContainer.Start(); err != nil {
		log.Fatalf("Failed to start background jobs: %v", err)
	}

	server, err := ui.NewServer(appContainer)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	// Admin router: health checks and pprof
	adminServer := &http.Server{
		Addr:              appConfig.Server.Host + ":" + appConfig.Profiling.Port,
		Handler:           ui.NewAdminRouter(db, appConfig.Profiling.Enabled),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Admin server starting on %s (profiling: %v)", adminServer.Addr, appConfig.Profiling.Enabled)
		if appConfig.Profiling.Enabled {
			log.Printf("View profiles: go tool pprof -http=:8081 http://%s/debug/pprof/profile?seconds=30", adminServer.Addr)
		}
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Admin server failed: %v", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(appConfig.Server.Addr()) }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Printf("Server failed: %v", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Admin server shutdown: %v", err)
	}
	if err := appContainer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Container shutdown: %v", err)
	}
}
