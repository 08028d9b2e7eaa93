package container

import (
	"context"
	"fmt"
	"log"

	"dataanalyst/adapters/blobstore"
	"dataanalyst/adapters/datareadiness/coercer"
	"dataanalyst/adapters/sqlstore"
	"dataanalyst/internal/analysis"
	"dataanalyst/internal/config"
	"dataanalyst/internal/processing"
	"dataanalyst/internal/report"
	"dataanalyst/internal/session"
	"dataanalyst/internal/visualization"
	"dataanalyst/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB    *sqlx.DB
	Blobs ports.BlobStore

	// Repositories (data access layer)
	DatasetRepo ports.DatasetRepository
	ExportRepo  ports.ExportRepository

	// Analysis components
	Processor *processing.DataProcessor
	Analyzer  *analysis.StatisticalAnalyzer
	Palette   visualization.Palette
	Reports   *report.Generator

	// Session state
	Sessions *session.Manager
	Janitor  *session.Janitor
}

// New creates a new dependency injection container with the components that
// need no database
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	palette := visualization.DefaultPalette()
	if err := palette.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chart palette: %w", err)
	}

	c := &Container{
		Config:    cfg,
		Processor: processing.NewDataProcessor(coercionConfig(cfg.Cleaning)),
		Analyzer:  analysis.NewStatisticalAnalyzer(),
		Palette:   palette,
		Reports:   report.NewGenerator(palette),
	}
	return c, nil
}

// coercionConfig applies the cleaning settings to the default coercion rules
func coercionConfig(cfg config.CleaningConfig) coercer.CoercionConfig {
	cc := coercer.DefaultCoercionConfig()
	cc.LenientNumbers = cfg.LenientNumbers
	return cc
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.initRepositories()

	if err := c.initStorage(ctx); err != nil {
		return fmt.Errorf("failed to initialize blob storage: %w", err)
	}

	c.initSessions()

	log.Printf("Container initialized successfully with database connection (%s storage)", c.Blobs.Backend())
	return nil
}

// initRepositories initializes data access repositories
func (c *Container) initRepositories() {
	c.DatasetRepo = sqlstore.NewDatasetRepository(c.DB)
	c.ExportRepo = sqlstore.NewExportRepository(c.DB)
}

func (c *Container) initStorage(ctx context.Context) error {
	blobs, err := blobstore.New(ctx, c.Config.Storage)
	if err != nil {
		return err
	}
	c.Blobs = blobs
	return nil
}

func (c *Container) initSessions() {
	c.Sessions = session.NewManager(c.DatasetRepo, c.ExportRepo, c.Blobs, c.Processor, c.Config.Storage.URLTTL)
	c.Janitor = session.NewJanitor(c.Sessions, c.DatasetRepo, c.ExportRepo, c.Blobs,
		c.Config.Session.TTL, c.Config.Session.JanitorSchedule)
}

// Visualizer returns a figure builder for the given UI theme
func (c *Container) Visualizer(theme string) *visualization.Visualizer {
	return visualization.NewVisualizer(theme, c.Palette)
}

// Start launches background jobs
func (c *Container) Start() error {
	if c.Janitor == nil {
		return fmt.Errorf("container is not initialized with a database")
	}
	return c.Janitor.Start()
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Janitor != nil {
		c.Janitor.Stop()
	}

	// Close database connection
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
