// Package container provides dependency injection for the travel-ledger application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"

	"fjacquet/travel-ledger/internal/config"
	"fjacquet/travel-ledger/internal/logging"
	"fjacquet/travel-ledger/internal/pipeline"
	"fjacquet/travel-ledger/internal/rawtable"
	"fjacquet/travel-ledger/internal/store"
	"fjacquet/travel-ledger/internal/store/csvstore"
	"fjacquet/travel-ledger/internal/store/sheets"
	"fjacquet/travel-ledger/internal/store/sqlstore"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation: all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger   logging.Logger
	config   *config.Config
	reader   *rawtable.Reader
	pipeline *pipeline.Pipeline
	store    store.Store
}

// Option customizes container construction.
type Option func(*options)

type options struct {
	logger    logging.Logger
	store     store.Store
	storeType string
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStore injects an already opened store.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithStoreType overrides store.type from the configuration, e.g. to run
// against the memory store.
func WithStoreType(storeType string) Option {
	return func(o *options) { o.storeType = storeType }
}

// NewContainer creates and wires all application dependencies.
// The store connection is opened here and released by Close.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	o := options{storeType: cfg.Store.Type}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	}

	p, err := pipeline.New(cfg.PipelineOptions(), logger)
	if err != nil {
		return nil, err
	}

	s := o.store
	if s == nil {
		s, err = openStore(ctx, o.storeType, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	logger.Info("Container initialized successfully",
		logging.F(logging.FieldStore, o.storeType),
		logging.F("aggregates_count", len(p.Aggregators())))

	return &Container{
		logger:   logger,
		config:   cfg,
		reader:   rawtable.NewReader(cfg.Delimiter(), logger),
		pipeline: p,
		store:    s,
	}, nil
}

func openStore(ctx context.Context, storeType string, cfg *config.Config, logger logging.Logger) (store.Store, error) {
	switch storeType {
	case store.TypeMemory:
		return store.NewMemory(logger), nil
	case store.TypeCSV:
		return csvstore.New(cfg.Store.CSV.Directory, cfg.Delimiter(), logger)
	case store.TypeSQLite, store.TypePostgres:
		dialect, err := sqlstore.DialectFor(storeType)
		if err != nil {
			return nil, err
		}
		return sqlstore.Open(ctx, dialect, cfg.Store.SQL.DSN, logger)
	case store.TypeSheets:
		return sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.Store.Sheets.SpreadsheetID,
			CredentialsFile: cfg.Store.Sheets.CredentialsFile,
			CredentialsJSON: cfg.Store.Sheets.CredentialsJSON,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown store type: %s", storeType)
	}
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetReader returns the raw export reader.
func (c *Container) GetReader() *rawtable.Reader {
	return c.reader
}

// GetPipeline returns the configured pipeline.
func (c *Container) GetPipeline() *pipeline.Pipeline {
	return c.pipeline
}

// GetStore returns the persistence backend.
func (c *Container) GetStore() store.Store {
	return c.store
}

// Close releases the store.
func (c *Container) Close() error {
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	c.logger.Debug("Container closed")
	return nil
}
