// Package store persists sheet bundles and reads tables back.
//
// Every backend has table-replace semantics: writing a table discards
// whatever was stored under that name before, nothing is merged or appended.
package store

import (
	"context"
	"time"

	"fjacquet/travel-ledger/internal/ledgererror"
	"fjacquet/travel-ledger/internal/logging"
	"fjacquet/travel-ledger/internal/models"
)

// Backend type names as used in configuration.
const (
	TypeSheets   = "sheets"
	TypeCSV      = "csv"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeMemory   = "memory"
)

// Types lists every supported backend.
func Types() []string {
	return []string{TypeSheets, TypeCSV, TypeSQLite, TypePostgres, TypeMemory}
}

// Sink accepts a bundle and fully overwrites each named table.
type Sink interface {
	Replace(ctx context.Context, bundle *models.Bundle) error
}

// Source reads a previously written table.
// A missing table yields an error wrapping ledgererror.ErrTableNotFound.
type Source interface {
	ReadTable(ctx context.Context, name string) (models.Table, error)
}

// Store is a backend that can both write and read back.
type Store interface {
	Sink
	Source
	Close() error
}

// TableWriter replaces a single table.
type TableWriter interface {
	ReplaceTable(ctx context.Context, table models.Table) error
}

// ReplaceBundle writes every table of bundle in order through w. It stops at
// the first failure or when ctx is done; tables already written stay written.
func ReplaceBundle(ctx context.Context, w TableWriter, bundle *models.Bundle, storeName string, logger logging.Logger) error {
	start := time.Now()
	for _, table := range bundle.Tables() {
		if err := ctx.Err(); err != nil {
			return &ledgererror.StoreError{Store: storeName, Table: table.Name, Op: "replace", Err: err}
		}
		if err := w.ReplaceTable(ctx, table); err != nil {
			logger.WithError(err).Error("Failed to write table",
				logging.F(logging.FieldStore, storeName),
				logging.F(logging.FieldTable, table.Name))
			return err
		}
		logger.Debug("Wrote table",
			logging.F(logging.FieldStore, storeName),
			logging.F(logging.FieldTable, table.Name),
			logging.F(logging.FieldRows, table.Len()))
	}
	logger.Info("Persisted bundle",
		logging.F(logging.FieldStore, storeName),
		logging.F(logging.FieldTables, bundle.Len()),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	return nil
}
