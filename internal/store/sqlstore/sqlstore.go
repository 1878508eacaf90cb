// Package sqlstore persists bundles into a SQL database, one table per sheet.
// SQLite goes through modernc.org/sqlite, PostgreSQL through pgx's
// database/sql driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/travel-ledger/internal/ledgererror"
	"fjacquet/travel-ledger/internal/logging"
	"fjacquet/travel-ledger/internal/models"
	"fjacquet/travel-ledger/internal/store"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// rowColumn keeps the original row order of a table.
const rowColumn = "_row"

// Dialect captures the differences between the supported databases.
type Dialect struct {
	Name   string
	Driver string
	// Placeholder returns the bind marker of the n-th parameter, from 1.
	Placeholder func(n int) string
}

var (
	SQLite = Dialect{
		Name:        store.TypeSQLite,
		Driver:      "sqlite",
		Placeholder: func(int) string { return "?" },
	}
	Postgres = Dialect{
		Name:        store.TypePostgres,
		Driver:      "pgx",
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}
)

// DialectFor returns the dialect of a store type.
func DialectFor(storeType string) (Dialect, error) {
	switch storeType {
	case store.TypeSQLite:
		return SQLite, nil
	case store.TypePostgres:
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql store type: %s", storeType)
	}
}

// Store writes tables into a database. Every cell is stored as TEXT.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  logging.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string, logger logging.Logger) (*Store, error) {
	fail := func(err error) error {
		return &ledgererror.StoreError{Store: dialect.Name, Op: "connect", Err: err}
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fail(errors.New("no dsn configured"))
	}

	if dialect.Name == store.TypeSQLite && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0750); err != nil {
			return nil, fail(err)
		}
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fail(err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fail(err)
	}
	if dialect.Name == store.TypeSQLite {
		// A single connection serializes writers on the database file.
		db.SetMaxOpenConns(1)
	}
	return New(db, dialect, logger), nil
}

// New wraps an open database.
func New(db *sql.DB, dialect Dialect, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Store{db: db, dialect: dialect, logger: logger}
}

// Replace writes every table of bundle, each in its own transaction.
func (s *Store) Replace(ctx context.Context, bundle *models.Bundle) error {
	return store.ReplaceBundle(ctx, s, bundle, s.dialect.Name, s.logger)
}

// ReplaceTable drops and recreates the table and inserts every row inside
// one transaction.
func (s *Store) ReplaceTable(ctx context.Context, table models.Table) (err error) {
	fail := func(err error) error {
		return &ledgererror.StoreError{Store: s.dialect.Name, Table: table.Name, Op: "replace", Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.WithError(rbErr).Warn("Rollback failed", logging.F(logging.FieldTable, table.Name))
			}
		}
	}()

	name := quoteIdent(table.Name)
	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fail(err)
	}

	defs := make([]string, 0, len(table.Columns)+1)
	defs = append(defs, quoteIdent(rowColumn)+" INTEGER NOT NULL")
	for _, c := range table.Columns {
		defs = append(defs, quoteIdent(c)+" TEXT")
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))); err != nil {
		return fail(err)
	}

	if len(table.Rows) > 0 {
		stmt, prepErr := tx.PrepareContext(ctx, s.insertSQL(table))
		if prepErr != nil {
			err = prepErr
			return fail(err)
		}
		defer func() {
			_ = stmt.Close()
		}()

		args := make([]any, len(table.Columns)+1)
		for i, row := range table.Rows {
			args[0] = i
			for j := range table.Columns {
				args[j+1] = row[j]
			}
			if _, err = stmt.ExecContext(ctx, args...); err != nil {
				return fail(err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fail(err)
	}
	return nil
}

func (s *Store) insertSQL(table models.Table) string {
	cols := make([]string, 0, len(table.Columns)+1)
	marks := make([]string, 0, len(table.Columns)+1)
	cols = append(cols, quoteIdent(rowColumn))
	marks = append(marks, s.dialect.Placeholder(1))
	for i, c := range table.Columns {
		cols = append(cols, quoteIdent(c))
		marks = append(marks, s.dialect.Placeholder(i+2))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// ReadTable loads a table in its original row order.
func (s *Store) ReadTable(ctx context.Context, name string) (models.Table, error) {
	fail := func(err error) error {
		return &ledgererror.StoreError{Store: s.dialect.Name, Table: name, Op: "read", Err: err}
	}

	exists, err := s.tableExists(ctx, name)
	if err != nil {
		return models.Table{}, fail(err)
	}
	if !exists {
		return models.Table{}, fmt.Errorf("%s store: %q: %w", s.dialect.Name, name, ledgererror.ErrTableNotFound)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY %s", quoteIdent(name), quoteIdent(rowColumn)))
	if err != nil {
		return models.Table{}, fail(err)
	}
	defer func() {
		_ = rows.Close()
	}()

	columns, err := rows.Columns()
	if err != nil {
		return models.Table{}, fail(err)
	}
	if len(columns) == 0 || columns[0] != rowColumn {
		return models.Table{}, fail(fmt.Errorf("unexpected layout, first column %v", columns))
	}

	table := models.NewTable(name, columns[1:]...)
	for rows.Next() {
		var pos int64
		cells := make([]sql.NullString, len(columns)-1)
		dest := make([]any, len(columns))
		dest[0] = &pos
		for i := range cells {
			dest[i+1] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return models.Table{}, fail(err)
		}
		values := make([]string, len(cells))
		for i, c := range cells {
			values[i] = c.String
		}
		table.Append(values...)
	}
	if err := rows.Err(); err != nil {
		return models.Table{}, fail(err)
	}
	return table, nil
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var query string
	switch s.dialect.Name {
	case store.TypePostgres:
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
	default:
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
