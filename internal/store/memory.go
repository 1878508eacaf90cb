package store

import (
	"context"
	"fmt"
	"sync"

	"fjacquet/travel-ledger/internal/ledgererror"
	"fjacquet/travel-ledger/internal/logging"
	"fjacquet/travel-ledger/internal/models"
)

// Memory keeps tables in process. It backs dry runs and tests.
type Memory struct {
	mu     sync.Mutex
	tables map[string]models.Table
	order  []string
	writes int
	logger logging.Logger

	// ReplaceErr, when set, fails every table write.
	ReplaceErr error
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory(logger logging.Logger) *Memory {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Memory{tables: make(map[string]models.Table), logger: logger}
}

// Replace stores every table of bundle.
func (m *Memory) Replace(ctx context.Context, bundle *models.Bundle) error {
	return ReplaceBundle(ctx, m, bundle, TypeMemory, m.logger)
}

// ReplaceTable stores a copy of table under its name.
func (m *Memory) ReplaceTable(_ context.Context, table models.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReplaceErr != nil {
		return &ledgererror.StoreError{Store: TypeMemory, Table: table.Name, Op: "replace", Err: m.ReplaceErr}
	}
	if _, ok := m.tables[table.Name]; !ok {
		m.order = append(m.order, table.Name)
	}
	m.tables[table.Name] = copyTable(table)
	m.writes++
	return nil
}

// ReadTable returns a copy of the named table.
func (m *Memory) ReadTable(_ context.Context, name string) (models.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table, ok := m.tables[name]
	if !ok {
		return models.Table{}, fmt.Errorf("memory store: %q: %w", name, ledgererror.ErrTableNotFound)
	}
	return copyTable(table), nil
}

// Names returns the stored table names in first-write order.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Writes returns the number of table writes so far.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

func copyTable(t models.Table) models.Table {
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string(nil), r...)
	}
	return models.Table{Name: t.Name, Columns: append([]string(nil), t.Columns...), Rows: rows}
}
