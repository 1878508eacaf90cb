// Package ledgererror defines the error taxonomy of the ledger pipeline.
package ledgererror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrEmptyResult marks a structurally valid input that yields no rows once
// every filter has been applied. Callers distinguish it from schema failures
// with errors.Is.
var ErrEmptyResult = errors.New("no rows left after cleaning")

// SchemaError is returned when the raw table lacks required columns.
// It is fatal to the whole run.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// EmptyResultError carries the per-reason drop counts of a run that produced
// no canonical rows.
type EmptyResultError struct {
	Input int
	Drops map[string]int
}

func (e *EmptyResultError) Error() string {
	if len(e.Drops) == 0 {
		return fmt.Sprintf("%s (%d input rows)", ErrEmptyResult.Error(), e.Input)
	}
	reasons := make([]string, 0, len(e.Drops))
	for reason, n := range e.Drops {
		reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
	}
	sort.Strings(reasons)
	return fmt.Sprintf("%s (%d input rows; dropped %s)", ErrEmptyResult.Error(), e.Input, strings.Join(reasons, ", "))
}

func (e *EmptyResultError) Unwrap() error {
	return ErrEmptyResult
}

// StoreError wraps a persistence failure for a single table.
type StoreError struct {
	Store string
	Table string
	Op    string
	Err   error
}

func (e *StoreError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s store: %s failed: %v", e.Store, e.Op, e.Err)
	}
	return fmt.Sprintf("%s store: %s %q failed: %v", e.Store, e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ErrTableNotFound is returned by sources asked for a table they do not hold.
var ErrTableNotFound = errors.New("table not found")

// IsSchemaError reports whether err is, or wraps, a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
