// Package csvstore persists each table of a bundle as <name>.csv in a directory.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fjacquet/travel-ledger/internal/canonical"
	"fjacquet/travel-ledger/internal/ledgererror"
	"fjacquet/travel-ledger/internal/logging"
	"fjacquet/travel-ledger/internal/models"
	"fjacquet/travel-ledger/internal/store"

	"github.com/gocarina/gocsv"
)

// cleanedRow is one line of the persisted Cleaned_Data table.
type cleanedRow struct {
	Date     string `csv:"Date"`
	Amount   string `csv:"Amount"`
	Category string `csv:"Category"`
	Country  string `csv:"Country"`
	Month    string `csv:"Month"`
}

// Store writes tables as delimited files.
type Store struct {
	dir       string
	delimiter rune
	logger    logging.Logger
}

var _ store.Store = (*Store)(nil)

// New creates the directory if needed and returns a Store writing into it.
func New(dir string, delimiter rune, logger logging.Logger) (*Store, error) {
	if dir == "" {
		return nil, &ledgererror.StoreError{Store: store.TypeCSV, Op: "open", Err: errors.New("no directory configured")}
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, &ledgererror.StoreError{Store: store.TypeCSV, Op: "open", Err: err}
	}
	if delimiter == 0 {
		delimiter = ','
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Store{dir: dir, delimiter: delimiter, logger: logger}, nil
}

// Path returns the file a table is stored in.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name)+".csv")
}

// Replace writes every table of bundle.
func (s *Store) Replace(ctx context.Context, bundle *models.Bundle) error {
	return store.ReplaceBundle(ctx, s, bundle, store.TypeCSV, s.logger)
}

// ReplaceTable writes table to a temporary file and renames it over the
// previous version, so readers never see a half-written table.
func (s *Store) ReplaceTable(_ context.Context, table models.Table) error {
	fail := func(err error) error {
		return &ledgererror.StoreError{Store: store.TypeCSV, Table: table.Name, Op: "replace", Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(table.Name)+".*.tmp")
	if err != nil {
		return fail(err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	w := csv.NewWriter(tmp)
	w.Comma = s.delimiter
	safe := gocsv.NewSafeCSVWriter(w)
	for _, row := range table.Matrix() {
		if err := safe.Write(row); err != nil {
			_ = tmp.Close()
			return fail(err)
		}
	}
	safe.Flush()
	if err := safe.Error(); err != nil {
		_ = tmp.Close()
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}

	if err := os.Rename(tmp.Name(), s.Path(table.Name)); err != nil {
		return fail(err)
	}
	return nil
}

// ReadTable loads a stored table. Cleaned_Data is decoded through its typed
// row so the canonical columns come back in canonical order.
func (s *Store) ReadTable(_ context.Context, name string) (models.Table, error) {
	path := s.Path(name)
	file, err := os.Open(path) // #nosec G304 -- path is built from the configured directory
	if errors.Is(err, os.ErrNotExist) {
		return models.Table{}, fmt.Errorf("csv store: %q: %w", name, ledgererror.ErrTableNotFound)
	}
	if err != nil {
		return models.Table{}, &ledgererror.StoreError{Store: store.TypeCSV, Table: name, Op: "read", Err: err}
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close table file", logging.F(logging.FieldTable, name))
		}
	}()

	var table models.Table
	if name == canonical.CleanedDataSheet {
		table, err = s.readCleaned(file)
	} else {
		table, err = s.readGeneric(name, file)
	}
	if err != nil {
		return models.Table{}, &ledgererror.StoreError{Store: store.TypeCSV, Table: name, Op: "read", Err: err}
	}

	s.logger.Debug("Read table",
		logging.F(logging.FieldStore, store.TypeCSV),
		logging.F(logging.FieldTable, name),
		logging.F(logging.FieldRows, table.Len()))
	return table, nil
}

func (s *Store) reader(in io.Reader) *csv.Reader {
	r := csv.NewReader(in)
	r.Comma = s.delimiter
	r.FieldsPerRecord = -1
	return r
}

func (s *Store) readGeneric(name string, in io.Reader) (models.Table, error) {
	records, err := s.reader(in).ReadAll()
	if err != nil {
		return models.Table{}, err
	}
	if len(records) == 0 {
		return models.NewTable(name), nil
	}
	table := models.NewTable(name, records[0]...)
	for _, rec := range records[1:] {
		table.Append(rec...)
	}
	return table, nil
}

func (s *Store) readCleaned(in io.ReadSeeker) (models.Table, error) {
	header, err := s.reader(in).Read()
	if errors.Is(err, io.EOF) {
		return models.NewTable(canonical.CleanedDataSheet), nil
	}
	if err != nil {
		return models.Table{}, err
	}
	hasCountry := false
	for _, h := range header {
		if h == canonical.ColumnCountry {
			hasCountry = true
		}
	}

	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return models.Table{}, err
	}
	var rows []cleanedRow
	if err := gocsv.UnmarshalCSV(s.reader(in), &rows); err != nil {
		return models.Table{}, err
	}

	columns := []string{canonical.ColumnDate, canonical.ColumnAmount, canonical.ColumnCategory}
	if hasCountry {
		columns = append(columns, canonical.ColumnCountry)
	}
	columns = append(columns, canonical.ColumnMonth)

	table := models.NewTable(canonical.CleanedDataSheet, columns...)
	for _, r := range rows {
		values := []string{r.Date, r.Amount, r.Category}
		if hasCountry {
			values = append(values, r.Country)
		}
		table.Append(append(values, r.Month)...)
	}
	return table, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
