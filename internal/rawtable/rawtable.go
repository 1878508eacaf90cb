// Package rawtable reads an uploaded delimited expense export into
// column-keyed rows.
package rawtable

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fjacquet/travel-ledger/internal/logging"
	"fjacquet/travel-ledger/internal/models"
)

// ErrNoHeader is returned for an input without a header row.
var ErrNoHeader = errors.New("csv input has no header row")

const bom = "\ufeff"

// Reader parses delimited files. Rows shorter than the header are padded with
// empty cells, cells beyond the header are ignored and blank lines skipped.
type Reader struct {
	delimiter rune
	logger    logging.Logger
}

// NewReader creates a Reader. A zero delimiter means comma.
func NewReader(delimiter rune, logger logging.Logger) *Reader {
	if delimiter == 0 {
		delimiter = ','
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Reader{delimiter: delimiter, logger: logger}
}

// ReadFile reads the file at path.
func (r *Reader) ReadFile(path string) (models.RawTable, error) {
	r.logger.Info("Reading raw ledger",
		logging.F(logging.FieldInputFile, path),
		logging.F(logging.FieldDelimiter, string(r.delimiter)))

	file, err := os.Open(path) // #nosec G304 -- path is the user-supplied upload
	if err != nil {
		return models.RawTable{}, fmt.Errorf("error opening input file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			r.logger.WithError(err).Warn("Failed to close input file",
				logging.F(logging.FieldInputFile, path))
		}
	}()

	table, err := r.Read(file)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("error reading %s: %w", path, err)
	}
	return table, nil
}

// Read parses a delimited stream. The first non-blank line is the header.
func (r *Reader) Read(in io.Reader) (models.RawTable, error) {
	br := bufio.NewReader(in)
	if head, err := br.Peek(len(bom)); err == nil && string(head) == bom {
		_, _ = br.Discard(len(bom))
	}

	cr := csv.NewReader(br)
	cr.Comma = r.delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return models.RawTable{}, ErrNoHeader
	}
	if err != nil {
		return models.RawTable{}, fmt.Errorf("error parsing header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	table := models.RawTable{Columns: columns}
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.RawTable{}, fmt.Errorf("error parsing row: %w", err)
		}

		rec := make(models.RawRecord, len(columns))
		for i, col := range columns {
			if i < len(fields) {
				rec[col] = fields[i]
			} else {
				rec[col] = ""
			}
		}
		table.Records = append(table.Records, rec)
	}

	r.logger.Debug("Read raw ledger",
		logging.F(logging.FieldCount, len(table.Records)))
	return table, nil
}
