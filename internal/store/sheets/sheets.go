// Package sheets persists bundles into a Google spreadsheet, one tab per table.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fjacquet/travel-ledger/internal/ledgererror"
	"fjacquet/travel-ledger/internal/logging"
	"fjacquet/travel-ledger/internal/models"
	"fjacquet/travel-ledger/internal/store"
	"fjacquet/travel-ledger/internal/validation"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the service account used to reach it.
// With neither credential set, Application Default Credentials apply.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
}

// Store writes tables into tabs of one spreadsheet.
type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        logging.Logger

	mu     sync.Mutex
	titles map[string]bool
}

var _ store.Store = (*Store)(nil)

// New creates a Sheets client. Extra options are appended after the
// credential options.
func New(ctx context.Context, cfg Config, logger logging.Logger, opts ...goption.ClientOption) (*Store, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, &ledgererror.StoreError{Store: store.TypeSheets, Op: "connect", Err: errors.New("missing spreadsheet id")}
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}

	clientOpts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.Debug("Using inline service account credentials")
		clientOpts = append(clientOpts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		logger.Debug("Using service account credentials file", logging.F("path", cfg.CredentialsFile))
		if err := validation.PrivateFile(cfg.CredentialsFile); err != nil {
			logger.WithError(err).Warn("Credentials file is not private")
		}
		clientOpts = append(clientOpts, goption.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, &ledgererror.StoreError{Store: store.TypeSheets, Op: "connect", Err: fmt.Errorf("create sheets service: %w", err)}
	}

	return &Store{svc: svc, spreadsheetID: id, logger: logger}, nil
}

// Replace writes every table of bundle into its own tab.
func (s *Store) Replace(ctx context.Context, bundle *models.Bundle) error {
	if err := s.refreshTitles(ctx); err != nil {
		return &ledgererror.StoreError{Store: store.TypeSheets, Op: "list tabs", Err: err}
	}
	return store.ReplaceBundle(ctx, s, bundle, store.TypeSheets, s.logger)
}

// ReplaceTable adds the tab when missing, clears it and writes header and
// rows from A1 as raw values.
func (s *Store) ReplaceTable(ctx context.Context, table models.Table) error {
	fail := func(op string, err error) error {
		return &ledgererror.StoreError{Store: store.TypeSheets, Table: table.Name, Op: op, Err: err}
	}

	if err := s.ensureTab(ctx, table.Name); err != nil {
		return fail("add tab", err)
	}

	tab := quoteTitle(table.Name)
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, tab, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fail("clear", err)
	}

	matrix := table.Matrix()
	values := make([][]interface{}, len(matrix))
	for i, row := range matrix {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	vr := &gsheet.ValueRange{Values: values}
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, tab+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do(); err != nil {
		return fail("update", err)
	}
	return nil
}

// ReadTable reads a tab back. The first row is the header; short rows are
// padded since the API drops trailing empty cells.
func (s *Store) ReadTable(ctx context.Context, name string) (models.Table, error) {
	if err := s.refreshTitles(ctx); err != nil {
		return models.Table{}, &ledgererror.StoreError{Store: store.TypeSheets, Table: name, Op: "list tabs", Err: err}
	}
	if !s.hasTab(name) {
		return models.Table{}, fmt.Errorf("sheets store: %q: %w", name, ledgererror.ErrTableNotFound)
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, quoteTitle(name)).Context(ctx).Do()
	if err != nil {
		return models.Table{}, &ledgererror.StoreError{Store: store.TypeSheets, Table: name, Op: "read", Err: err}
	}
	if len(resp.Values) == 0 {
		return models.NewTable(name), nil
	}

	table := models.NewTable(name, cellStrings(resp.Values[0])...)
	for _, row := range resp.Values[1:] {
		table.Append(cellStrings(row)...)
	}

	s.logger.Debug("Read table",
		logging.F(logging.FieldStore, store.TypeSheets),
		logging.F(logging.FieldTable, name),
		logging.F(logging.FieldRows, table.Len()))
	return table, nil
}

// Close is a no-op; the HTTP client needs no teardown.
func (s *Store) Close() error {
	return nil
}

func (s *Store) refreshTitles(ctx context.Context) error {
	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return err
	}
	titles := make(map[string]bool, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			titles[sh.Properties.Title] = true
		}
	}

	s.mu.Lock()
	s.titles = titles
	s.mu.Unlock()
	return nil
}

func (s *Store) hasTab(title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.titles[title]
}

func (s *Store) ensureTab(ctx context.Context, title string) error {
	s.mu.Lock()
	known := s.titles != nil
	s.mu.Unlock()
	if !known {
		if err := s.refreshTitles(ctx); err != nil {
			return err
		}
	}
	if s.hasTab(title) {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return err
	}
	s.logger.Info("Added spreadsheet tab", logging.F(logging.FieldTable, title))

	s.mu.Lock()
	s.titles[title] = true
	s.mu.Unlock()
	return nil
}

// quoteTitle makes a tab title safe to use as an A1 range.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func cellStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}
