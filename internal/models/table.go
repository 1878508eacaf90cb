package models

// Table is a named, rectangular summary table ready for persistence.
// Cells are already formatted; the persistence layer stores them verbatim.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// NewTable creates an empty table with the given header.
func NewTable(name string, columns ...string) Table {
	return Table{
		Name:    name,
		Columns: columns,
		Rows:    [][]string{},
	}
}

// Append adds a row. Short rows are padded, long rows truncated to the header width.
func (t *Table) Append(values ...string) {
	row := make([]string, len(t.Columns))
	copy(row, values)
	t.Rows = append(t.Rows, row)
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// IsEmpty reports whether the table has no data rows.
func (t Table) IsEmpty() bool {
	return len(t.Rows) == 0
}

// ColumnIndex returns the position of a column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row for the named column, or "" when absent.
func (t Table) Value(row int, column string) string {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// RawTable converts the table back into column-keyed rows, e.g. to re-feed a
// persisted Cleaned_Data sheet through the canonicalizer.
func (t Table) RawTable() RawTable {
	records := make([]RawRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(RawRecord, len(t.Columns))
		for i, c := range t.Columns {
			if i < len(row) {
				rec[c] = row[i]
			} else {
				rec[c] = ""
			}
		}
		records = append(records, rec)
	}
	return RawTable{Columns: append([]string(nil), t.Columns...), Records: records}
}

// Matrix returns header plus rows, the shape expected by spreadsheet writers.
func (t Table) Matrix() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), t.Columns...))
	for _, row := range t.Rows {
		out = append(out, append([]string(nil), row...))
	}
	return out
}

// Bundle is the ordered set of named tables produced by one pipeline run.
type Bundle struct {
	tables []Table
	index  map[string]int
}

// NewBundle creates a bundle from tables, keeping the given order.
// A later table with the same name replaces the earlier one in place.
func NewBundle(tables ...Table) *Bundle {
	b := &Bundle{index: make(map[string]int, len(tables))}
	for _, t := range tables {
		b.Put(t)
	}
	return b
}

// Put adds or replaces a table by name.
func (b *Bundle) Put(t Table) {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	if i, ok := b.index[t.Name]; ok {
		b.tables[i] = t
		return
	}
	b.index[t.Name] = len(b.tables)
	b.tables = append(b.tables, t)
}

// Get returns the named table.
func (b *Bundle) Get(name string) (Table, bool) {
	if b == nil {
		return Table{}, false
	}
	i, ok := b.index[name]
	if !ok {
		return Table{}, false
	}
	return b.tables[i], true
}

// Tables returns the tables in insertion order.
func (b *Bundle) Tables() []Table {
	if b == nil {
		return nil
	}
	out := make([]Table, len(b.tables))
	copy(out, b.tables)
	return out
}

// Names returns the table names in insertion order.
func (b *Bundle) Names() []string {
	if b == nil {
		return nil
	}
	names := make([]string, len(b.tables))
	for i, t := range b.tables {
		names[i] = t.Name
	}
	return names
}

// Len returns the number of tables.
func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}
	return len(b.tables)
}
