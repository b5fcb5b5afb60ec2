// Package table holds the in-memory tabular datasets exchanged between the
// spreadsheet loader and the reconciliation core.
package table

import "strings"

// Table is a rectangular dataset addressed by header name.
// Rows may be shorter than the header; missing trailing cells read as "".
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string

	index map[string]int
}

// New creates a table. Header names are trimmed; the first occurrence of a
// duplicated header wins.
func New(name string, columns []string, rows [][]string) *Table {
	t := &Table{
		Name:    name,
		Columns: make([]string, len(columns)),
		Rows:    rows,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		c = strings.TrimSpace(c)
		t.Columns[i] = c
		if _, dup := t.index[c]; !dup && c != "" {
			t.index[c] = i
		}
	}
	return t
}

// FromRecords builds a table whose header is the first non-blank record.
func FromRecords(name string, records [][]string) *Table {
	for i, rec := range records {
		if isBlank(rec) {
			continue
		}
		var rows [][]string
		for _, r := range records[i+1:] {
			if isBlank(r) {
				continue
			}
			rows = append(rows, r)
		}
		return New(name, rec, rows)
	}
	return New(name, nil, nil)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the table carries the named column.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Value returns the trimmed cell at row/column, or "" when either is absent.
func (t *Table) Value(row int, column string) string {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

// Missing returns the columns from want that the table lacks, in order.
func (t *Table) Missing(want ...string) []string {
	var missing []string
	for _, c := range want {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
