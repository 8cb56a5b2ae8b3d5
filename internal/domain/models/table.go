package models

import "strings"

// Table is an already-decoded rectangular-ish grid of spreadsheet cells.
// Rows may have different lengths; missing trailing cells read as "".
type Table struct {
	Name string
	Rows [][]string
}

// NewTable wraps rows under a display name used in warnings and logs.
func NewTable(name string, rows [][]string) Table {
	return Table{Name: name, Rows: rows}
}

// IsBlankRow reports whether every cell of the row is empty after trimming.
func IsBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
