package models

import "fmt"

// WarningCode categorizes non-fatal issues raised while building an order.
type WarningCode string

const (
	WarnParse                 WarningCode = "parse"                   // numeric cell defaulted to 0
	WarnDuplicateCatalogCode  WarningCode = "duplicate_catalog_code"  // expansion produced a code twice
	WarnDuplicateMovementCode WarningCode = "duplicate_movement_code" // resolved by the conflict policy
	WarnUnmatchedMovement     WarningCode = "unmatched_movement"      // movement code absent from catalog
	WarnEmptyInput            WarningCode = "empty_input"             // a source had no data rows
)

// Warning represents a non-fatal issue encountered during a pipeline run.
type Warning struct {
	Code   WarningCode `json:"code"`
	Source string      `json:"source"`
	Row    int         `json:"row,omitempty"` // 1-based row in the source table, 0 when not row-bound
	Column string      `json:"column,omitempty"`
	Value  string      `json:"value,omitempty"`
}

func (w Warning) String() string {
	if w.Row > 0 {
		return fmt.Sprintf("%s: %s row %d %s=%q", w.Code, w.Source, w.Row, w.Column, w.Value)
	}
	return fmt.Sprintf("%s: %s %q", w.Code, w.Source, w.Value)
}
