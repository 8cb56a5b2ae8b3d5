package schema

import (
	"strings"

	"github.com/mobilepoint/apexorder/internal/domain/models"
	"github.com/mobilepoint/apexorder/internal/service/codes"
)

const (
	SourceCatalog  = "catalog"
	SourceMovement = "movement"

	// DefaultMovementSkipRows is the number of title/metadata rows that
	// precede the header row in a SmartBill stock-movement report.
	DefaultMovementSkipRows = 9
)

// Options controls how raw tables are mapped to canonical records.
type Options struct {
	// PriceMultiplier converts the supplier list price to the unit price
	// (currency conversion and markup). Applied once, here.
	PriceMultiplier float64
	// MovementSkipRows leading rows are ignored before the movement header.
	MovementSkipRows int
	// MovementColumnStart and MovementColumnEnd select the column window
	// [start, end) of the movement report. End <= 0 leaves it open.
	MovementColumnStart int
	MovementColumnEnd   int
	Aliases             Aliases
}

// DefaultOptions returns the settings for the standard APEX/SmartBill pair.
func DefaultOptions() Options {
	return Options{
		PriceMultiplier:  1,
		MovementSkipRows: DefaultMovementSkipRows,
		Aliases:          DefaultAliases(),
	}
}

// Normalizer maps heterogeneous spreadsheet tables to canonical records.
type Normalizer struct {
	opts Options
}

// NewNormalizer builds a Normalizer, filling zero-valued options with defaults.
func NewNormalizer(opts Options) *Normalizer {
	def := DefaultOptions()
	if opts.PriceMultiplier <= 0 {
		opts.PriceMultiplier = def.PriceMultiplier
	}
	if opts.MovementSkipRows < 0 {
		opts.MovementSkipRows = 0
	}
	if opts.Aliases.Catalog == nil {
		opts.Aliases.Catalog = def.Aliases.Catalog
	}
	if opts.Aliases.Movement == nil {
		opts.Aliases.Movement = def.Aliases.Movement
	}
	return &Normalizer{opts: opts}
}

// Options returns the effective options.
func (n *Normalizer) Options() Options {
	return n.opts
}

// sourceRow is a data row paired with its 1-based position in the raw table.
type sourceRow struct {
	line  int
	cells []string
}

// NormalizeCatalog resolves the catalog header, drops blank rows and blank
// columns, and expands each row into one CatalogRecord per canonical code.
// Duplicate codes are kept and reported.
func (n *Normalizer) NormalizeCatalog(t models.Table) ([]models.CatalogRecord, []models.Warning, error) {
	var rows []sourceRow
	for i, r := range t.Rows {
		if !models.IsBlankRow(r) {
			rows = append(rows, sourceRow{line: i + 1, cells: r})
		}
	}
	if len(rows) == 0 {
		return nil, nil, &EmptyInputError{Source: SourceCatalog}
	}

	header, data := rows[0].cells, rows[1:]
	if len(data) > 0 {
		header = blankColumnsCleared(header, data)
	}

	cols, missing := n.opts.Aliases.Catalog.Resolve(header, CatalogFields)
	if len(missing) > 0 {
		return nil, nil, &SchemaError{Source: SourceCatalog, Missing: missing}
	}
	if len(data) == 0 {
		return nil, nil, &EmptyInputError{Source: SourceCatalog}
	}

	var (
		records  []models.CatalogRecord
		warnings []models.Warning
		seen     = make(map[string]struct{})
	)
	for _, row := range data {
		number := func(field Field) float64 {
			raw := cell(row.cells, cols[field])
			v, ok := ParseNumber(raw)
			if !ok {
				warnings = append(warnings, models.Warning{
					Code: models.WarnParse, Source: SourceCatalog, Row: row.line, Column: string(field), Value: raw,
				})
			}
			return v
		}

		name := cell(row.cells, cols[FieldName])
		availability := number(FieldAvailability)
		price := number(FieldPrice)
		if price < 0 {
			price = 0
		}
		unitPrice := price * n.opts.PriceMultiplier

		for _, code := range codes.Expand(CleanCell(cell(row.cells, cols[FieldCode]))) {
			if _, dup := seen[code]; dup {
				warnings = append(warnings, models.Warning{
					Code: models.WarnDuplicateCatalogCode, Source: SourceCatalog, Row: row.line, Column: string(FieldCode), Value: code,
				})
			}
			seen[code] = struct{}{}
			records = append(records, models.CatalogRecord{
				Code:         code,
				Name:         name,
				Availability: availability,
				UnitPrice:    unitPrice,
			})
		}
	}
	return records, warnings, nil
}

// NormalizeMovement skips the fixed leading rows, promotes the next row to
// the header, applies the column window and maps rows to MovementRecords.
// Rows without a code are dropped. A table too short to hold the header row
// is a SchemaError missing every movement field.
func (n *Normalizer) NormalizeMovement(t models.Table) ([]models.MovementRecord, []models.Warning, error) {
	skip := n.opts.MovementSkipRows
	if len(t.Rows) <= skip {
		return nil, nil, &SchemaError{Source: SourceMovement, Missing: append([]Field(nil), MovementFields...)}
	}

	header := n.window(t.Rows[skip])
	cols, missing := n.opts.Aliases.Movement.Resolve(header, MovementFields)
	if len(missing) > 0 {
		return nil, nil, &SchemaError{Source: SourceMovement, Missing: missing}
	}

	var (
		records  []models.MovementRecord
		warnings []models.Warning
	)
	for i := skip + 1; i < len(t.Rows); i++ {
		cells := n.window(t.Rows[i])
		if models.IsBlankRow(cells) {
			continue
		}
		code := CleanCell(cell(cells, cols[FieldCode]))
		if code == "" {
			continue
		}

		number := func(field Field) float64 {
			raw := cell(cells, cols[field])
			v, ok := ParseNumber(raw)
			if !ok {
				warnings = append(warnings, models.Warning{
					Code: models.WarnParse, Source: SourceMovement, Row: i + 1, Column: string(field), Value: raw,
				})
			}
			return v
		}

		records = append(records, models.MovementRecord{
			Code:        code,
			OutboundQty: number(FieldOutboundQty),
			FinalStock:  number(FieldFinalStock),
		})
	}
	if len(records) == 0 {
		return nil, warnings, &EmptyInputError{Source: SourceMovement}
	}
	return records, warnings, nil
}

func (n *Normalizer) window(row []string) []string {
	start, end := n.opts.MovementColumnStart, n.opts.MovementColumnEnd
	if start < 0 {
		start = 0
	}
	if start >= len(row) {
		return nil
	}
	if end <= 0 || end > len(row) {
		end = len(row)
	}
	if end <= start {
		return nil
	}
	return row[start:end]
}

// blankColumnsCleared returns a copy of header where columns with no data in
// any row are blanked out so they can never be resolved.
func blankColumnsCleared(header []string, data []sourceRow) []string {
	out := make([]string, len(header))
	for col := range header {
		for _, row := range data {
			if cell(row.cells, col) != "" {
				out[col] = header[col]
				break
			}
		}
	}
	return out
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
