// Package export serializes a reconciled order table for download or for
// writing back to a spreadsheet.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/mobilepoint/apexorder/internal/domain/models"
)

const (
	// DefaultBaseName is the file name offered for download, without extension.
	DefaultBaseName = "apex_comanda"
	sheetName       = "Comanda"
)

var (
	orderColumns      = []string{"code", "name", "availability", "unitPrice", "orderQty"}
	diagnosticColumns = []string{"outboundQty", "finalStock"}
)

// Header returns the column names in canonical order.
func Header(diagnostics bool) []string {
	cols := append([]string(nil), orderColumns...)
	if diagnostics {
		cols = append(cols, diagnosticColumns...)
	}
	return cols
}

// Values returns one row of typed cell values matching Header.
func Values(row models.ReconciledRow, diagnostics bool) []interface{} {
	values := []interface{}{row.Code, row.Name, row.Availability, row.UnitPrice, row.OrderQty}
	if diagnostics {
		values = append(values, row.OutboundQty, row.FinalStock)
	}
	return values
}

// Records renders the header and rows as strings.
func Records(rows []models.ReconciledRow, diagnostics bool) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, Header(diagnostics))
	for _, row := range rows {
		rec := []string{
			row.Code,
			row.Name,
			formatNumber(row.Availability),
			strconv.FormatFloat(row.UnitPrice, 'f', 2, 64),
			strconv.Itoa(row.OrderQty),
		}
		if diagnostics {
			rec = append(rec, formatNumber(row.OutboundQty), formatNumber(row.FinalStock))
		}
		out = append(out, rec)
	}
	return out
}

// WriteCSV writes a UTF-8 CSV with a BOM so spreadsheet apps detect the
// encoding of diacritics in product names.
func WriteCSV(w io.Writer, rows []models.ReconciledRow, diagnostics bool) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.WriteAll(Records(rows, diagnostics)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook with typed numeric cells.
func WriteXLSX(w io.Writer, rows []models.ReconciledRow, diagnostics bool) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := Header(diagnostics)
	headerCells := make([]interface{}, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerCells); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := Values(row, diagnostics)
		if err := f.SetSheetRow(sheetName, cellRef, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
