// Package tabular decodes uploaded CSV and spreadsheet files into raw
// models.Table grids. It performs no header interpretation.
package tabular

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/mobilepoint/apexorder/internal/domain/models"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor xlsx.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format is a decodable file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Options tune decoding.
type Options struct {
	// Encoding of CSV input without a BOM: "utf-8" (default),
	// "windows-1250" or "iso-8859-2".
	Encoding string
	// Sheet selects the xlsx worksheet; "" reads the first sheet.
	Sheet string
}

// DetectFormat picks a format from a file name, falling back to the MIME
// type when the name has no usable extension.
func DetectFormat(name, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return "", fmt.Errorf("%w: legacy .xls workbooks must be re-saved as .xlsx", ErrUnsupportedFormat)
	}

	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mediaType {
	case "text/csv", "text/plain", "application/csv":
		return FormatCSV, nil
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// Read decodes r according to the format detected from name/contentType.
func Read(name, contentType string, r io.Reader, opts Options) (models.Table, error) {
	format, err := DetectFormat(name, contentType)
	if err != nil {
		return models.Table{}, err
	}

	var rows [][]string
	switch format {
	case FormatXLSX:
		rows, err = ReadXLSX(r, opts.Sheet)
	default:
		var enc encoding.Encoding
		enc, err = LookupEncoding(opts.Encoding)
		if err != nil {
			return models.Table{}, err
		}
		rows, err = ReadCSV(r, enc)
	}
	if err != nil {
		return models.Table{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return models.NewTable(filepath.Base(name), rows), nil
}

// LookupEncoding resolves a configured CSV encoding name.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "windows-1250", "cp1250":
		return charmap.Windows1250, nil
	case "iso-8859-2", "latin2":
		return charmap.ISO8859_2, nil
	default:
		return nil, fmt.Errorf("unknown csv encoding %q", name)
	}
}
