package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var delimiters = []rune{',', ';', '\t'}

// ReadCSV decodes a CSV stream. A UTF-8 or UTF-16 BOM overrides enc. The
// delimiter is sniffed from the leading lines.
func ReadCSV(r io.Reader, enc encoding.Encoding) ([][]string, error) {
	if enc == nil {
		enc = unicode.UTF8
	}
	decoded, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())))
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = sniffDelimiter(decoded)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	// encoding/csv drops empty lines; they are kept as empty rows so fixed
	// row offsets (report preambles) still line up with the file.
	var (
		rows     [][]string
		consumed int64
		newlines int
	)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		for blank := line - (newlines + 1); blank > 0; blank-- {
			rows = append(rows, []string{})
		}
		rows = append(rows, rec)

		offset := reader.InputOffset()
		newlines += bytes.Count(decoded[consumed:offset], []byte{'\n'})
		consumed = offset
	}
	return rows, nil
}

// sniffDelimiter picks the candidate with the most occurrences across the
// leading non-empty lines. Report exports often start with a title line that
// contains no delimiter at all.
func sniffDelimiter(data []byte) rune {
	const sampleLines = 20

	counts := make(map[rune]int, len(delimiters))
	sampled := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, d := range delimiters {
			counts[d] += strings.Count(line, string(d))
		}
		if sampled++; sampled == sampleLines {
			break
		}
	}

	best, bestCount := ',', 0
	for _, d := range delimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}
