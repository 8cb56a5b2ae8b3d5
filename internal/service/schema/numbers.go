package schema

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseNumber coerces a spreadsheet cell to a float. Empty cells are 0 and
// ok. Text that is not a finite number is 0 and not ok. Both "1.234,50" and
// "1,234.50" are accepted; a lone comma is read as the decimal separator.
func ParseNumber(cell string) (value float64, ok bool) {
	s := CleanCell(cell)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, true
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CleanCell trims whitespace and the ="..." wrapper spreadsheet exports use
// to keep codes from being read as numbers.
// Only an exact ="..." wrapper is removed; stray quotes or equals signs stay.
func CleanCell(cell string) string {
	cell = strings.TrimSpace(cell)
	if len(cell) >= 3 && strings.HasPrefix(cell, `="`) && strings.HasSuffix(cell, `"`) {
		cell = strings.TrimSpace(cell[2 : len(cell)-1])
	}
	return cell
}
