package codes

import "strings"

const (
	segmentSeparator = "/"
	prefixDelimiter  = "-"
)

// Expand splits a composite catalog cell such as "GH82-26485A/26486A" into
// fully-qualified codes. Only the first segment is guaranteed to carry the
// prefix; bare suffixes inherit it up to and including its last "-".
// Segments that already contain a "-" are kept verbatim.
func Expand(raw string) []string {
	segments := split(raw)
	if len(segments) <= 1 {
		return segments
	}

	prefix := Prefix(segments[0])
	out := make([]string, 0, len(segments))
	out = append(out, segments[0])
	for _, seg := range segments[1:] {
		if strings.Contains(seg, prefixDelimiter) {
			out = append(out, seg)
			continue
		}
		out = append(out, prefix+seg)
	}
	return out
}

// ExpandCell is Expand for cells that may be missing entirely.
func ExpandCell(cell *string) []string {
	if cell == nil {
		return []string{}
	}
	return Expand(*cell)
}

// Prefix returns the leading part of code up to and including its last "-",
// or "" when code has none.
func Prefix(code string) string {
	idx := strings.LastIndex(code, prefixDelimiter)
	if idx < 0 {
		return ""
	}
	return code[:idx+1]
}

func split(raw string) []string {
	parts := strings.Split(strings.TrimSpace(raw), segmentSeparator)
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
