package reconcile

import (
	"fmt"
	"strings"

	"github.com/mobilepoint/apexorder/internal/domain/models"
)

// ConflictPolicy resolves several movement records sharing one code.
type ConflictPolicy string

const (
	// LastWriteWins keeps the record that appears last in the report.
	LastWriteWins ConflictPolicy = "last_write_wins"
	// FirstWriteWins keeps the record that appears first.
	FirstWriteWins ConflictPolicy = "first_write_wins"
)

// ParseConflictPolicy maps a config value to a policy; "" is LastWriteWins.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.TrimSpace(strings.ToLower(s))); p {
	case "":
		return LastWriteWins, nil
	case LastWriteWins, FirstWriteWins:
		return p, nil
	default:
		return "", fmt.Errorf("unknown movement conflict policy %q", s)
	}
}

// Index maps a movement code to the record chosen by the conflict policy.
type Index struct {
	byCode     map[string]models.MovementRecord
	duplicates []string
}

// BuildIndex indexes movements by code. Every code seen more than once is
// listed once in Duplicates, in order of first repetition.
func BuildIndex(movements []models.MovementRecord, policy ConflictPolicy) *Index {
	idx := &Index{byCode: make(map[string]models.MovementRecord, len(movements))}
	reported := make(map[string]bool)
	for _, m := range movements {
		if _, exists := idx.byCode[m.Code]; exists {
			if !reported[m.Code] {
				reported[m.Code] = true
				idx.duplicates = append(idx.duplicates, m.Code)
			}
			if policy == FirstWriteWins {
				continue
			}
		}
		idx.byCode[m.Code] = m
	}
	return idx
}

// Lookup returns the movement record for code.
func (i *Index) Lookup(code string) (models.MovementRecord, bool) {
	m, ok := i.byCode[code]
	return m, ok
}

// Duplicates lists codes that appeared more than once.
func (i *Index) Duplicates() []string {
	return i.duplicates
}

// Len is the number of distinct movement codes.
func (i *Index) Len() int {
	return len(i.byCode)
}

// Result is the left join of the catalog with the movement index.
type Result struct {
	Rows      []models.ReconciledRow
	Matched   int
	Unmatched []string // movement codes with no catalog counterpart, in report order
	Duplicate []string // movement codes resolved by the conflict policy
}

// Reconcile left-joins catalog records with movements by code. Every catalog
// record yields exactly one row in catalog order; misses get zero movement.
// OrderQty is left at 0 for the caller to compute.
func Reconcile(catalog []models.CatalogRecord, movements []models.MovementRecord, policy ConflictPolicy) Result {
	idx := BuildIndex(movements, policy)

	res := Result{
		Rows:      make([]models.ReconciledRow, 0, len(catalog)),
		Duplicate: idx.Duplicates(),
	}
	inCatalog := make(map[string]struct{}, len(catalog))
	for _, rec := range catalog {
		inCatalog[rec.Code] = struct{}{}
		row := models.ReconciledRow{
			Code:         rec.Code,
			Name:         rec.Name,
			Availability: rec.Availability,
			UnitPrice:    rec.UnitPrice,
		}
		if m, ok := idx.Lookup(rec.Code); ok {
			row.OutboundQty = m.OutboundQty
			row.FinalStock = m.FinalStock
			res.Matched++
		}
		res.Rows = append(res.Rows, row)
	}

	seen := make(map[string]struct{})
	for _, m := range movements {
		if _, ok := inCatalog[m.Code]; ok {
			continue
		}
		if _, dup := seen[m.Code]; dup {
			continue
		}
		seen[m.Code] = struct{}{}
		res.Unmatched = append(res.Unmatched, m.Code)
	}
	return res
}
