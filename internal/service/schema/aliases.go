package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is a canonical column of one of the two input sources.
type Field string

const (
	FieldCode         Field = "code"
	FieldName         Field = "name"
	FieldAvailability Field = "availability"
	FieldPrice        Field = "price"
	FieldOutboundQty  Field = "outboundQty"
	FieldFinalStock   Field = "finalStock"
)

// CatalogFields and MovementFields list the required canonical columns in
// the order they are reported when missing.
var (
	CatalogFields  = []Field{FieldCode, FieldName, FieldAvailability, FieldPrice}
	MovementFields = []Field{FieldCode, FieldOutboundQty, FieldFinalStock}
)

// AliasTable maps a canonical field to its accepted header spellings in
// priority order. The first spelling present in a header row wins.
type AliasTable map[Field][]string

// Aliases holds one alias table per input source.
type Aliases struct {
	Catalog  AliasTable `json:"catalog"`
	Movement AliasTable `json:"movement"`
}

// DefaultAliases returns the header spellings seen in APEX catalog exports
// and SmartBill stock-movement reports, plus English fallbacks.
func DefaultAliases() Aliases {
	return Aliases{
		Catalog: AliasTable{
			FieldCode:         {"cod", "code", "cod produs", "cod articol", "product code", "sku", "part number"},
			FieldName:         {"denumire", "denumire produs", "nume", "name", "product name", "descriere", "description"},
			FieldAvailability: {"disponibilitate", "disponibil", "stoc", "stoc furnizor", "availability", "stock", "qty available"},
			FieldPrice:        {"pret", "pret lista", "pret furnizor", "price", "list price", "unit price"},
		},
		Movement: AliasTable{
			FieldCode:        {"cod", "code", "cod produs", "cod articol", "product code", "sku"},
			FieldOutboundQty: {"iesiri", "iesiri cantitate", "cantitate iesiri", "outbound", "outbound qty"},
			FieldFinalStock:  {"stoc final", "stoc final cantitate", "final stock", "closing stock"},
		},
	}
}

// LoadAliases reads a JSON alias override file. Fields present in the file
// replace the default spellings for that field; absent fields keep defaults.
func LoadAliases(path string) (Aliases, error) {
	aliases := DefaultAliases()
	if path == "" {
		return aliases, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Aliases{}, fmt.Errorf("read aliases file %s: %w", path, err)
	}

	var override Aliases
	if err := json.Unmarshal(raw, &override); err != nil {
		return Aliases{}, fmt.Errorf("decode aliases file %s: %w", path, err)
	}

	aliases.Catalog = merge(aliases.Catalog, override.Catalog)
	aliases.Movement = merge(aliases.Movement, override.Movement)
	return aliases, nil
}

func merge(base, override AliasTable) AliasTable {
	out := make(AliasTable, len(base))
	for field, spellings := range base {
		out[field] = spellings
	}
	for field, spellings := range override {
		if len(spellings) > 0 {
			out[field] = spellings
		}
	}
	return out
}

// Resolve maps each required field to the index of the first header column
// matching one of its aliases. Fields with no matching column are returned
// in missing, in the order given by required.
func (t AliasTable) Resolve(header []string, required []Field) (columns map[Field]int, missing []Field) {
	folded := make(map[string]int, len(header))
	for i, h := range header {
		key := FoldHeader(h)
		if key == "" {
			continue
		}
		if _, seen := folded[key]; !seen {
			folded[key] = i
		}
	}

	columns = make(map[Field]int, len(required))
	for _, field := range required {
		found := false
		for _, alias := range t[field] {
			if idx, ok := folded[FoldHeader(alias)]; ok {
				columns[field] = idx
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, field)
		}
	}
	return columns, missing
}

// FoldHeader lower-cases a header, strips diacritics ("Ieșiri" -> "iesiri")
// and collapses internal whitespace.
func FoldHeader(h string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, h)
	if err != nil {
		folded = h
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
