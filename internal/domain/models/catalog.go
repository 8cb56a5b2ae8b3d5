package models

// CatalogRecord is one canonical product code taken from the supplier catalog.
type CatalogRecord struct {
	Code         string
	Name         string
	Availability float64
	UnitPrice    float64 // list price with the currency/markup multiplier already applied
}

// MovementRecord captures outbound quantity and closing stock for one code in
// the stock-movement report.
type MovementRecord struct {
	Code        string
	OutboundQty float64
	FinalStock  float64
}

// ReconciledRow is a catalog record joined with at most one movement record.
type ReconciledRow struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Availability float64 `json:"availability"`
	UnitPrice    float64 `json:"unitPrice"`
	OutboundQty  float64 `json:"outboundQty"`
	FinalStock   float64 `json:"finalStock"`
	OrderQty     int     `json:"orderQty"`
}

// OrderValue is the line total for the computed order quantity.
func (r ReconciledRow) OrderValue() float64 {
	return float64(r.OrderQty) * r.UnitPrice
}
