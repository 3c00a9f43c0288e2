package supplier

import (
	"time"

	"github.com/opencircuit/core/engine/domain"
)

const defaultHTTPTimeout = 30 * time.Second

// wireComponent is the JSON shape an upstream parts-catalog endpoint is
// expected to return. Specifications arrive as plain string key/value
// pairs; HTTPSource stores them as domain.SpecValue text values, leaving
// richer typing (numeric, range) to whatever later re-indexes the part.
type wireComponent struct {
	PartNumber     string            `json:"part_number"`
	Manufacturer   string            `json:"manufacturer"`
	Category       string            `json:"category"`
	Description    string            `json:"description"`
	DatasheetURL   string            `json:"datasheet_url"`
	Footprint      string            `json:"footprint"`
	Specifications map[string]string `json:"specifications"`
	UnitPrice      float64           `json:"unit_price"`
	Currency       string            `json:"currency"`
	StockQty       int               `json:"stock_qty"`
	LeadTimeDays   int               `json:"lead_time_days"`
}

func (w wireComponent) toDomain() domain.Component {
	specs := make(map[string]domain.SpecValue, len(w.Specifications))
	for k, v := range w.Specifications {
		specs[k] = domain.NewTextValue(v)
	}
	return domain.Component{
		ID:             domain.NewComponentId(),
		PartNumber:     w.PartNumber,
		Manufacturer:   w.Manufacturer,
		Category:       w.Category,
		Description:    w.Description,
		DatasheetURL:   w.DatasheetURL,
		Footprint:      w.Footprint,
		Specifications: specs,
		Price: domain.PriceInfo{
			Currency:  w.Currency,
			UnitPrice: w.UnitPrice,
			Known:     w.UnitPrice > 0,
		},
		Availability: domain.Availability{
			StockQty:     w.StockQty,
			LeadTimeDays: w.LeadTimeDays,
			LastSeen:     time.Now(),
			Known:        w.StockQty > 0 || w.LeadTimeDays > 0,
		},
	}
}
