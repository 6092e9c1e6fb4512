package order

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/eino-contrib/jsonschema"
)

// Defaults applied when the catalog did not supply a value. They mirror the
// backend's reference payload.
const (
	DefaultCurrency        = "INR"
	DefaultTaxCode         = 118
	DefaultMaterialGroupID = 520
	DefaultTaxAmount       = 12
	DeliveryLeadDays       = 7

	NocUnset = "No"
)

type Project struct {
	ProjectCode string `json:"project_code" jsonschema:"description=Project code"`
	ProjectName string `json:"project_name" jsonschema:"description=Project display name"`
}

// LineItem is one material or service position on the order. Numeric id fields
// reference catalog entries; quantity and price drive the derived totals.
type LineItem struct {
	MaterialID      int     `json:"material_id" jsonschema:"description=Catalog material id"`
	ShortText       string  `json:"short_text" jsonschema:"description=Material or service description"`
	ShortDesc       string  `json:"short_desc,omitempty"`
	UnitID          int     `json:"unit_id"`
	TaxCode         int     `json:"tax_code"`
	MaterialGroupID int     `json:"material_group_id"`
	Quantity        float64 `json:"quantity" jsonschema:"description=Ordered quantity"`
	Price           float64 `json:"price" jsonschema:"description=Unit price"`
	SubTotal        float64 `json:"sub_total"`
	Tax             float64 `json:"tax"`
	TotalValue      float64 `json:"total_value"`
	DeliveryDate    string  `json:"delivery_date" jsonschema:"description=Delivery date YYYY-MM-DD"`
	SubServices     string  `json:"subServices"`
	ControlCode     string  `json:"control_code"`
}

// Finalize fills the derived fields of a completed item. The delivery date
// defaults to the order date plus the standard lead time when unset.
func (it *LineItem) Finalize(poDate string) {
	if it.TaxCode == 0 {
		it.TaxCode = DefaultTaxCode
	}
	if it.MaterialGroupID == 0 {
		it.MaterialGroupID = DefaultMaterialGroupID
	}
	it.SubTotal = it.Quantity * it.Price
	if it.Tax == 0 {
		it.Tax = DefaultTaxAmount
	}
	it.TotalValue = it.SubTotal + it.Tax
	if it.DeliveryDate == "" {
		it.DeliveryDate = poDate
		if dt, err := time.Parse("2006-01-02", poDate); err == nil {
			it.DeliveryDate = dt.AddDate(0, 0, DeliveryLeadDays).Format("2006-01-02")
		}
	}
	if it.ShortDesc == "" {
		it.ShortDesc = it.ShortText
	}
}

// Complete reports whether the item has everything needed to be committed.
func (it *LineItem) Complete() bool {
	return it.Quantity > 0 && it.Price > 0
}

// OrderRecord is the purchase order under construction. JSON field names match
// the backend payload exactly, including its mixed naming conventions.
type OrderRecord struct {
	POType        string  `json:"po_type" jsonschema:"description=Order subtype code such as regularPurchase"`
	VendorID      string  `json:"vendor_id" jsonschema:"description=Resolved supplier id"`
	PurchaseOrgID int     `json:"purchase_org_id" jsonschema:"description=Resolved purchase organization id"`
	PlantID       string  `json:"plant_id" jsonschema:"description=Resolved plant id"`
	PurchaseGrpID int     `json:"purchase_grp_id" jsonschema:"description=Resolved purchase group id"`
	PODate        string  `json:"po_date" jsonschema:"description=Order date YYYY-MM-DD"`
	ValidityEnd   string  `json:"validityEnd" jsonschema:"description=Validity end date YYYY-MM-DD"`
	Currency      string  `json:"currency"`
	Remarks       string  `json:"remarks"`
	IsEPCG        bool    `json:"is_epcg_applicable"`
	IsPRBased     bool    `json:"is_pr_based"`
	IsRFQBased    bool    `json:"is_rfq_based"`
	PaymentTerms  int     `json:"payment_terms" jsonschema:"description=Payment terms id"`
	IncoTerms     int     `json:"inco_terms" jsonschema:"description=Incoterms id"`
	PaymentDesc   string  `json:"payment_terms_description"`
	IncoDesc      string  `json:"inco_terms_description"`
	Noc           string  `json:"noc"`
	DataSupplier  string  `json:"datasupplier"`
	AltSupName    string  `json:"alternate_supplier_name"`
	AltSupEmail   string  `json:"alternate_supplier_email"`
	AltSupContact string  `json:"alternate_supplier_contact_number"`
	Total         float64 `json:"total"`

	Projects  []Project  `json:"projects"`
	LineItems []LineItem `json:"line_items"`
}

// NewOrderRecord returns the fixed default record every session starts from.
func NewOrderRecord() *OrderRecord {
	return &OrderRecord{
		Currency:  DefaultCurrency,
		Noc:       NocUnset,
		Projects:  []Project{{}},
		LineItems: []LineItem{},
	}
}

// Recalc refreshes each committed item's derived amounts and the grand total,
// so a later quantity or price correction flows through to the totals.
func (o *OrderRecord) Recalc() {
	total := 0.0
	for i := range o.LineItems {
		it := &o.LineItems[i]
		if it.Quantity > 0 && it.Price > 0 {
			it.SubTotal = it.Quantity * it.Price
			it.TotalValue = it.SubTotal + it.Tax
		}
		total += it.SubTotal
	}
	o.Total = total
}

// Doc renders the record as a generic JSON document for path mutation.
func (o *OrderRecord) Doc() (map[string]any, error) {
	raw, err := sonic.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal order record: %w", err)
	}
	var doc map[string]any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal order record document: %w", err)
	}
	return doc, nil
}

// FromDoc rebuilds a typed record from a mutated document.
func FromDoc(doc map[string]any) (*OrderRecord, error) {
	raw, err := sonic.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal order document: %w", err)
	}
	var rec OrderRecord
	if err := sonic.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("document does not fit order record: %w", err)
	}
	return &rec, nil
}

// Schema returns the JSON schema of the record, used to ground the NLU prompts.
func Schema() (string, error) {
	s := jsonschema.Reflect(&OrderRecord{})
	s.Title = "Purchase Order"
	s.Description = "Purchase order record assembled through conversation and submitted to the procurement backend."
	raw, err := sonic.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal order schema: %w", err)
	}
	return string(raw), nil
}
