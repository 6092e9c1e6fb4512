package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Category names one lookup collection a free-text mention can resolve against.
type Category string

const (
	CategorySupplier      Category = "supplier"
	CategoryMaterial      Category = "material"
	CategoryPlant         Category = "plant"
	CategoryPurchaseOrg   Category = "purchase_org"
	CategoryPurchaseGroup Category = "purchase_group"
	CategoryProject       Category = "project"
	CategoryPaymentTerm   Category = "payment_term"
	CategoryIncoterm      Category = "incoterm"
	CategoryTaxCode       Category = "tax_code"
)

// Entry is one normalized lookup row: a canonical id, a display name and the
// raw detail fields the backend returned alongside them.
type Entry struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Details map[string]any `json:"details,omitempty"`
}

// Material carries the detail fields a resolved material fans out to a line item.
type Material struct {
	ID              int     `json:"id"`
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	UnitID          int     `json:"unit_id"`
	MaterialGroupID int     `json:"material_group_id"`
	TaxCode         int     `json:"tax_code"`
	HSNID           int     `json:"hsn_id"`
}

// AlternateSupplier is the optional secondary contact attached to a vendor.
type AlternateSupplier struct {
	Name          string `json:"alternate_supplier_name"`
	Email         string `json:"alternate_supplier_email"`
	ContactNumber string `json:"alternate_supplier_contact_number"`
}

// ErrNotFound is returned when a mention matches zero candidates, or more than
// one at the exact-id step. The resolver never guesses.
var ErrNotFound = errors.New("catalog: no unambiguous match")

// AmbiguousError reports several textual matches so the dialogue layer can ask
// the user to pick one.
type AmbiguousError struct {
	Mention    string
	Candidates []Entry
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("catalog: %q matches %d candidates", e.Mention, len(e.Candidates))
}

// Client is the read side of the procurement backend plus the single order
// submission write. Plant and purchase-group listings accept a purchase
// organization scope; zero means unscoped.
type Client interface {
	Suppliers(ctx context.Context, query string) ([]Entry, error)
	AlternateSupplier(ctx context.Context, vendorID string) (*AlternateSupplier, error)
	PurchaseOrgs(ctx context.Context) ([]Entry, error)
	PurchaseGroups(ctx context.Context, orgID int) ([]Entry, error)
	Plants(ctx context.Context, orgID int) ([]Entry, error)
	Currencies(ctx context.Context) ([]string, error)
	PaymentTerms(ctx context.Context) ([]Entry, error)
	Incoterms(ctx context.Context) ([]Entry, error)
	Projects(ctx context.Context) ([]Entry, error)
	Materials(ctx context.Context, query string) ([]Entry, error)
	TaxCodes(ctx context.Context) ([]Entry, error)
	SubmitOrder(ctx context.Context, form map[string]string) (map[string]any, error)
}

// MaterialFromEntry decodes the detail fields of a material lookup row.
func MaterialFromEntry(e Entry) Material {
	m := Material{
		Name:            e.Name,
		Code:            detailString(e.Details, "code"),
		ID:              detailInt(e.Details, "id"),
		Price:           detailFloat(e.Details, "price"),
		UnitID:          detailInt(e.Details, "unit_id"),
		MaterialGroupID: detailInt(e.Details, "material_group_id"),
		TaxCode:         detailInt(e.Details, "tax_code"),
		HSNID:           detailInt(e.Details, "hsn_id"),
	}
	if m.ID == 0 {
		if n, err := parseInt(e.ID); err == nil {
			m.ID = n
		}
	}
	return m
}

func detailString(d map[string]any, key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

func detailFloat(d map[string]any, key string) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return 0
}

func detailInt(d map[string]any, key string) int {
	switch v := d[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := parseInt(v); err == nil {
			return n
		}
	}
	return 0
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
