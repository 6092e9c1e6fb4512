package pathexpr

import "strings"

// The source system grew three divergent spellings for several fields. This
// table is the canonical mapping; natural synonyms the NLU tends to emit are
// included as well. Aliases apply to whole top-level paths and to the leaf
// segment of indexed paths.
var aliases = map[string]string{
	"supplier":    "vendor_id",
	"vendor":      "vendor_id",
	"supplier_id": "vendor_id",

	"organization":          "purchase_org_id",
	"organization_id":       "purchase_org_id",
	"org":                   "purchase_org_id",
	"org_id":                "purchase_org_id",
	"purchase_org":          "purchase_org_id",
	"purchase_organization": "purchase_org_id",

	"group":             "purchase_grp_id",
	"group_id":          "purchase_grp_id",
	"purchase_group":    "purchase_grp_id",
	"purchase_group_id": "purchase_grp_id",
	"purchase_grp":      "purchase_grp_id",

	"plant": "plant_id",

	"date":       "po_date",
	"order_date": "po_date",

	"validity":      "validityEnd",
	"validity_end":  "validityEnd",
	"validity_date": "validityEnd",
	"validityend":   "validityEnd",

	"currency_code": "currency",

	"payment_term":  "payment_terms",
	"pay_term":      "payment_terms",
	"payment_terms": "payment_terms",

	"incoterm":   "inco_terms",
	"incoterms":  "inco_terms",
	"inco_term":  "inco_terms",
	"inco_terms": "inco_terms",

	"remark": "remarks",

	"type":        "po_type",
	"po_sub_type": "po_type",
	"subtype":     "po_type",

	"item":      "line_items",
	"items":     "line_items",
	"line_item": "line_items",

	"material":    "material_id",
	"description": "short_text",
	"qty":         "quantity",
	"rate":        "price",
	"unit_price":  "price",
	"unit":        "unit_id",
	"taxcode":     "tax_code",

	"project": "projects",

	"subservices":  "subServices",
	"datasupplier": "datasupplier",
}

// Canonical maps a field name to its canonical form. Names are normalised to
// lower snake case first so "Purchase Org" and "purchase_org" behave alike.
func Canonical(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	return key
}
