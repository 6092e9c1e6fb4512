// Package slots computes the ordered list of fields the purchase order still
// needs. The order of the list is the order of questions: the dialogue layer
// always asks about the first entry and nothing else.
package slots

import (
	"fmt"

	"github.com/Amit-aeonx/po-agent/order"
)

// Field is one unfilled slot. Gate marks the synthetic "offer optional fields"
// entry that appears once all mandatory fields are satisfied.
type Field struct {
	Path    string
	Display string
	Prompt  string
	Gate    bool
}

// GateField is the synthetic entry asking whether to fill the optional fields.
var GateField = Field{
	Path:    "_optionals",
	Display: "Optional fields",
	Prompt:  "All mandatory fields are filled. Do you want to add payment terms, incoterms or a project? (yes/no)",
	Gate:    true,
}

var headerFields = []Field{
	{Path: "vendor_id", Display: "Supplier", Prompt: "Which supplier is this order for?"},
	{Path: "purchase_org_id", Display: "Purchase Organization", Prompt: "Which purchase organization should I use?"},
	{Path: "plant_id", Display: "Plant", Prompt: "Which plant is this order for?"},
	{Path: "purchase_grp_id", Display: "Purchase Group", Prompt: "Which purchase group should I use?"},
	{Path: "po_date", Display: "PO Date", Prompt: "What is the PO date? (YYYY-MM-DD)"},
	{Path: "validityEnd", Display: "Validity End", Prompt: "Until when is the order valid? (YYYY-MM-DD)"},
	{Path: "currency", Display: "Currency", Prompt: "Which currency should I use?"},
}

// Missing derives the ordered missing-field list from the record and the
// transient conversation flags. It is a pure function of its inputs.
func Missing(o *order.OrderRecord, pending *order.LineItem, gateAnswered, optIn bool) []Field {
	var missing []Field

	if o.VendorID == "" {
		missing = append(missing, headerFields[0])
	}
	if o.PurchaseOrgID == 0 {
		missing = append(missing, headerFields[1])
	}
	if o.PlantID == "" {
		missing = append(missing, headerFields[2])
	}
	if o.PurchaseGrpID == 0 {
		missing = append(missing, headerFields[3])
	}
	if o.PODate == "" {
		missing = append(missing, headerFields[4])
	}
	if o.ValidityEnd == "" {
		missing = append(missing, headerFields[5])
	}
	if o.Currency == "" {
		missing = append(missing, headerFields[6])
	}

	missing = append(missing, lineItemFields(o, pending)...)

	if len(missing) > 0 {
		return missing
	}

	if !gateAnswered {
		return []Field{GateField}
	}
	if optIn {
		if o.PaymentTerms == 0 {
			missing = append(missing, Field{Path: "payment_terms", Display: "Payment Terms", Prompt: "Which payment terms apply?"})
		}
		if o.IncoTerms == 0 {
			missing = append(missing, Field{Path: "inco_terms", Display: "Incoterms", Prompt: "Which incoterms apply?"})
		}
		if len(o.Projects) == 0 || o.Projects[0].ProjectCode == "" {
			missing = append(missing, Field{Path: "projects[0].project_code", Display: "Project", Prompt: "Which project is this order for?"})
		}
	}
	return missing
}

func lineItemFields(o *order.OrderRecord, pending *order.LineItem) []Field {
	if pending != nil {
		// An item under construction narrows the questions to its own needs.
		var missing []Field
		if pending.MaterialID == 0 && pending.ShortText == "" {
			missing = append(missing, Field{Path: "line_items.material_id", Display: "Material", Prompt: "Which material or service is this item for?"})
		}
		if pending.Quantity <= 0 {
			missing = append(missing, Field{Path: "line_items.quantity", Display: "Quantity", Prompt: "How many units do you need?"})
		}
		if pending.Price <= 0 {
			missing = append(missing, Field{Path: "line_items.price", Display: "Price", Prompt: "What is the unit price?"})
		}
		return missing
	}

	if len(o.LineItems) == 0 {
		return []Field{{Path: "line_items", Display: "Line Items", Prompt: "The order needs at least one line item. Which material or service do you want to add?"}}
	}

	var missing []Field
	for i, it := range o.LineItems {
		if it.MaterialID == 0 && it.ShortText == "" {
			missing = append(missing, Field{
				Path:    fmt.Sprintf("line_items[%d].material_id", i),
				Display: fmt.Sprintf("Item %d material", i+1),
				Prompt:  fmt.Sprintf("Item %d has no material or description. What is it?", i+1),
			})
		}
		if it.Quantity <= 0 {
			missing = append(missing, Field{
				Path:    fmt.Sprintf("line_items[%d].quantity", i),
				Display: fmt.Sprintf("Item %d quantity", i+1),
				Prompt:  fmt.Sprintf("How many units of %s do you need?", itemName(it)),
			})
		}
		if it.Price <= 0 {
			missing = append(missing, Field{
				Path:    fmt.Sprintf("line_items[%d].price", i),
				Display: fmt.Sprintf("Item %d price", i+1),
				Prompt:  fmt.Sprintf("What is the unit price of %s?", itemName(it)),
			})
		}
	}
	return missing
}

func itemName(it order.LineItem) string {
	if it.ShortText != "" {
		return it.ShortText
	}
	return "this item"
}
