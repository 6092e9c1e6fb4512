package dialogue

import (
	"fmt"
	"strings"

	"github.com/Amit-aeonx/po-agent/catalog"
	"github.com/Amit-aeonx/po-agent/nlu"
	"github.com/Amit-aeonx/po-agent/order"
)

const (
	greetingText = "Hello! I can help you create a purchase order. Say \"create PO\" to get started."

	cancelledText = "Alright, I have discarded the order. Say \"create PO\" whenever you want to start again."

	doneText = "The purchase order is complete. Say \"start over\" to create another one."

	confirmPrompt = "Shall I submit this purchase order? (yes/no)"

	catalogRetryText = "I could not look up %q because the catalog service did not respond. Please try that part again."

	catalogDownText = "I could not reach the catalog service just now. Please try again."

	poTypeRetryPrompt = "I did not recognize that purchase order type. Pick one from the list above, or just describe the order and I will use Regular Purchase."
)

// poTypes maps the display names offered to the user onto the backend's
// camelCase subtype codes.
var poTypes = []struct {
	Display string
	Code    string
}{
	{"Regular Purchase", "regularPurchase"},
	{"Service", "service"},
	{"Asset", "asset"},
	{"Internal Order Material", "internalOrderMaterial"},
	{"Internal Order Service", "internalOrderService"},
	{"Network", "network"},
	{"Network Service", "networkService"},
	{"Cost Center Material", "costCenterMaterial"},
	{"Cost Center Service", "costCenterService"},
	{"Project Service", "projectService"},
	{"Project Material", "projectMaterial"},
	{"Stock Transfer Inter", "stockTransferInter"},
	{"Stock Transfer Intra", "stockTransferIntra"},
}

const defaultPOType = "regularPurchase"

func poTypePrompt() string {
	var sb strings.Builder
	sb.WriteString("What type of purchase order do you want to create?\n")
	for i, t := range poTypes {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, t.Display)
	}
	sb.WriteString("You can also just describe the order and I will use Regular Purchase.")
	return sb.String()
}

// matchPOType picks the subtype from the user's wording or the structured
// actions. It returns "" when neither names a known subtype; the caller
// decides between re-asking and the regular purchase default.
func matchPOType(input string, analysis *nlu.Analysis) string {
	for _, action := range analysis.Actions {
		if action.Path == "po_type" {
			if code, ok := action.Value.(string); ok {
				if canonical := poTypeCode(code); canonical != "" {
					return canonical
				}
			}
		}
	}
	return poTypeCode(input)
}

// poTypeCode matches against all display names and keeps the longest hit, so
// "Network Service" is never shadowed by "Network".
func poTypeCode(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	best, bestLen := "", 0
	for _, t := range poTypes {
		if t.Code == text {
			return t.Code
		}
		display := strings.ToLower(t.Display)
		if strings.Contains(lowered, display) && len(display) > bestLen {
			best, bestLen = t.Code, len(display)
		}
	}
	return best
}

func renderCandidates(d *order.Disambiguation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "I found several %s matches for %q. Which one did you mean?\n",
		categoryLabel(catalog.Category(d.Category)), d.Mention)
	for i, c := range d.Candidates {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, c.Name, c.ID)
	}
	sb.WriteString("Reply with the number, the id or the name.")
	return sb.String()
}

func categoryLabel(category catalog.Category) string {
	switch category {
	case catalog.CategorySupplier:
		return "supplier"
	case catalog.CategoryMaterial:
		return "material"
	case catalog.CategoryPlant:
		return "plant"
	case catalog.CategoryPurchaseOrg:
		return "purchase organization"
	case catalog.CategoryPurchaseGroup:
		return "purchase group"
	case catalog.CategoryProject:
		return "project"
	case catalog.CategoryPaymentTerm:
		return "payment terms"
	case catalog.CategoryIncoterm:
		return "incoterms"
	case catalog.CategoryTaxCode:
		return "tax code"
	}
	return string(category)
}

func categoryTitle(category catalog.Category) string {
	label := categoryLabel(category)
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func submittedText(poNumber string) string {
	if poNumber == "" {
		return "The purchase order was created successfully."
	}
	return fmt.Sprintf("The purchase order was created successfully. PO number: %s", poNumber)
}

func submissionFailedText(message string) string {
	if message == "" {
		return "The purchase order could not be created."
	}
	return fmt.Sprintf("The purchase order could not be created: %s\nFix the order or say \"cancel\" to discard it.", message)
}
