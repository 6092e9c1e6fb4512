package order

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// Summary renders a human-readable review of the record for the confirm step.
func Summary(o *OrderRecord) string {
	var sb strings.Builder
	sb.WriteString("Here is your purchase order so far:\n\n")
	writeHeaderLine(&sb, "PO Type", o.POType)
	writeHeaderLine(&sb, "Supplier", o.VendorID)
	writeHeaderLine(&sb, "Purchase Org", intOrDash(o.PurchaseOrgID))
	writeHeaderLine(&sb, "Plant", o.PlantID)
	writeHeaderLine(&sb, "Purchase Group", intOrDash(o.PurchaseGrpID))
	writeHeaderLine(&sb, "PO Date", o.PODate)
	writeHeaderLine(&sb, "Validity End", o.ValidityEnd)
	writeHeaderLine(&sb, "Currency", o.Currency)
	writeHeaderLine(&sb, "Payment Terms", intOrDash(o.PaymentTerms))
	writeHeaderLine(&sb, "Incoterms", intOrDash(o.IncoTerms))
	if len(o.Projects) > 0 && o.Projects[0].ProjectCode != "" {
		writeHeaderLine(&sb, "Project", fmt.Sprintf("%s (%s)", o.Projects[0].ProjectName, o.Projects[0].ProjectCode))
	}
	if o.Remarks != "" {
		writeHeaderLine(&sb, "Remarks", o.Remarks)
	}

	if len(o.LineItems) > 0 {
		sb.WriteString("\n")
		table := tablewriter.NewTable(&sb, tablewriter.WithRenderer(renderer.NewMarkdown()))
		table.Header("Item", "Qty", "Price", "Subtotal")
		for _, it := range o.LineItems {
			_ = table.Append(
				it.ShortText,
				strconv.FormatFloat(it.Quantity, 'f', -1, 64),
				strconv.FormatFloat(it.Price, 'f', -1, 64),
				strconv.FormatFloat(it.SubTotal, 'f', -1, 64),
			)
		}
		_ = table.Render()
	}

	sb.WriteString(fmt.Sprintf("\nGrand total: %s %s\n", o.Currency, strconv.FormatFloat(o.Total, 'f', -1, 64)))
	return sb.String()
}

func writeHeaderLine(sb *strings.Builder, label, value string) {
	if value == "" {
		value = "-"
	}
	sb.WriteString(fmt.Sprintf("- %s: %s\n", label, value))
}

func intOrDash(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
