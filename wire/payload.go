// Package wire turns a finished order record into the exact shape the
// procurement backend validates: a whitelisted, type-coerced, flattened set of
// form fields, and interprets the submission response.
package wire

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Amit-aeonx/po-agent/order"
)

// The backend rejects unknown header fields; only these are transmitted.
var headerWhitelist = map[string]bool{
	"po_type":                           true,
	"vendor_id":                         true,
	"purchase_org_id":                   true,
	"plant_id":                          true,
	"purchase_grp_id":                   true,
	"po_date":                           true,
	"validityEnd":                       true,
	"currency":                          true,
	"remarks":                           true,
	"is_epcg_applicable":                true,
	"is_pr_based":                       true,
	"is_rfq_based":                      true,
	"payment_terms":                     true,
	"inco_terms":                        true,
	"payment_terms_description":         true,
	"inco_terms_description":            true,
	"noc":                               true,
	"datasupplier":                      true,
	"alternate_supplier_name":           true,
	"alternate_supplier_email":          true,
	"alternate_supplier_contact_number": true,
	"total":                             true,
	"projects":                          true,
	"line_items":                        true,
}

// Fields that are stringified numbers on the wire; id-like fields stay integers.
var stringifiedItemFields = map[string]bool{
	"quantity":    true,
	"price":       true,
	"sub_total":   true,
	"tax":         true,
	"total_value": true,
}

var istZone = time.FixedZone("IST", int(5.5*3600))

const istSuffix = " GMT+0530 (India Standard Time)"

// Build produces the flattened form fields for submission. The caller passes
// the current wall time; dates carry its clock component, not midnight.
func Build(o *order.OrderRecord, now time.Time) (map[string]string, error) {
	doc, err := o.Doc()
	if err != nil {
		return nil, err
	}

	payload := map[string]any{}
	for key, value := range doc {
		if headerWhitelist[key] {
			payload[key] = value
		}
	}

	if date, ok := payload["po_date"].(string); ok && date != "" {
		payload["po_date"] = istTimestamp(date, now)
	}
	if date, ok := payload["validityEnd"].(string); ok && date != "" {
		payload["validityEnd"] = istTimestamp(date, now)
	}
	if noc, ok := payload["noc"].(string); ok && noc == order.NocUnset {
		payload["noc"] = ""
	}

	if items, ok := payload["line_items"].([]any); ok {
		for _, raw := range items {
			item, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			for field, value := range item {
				if stringifiedItemFields[field] {
					if f, isNum := value.(float64); isNum {
						item[field] = FormatNumber(f)
					}
				}
			}
			// Forced empty regardless of what the caller put there.
			item["subServices"] = ""
			item["control_code"] = ""
		}
	}
	if total, ok := payload["total"].(float64); ok {
		payload["total"] = FormatNumber(total)
	}

	return Flatten(payload), nil
}

// FormatNumber renders a float without a trailing decimal when it is whole:
// 3 -> "3", 2.5 -> "2.5".
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// istTimestamp renders a YYYY-MM-DD date in the backend's long form with the
// clock taken from the current wall time in IST.
func istTimestamp(date string, now time.Time) string {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	clock := now.In(istZone)
	stamped := time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, istZone)
	return stamped.Format("Mon Jan 2 2006 15:04:05") + istSuffix
}

// Flatten collapses the payload into dotted and indexed form keys, mirroring
// the path expressions the mutator accepts: projects[0].project_code, the
// scalar values rendered as strings (booleans as "true"/"false", nil as "").
func Flatten(payload map[string]any) map[string]string {
	out := map[string]string{}
	flattenInto(out, "", payload)
	return out
}

func flattenInto(out map[string]string, prefix string, value any) {
	switch node := value.(type) {
	case map[string]any:
		for key, child := range node {
			name := key
			if prefix != "" {
				name = prefix + "." + key
			}
			flattenInto(out, name, child)
		}
	case []any:
		for i, child := range node {
			flattenInto(out, fmt.Sprintf("%s[%d]", prefix, i), child)
		}
	default:
		out[prefix] = scalarString(node)
	}
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return FormatNumber(v)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Keys returns the flattened field names in stable order, for logging.
func Keys(form map[string]string) []string {
	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
