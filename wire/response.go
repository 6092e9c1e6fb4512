package wire

import "strings"

// SubmitResult is the engine-facing reading of the backend's create response.
type SubmitResult struct {
	OK       bool
	PONumber string
	Message  string
}

// Interpret reads the backend's JSON response body. Success is signalled by
// success==true or error==false; the PO number may sit at the top level or
// under data. On failure, validation rows with type "E" carry the messages.
func Interpret(body map[string]any) SubmitResult {
	ok := false
	if success, has := body["success"].(bool); has && success {
		ok = true
	}
	if errFlag, has := body["error"].(bool); has && !errFlag {
		ok = true
	}

	if ok {
		return SubmitResult{OK: true, PONumber: poNumber(body)}
	}
	return SubmitResult{Message: errorMessage(body)}
}

func poNumber(body map[string]any) string {
	if num := asText(body["po_number"]); num != "" {
		return num
	}
	if data, ok := body["data"].(map[string]any); ok {
		return asText(data["po_number"])
	}
	return ""
}

func errorMessage(body map[string]any) string {
	var msgs []string
	if rows, ok := body["data"].([]any); ok {
		for _, raw := range rows {
			row, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if asText(row["type"]) != "E" {
				continue
			}
			msg := asText(row["msg"])
			if msg == "" {
				msg = asText(row["message"])
			}
			if msg != "" {
				msgs = append(msgs, msg)
			}
		}
	}
	if len(msgs) > 0 {
		return strings.Join(msgs, " | ")
	}
	if msg := asText(body["message"]); msg != "" {
		return msg
	}
	return "purchase order creation failed"
}

func asText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return FormatNumber(v)
	}
	return ""
}
