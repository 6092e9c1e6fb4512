package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 30 * time.Second

// HTTPClient talks to the SupplierX procurement API. All list endpoints are
// POST with a small filter payload; the create endpoint takes the flattened
// order as multipart form data.
type HTTPClient struct {
	baseURL    string
	token      string
	sessionKey string
	hc         *http.Client
	log        zerolog.Logger
}

var _ Client = (*HTTPClient)(nil)

type HTTPOption func(*HTTPClient)

func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) { c.hc.Timeout = d }
}

func WithLogger(l zerolog.Logger) HTTPOption {
	return func(c *HTTPClient) { c.log = l }
}

func NewHTTPClient(baseURL, token, sessionKey string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		sessionKey: sessionKey,
		hc:         &http.Client{Timeout: defaultTimeout},
		log:        log.With().Str("component", "catalog").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Suppliers(ctx context.Context, query string) ([]Entry, error) {
	payload := map[string]any{}
	if query != "" {
		payload["search"] = query
	}
	rows, err := c.postRows(ctx, "/api/v1/supplier/supplier/sapRegisteredVendorsList", payload)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			ID:   asString(row["id"]),
			Name: asString(row["supplier_name"]),
			Details: map[string]any{
				"sap_code": asString(row["sap_code"]),
				"email":    asString(row["email"]),
				"contact":  asString(row["contact_no"]),
			},
		})
	}
	return entries, nil
}

func (c *HTTPClient) AlternateSupplier(ctx context.Context, vendorID string) (*AlternateSupplier, error) {
	body, err := c.get(ctx, "/api/v1/supplier/supplier/additional-supplier-details/"+vendorID)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data []AlternateSupplier `json:"data"`
	}
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode alternate supplier response: %w", err)
	}
	if len(envelope.Data) == 0 {
		return &AlternateSupplier{}, nil
	}
	return &envelope.Data[0], nil
}

func (c *HTTPClient) PurchaseOrgs(ctx context.Context) ([]Entry, error) {
	rows, err := c.postRows(ctx, "/api/v1/supplier/purchaseOrg/listing", map[string]any{})
	if err != nil {
		return nil, err
	}
	return mapEntries(rows, []string{"id"}, []string{"description", "purchaseOrgName"}), nil
}

func (c *HTTPClient) PurchaseGroups(ctx context.Context, orgID int) ([]Entry, error) {
	rows, err := c.postRows(ctx, "/api/v1/admin/purchaseGroup/list", scopedListPayload(orgID))
	if err != nil {
		return nil, err
	}
	return mapEntries(rows, []string{"id"}, []string{"name", "description"}), nil
}

func (c *HTTPClient) Plants(ctx context.Context, orgID int) ([]Entry, error) {
	rows, err := c.postRows(ctx, "/api/v1/admin/plants/list", scopedListPayload(orgID))
	if err != nil {
		return nil, err
	}
	return mapEntries(rows, []string{"id", "plantCode"}, []string{"plantName", "name"}), nil
}

func (c *HTTPClient) Currencies(ctx context.Context) ([]string, error) {
	rows, err := c.postRows(ctx, "/api/v1/admin/currency/getWithoutSlug", map[string]any{})
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		code := asString(row["currencyCode"])
		if code == "" {
			code = asString(row["id"])
		}
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func (c *HTTPClient) PaymentTerms(ctx context.Context) ([]Entry, error) {
	rows, err := c.postRows(ctx, "/api/admin/paymentTerms/list", map[string]any{})
	if err != nil {
		return nil, err
	}
	return mapEntries(rows, []string{"id", "paymentTermCode"}, []string{"description", "name"}), nil
}

func (c *HTTPClient) Incoterms(ctx context.Context) ([]Entry, error) {
	rows, err := c.postRows(ctx, "/api/admin/IncoTerm/list", map[string]any{})
	if err != nil {
		return nil, err
	}
	return mapEntries(rows, []string{"id", "incoTermCode"}, []string{"description", "name"}), nil
}

func (c *HTTPClient) Projects(ctx context.Context) ([]Entry, error) {
	rows, err := c.postRows(ctx, "/api/v1/supplier/purchase-order/list-project", map[string]any{})
	if err != nil {
		return nil, err
	}
	return mapEntries(rows, []string{"projectCode", "id"}, []string{"projectName", "name"}), nil
}

func (c *HTTPClient) Materials(ctx context.Context, query string) ([]Entry, error) {
	payload := map[string]any{}
	if query != "" {
		payload["search"] = query
	}
	rows, err := c.postRows(ctx, "/api/v1/supplier/materials/list", payload)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		name := asString(row["name"])
		if name == "" {
			name = asString(row["description"])
		}
		details := map[string]any{
			"id":                row["id"],
			"code":              asString(row["code"]),
			"price":             row["price"],
			"tax_code":          DefaultMaterialTaxCode,
			"unit_id":           0,
			"material_group_id": 0,
			"hsn_id":            0,
		}
		if unit, ok := row["unit"].(map[string]any); ok {
			details["unit_id"] = unit["id"]
		}
		if grp, ok := row["material_group"].(map[string]any); ok {
			details["material_group_id"] = grp["id"]
		}
		if hsn, ok := row["hsn_code"].(map[string]any); ok {
			details["hsn_id"] = hsn["id"]
		}
		entries = append(entries, Entry{ID: asString(row["id"]), Name: name, Details: details})
	}
	return entries, nil
}

func (c *HTTPClient) TaxCodes(ctx context.Context) ([]Entry, error) {
	body, err := c.post(ctx, "/api/v1/supplier/purchase-order/tax-code-dropdown", map[string]any{})
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data struct {
			Rows struct {
				Other   []map[string]any `json:"other_tax_codes"`
				Related []map[string]any `json:"related_tax_codes"`
			} `json:"rows"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode tax code response: %w", err)
	}
	rows := append(envelope.Data.Rows.Other, envelope.Data.Rows.Related...)
	return mapEntries(rows, []string{"id", "code"}, []string{"description", "code"}), nil
}

func (c *HTTPClient) SubmitOrder(ctx context.Context, form map[string]string) (map[string]any, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range form {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("write form field %q: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/supplier/purchase-order/create", &buf)
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.log.Info().Int("fields", len(form)).Msg("submitting purchase order")
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read submit response: %w", err)
	}
	c.log.Debug().Int("status", resp.StatusCode).Msg("submit response received")

	var out map[string]any
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode submit response (status %d): %w", resp.StatusCode, err)
	}
	return out, nil
}

// DefaultMaterialTaxCode is injected for materials because the listing endpoint
// does not return one.
const DefaultMaterialTaxCode = 119

func scopedListPayload(orgID int) map[string]any {
	payload := map[string]any{"dropdown": "0"}
	if orgID != 0 {
		payload["purchase_org_id"] = []int{orgID}
	}
	return payload
}

func (c *HTTPClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	if c.sessionKey != "" {
		req.Header.Set("x-session-key", c.sessionKey)
	}
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	return c.do(req, path)
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path)
}

func (c *HTTPClient) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		c.log.Warn().Str("path", path).Int("status", resp.StatusCode).Msg("lookup request failed")
		return nil, fmt.Errorf("call %s: status %d", path, resp.StatusCode)
	}
	return body, nil
}

// postRows posts a list request and unwraps the tolerant response envelope:
// the payload may be a bare list, {"data": [...]}, or {"data": {"rows": [...]}}.
func (c *HTTPClient) postRows(ctx context.Context, path string, payload any) ([]map[string]any, error) {
	body, err := c.post(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	return unwrapRows(decoded), nil
}

func unwrapRows(decoded any) []map[string]any {
	raw := decoded
	if obj, ok := raw.(map[string]any); ok {
		if data, exists := obj["data"]; exists {
			raw = data
		}
	}
	if obj, ok := raw.(map[string]any); ok {
		if rows, exists := obj["rows"]; exists {
			raw = rows
		}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func mapEntries(rows []map[string]any, idKeys, nameKeys []string) []Entry {
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		var id, name string
		for _, key := range idKeys {
			if id = asString(row[key]); id != "" {
				break
			}
		}
		for _, key := range nameKeys {
			if name = asString(row[key]); name != "" {
				break
			}
		}
		entries = append(entries, Entry{ID: id, Name: name, Details: row})
	}
	return entries
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%g", s)
	case int:
		return fmt.Sprintf("%d", s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
