package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuppliersUnwrapsEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/supplier/supplier/sapRegisteredVendorsList", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Equal(t, "sk-1", r.Header.Get("x-session-key"))
		_, _ = w.Write([]byte(`{"data":{"rows":[{"id":"0001045609","supplier_name":"Smartsaa Pvt Ltd","sap_code":"S1"}]}}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "token-1", "sk-1")
	entries, err := client.Suppliers(context.Background(), "smartsaa")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "0001045609", entries[0].ID)
	assert.Equal(t, "Smartsaa Pvt Ltd", entries[0].Name)
}

func TestSuppliersBareListEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"1","supplier_name":"A"},{"id":"2","supplier_name":"B"}]`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", "")
	entries, err := client.Suppliers(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPlantsScopedByOrg(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "0", payload["dropdown"])
		assert.Equal(t, []any{float64(4)}, payload["purchase_org_id"])
		_, _ = w.Write([]byte(`{"data":[{"id":"1101","plantName":"AIL Dhaneti"}]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", "")
	entries, err := client.Plants(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1101", entries[0].ID)
	assert.Equal(t, "AIL Dhaneti", entries[0].Name)
}

func TestMaterialsExtractsNestedDetails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"rows":[{
			"id":42,"name":"Scooty","code":"M-42","price":50000,
			"unit":{"id":6,"name":"EA"},
			"material_group":{"id":520},
			"hsn_code":{"id":9}
		}]}}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", "")
	entries, err := client.Materials(context.Background(), "scooty")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	material := MaterialFromEntry(entries[0])
	assert.Equal(t, 42, material.ID)
	assert.Equal(t, "M-42", material.Code)
	assert.Equal(t, 50000.0, material.Price)
	assert.Equal(t, 6, material.UnitID)
	assert.Equal(t, 520, material.MaterialGroupID)
	assert.Equal(t, 9, material.HSNID)
	assert.Equal(t, DefaultMaterialTaxCode, material.TaxCode)
}

func TestTaxCodesMergesBothGroups(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"rows":{
			"other_tax_codes":[{"id":118,"description":"GST 18%"}],
			"related_tax_codes":[{"id":119,"description":"GST 12%"}]
		}}}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", "")
	entries, err := client.TaxCodes(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "118", entries[0].ID)
	assert.Equal(t, "119", entries[1].ID)
}

func TestSubmitOrderSendsMultipartForm(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/supplier/purchase-order/create", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "regularPurchase", r.FormValue("po_type"))
		assert.Equal(t, "2", r.FormValue("line_items[0].quantity"))
		_, _ = w.Write([]byte(`{"success":true,"po_number":"PO-12345"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", "")
	body, err := client.SubmitOrder(context.Background(), map[string]string{
		"po_type":                "regularPurchase",
		"line_items[0].quantity": "2",
	})
	require.NoError(t, err)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "PO-12345", body["po_number"])
}

func TestLookupErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", "")
	_, err := client.PurchaseOrgs(context.Background())
	assert.Error(t, err)
}
