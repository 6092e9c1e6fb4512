package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amit-aeonx/po-agent/catalog"
	"github.com/Amit-aeonx/po-agent/nlu"
	"github.com/Amit-aeonx/po-agent/order"
	"github.com/Amit-aeonx/po-agent/pathexpr"
)

// scriptedAnalyzer returns one queued analysis per turn, standing in for the
// language model.
type scriptedAnalyzer struct {
	queue []*nlu.Analysis
}

func (s *scriptedAnalyzer) Analyze(ctx context.Context, req *nlu.Request) (*nlu.Analysis, error) {
	if len(s.queue) == 0 {
		return &nlu.Analysis{Intents: []nlu.Intent{nlu.IntentNone}}, nil
	}
	head := s.queue[0]
	s.queue = s.queue[1:]
	return head, nil
}

// stubClient serves a fixed catalog and a scripted submission response.
type stubClient struct {
	suppliers      []catalog.Entry
	supplierErr    error
	submitResponse map[string]any
	submittedForm  map[string]string
}

func newStubClient() *stubClient {
	return &stubClient{
		suppliers: []catalog.Entry{{ID: "0001045609", Name: "Smartsaa Pvt Ltd"}},
		submitResponse: map[string]any{
			"success":   true,
			"po_number": "PO-12345",
		},
	}
}

func (c *stubClient) Suppliers(ctx context.Context, query string) ([]catalog.Entry, error) {
	if c.supplierErr != nil {
		return nil, c.supplierErr
	}
	return c.suppliers, nil
}

func (c *stubClient) AlternateSupplier(ctx context.Context, vendorID string) (*catalog.AlternateSupplier, error) {
	return &catalog.AlternateSupplier{Name: "Alt Contact", Email: "alt@smartsaa.test"}, nil
}

func (c *stubClient) PurchaseOrgs(ctx context.Context) ([]catalog.Entry, error) {
	return []catalog.Entry{{ID: "1100", Name: "Ashapura"}}, nil
}

func (c *stubClient) PurchaseGroups(ctx context.Context, orgID int) ([]catalog.Entry, error) {
	return []catalog.Entry{{ID: "7", Name: "CPT"}}, nil
}

func (c *stubClient) Plants(ctx context.Context, orgID int) ([]catalog.Entry, error) {
	return []catalog.Entry{{ID: "1101", Name: "Ail Dhaneti"}}, nil
}

func (c *stubClient) Currencies(ctx context.Context) ([]string, error) {
	return []string{"INR", "USD"}, nil
}

func (c *stubClient) PaymentTerms(ctx context.Context) ([]catalog.Entry, error) {
	return []catalog.Entry{{ID: "4", Name: "Net 30"}}, nil
}

func (c *stubClient) Incoterms(ctx context.Context) ([]catalog.Entry, error) {
	return []catalog.Entry{{ID: "2", Name: "FOB"}}, nil
}

func (c *stubClient) Projects(ctx context.Context) ([]catalog.Entry, error) {
	return []catalog.Entry{{ID: "PRJ-9", Name: "Expansion"}}, nil
}

func (c *stubClient) Materials(ctx context.Context, query string) ([]catalog.Entry, error) {
	return []catalog.Entry{{
		ID:   "42",
		Name: "Scooty",
		Details: map[string]any{
			"id": 42, "price": 50000.0, "unit_id": 6,
			"material_group_id": 520, "tax_code": 118,
		},
	}}, nil
}

func (c *stubClient) TaxCodes(ctx context.Context) ([]catalog.Entry, error) {
	return []catalog.Entry{{ID: "118", Name: "GST 18%"}}, nil
}

func (c *stubClient) SubmitOrder(ctx context.Context, form map[string]string) (map[string]any, error) {
	c.submittedForm = form
	return c.submitResponse, nil
}

func fixedClock() time.Time {
	return time.Date(2025, 12, 30, 9, 0, 0, 0, time.UTC)
}

func TestGreetingToPOIntent(t *testing.T) {
	t.Parallel()

	engine := New(nlu.NewKeywordAnalyzer(), newStubClient(), WithClock(fixedClock))
	state := order.NewConversationState()

	reply, err := engine.Turn(context.Background(), state, "Independent PO")
	require.NoError(t, err)
	assert.Equal(t, order.StepPOIntent, state.Step)
	assert.Contains(t, reply, "Regular Purchase")
}

func TestPOTypeSelection(t *testing.T) {
	t.Parallel()

	engine := New(nlu.NewKeywordAnalyzer(), newStubClient(), WithClock(fixedClock))
	state := order.NewConversationState()
	state.Step = order.StepPOIntent

	_, err := engine.Turn(context.Background(), state, "Cost Center Material")
	require.NoError(t, err)
	assert.Equal(t, "costCenterMaterial", state.Order.POType)
	assert.Equal(t, order.StepCollecting, state.Step)
}

func TestSingleMessageFillsWholeOrder(t *testing.T) {
	t.Parallel()

	analyzer := &scriptedAnalyzer{queue: []*nlu.Analysis{{
		Mentions: []nlu.Mention{
			{Category: "supplier", Text: "Smartsaa"},
			{Category: "purchase_org", Text: "Ashapura"},
			{Category: "plant", Text: "Ail Dhaneti"},
			{Category: "purchase_group", Text: "CPT"},
			{Category: "material", Text: "Scooty"},
		},
		Actions: []pathexpr.Action{
			{Op: pathexpr.OpSet, Path: "quantity", Value: 2.0},
			{Op: pathexpr.OpSet, Path: "price", Value: 50000.0},
			{Op: pathexpr.OpSet, Path: "po_date", Value: "2025-12-30"},
			{Op: pathexpr.OpSet, Path: "validity_end", Value: "2025-12-31"},
		},
	}}}
	engine := New(analyzer, newStubClient(), WithClock(fixedClock))
	state := order.NewConversationState()
	state.Step = order.StepCollecting

	reply, err := engine.Turn(context.Background(), state,
		"Supplier Smartsaa, org Ashapura, plant Ail Dhaneti, group CPT, 2 Scooty at 50000, PO date 2025-12-30 valid until 2025-12-31")
	require.NoError(t, err)

	o := state.Order
	assert.Equal(t, "0001045609", o.VendorID)
	assert.Equal(t, 1100, o.PurchaseOrgID)
	assert.Equal(t, "1101", o.PlantID)
	assert.Equal(t, 7, o.PurchaseGrpID)
	assert.Equal(t, "2025-12-30", o.PODate)
	assert.Equal(t, "2025-12-31", o.ValidityEnd)
	require.Len(t, o.LineItems, 1)
	assert.Equal(t, 2.0, o.LineItems[0].Quantity)
	assert.Equal(t, 50000.0, o.LineItems[0].Price)
	assert.Equal(t, 100000.0, o.LineItems[0].SubTotal)
	assert.Equal(t, "Alt Contact", o.AltSupName)

	// Everything mandatory is filled, so the optional-fields offer comes next.
	assert.True(t, state.OptionalsAsked)
	assert.Contains(t, reply, "payment terms")
}

func TestDecliningOptionalsAutoFills(t *testing.T) {
	t.Parallel()

	engine := New(nlu.NewKeywordAnalyzer(), newStubClient(), WithClock(fixedClock))
	state := collectingStateWithFullOrder()
	state.OptionalsAsked = true

	reply, err := engine.Turn(context.Background(), state, "no")
	require.NoError(t, err)

	assert.Equal(t, 4, state.Order.PaymentTerms)
	assert.Equal(t, "Net 30", state.Order.PaymentDesc)
	assert.Equal(t, 2, state.Order.IncoTerms)
	assert.Empty(t, state.Order.Projects[0].ProjectCode)
	assert.Equal(t, order.StepConfirm, state.Step)
	assert.Contains(t, reply, "Shall I submit")
}

func TestSubmitFailureStaysInConfirm(t *testing.T) {
	t.Parallel()

	client := newStubClient()
	client.submitResponse = map[string]any{
		"success": false,
		"data":    []any{map[string]any{"type": "E", "msg": "Vendor invalid"}},
	}
	engine := New(nlu.NewKeywordAnalyzer(), client, WithClock(fixedClock))
	state := confirmStateWithFullOrder()

	reply, err := engine.Turn(context.Background(), state, "yes")
	require.NoError(t, err)

	assert.Equal(t, order.StepConfirm, state.Step)
	assert.Contains(t, reply, "Vendor invalid")
}

func TestSubmitSuccessFinishes(t *testing.T) {
	t.Parallel()

	client := newStubClient()
	engine := New(nlu.NewKeywordAnalyzer(), client, WithClock(fixedClock))
	state := confirmStateWithFullOrder()

	reply, err := engine.Turn(context.Background(), state, "yes")
	require.NoError(t, err)

	assert.Equal(t, order.StepDone, state.Step)
	assert.Contains(t, reply, "PO-12345")

	require.NotNil(t, client.submittedForm)
	assert.Equal(t, "0001045609", client.submittedForm["vendor_id"])
	assert.Equal(t, "2", client.submittedForm["line_items[0].quantity"])
	assert.Equal(t, "", client.submittedForm["noc"])
	assert.Contains(t, client.submittedForm["po_date"], "GMT+0530 (India Standard Time)")
}

func TestAmbiguousMentionFreezesTurn(t *testing.T) {
	t.Parallel()

	client := newStubClient()
	client.suppliers = []catalog.Entry{
		{ID: "1", Name: "Acme Steel"},
		{ID: "2", Name: "Acme Polymers"},
	}
	analyzer := &scriptedAnalyzer{queue: []*nlu.Analysis{
		{Mentions: []nlu.Mention{{Category: "supplier", Text: "acme"}}},
		{Intents: []nlu.Intent{nlu.IntentNone}},
	}}
	engine := New(analyzer, client, WithClock(fixedClock))
	state := order.NewConversationState()
	state.Step = order.StepCollecting
	ctx := context.Background()

	reply, err := engine.Turn(ctx, state, "supplier acme")
	require.NoError(t, err)
	require.NotNil(t, state.Pending)
	assert.Contains(t, reply, "Acme Steel")
	assert.Contains(t, reply, "Acme Polymers")
	assert.Empty(t, state.Order.VendorID)

	_, err = engine.Turn(ctx, state, "1")
	require.NoError(t, err)
	assert.Nil(t, state.Pending)
	assert.Equal(t, "1", state.Order.VendorID)
}

func TestCancelResetsState(t *testing.T) {
	t.Parallel()

	engine := New(nlu.NewKeywordAnalyzer(), newStubClient(), WithClock(fixedClock))
	state := collectingStateWithFullOrder()

	reply, err := engine.Turn(context.Background(), state, "cancel")
	require.NoError(t, err)
	assert.Equal(t, order.StepGreeting, state.Step)
	assert.Empty(t, state.Order.VendorID)
	assert.Contains(t, reply, "discarded")
}

func TestAddAnotherItemFromConfirm(t *testing.T) {
	t.Parallel()

	engine := New(nlu.NewKeywordAnalyzer(), newStubClient(), WithClock(fixedClock))
	state := confirmStateWithFullOrder()

	_, err := engine.Turn(context.Background(), state, "add another item")
	require.NoError(t, err)
	assert.Equal(t, order.StepCollecting, state.Step)
	require.NotNil(t, state.PendingItem)
}

func TestStartOverAfterDone(t *testing.T) {
	t.Parallel()

	engine := New(nlu.NewKeywordAnalyzer(), newStubClient(), WithClock(fixedClock))
	state := confirmStateWithFullOrder()
	state.Step = order.StepDone

	reply, err := engine.Turn(context.Background(), state, "start over")
	require.NoError(t, err)
	assert.Equal(t, order.StepPOIntent, state.Step)
	assert.Empty(t, state.Order.VendorID)
	assert.Contains(t, reply, "Regular Purchase")
}

func TestStringAmountsApplyAcrossBatch(t *testing.T) {
	t.Parallel()

	analyzer := &scriptedAnalyzer{queue: []*nlu.Analysis{{
		Actions: []pathexpr.Action{
			{Op: pathexpr.OpSet, Path: "line_items[0].quantity", Value: "3"},
			{Op: pathexpr.OpSet, Path: "remarks", Value: "urgent"},
		},
	}}}
	engine := New(analyzer, newStubClient(), WithClock(fixedClock))
	state := collectingStateWithFullOrder()

	_, err := engine.Turn(context.Background(), state, "make the quantity 3, remarks urgent")
	require.NoError(t, err)

	require.Len(t, state.Order.LineItems, 1)
	assert.Equal(t, 3.0, state.Order.LineItems[0].Quantity)
	assert.Equal(t, 150000.0, state.Order.LineItems[0].SubTotal)
	assert.Equal(t, "urgent", state.Order.Remarks)
}

func TestStringQuantityOnPendingItem(t *testing.T) {
	t.Parallel()

	analyzer := &scriptedAnalyzer{queue: []*nlu.Analysis{{
		Actions: []pathexpr.Action{
			{Op: pathexpr.OpSet, Path: "quantity", Value: "2"},
		},
	}}}
	engine := New(analyzer, newStubClient(), WithClock(fixedClock))
	state := collectingStateWithFullOrder()
	state.PendingItem = &order.LineItem{MaterialID: 42, ShortText: "Scooty", UnitID: 6, Price: 50000}

	_, err := engine.Turn(context.Background(), state, "quantity 2")
	require.NoError(t, err)

	// The item completed and moved onto the record.
	assert.Nil(t, state.PendingItem)
	require.Len(t, state.Order.LineItems, 2)
	assert.Equal(t, 2.0, state.Order.LineItems[1].Quantity)
}

func TestBadValueDoesNotDropSiblingEdits(t *testing.T) {
	t.Parallel()

	analyzer := &scriptedAnalyzer{queue: []*nlu.Analysis{{
		Actions: []pathexpr.Action{
			{Op: pathexpr.OpSet, Path: "quantity", Value: "lots"},
			{Op: pathexpr.OpSet, Path: "short_text", Value: "Blue paint"},
		},
	}}}
	engine := New(analyzer, newStubClient(), WithClock(fixedClock))
	state := collectingStateWithFullOrder()
	state.PendingItem = &order.LineItem{}

	reply, err := engine.Turn(context.Background(), state, "quantity lots of blue paint")
	require.NoError(t, err)

	require.NotNil(t, state.PendingItem)
	assert.Equal(t, "Blue paint", state.PendingItem.ShortText)
	assert.Equal(t, 0.0, state.PendingItem.Quantity)
	assert.Contains(t, reply, "could not apply")
}

func TestCatalogOutageKeepsTurnAlive(t *testing.T) {
	t.Parallel()

	client := newStubClient()
	client.supplierErr = errors.New("connection refused")
	analyzer := &scriptedAnalyzer{queue: []*nlu.Analysis{{
		Mentions: []nlu.Mention{{Category: "supplier", Text: "Smartsaa"}},
	}}}
	engine := New(analyzer, client, WithClock(fixedClock))
	state := order.NewConversationState()
	state.Step = order.StepCollecting

	reply, err := engine.Turn(context.Background(), state, "supplier Smartsaa")
	require.NoError(t, err)

	assert.Equal(t, order.StepCollecting, state.Step)
	assert.Empty(t, state.Order.VendorID)
	assert.Contains(t, reply, "catalog service")
}

func TestUnrecognizedPOTypeAsksAgainThenDefaults(t *testing.T) {
	t.Parallel()

	engine := New(nlu.NewKeywordAnalyzer(), newStubClient(), WithClock(fixedClock))
	state := order.NewConversationState()
	state.Step = order.StepPOIntent
	ctx := context.Background()

	reply, err := engine.Turn(ctx, state, "banana")
	require.NoError(t, err)
	assert.Equal(t, order.StepPOIntent, state.Step)
	assert.Empty(t, state.Order.POType)
	assert.Contains(t, reply, "did not recognize")

	_, err = engine.Turn(ctx, state, "banana again")
	require.NoError(t, err)
	assert.Equal(t, order.StepCollecting, state.Step)
	assert.Equal(t, "regularPurchase", state.Order.POType)
}

func collectingStateWithFullOrder() *order.ConversationState {
	state := order.NewConversationState()
	state.Step = order.StepCollecting
	o := state.Order
	o.POType = "regularPurchase"
	o.VendorID = "0001045609"
	o.PurchaseOrgID = 1100
	o.PlantID = "1101"
	o.PurchaseGrpID = 7
	o.PODate = "2025-12-30"
	o.ValidityEnd = "2025-12-31"
	item := order.LineItem{MaterialID: 42, ShortText: "Scooty", UnitID: 6, Quantity: 2, Price: 50000}
	item.Finalize(o.PODate)
	o.LineItems = []order.LineItem{item}
	o.Recalc()
	return state
}

func confirmStateWithFullOrder() *order.ConversationState {
	state := collectingStateWithFullOrder()
	state.Step = order.StepConfirm
	state.OptionalsAsked = true
	state.OptionalsAnswered = true
	state.Order.PaymentTerms = 4
	state.Order.IncoTerms = 2
	return state
}
