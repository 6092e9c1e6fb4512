// Package nlu defines the contract with the natural-language understanding
// oracle. The engine never inspects raw text itself beyond a few keyword
// fallbacks; it hands the turn to an Analyzer and works with the structured
// result.
package nlu

import (
	"context"

	"github.com/Amit-aeonx/po-agent/order"
	"github.com/Amit-aeonx/po-agent/pathexpr"
)

type Intent string

const (
	IntentNone        Intent = "none"
	IntentConfirm     Intent = "confirm"
	IntentReject      Intent = "reject"
	IntentCancel      Intent = "cancel"
	IntentShowOptions Intent = "show_options"
	IntentAddItem     Intent = "add_item"
	IntentStartOver   Intent = "start_over"
	IntentCreateOrder Intent = "create_order"
)

// Mention is a free-text reference that needs catalog resolution before it can
// be committed to the record.
type Mention struct {
	Category string `json:"category" jsonschema:"required,enum=supplier,enum=material,enum=plant,enum=purchase_org,enum=purchase_group,enum=project,enum=payment_term,enum=incoterm,enum=tax_code,description=The lookup collection this mention belongs to"`
	Text     string `json:"text" jsonschema:"required,description=The words the user used"`
}

// Analysis is the structured reading of one user turn.
type Analysis struct {
	Intents  []Intent          `json:"intents,omitempty"`
	Actions  []pathexpr.Action `json:"actions,omitempty"`
	Mentions []Mention         `json:"mentions,omitempty"`
}

// Has reports whether the analysis contains the given intent.
func (a *Analysis) Has(intent Intent) bool {
	for _, it := range a.Intents {
		if it == intent {
			return true
		}
	}
	return false
}

// Request carries everything the oracle may condition on for one turn.
type Request struct {
	Input        string
	Step         string
	LastQuestion string
	Snapshot     map[string]any
	Schema       string
	History      []order.Turn
}

type Analyzer interface {
	Analyze(ctx context.Context, req *Request) (*Analysis, error)
}
