package pathexpr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

type Op string

const (
	OpSet Op = "set"
	OpAdd Op = "add"
)

// Action is one structured edit produced by the language layer.
type Action struct {
	Op    Op     `json:"op" jsonschema:"required,enum=set,enum=add,description=set writes a field; add appends to a list"`
	Path  string `json:"path" jsonschema:"required,description=Dotted path such as po_date or line_items[0].quantity"`
	Value any    `json:"value,omitempty" jsonschema:"description=The value to write"`
}

// Result is the per-action outcome. A batch never aborts: a failing action is
// recorded and the remaining actions still run.
type Result struct {
	Path    string
	Applied bool
	Detail  string
	Err     error
}

// ResolvedMaterial is a catalog-resolved material used as a mutation value.
// Writing one to material_id fans out to the sibling fields of the line item.
type ResolvedMaterial struct {
	ID              int
	Name            string
	Price           float64
	UnitID          int
	MaterialGroupID int
	TaxCode         int
}

// ApplyAll runs a batch of actions against the document.
func ApplyAll(doc map[string]any, actions []Action) []Result {
	results := make([]Result, 0, len(actions))
	for _, action := range actions {
		result := Apply(doc, action)
		if result.Err != nil {
			log.Debug().Str("path", action.Path).Err(result.Err).Msg("edit action skipped")
		}
		results = append(results, result)
	}
	return results
}

// Apply performs one SET or ADD against the document, creating intermediate
// containers as needed.
func Apply(doc map[string]any, action Action) Result {
	segments, err := Parse(action.Path)
	if err != nil {
		return Result{Path: action.Path, Err: err}
	}
	canonicalize(segments)

	switch action.Op {
	case OpSet:
		return applySet(doc, segments, action.Value)
	case OpAdd:
		return applyAdd(doc, segments, action.Value)
	default:
		return Result{Path: action.Path, Err: fmt.Errorf("unknown operation %q", action.Op)}
	}
}

// canonicalize rewrites the first segment (whole top-level paths) and the leaf
// of indexed paths through the alias table.
func canonicalize(segments []Segment) {
	segments[0].Field = Canonical(segments[0].Field)
	if len(segments) > 1 {
		last := len(segments) - 1
		if !segments[last].Indexed {
			segments[last].Field = Canonical(segments[last].Field)
		}
	}
}

func applySet(doc map[string]any, segments []Segment, value any) Result {
	path := String(segments)
	parent, leaf, err := navigate(doc, segments)
	if err != nil {
		return Result{Path: path, Err: err}
	}

	if material, ok := materialValue(value); ok && leaf.Field == "material_id" {
		Hydrate(parent, material)
		return Result{Path: path, Applied: true, Detail: fmt.Sprintf("material set to %s", material.Name)}
	}

	coerced := coerce(leaf.Field, value)
	if leaf.Indexed {
		list, err := listAt(parent, leaf.Field, leaf.Index)
		if err != nil {
			return Result{Path: path, Err: err}
		}
		list[leaf.Index] = coerced
		parent[leaf.Field] = list
	} else {
		parent[leaf.Field] = coerced
	}
	return Result{Path: path, Applied: true, Detail: fmt.Sprintf("%s set to %v", leaf.Field, coerced)}
}

func applyAdd(doc map[string]any, segments []Segment, value any) Result {
	path := String(segments)
	parent, leaf, err := navigate(doc, segments)
	if err != nil {
		return Result{Path: path, Err: err}
	}
	if leaf.Indexed {
		return Result{Path: path, Err: fmt.Errorf("add targets a list field, not an index")}
	}

	list, _ := parent[leaf.Field].([]any)

	var element any
	if material, ok := materialValue(value); ok {
		item := map[string]any{}
		Hydrate(item, material)
		element = item
	} else if partial, ok := value.(map[string]any); ok {
		item := map[string]any{}
		for key, v := range partial {
			field := Canonical(key)
			item[field] = coerce(field, v)
		}
		element = item
	} else {
		element = value
	}

	parent[leaf.Field] = append(list, element)
	return Result{Path: path, Applied: true, Detail: fmt.Sprintf("appended to %s", leaf.Field)}
}

// Hydrate fans a resolved material out to the line-item fields it implies.
// Existing description and price survive; identifiers are always refreshed.
func Hydrate(item map[string]any, material *ResolvedMaterial) {
	item["material_id"] = material.ID
	item["unit_id"] = material.UnitID
	item["material_group_id"] = material.MaterialGroupID
	if material.TaxCode != 0 {
		item["tax_code"] = material.TaxCode
	}
	if text, _ := item["short_text"].(string); text == "" {
		item["short_text"] = material.Name
	}
	if !positiveNumber(item["price"]) && material.Price > 0 {
		item["price"] = material.Price
	}
}

// navigate walks to the parent container of the leaf segment, creating missing
// maps and padding missing list slots with empty records.
func navigate(doc map[string]any, segments []Segment) (map[string]any, Segment, error) {
	current := doc
	for _, seg := range segments[:len(segments)-1] {
		if !seg.Indexed {
			child, ok := current[seg.Field].(map[string]any)
			if !ok {
				if existing, present := current[seg.Field]; present && existing != nil {
					if _, isMap := existing.(map[string]any); !isMap {
						return nil, Segment{}, fmt.Errorf("segment %q is not an object", seg.Field)
					}
				}
				child = map[string]any{}
				current[seg.Field] = child
			}
			current = child
			continue
		}
		list, err := listAt(current, seg.Field, seg.Index)
		if err != nil {
			return nil, Segment{}, err
		}
		child, ok := list[seg.Index].(map[string]any)
		if !ok {
			child = map[string]any{}
			list[seg.Index] = child
		}
		current[seg.Field] = list
		current = child
	}
	return current, segments[len(segments)-1], nil
}

// listAt returns the list under field grown to cover index.
func listAt(parent map[string]any, field string, index int) ([]any, error) {
	list, ok := parent[field].([]any)
	if !ok {
		if existing, present := parent[field]; present && existing != nil {
			if _, isList := existing.([]any); !isList {
				return nil, fmt.Errorf("segment %q is not a list", field)
			}
		}
		list = []any{}
	}
	for len(list) <= index {
		list = append(list, map[string]any{})
	}
	parent[field] = list
	return list, nil
}

func materialValue(v any) (*ResolvedMaterial, bool) {
	switch material := v.(type) {
	case ResolvedMaterial:
		return &material, true
	case *ResolvedMaterial:
		return material, true
	}
	return nil, false
}

// coerce applies the final value conversions: purely numeric text becomes an
// integer for identifier-like fields and a float for amount fields, and the
// literal strings "true"/"false" become booleans. Users type quantities and
// prices as words, so amount fields must accept "3" as well as 3.
func coerce(field string, value any) any {
	s, ok := value.(string)
	if !ok {
		if f, isFloat := value.(float64); isFloat && idLikeField(field) && f == float64(int(f)) {
			return int(f)
		}
		return value
	}
	s = strings.TrimSpace(s)
	if idLikeField(field) {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	if amountField(field) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// Fields that are integers on the record. vendor_id, plant_id and
// project_code stay strings; supplier and plant ids keep their leading zeros.
var numericIDFields = map[string]bool{
	"purchase_org_id":   true,
	"purchase_grp_id":   true,
	"material_id":       true,
	"unit_id":           true,
	"material_group_id": true,
	"tax_code":          true,
	"hsn_id":            true,
	"payment_terms":     true,
	"inco_terms":        true,
}

func idLikeField(field string) bool {
	return numericIDFields[field]
}

// Fields that carry amounts as floats on the record.
var amountFields = map[string]bool{
	"quantity":    true,
	"price":       true,
	"sub_total":   true,
	"tax":         true,
	"total_value": true,
	"total":       true,
}

func amountField(field string) bool {
	return amountFields[field]
}

func positiveNumber(v any) bool {
	switch n := v.(type) {
	case float64:
		return n > 0
	case int:
		return n > 0
	}
	return false
}
