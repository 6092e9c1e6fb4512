// Package pathexpr applies structured edits to a purchase-order document using
// dotted path expressions such as line_items[0].price. Paths are parsed once
// into a small segment AST and interpreted against the generic JSON form of
// the record; missing containers are created on the way down.
package pathexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a parsed path: a field name, optionally indexed.
type Segment struct {
	Field   string
	Index   int
	Indexed bool
}

// Parse turns a dotted path expression into its segments. An indexed segment
// carries a bracketed non-negative integer, e.g. line_items[2].
func Parse(path string) ([]Segment, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	parts := strings.Split(path, ".")
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("path %q has an empty segment", path)
		}
		open := strings.IndexByte(part, '[')
		if open < 0 {
			segments = append(segments, Segment{Field: part})
			continue
		}
		if !strings.HasSuffix(part, "]") || open == 0 {
			return nil, fmt.Errorf("malformed indexed segment %q", part)
		}
		idx, err := strconv.Atoi(part[open+1 : len(part)-1])
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid index in segment %q", part)
		}
		segments = append(segments, Segment{Field: part[:open], Index: idx, Indexed: true})
	}
	return segments, nil
}

// String renders the segments back into path form.
func String(segments []Segment) string {
	var sb strings.Builder
	for i, seg := range segments {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(seg.Field)
		if seg.Indexed {
			fmt.Fprintf(&sb, "[%d]", seg.Index)
		}
	}
	return sb.String()
}
