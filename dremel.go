package parquet

import (
	"fmt"

	"github.com/streamparquet/parquet/format"
)

// leafCursor walks one leaf's flat DecodedArray one logical entry at a time,
// tracking separately the entry position (into the def/rep level arrays)
// and the value position (into the materialized non-null values), since
// entries with def < maxDef have no corresponding physical value.
type leafCursor struct {
	leaf  *Node
	arr   *DecodedArray
	total int
	idx   int
	vidx  int
}

func newLeafCursor(leaf *Node, arr *DecodedArray) *leafCursor {
	total := len(arr.Values)
	if leaf.MaxDefinitionLevel > 0 {
		total = len(arr.DefinitionLevels)
	}
	return &leafCursor{leaf: leaf, arr: arr, total: total}
}

func (c *leafCursor) done() bool { return c.idx >= c.total }

func (c *leafCursor) def() int {
	if c.leaf.MaxDefinitionLevel == 0 {
		return 0
	}
	return int(c.arr.DefinitionLevels[c.idx])
}

func (c *leafCursor) rep() int {
	if c.leaf.MaxRepetitionLevel == 0 {
		return 0
	}
	return int(c.arr.RepetitionLevels[c.idx])
}

// consume reads the current entry (a scalar value, or nil if the entry's
// definition level falls short of the leaf's own), then advances.
func (c *leafCursor) consume() any {
	var v any
	if c.def() == c.leaf.MaxDefinitionLevel {
		v = c.arr.Values[c.vidx]
		c.vidx++
	}
	c.idx++
	return v
}

// AssembleRows reconstructs rowCount nested row objects from a set of
// decoded leaf arrays by recursive descent over the schema tree, advancing
// one cursor per leaf (rather than keeping an explicit container stack).
// Only leaves present in arrays are included in the output (the projection
// mechanism: a leaf the caller didn't decode is simply absent from every
// row). Keys are schema field names; nested groups become map[string]any,
// repeated fields become []any, MAP-like columns become map[string]any
// keyed by the stringified key leaf's value.
func AssembleRows(schema *Schema, arrays map[string]*DecodedArray, rowCount int) ([]map[string]any, error) {
	cursors := make(map[string]*leafCursor, len(arrays))
	for path, arr := range arrays {
		leaf, ok := schema.ColumnByPath(path)
		if !ok {
			return nil, fmt.Errorf("parquet: decoded array for unknown column %q: %w", path, ErrSchemaConflict)
		}
		cursors[path] = newLeafCursor(leaf, arr)
	}

	rows := make([]map[string]any, rowCount)
	for r := 0; r < rowCount; r++ {
		obj := map[string]any{}
		for _, child := range schema.Root.Children {
			if !hasAnyCursor(child, cursors) {
				continue
			}
			obj[child.Element.Name] = assembleTopLevelField(child, cursors)
		}
		rows[r] = obj
	}
	return rows, nil
}

func hasAnyCursor(n *Node, cursors map[string]*leafCursor) bool {
	if n.isLeaf() {
		_, ok := cursors[n.dottedPath()]
		return ok
	}
	for _, c := range n.Children {
		if hasAnyCursor(c, cursors) {
			return true
		}
	}
	return false
}

func assembleTopLevelField(child *Node, cursors map[string]*leafCursor) any {
	if child.Element.RepetitionType != nil && *child.Element.RepetitionType == format.Repeated && !child.IsList {
		return assembleList(child, cursors)
	}
	return assembleValue(child, cursors)
}

// assembleValue reads exactly one logical occurrence of node (a struct
// field, list field, or map field) from the shared cursors, advancing every
// leaf beneath node by the entries that belong to this occurrence.
func assembleValue(node *Node, cursors map[string]*leafCursor) any {
	switch {
	case node.isLeaf():
		return cursors[node.dottedPath()].consume()
	case node.IsMap:
		return assembleMap(node, cursors)
	case node.IsList:
		return assembleList(node.Children[0], cursors)
	default:
		obj := map[string]any{}
		for _, c := range node.Children {
			if c.Element.RepetitionType != nil && *c.Element.RepetitionType == format.Repeated && !c.IsList {
				obj[c.Element.Name] = assembleList(c, cursors)
			} else {
				obj[c.Element.Name] = assembleValue(c, cursors)
			}
		}
		return obj
	}
}

// firstLeaf returns the first leaf in preorder beneath node (or node
// itself), used as the synchronization point for deciding repetition
// boundaries: every leaf beneath a shared repeated ancestor records a new
// occurrence of that ancestor at the same point in its own stream, so any
// one of them suffices to drive the loop.
func firstLeaf(node *Node) *Node {
	if node.isLeaf() {
		return node
	}
	return firstLeaf(node.Children[0])
}

// assembleList reads all elements of one occurrence of a REPEATED node
// (elem), stopping when the next entry's repetition level falls below
// elem's own, which marks the start of a shallower repetition (a new row,
// or a new occurrence of an ancestor list).
func assembleList(elem *Node, cursors map[string]*leafCursor) []any {
	sync := cursors[firstLeaf(elem).dottedPath()]
	if sync.done() {
		return []any{}
	}
	if sync.def() < elem.MaxDefinitionLevel {
		consumeEmptyMarker(elem, cursors)
		return []any{}
	}
	out := []any{}
	for {
		out = append(out, assembleValue(elem, cursors))
		if sync.done() || sync.rep() < elem.MaxRepetitionLevel {
			break
		}
	}
	return out
}

// consumeEmptyMarker advances every leaf beneath node by exactly one entry,
// used when a repeated or optional group is absent: every descendant leaf
// still records one (null) entry at that position.
func consumeEmptyMarker(node *Node, cursors map[string]*leafCursor) {
	if node.isLeaf() {
		cursors[node.dottedPath()].consume()
		return
	}
	for _, c := range node.Children {
		consumeEmptyMarker(c, cursors)
	}
}

// assembleMap reads one occurrence of a MAP-annotated node's repeated
// key_value child, pairing key and value leaves index-by-index. Null-keyed
// entries drop (spec.md §4.G); a missing value for a present key becomes
// nil.
func assembleMap(node *Node, cursors map[string]*leafCursor) map[string]any {
	kv := node.Children[0]
	var keyNode, valueNode *Node
	for _, c := range kv.Children {
		switch c.Element.Name {
		case "key":
			keyNode = c
		case "value":
			valueNode = c
		}
	}
	result := map[string]any{}
	sync := cursors[firstLeaf(kv).dottedPath()]
	if sync.done() {
		return result
	}
	if sync.def() < kv.MaxDefinitionLevel {
		consumeEmptyMarker(kv, cursors)
		return result
	}
	for {
		key := assembleValue(keyNode, cursors)
		var val any
		if valueNode != nil {
			val = assembleValue(valueNode, cursors)
		}
		if key != nil {
			result[fmt.Sprintf("%v", key)] = val
		}
		if sync.done() || sync.rep() < kv.MaxRepetitionLevel {
			break
		}
	}
	return result
}
