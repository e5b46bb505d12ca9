package parquet

import (
	"fmt"
	"strings"

	"github.com/streamparquet/parquet/format"
)

// Node is one entry of the preorder-flattened schema tree, carrying the
// bookkeeping the page-decoding and Dremel-assembly layers need: its
// dotted path, definition/repetition depth, and (for leaves) its physical
// type.
type Node struct {
	Element  format.SchemaElement
	Path     []string // dotted path components from the message root, exclusive of "root"
	Children []*Node
	Parent   *Node

	// MaxDefinitionLevel and MaxRepetitionLevel are the highest def/rep
	// values any value at this node (or below it) can carry, i.e. the
	// count of OPTIONAL/REPEATED ancestors (inclusive of this node).
	MaxDefinitionLevel int
	MaxRepetitionLevel int

	// ColumnIndex is this leaf's position in the flattened leaf-column
	// list, or -1 for interior nodes.
	ColumnIndex int

	// IsList and IsMap record the shape recognized by the converted/logical
	// type heuristics described in spec.md §4.D and this package's Open
	// Questions resolution (DESIGN.md): the repeated wrapper is identified
	// by its cardinality, whatever its name, and a map's key child by the
	// name "key", never by positional index.
	IsList bool
	IsMap  bool
}

func (n *Node) isLeaf() bool { return len(n.Children) == 0 }

func (n *Node) dottedPath() string { return strings.Join(n.Path, ".") }

// Schema is the decoded message schema: a tree rooted at a synthetic message
// node, plus a flattened list of leaf columns in on-disk order.
type Schema struct {
	Root    *Node
	Leaves  []*Node
	byPath  map[string]*Node
}

// ColumnByPath looks up a leaf by its dotted path (e.g. "address.city").
func (s *Schema) ColumnByPath(path string) (*Node, bool) {
	n, ok := s.byPath[path]
	return n, ok
}

// BuildSchema walks FileMetaData's flattened preorder SchemaElement list
// (index 0 is always the synthetic message root) and reconstructs the tree,
// matching parquet-mr's own preorder/numChildren walk.
func BuildSchema(elements []format.SchemaElement) (*Schema, error) {
	if len(elements) == 0 {
		return nil, fmt.Errorf("parquet: %w: empty schema", ErrSchemaConflict)
	}
	pos := 0
	root, err := buildNode(elements, &pos, nil, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	if pos != len(elements) {
		return nil, fmt.Errorf("parquet: %w: %d trailing schema elements not consumed", ErrSchemaConflict, len(elements)-pos)
	}
	seen := map[string]bool{}
	for _, c := range root.Children {
		if seen[c.Element.Name] {
			return nil, fmt.Errorf("parquet: %w: duplicate top-level column %q", ErrSchemaConflict, c.Element.Name)
		}
		seen[c.Element.Name] = true
	}

	s := &Schema{Root: root, byPath: map[string]*Node{}}
	var collect func(*Node)
	collect = func(n *Node) {
		for _, c := range n.Children {
			if c.isLeaf() {
				c.ColumnIndex = len(s.Leaves)
				s.Leaves = append(s.Leaves, c)
				s.byPath[c.dottedPath()] = c
			} else {
				c.ColumnIndex = -1
				collect(c)
			}
		}
	}
	root.ColumnIndex = -1
	collect(root)
	if err := markListsAndMaps(root); err != nil {
		return nil, err
	}
	return s, nil
}

func buildNode(elements []format.SchemaElement, pos *int, parent *Node, path []string, parentDef, parentRep int) (*Node, error) {
	if *pos >= len(elements) {
		return nil, fmt.Errorf("parquet: %w: schema element list ended mid-tree", ErrSchemaConflict)
	}
	el := elements[*pos]
	*pos++

	def, rep := parentDef, parentRep
	if parent != nil {
		switch {
		case el.RepetitionType == nil:
			return nil, fmt.Errorf("parquet: %w: %q missing repetition type", ErrSchemaConflict, el.Name)
		case *el.RepetitionType == format.Optional:
			def++
		case *el.RepetitionType == format.Repeated:
			def++
			rep++
		}
	}

	n := &Node{
		Element:            el,
		Parent:             parent,
		MaxDefinitionLevel: def,
		MaxRepetitionLevel: rep,
	}
	if parent != nil {
		n.Path = append(append([]string(nil), path...), el.Name)
	}

	numChildren := 0
	if el.NumChildren != nil {
		numChildren = int(*el.NumChildren)
	} else if parent == nil {
		return nil, fmt.Errorf("parquet: %w: root element missing numChildren", ErrSchemaConflict)
	}
	for i := 0; i < numChildren; i++ {
		child, err := buildNode(elements, pos, n, n.Path, def, rep)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	if numChildren == 0 && el.Type == nil && parent != nil {
		return nil, fmt.Errorf("parquet: %w: %q has neither children nor a physical type", ErrSchemaConflict, el.Name)
	}
	return n, nil
}

// markListsAndMaps recognizes the LIST and MAP three-level (or legacy
// two-level) wrapper shapes described by the LogicalType/ConvertedType
// annotations, identifying the repeated child by its cardinality rather
// than by the conventional "list"/"key_value" name, so producers using
// nonstandard names are still handled correctly. A MAP-annotated node whose
// repeated child lacks a "key"-named grandchild is a schema conflict, per
// spec.md's map-key-ordering Open Question resolution: detect by name, not
// position, and fail rather than guess.
func markListsAndMaps(n *Node) error {
	for _, c := range n.Children {
		isListAnnotated := c.Element.LogicalType != nil && c.Element.LogicalType.List != nil ||
			c.Element.ConvertedType != nil && *c.Element.ConvertedType == format.List
		isMapAnnotated := c.Element.LogicalType != nil && c.Element.LogicalType.Map != nil ||
			c.Element.ConvertedType != nil && (*c.Element.ConvertedType == format.Map || *c.Element.ConvertedType == format.MapKeyValue)

		if isListAnnotated && len(c.Children) == 1 && c.Children[0].Element.RepetitionType != nil && *c.Children[0].Element.RepetitionType == format.Repeated {
			c.IsList = true
		}
		if isMapAnnotated && len(c.Children) == 1 {
			kv := c.Children[0]
			if kv.Element.RepetitionType != nil && *kv.Element.RepetitionType == format.Repeated && len(kv.Children) == 2 {
				hasKey := false
				for _, gc := range kv.Children {
					if gc.Element.Name == "key" {
						hasKey = true
					}
				}
				if !hasKey {
					return fmt.Errorf("parquet: map column %q has no child named %q: %w", c.dottedPath(), "key", ErrSchemaConflict)
				}
				c.IsMap = true
			}
		}
		if err := markListsAndMaps(c); err != nil {
			return err
		}
	}
	return nil
}
