package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pixie-sh/clientgen-cli/internal/generator/ir"
)

// shapeKey builds the structural interning key for a built shape: its kind,
// the TypeIds of its components, and the sorted field tuples. Component ids
// are already deduplicated recursively, so id equality stands in for deep
// structural equality of anonymous children; named components keep their own
// ids and therefore never merge.
func shapeKey(s *shape) string {
	var b strings.Builder
	b.WriteString(s.kind.String())
	b.WriteByte(':')

	switch s.kind {
	case ir.KindPrimitive:
		fmt.Fprintf(&b, "%s/%s", s.prim.Type, s.prim.Format)
	case ir.KindEnum:
		fmt.Fprintf(&b, "%s/%s:", s.prim.Type, s.prim.Format)
		for _, v := range s.variants {
			fmt.Fprintf(&b, "%v,", v.Literal)
		}
	case ir.KindStruct:
		fields := make([]ir.Field, len(s.fields))
		copy(fields, s.fields)
		sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
		for _, f := range fields {
			fmt.Fprintf(&b, "%s=%s:%d:%t:%t;", f.Name, f.WireName, f.Typ, f.Optional, f.Nullable)
		}
	case ir.KindSum:
		fmt.Fprintf(&b, "%s:", s.discriminator)
		for _, v := range s.variants {
			fmt.Fprintf(&b, "%d=%s,", v.Typ, v.WireValue)
		}
	case ir.KindAlias, ir.KindArray, ir.KindMap:
		fmt.Fprintf(&b, "%d", s.elem)
	case ir.KindOpaque:
		b.WriteString(s.opaque)
	}
	return b.String()
}

// deepKey computes a name-independent structural key for an already
// registered type, expanding named references. Used to decide whether two
// allOf branches agree on a field's type. Cycles collapse to a back-reference
// marker so the recursion terminates.
func (n *Normalizer) deepKey(id ir.TypeId, visited map[ir.TypeId]int) string {
	if depth, ok := visited[id]; ok {
		return fmt.Sprintf("@%d", depth)
	}
	visited[id] = len(visited)
	defer delete(visited, id)

	t := n.table.Get(id)
	switch t.Kind {
	case ir.KindPrimitive:
		return fmt.Sprintf("prim:%s/%s", t.Prim.Type, t.Prim.Format)
	case ir.KindEnum:
		var b strings.Builder
		fmt.Fprintf(&b, "enum:%s/%s:", t.Prim.Type, t.Prim.Format)
		for _, v := range t.Variants {
			fmt.Fprintf(&b, "%v,", v.Literal)
		}
		return b.String()
	case ir.KindStruct:
		fields := make([]ir.Field, len(t.Fields))
		copy(fields, t.Fields)
		sort.Slice(fields, func(i, j int) bool { return fields[i].WireName < fields[j].WireName })
		var b strings.Builder
		b.WriteString("struct:")
		for _, f := range fields {
			fmt.Fprintf(&b, "%s=%s:%t:%t;", f.WireName, n.deepKey(f.Typ, visited), f.Optional, f.Nullable)
		}
		return b.String()
	case ir.KindSum:
		var b strings.Builder
		fmt.Fprintf(&b, "sum:%s:", t.Discriminator)
		for _, v := range t.Variants {
			fmt.Fprintf(&b, "%s=%s,", v.WireValue, n.deepKey(v.Typ, visited))
		}
		return b.String()
	case ir.KindAlias:
		return n.deepKey(t.Elem, visited)
	case ir.KindArray:
		return "array:" + n.deepKey(t.Elem, visited)
	case ir.KindMap:
		return "map:" + n.deepKey(t.Elem, visited)
	case ir.KindOpaque:
		return "opaque:" + t.Opaque
	}
	return "pending"
}

// sameStructure reports whether two registered types are structurally
// identical, ignoring names.
func (n *Normalizer) sameStructure(a, b ir.TypeId) bool {
	if a == b {
		return true
	}
	return n.deepKey(a, map[ir.TypeId]int{}) == n.deepKey(b, map[ir.TypeId]int{})
}
