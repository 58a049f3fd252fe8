package normalize

import (
	"github.com/pixie-sh/clientgen-cli/internal/generator/ir"
	"github.com/pixie-sh/clientgen-cli/internal/generator/spec"
)

// The opaque placeholder expressions the renderer understands.
const (
	opaqueJSONRepr  = "json.RawMessage"
	opaqueBytesRepr = "[]byte"
	opaqueUnitRepr  = "struct{}"
)

// OpaqueJSON returns the shared dynamic-JSON value type, for schemas with no
// type and no composition.
func (n *Normalizer) OpaqueJSON() ir.TypeId {
	return n.opaque("AnyValue", opaqueJSONRepr, "")
}

// OpaqueBytes returns the shared raw-body type, for content with no schema.
func (n *Normalizer) OpaqueBytes() ir.TypeId {
	return n.opaque("RawBody", opaqueBytesRepr, "")
}

// OpaqueUnit returns the shared unit type, for operations with no response
// schema and for references to ignored components.
func (n *Normalizer) OpaqueUnit() ir.TypeId {
	return n.opaque("Unit", opaqueUnitRepr, "")
}

// externalOpaque represents an external reference the resolver refused to
// follow. Each distinct target gets one shared type named after it.
func (n *Normalizer) externalOpaque(ptr, ref string) ir.TypeId {
	hint := "External"
	if tokens := spec.Tokens(ref); len(tokens) > 0 {
		hint = "External" + tokens[len(tokens)-1]
	}
	return n.opaque(hint, opaqueJSONRepr, "external:"+ref)
}

// opaque interns an opaque type by its representation (and, for externals,
// the referenced target).
func (n *Normalizer) opaque(hint, repr, key string) ir.TypeId {
	// Matches the anonymous shape key so inline schemas that reduce to the
	// same opaque representation share the entry.
	internKey := "opaque:" + repr
	if key != "" {
		internKey += ":" + key
	}
	if id, ok := n.interned[internKey]; ok {
		return id
	}
	id := n.table.Alloc(n.alloc.TypeName("", hint), ir.Origin{Role: "opaque", Synthetic: true})
	n.apply(id, &shape{kind: ir.KindOpaque, opaque: repr, elem: ir.None})
	n.interned[internKey] = id
	return id
}
