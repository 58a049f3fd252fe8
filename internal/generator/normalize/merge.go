package normalize

import (
	"sort"
	"strconv"

	"dario.cat/mergo"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/pixie-sh/errors-go"

	"github.com/pixie-sh/clientgen-cli/internal/generator/ir"
	"github.com/pixie-sh/clientgen-cli/internal/generator/names"
	"github.com/pixie-sh/clientgen-cli/internal/generator/spec"
)

// allOfShape merges composition branches into one struct. Fields are the
// union of the branches' struct fields, required lists are unioned, and a
// field declared by several branches must agree structurally on its type.
// A branch that is not a struct becomes a field named after its referent.
func (n *Normalizer) allOfShape(ptr string, s *openapi3.Schema, hint string) (*shape, error) {
	out := &shape{kind: ir.KindStruct, elem: ir.None, docs: n.flattenDocs(s)}

	index := map[string]int{}

	add := func(wire string, typ ir.TypeId, optional, nullable bool, namePtr, docs string) error {
		if i, ok := index[wire]; ok {
			existing := &out.fields[i]
			if !n.sameStructure(existing.Typ, typ) {
				return errors.New("allOf branches at %s disagree on the type of field %q", ptr, wire)
			}
			if !optional {
				existing.Optional = false
			}
			return nil
		}
		index[wire] = len(out.fields)
		out.fields = append(out.fields, ir.Field{
			Name:     n.alloc.FieldName(ptr, namePtr, wire),
			WireName: wire,
			Typ:      typ,
			Optional: optional,
			Nullable: nullable,
			Docs:     docs,
		})
		return nil
	}

	var walk func(branchPtr string, branch *openapi3.SchemaRef, ordinal int) error
	walk = func(branchPtr string, branch *openapi3.SchemaRef, ordinal int) error {
		if branch == nil {
			return nil
		}

		if branch.Ref != "" && spec.ComponentName(branch.Ref, "schemas") != "" {
			id, err := n.reference(branchPtr, branch.Ref)
			if err != nil {
				return err
			}
			entry := n.table.Get(id)
			if entry.Kind == ir.KindAlias {
				entry = n.table.Get(entry.Elem)
			}
			if entry.Kind == ir.KindPending {
				return errors.New("allOf at %s forms a cycle through %s", ptr, entry.Name)
			}
			if entry.Kind == ir.KindStruct {
				for _, f := range entry.Fields {
					fieldPtr := spec.Join(entry.Origin.Pointer, "properties", f.WireName)
					if err := add(f.WireName, f.Typ, f.Optional, f.Nullable, fieldPtr, f.Docs); err != nil {
						return err
					}
				}
				return nil
			}
			// Non-struct referent folds in as a single field named after it.
			wire := names.ToSnake(entry.Name)
			return add(wire, id, false, false, branchPtr, "")
		}

		b := branch.Value
		if b == nil {
			return nil
		}

		if ext := spec.ExternalRefMarker(b.Extensions); ext != "" {
			// A stripped external branch contributes one opaque field named
			// after the referenced target.
			n.diags.Notef(branchPtr, "external reference %s downgraded to an opaque value", ext)
			typ := n.externalOpaque(branchPtr, ext)
			wire := "value" + strconv.Itoa(ordinal+1)
			if tokens := spec.Tokens(ext); len(tokens) > 0 {
				wire = names.ToSnake(tokens[len(tokens)-1])
			}
			return add(wire, typ, false, false, branchPtr, "")
		}

		if len(b.AllOf) > 0 {
			for i, sub := range b.AllOf {
				if err := walk(spec.Join(branchPtr, "allOf", strconv.Itoa(i)), sub, i); err != nil {
					return err
				}
			}
			return nil
		}

		if len(b.Properties) > 0 || spec.HasType(b, "object") {
			required := map[string]bool{}
			for _, name := range b.Required {
				required[name] = true
			}
			props := make([]string, 0, len(b.Properties))
			for name := range b.Properties {
				props = append(props, name)
			}
			sort.Strings(props)

			for _, prop := range props {
				child := b.Properties[prop]
				propPtr := spec.Join(branchPtr, "properties", prop)
				typ, err := n.Schema(propPtr, child, hint+names.ToUpperCamel(prop))
				if err != nil {
					return err
				}
				nullable := false
				docs := ""
				if child != nil && child.Ref == "" && child.Value != nil {
					nullable = spec.IsNullable(child.Value)
					docs = child.Value.Description
				}
				if err := add(prop, typ, !required[prop], nullable, propPtr, docs); err != nil {
					return err
				}
			}
			if hasAdditionalProperties(b) {
				n.diags.Warnf(branchPtr, "additionalProperties inside an allOf branch is ignored")
			}
			return nil
		}

		// Inline non-struct branch.
		typ, err := n.Schema(branchPtr, branch, hint+"Value"+strconv.Itoa(ordinal+1))
		if err != nil {
			return err
		}
		return add("value"+strconv.Itoa(ordinal+1), typ, false, false, branchPtr, "")
	}

	for i, branch := range s.AllOf {
		if err := walk(spec.Join(ptr, "allOf", strconv.Itoa(i)), branch, i); err != nil {
			return nil, err
		}
	}

	// The owner may declare its own properties next to allOf; they merge as
	// one more branch.
	if len(s.Properties) > 0 || hasAdditionalProperties(s) {
		own := *s
		own.AllOf = nil
		if err := walk(ptr, &openapi3.SchemaRef{Value: &own}, len(s.AllOf)); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// flattenDocs folds the scalar keywords of all branches into one schema and
// returns the winning description. First writer wins; the loader has already
// resolved references, so a described component surfaces its text.
func (n *Normalizer) flattenDocs(s *openapi3.Schema) string {
	merged := openapi3.Schema{Description: s.Description}
	for _, branch := range s.AllOf {
		if branch == nil || branch.Value == nil {
			continue
		}
		flat := *branch.Value
		flat.AllOf = nil
		_ = mergo.Merge(&merged, flat)
	}
	return merged.Description
}
