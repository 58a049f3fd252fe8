// Package normalize reduces every schema in the document to one entry in the
// IR type table. Composition keywords are flattened, anonymous schemas are
// interned by structural equality, and reference cycles are closed through
// pre-allocated table slots. The input is the reference-resolved
// openapi3 document; the normalizer still walks $ref strings so component
// identity and naming follow canonical pointers rather than resolved values.
package normalize

import (
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/pixie-sh/errors-go"

	"github.com/pixie-sh/clientgen-cli/internal/generator/config"
	"github.com/pixie-sh/clientgen-cli/internal/generator/ir"
	"github.com/pixie-sh/clientgen-cli/internal/generator/names"
	"github.com/pixie-sh/clientgen-cli/internal/generator/resolve"
	"github.com/pixie-sh/clientgen-cli/internal/generator/spec"
)

// Normalizer owns the type table during the run. It is not safe for
// concurrent use; the pipeline is strictly sequential for determinism.
type Normalizer struct {
	doc   *spec.Document
	res   *resolve.Resolver
	alloc *names.Allocator
	table *ir.Table
	cfg   *config.Config
	diags *ir.DiagnosticBag

	byPointer map[string]ir.TypeId
	inFlight  map[string]bool
	interned  map[string]ir.TypeId
	depth     int
}

// maxDepth bounds schema nesting. YAML anchors can build genuinely cyclic
// anonymous schemas whose pointers grow forever; those are ill-formed inputs.
const maxDepth = 256

// shape is a built but not yet registered type: everything except id and name.
type shape struct {
	kind          ir.Kind
	prim          ir.Primitive
	fields        []ir.Field
	variants      []ir.Variant
	elem          ir.TypeId
	discriminator string
	opaque        string
	docs          string
}

// New creates a normalizer over the loaded document.
func New(doc *spec.Document, res *resolve.Resolver, alloc *names.Allocator, table *ir.Table, cfg *config.Config, diags *ir.DiagnosticBag) *Normalizer {
	return &Normalizer{
		doc:       doc,
		res:       res,
		alloc:     alloc,
		table:     table,
		cfg:       cfg,
		diags:     diags,
		byPointer: map[string]ir.TypeId{},
		inFlight:  map[string]bool{},
		interned:  map[string]ir.TypeId{},
	}
}

// Table returns the type table the normalizer fills.
func (n *Normalizer) Table() *ir.Table {
	return n.table
}

// Schema normalizes the schema found at ptr and returns its TypeId. The hint
// is the name candidate used if the schema is anonymous and not yet interned.
func (n *Normalizer) Schema(ptr string, ref *openapi3.SchemaRef, hint string) (ir.TypeId, error) {
	if ref == nil {
		return n.OpaqueJSON(), nil
	}

	if ref.Ref != "" {
		if spec.ComponentName(ref.Ref, "schemas") == "" {
			// The loader resolves refs to arbitrary pointers; only component
			// refs carry a name, the rest inline at the use site.
			n.diags.Notef(ptr, "reference %s does not target a component schema; inlined", ref.Ref)
			if ref.Value == nil {
				return n.OpaqueJSON(), nil
			}
			return n.anonymous(ptr, ref.Value, hint)
		}
		return n.reference(ptr, ref.Ref)
	}

	s := ref.Value
	if s == nil {
		return n.OpaqueJSON(), nil
	}
	if ext := spec.ExternalRefMarker(s.Extensions); ext != "" {
		n.diags.Notef(ptr, "external reference %s downgraded to an opaque value", ext)
		return n.externalOpaque(ptr, ext), nil
	}
	return n.anonymous(ptr, s, hint)
}

// Components normalizes every component schema not already reached through an
// operation, in lexicographic order, so unreferenced components still emit.
func (n *Normalizer) Components() error {
	if n.doc.Components == nil {
		return nil
	}

	sorted := make([]string, 0, len(n.doc.Components.Schemas))
	for name := range n.doc.Components.Schemas {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	for _, name := range sorted {
		if n.cfg.IgnoredComponent(name) {
			n.diags.Notef(spec.Join("/components/schemas", name), "component %s ignored by configuration", name)
			continue
		}
		if _, err := n.reference(spec.Join("/components/schemas", name), "#/components/schemas/"+spec.EscapeToken(name)); err != nil {
			return err
		}
	}
	return nil
}

// reference normalizes the component targeted by a $ref found at ptr.
func (n *Normalizer) reference(ptr, ref string) (ir.TypeId, error) {
	entry, pointer, err := n.res.Schema(ref)
	if err != nil {
		return ir.None, errors.Wrap(err, "unresolvable reference at %s", ptr)
	}

	name := spec.ComponentName(pointer, "schemas")
	if n.cfg.IgnoredComponent(name) {
		n.diags.Notef(ptr, "reference to ignored component %s resolves to the unit type", name)
		return n.OpaqueUnit(), nil
	}

	// Re-entry on a component closes the cycle against the pre-allocated id.
	if id, ok := n.byPointer[pointer]; ok {
		return id, nil
	}
	return n.component(pointer, name, entry)
}

// component allocates the table slot for a named component before building
// its shape, so self-references resolve to the slot while it is being built.
// Named components are never interned away: their name is contract.
func (n *Normalizer) component(pointer, name string, entry *openapi3.SchemaRef) (ir.TypeId, error) {
	if entry.Ref != "" {
		// A component that is a bare reference becomes an alias. Verify the
		// chain terminates before building anything.
		if _, _, err := n.res.TerminalSchema(entry.Ref); err != nil {
			return ir.None, errors.Wrap(err, "component %s", name)
		}

		id := n.table.Alloc(n.alloc.TypeName(pointer, name), ir.Origin{Pointer: pointer})
		n.byPointer[pointer] = id

		elem, err := n.reference(pointer, entry.Ref)
		if err != nil {
			return ir.None, err
		}
		// Collapse alias chains to length one.
		if elemType := n.table.Get(elem); elemType.Kind == ir.KindAlias {
			elem = elemType.Elem
		}
		aliased := n.table.Get(id)
		aliased.Kind = ir.KindAlias
		aliased.Elem = elem
		return id, nil
	}

	id := n.table.Alloc(n.alloc.TypeName(pointer, name), ir.Origin{Pointer: pointer})
	n.byPointer[pointer] = id

	target := entry.Value
	if target == nil {
		n.apply(id, &shape{kind: ir.KindOpaque, opaque: opaqueJSONRepr, elem: ir.None})
		return id, nil
	}
	if ext := spec.ExternalRefMarker(target.Extensions); ext != "" {
		n.diags.Notef(pointer, "external reference %s downgraded to an opaque value", ext)
		n.apply(id, &shape{kind: ir.KindOpaque, opaque: opaqueJSONRepr, elem: ir.None})
		return id, nil
	}

	built, err := n.build(pointer, target, name)
	if err != nil {
		return ir.None, err
	}
	n.apply(id, built)
	return id, nil
}

// anonymous builds an inline schema, interning structurally identical shapes
// so the table holds exactly one copy.
func (n *Normalizer) anonymous(ptr string, s *openapi3.Schema, hint string) (ir.TypeId, error) {
	if n.inFlight[ptr] {
		return ir.None, errors.New("anonymous schema at %s references itself; only component schemas may form cycles", ptr)
	}
	if n.depth >= maxDepth {
		return ir.None, errors.New("schema nesting exceeds %d levels at %s; the document likely contains an anonymous cycle", maxDepth, ptr)
	}
	n.inFlight[ptr] = true
	n.depth++
	defer func() {
		delete(n.inFlight, ptr)
		n.depth--
	}()

	built, err := n.build(ptr, s, hint)
	if err != nil {
		return ir.None, err
	}

	key := shapeKey(built)
	if id, ok := n.interned[key]; ok {
		n.diags.Notef(ptr, "anonymous schema interned as existing type %s", n.table.Get(id).Name)
		return id, nil
	}

	// An anonymous array of a named component is named after its element.
	if built.kind == ir.KindArray {
		if elem := n.table.Get(built.elem); strings.HasPrefix(elem.Origin.Pointer, "/components/schemas/") {
			hint = elem.Name + "List"
		}
	}

	id := n.table.Alloc(n.alloc.TypeName(ptr, hint), ir.Origin{Pointer: ptr})
	n.apply(id, built)
	n.interned[key] = id
	return id, nil
}

// build reduces a schema carrying its own keywords to its IR shape. hint
// doubles as the surrogate parent name for naming nested anonymous schemas.
func (n *Normalizer) build(ptr string, s *openapi3.Schema, hint string) (*shape, error) {
	switch {
	case len(s.AllOf) > 0:
		return n.allOfShape(ptr, s, hint)
	case len(s.OneOf) > 0:
		return n.sumShape(ptr, s, hint, "oneOf", s.OneOf)
	case len(s.AnyOf) > 0:
		return n.sumShape(ptr, s, hint, "anyOf", s.AnyOf)
	case len(s.Enum) > 0:
		return n.enumShape(ptr, s)
	}

	switch spec.PrimaryType(s) {
	case "string", "integer", "number", "boolean", "null":
		return &shape{
			kind: ir.KindPrimitive,
			prim: ir.Primitive{Type: spec.PrimaryType(s), Format: s.Format},
			elem: ir.None,
			docs: s.Description,
		}, nil
	case "array":
		return n.arrayShape(ptr, s, hint)
	case "object":
		return n.objectShape(ptr, s, hint)
	}

	// No type and no composition: an object shape if properties are present,
	// otherwise a dynamic JSON value.
	if len(s.Properties) > 0 || hasAdditionalProperties(s) {
		return n.objectShape(ptr, s, hint)
	}
	return &shape{kind: ir.KindOpaque, opaque: opaqueJSONRepr, elem: ir.None, docs: s.Description}, nil
}

func (n *Normalizer) arrayShape(ptr string, s *openapi3.Schema, hint string) (*shape, error) {
	elem, err := n.Schema(spec.Join(ptr, "items"), s.Items, hint+"Item")
	if err != nil {
		return nil, err
	}
	return &shape{kind: ir.KindArray, elem: elem, docs: s.Description}, nil
}

func (n *Normalizer) enumShape(ptr string, s *openapi3.Schema) (*shape, error) {
	prim := spec.PrimaryType(s)
	if prim == "" {
		prim = "string"
	}
	out := &shape{
		kind: ir.KindEnum,
		prim: ir.Primitive{Type: prim, Format: s.Format},
		elem: ir.None,
		docs: s.Description,
	}
	for _, literal := range s.Enum {
		if literal == nil {
			// A null enum entry expresses nullability, not a variant.
			continue
		}
		out.variants = append(out.variants, ir.Variant{
			Name:    n.alloc.VariantName(ptr, names.EnumVariant(literal)),
			Literal: literal,
		})
	}
	return out, nil
}

func (n *Normalizer) sumShape(ptr string, s *openapi3.Schema, hint, keyword string, branches openapi3.SchemaRefs) (*shape, error) {
	out := &shape{kind: ir.KindSum, elem: ir.None, docs: s.Description}
	if s.Discriminator != nil {
		out.discriminator = s.Discriminator.PropertyName
	}

	for i, branch := range branches {
		branchPtr := spec.Join(ptr, keyword, strconv.Itoa(i))

		typ, err := n.Schema(branchPtr, branch, hint+"Variant"+strconv.Itoa(i+1))
		if err != nil {
			return nil, err
		}

		candidate := hint + "Variant" + strconv.Itoa(i+1)
		wireValue := ""
		if branch != nil && branch.Ref != "" {
			if component := spec.ComponentName(branch.Ref, "schemas"); component != "" {
				candidate = component
				wireValue = component
			}
		}
		if s.Discriminator != nil && branch != nil {
			if mapped := discriminatorValue(s.Discriminator, branch.Ref); mapped != "" {
				wireValue = mapped
			}
		}

		out.variants = append(out.variants, ir.Variant{
			Name:      n.alloc.VariantName(ptr, candidate),
			Typ:       typ,
			WireValue: wireValue,
		})
	}

	if len(out.variants) == 0 {
		return nil, errors.New("%s at %s has no branches", keyword, ptr)
	}
	return out, nil
}

// discriminatorValue reverse-looks-up the mapping entry for a branch ref.
// OpenAPI defaults unmapped branches to their schema name, which the caller
// already applied.
func discriminatorValue(d *openapi3.Discriminator, branchRef string) string {
	if branchRef == "" {
		return ""
	}
	sorted := make([]string, 0, len(d.Mapping))
	for value := range d.Mapping {
		sorted = append(sorted, value)
	}
	sort.Strings(sorted)
	for _, value := range sorted {
		if d.Mapping[value] == branchRef {
			return value
		}
	}
	return ""
}

func hasAdditionalProperties(s *openapi3.Schema) bool {
	return s.AdditionalProperties.Schema != nil || s.AdditionalProperties.Has != nil
}

func (n *Normalizer) objectShape(ptr string, s *openapi3.Schema, hint string) (*shape, error) {
	// A pure map: additionalProperties with no declared properties.
	if len(s.Properties) == 0 && hasAdditionalProperties(s) {
		elem, err := n.mapValue(ptr, s, hint)
		if err != nil {
			return nil, err
		}
		if elem != ir.None {
			return &shape{kind: ir.KindMap, elem: elem, docs: s.Description}, nil
		}
		// additionalProperties: false with no properties is an empty struct.
	}

	out := &shape{kind: ir.KindStruct, elem: ir.None, docs: s.Description}

	required := map[string]bool{}
	for _, name := range s.Required {
		required[name] = true
	}

	props := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		props = append(props, name)
	}
	sort.Strings(props)

	for _, prop := range props {
		child := s.Properties[prop]
		propPtr := spec.Join(ptr, "properties", prop)

		childHint := hint + names.ToUpperCamel(prop)
		if child != nil && child.Ref == "" && child.Value != nil && spec.PrimaryType(child.Value) == "array" {
			childHint = hint + names.ToUpperCamel(names.Pluralize(prop))
		}

		typ, err := n.Schema(propPtr, child, childHint)
		if err != nil {
			return nil, err
		}

		field := ir.Field{
			Name:     n.alloc.FieldName(ptr, propPtr, prop),
			WireName: prop,
			Typ:      typ,
			Optional: !required[prop],
		}
		if child != nil && child.Ref == "" && child.Value != nil {
			field.Nullable = spec.IsNullable(child.Value)
			field.Docs = child.Value.Description
		}
		out.fields = append(out.fields, field)
	}

	// Mixed object: declared properties plus a typed catch-all.
	if len(s.Properties) > 0 && hasAdditionalProperties(s) {
		elem, err := n.mapValue(ptr, s, hint)
		if err != nil {
			return nil, err
		}
		if elem != ir.None {
			mapId := n.internMap(elem)
			out.fields = append(out.fields, ir.Field{
				Name:     n.alloc.FieldName(ptr, spec.Join(ptr, "additionalProperties"), "additional_properties"),
				WireName: "",
				Typ:      mapId,
				Optional: true,
			})
		}
	}

	return out, nil
}

// mapValue normalizes the additionalProperties keyword to a map value type.
// Returns None for `additionalProperties: false` (a closed object).
func (n *Normalizer) mapValue(ptr string, s *openapi3.Schema, hint string) (ir.TypeId, error) {
	ap := s.AdditionalProperties
	switch {
	case ap.Schema != nil:
		return n.Schema(spec.Join(ptr, "additionalProperties"), ap.Schema, hint+"Value")
	case ap.Has != nil && *ap.Has:
		return n.OpaqueJSON(), nil
	default:
		return ir.None, nil
	}
}

// internMap wraps an element type in an interned Map entry.
func (n *Normalizer) internMap(elem ir.TypeId) ir.TypeId {
	built := &shape{kind: ir.KindMap, elem: elem}
	key := shapeKey(built)
	if id, ok := n.interned[key]; ok {
		return id
	}
	elemName := n.table.Get(elem).Name
	id := n.table.Alloc(
		n.alloc.TypeName("", elemName+"Map"),
		ir.Origin{Parent: elem, Role: "map", Synthetic: true},
	)
	n.apply(id, built)
	n.interned[key] = id
	return id
}

// ResponseSum registers a synthetic status-keyed sum used as the return type
// of an operation with several success responses.
func (n *Normalizer) ResponseSum(hint string, variants []ir.Variant) ir.TypeId {
	id := n.table.Alloc(n.alloc.TypeName("", hint), ir.Origin{Role: "responses", Synthetic: true})
	n.apply(id, &shape{kind: ir.KindSum, variants: variants, elem: ir.None})
	return id
}

// apply copies a built shape into its allocated table slot.
func (n *Normalizer) apply(id ir.TypeId, built *shape) {
	entry := n.table.Get(id)
	entry.Kind = built.kind
	entry.Prim = built.prim
	entry.Fields = built.fields
	entry.Variants = built.variants
	entry.Elem = built.elem
	entry.Discriminator = built.discriminator
	entry.Opaque = built.opaque
	entry.Docs = built.docs
}
