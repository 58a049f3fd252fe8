package normalize

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixie-sh/clientgen-cli/internal/generator/config"
	"github.com/pixie-sh/clientgen-cli/internal/generator/ir"
	"github.com/pixie-sh/clientgen-cli/internal/generator/names"
	"github.com/pixie-sh/clientgen-cli/internal/generator/resolve"
	"github.com/pixie-sh/clientgen-cli/internal/generator/spec"
)

func setupWith(t *testing.T, docYAML string, cfg config.Config) (*Normalizer, *ir.Table, *ir.DiagnosticBag) {
	t.Helper()
	doc, err := spec.Load([]byte(docYAML))
	require.NoError(t, err)
	return setupDoc(doc, cfg)
}

func setupDoc(doc *spec.Document, cfg config.Config) (*Normalizer, *ir.Table, *ir.DiagnosticBag) {
	diags := ir.NewDiagnosticBag()
	table := ir.NewTable()
	alloc := names.New(&cfg, diags)
	norm := New(doc, resolve.New(doc.T), alloc, table, &cfg, diags)
	return norm, table, diags
}

func setup(t *testing.T, docYAML string) (*Normalizer, *ir.Table, *ir.DiagnosticBag) {
	return setupWith(t, docYAML, config.Default())
}

func byName(table *ir.Table, name string) *ir.NamedType {
	for _, nt := range table.All() {
		if nt.Name == name {
			return nt
		}
	}
	return nil
}

func TestComponents_PrimitiveComponent(t *testing.T) {
	norm, table, _ := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    ComponentInt:
      type: integer
`)
	require.NoError(t, norm.Components())

	nt := byName(table, "ComponentInt")
	require.NotNil(t, nt)
	assert.Equal(t, ir.KindPrimitive, nt.Kind)
	assert.Equal(t, "integer", nt.Prim.Type)
	assert.Equal(t, "/components/schemas/ComponentInt", nt.Origin.Pointer)
}

func TestComponents_StructWithOptionalAndNullable(t *testing.T) {
	norm, table, _ := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    Device:
      type: object
      required: [id]
      properties:
        id:
          type: string
        label:
          type: string
          nullable: true
`)
	require.NoError(t, norm.Components())

	nt := byName(table, "Device")
	require.NotNil(t, nt)
	require.Equal(t, ir.KindStruct, nt.Kind)
	require.Len(t, nt.Fields, 2)

	// Properties are walked in sorted order.
	assert.Equal(t, "id", nt.Fields[0].WireName)
	assert.False(t, nt.Fields[0].Optional)
	assert.False(t, nt.Fields[0].Nullable)

	assert.Equal(t, "label", nt.Fields[1].WireName)
	assert.True(t, nt.Fields[1].Optional)
	assert.True(t, nt.Fields[1].Nullable)
}

func TestComponents_SelfReferencingCycle(t *testing.T) {
	norm, table, _ := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    Node:
      type: object
      properties:
        parent:
          $ref: '#/components/schemas/Node'
`)
	require.NoError(t, norm.Components())

	nt := byName(table, "Node")
	require.NotNil(t, nt)
	require.Equal(t, ir.KindStruct, nt.Kind)
	require.Len(t, nt.Fields, 1)
	assert.Equal(t, nt.ID, nt.Fields[0].Typ, "cycle must close on the node's own TypeId")
}

func TestComponents_AliasCollapse(t *testing.T) {
	norm, table, _ := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    AliasOfAlias:
      $ref: '#/components/schemas/DirectAlias'
    DirectAlias:
      $ref: '#/components/schemas/Real'
    Real:
      type: object
      properties:
        id:
          type: string
`)
	require.NoError(t, norm.Components())

	real := byName(table, "Real")
	require.NotNil(t, real)

	direct := byName(table, "DirectAlias")
	require.NotNil(t, direct)
	assert.Equal(t, ir.KindAlias, direct.Kind)
	assert.Equal(t, real.ID, direct.Elem)

	indirect := byName(table, "AliasOfAlias")
	require.NotNil(t, indirect)
	assert.Equal(t, ir.KindAlias, indirect.Kind)
	assert.Equal(t, real.ID, indirect.Elem, "alias chains must collapse to length one")
}

func TestComponents_AliasCycleFails(t *testing.T) {
	doc, err := spec.Load([]byte(`
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    LoopA:
      $ref: '#/components/schemas/LoopB'
    LoopB:
      $ref: '#/components/schemas/LoopA'
`))
	if err != nil {
		// The loader may reject the cycle during resolution; either failure
		// point is acceptable.
		return
	}
	norm, _, _ := setupDoc(doc, config.Default())
	assert.Error(t, norm.Components())
}

func TestComponents_MissingRefFailsAtLoad(t *testing.T) {
	_, err := spec.Load([]byte(`
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    Broken:
      type: object
      properties:
        x:
          $ref: '#/components/schemas/Nope'
`))
	assert.Error(t, err, "the loader resolves eagerly and reports the missing target")
}

func TestSchema_InterningSharesAnonymousShapes(t *testing.T) {
	norm, table, diags := setup(t, "openapi: 3.0.0\ninfo:\n  title: X\n")

	inline := func() *openapi3.SchemaRef {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"name": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			},
		}}
	}

	first, err := norm.Schema("/paths/~1a/post/requestBody/content/application~1json/schema", inline(), "CreateABody")
	require.NoError(t, err)
	second, err := norm.Schema("/paths/~1b/post/requestBody/content/application~1json/schema", inline(), "CreateBBody")
	require.NoError(t, err)

	assert.Equal(t, first, second, "structurally identical anonymous schemas must intern")
	assert.Equal(t, "CreateABody", table.Get(first).Name, "the first claimant names the type")

	interned := false
	for _, d := range diags.List() {
		if d.Severity == ir.SeverityNote {
			interned = true
		}
	}
	assert.True(t, interned, "interned duplicates are recorded as diagnostics")
}

func TestSchema_NamedComponentsNeverIntern(t *testing.T) {
	norm, table, _ := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    First:
      type: object
      properties:
        name:
          type: string
    Second:
      type: object
      properties:
        name:
          type: string
`)
	require.NoError(t, norm.Components())

	first := byName(table, "First")
	second := byName(table, "Second")
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAllOf_Merge(t *testing.T) {
	norm, table, _ := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    A:
      type: object
      required: [x]
      properties:
        x:
          type: integer
    B:
      type: object
      properties:
        y:
          type: string
    C:
      allOf:
        - $ref: '#/components/schemas/A'
        - $ref: '#/components/schemas/B'
`)
	require.NoError(t, norm.Components())

	nt := byName(table, "C")
	require.NotNil(t, nt)
	require.Equal(t, ir.KindStruct, nt.Kind)
	require.Len(t, nt.Fields, 2)

	assert.Equal(t, "x", nt.Fields[0].WireName)
	assert.False(t, nt.Fields[0].Optional, "required lists union across branches")
	assert.Equal(t, "y", nt.Fields[1].WireName)
	assert.True(t, nt.Fields[1].Optional)
}

func TestAllOf_AgreeingDuplicateField(t *testing.T) {
	norm, table, _ := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    A:
      type: object
      properties:
        x:
          type: integer
    B:
      type: object
      required: [x]
      properties:
        x:
          type: integer
    C:
      allOf:
        - $ref: '#/components/schemas/A'
        - $ref: '#/components/schemas/B'
`)
	require.NoError(t, norm.Components())

	nt := byName(table, "C")
	require.NotNil(t, nt)
	require.Len(t, nt.Fields, 1)
	assert.False(t, nt.Fields[0].Optional, "required in any branch wins")
}

func TestAllOf_ConflictFails(t *testing.T) {
	norm, _, _ := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    A:
      type: object
      properties:
        x:
          type: integer
    B:
      type: object
      properties:
        x:
          type: string
    C:
      allOf:
        - $ref: '#/components/schemas/A'
        - $ref: '#/components/schemas/B'
`)
	assert.Error(t, norm.Components())
}

func TestAllOf_OwnPropertiesMerge(t *testing.T) {
	norm, table, _ := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    Base:
      type: object
      properties:
        id:
          type: string
    Extended:
      allOf:
        - $ref: '#/components/schemas/Base'
      properties:
        extra:
          type: boolean
`)
	require.NoError(t, norm.Components())

	nt := byName(table, "Extended")
	require.NotNil(t, nt)
	require.Len(t, nt.Fields, 2)
	assert.Equal(t, "id", nt.Fields[0].WireName)
	assert.Equal(t, "extra", nt.Fields[1].WireName)
}

func TestOneOf_Discriminated(t *testing.T) {
	norm, table, _ := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    Cat:
      type: object
      properties:
        kind:
          type: string
    Dog:
      type: object
      properties:
        kind:
          type: string
    Pet:
      oneOf:
        - $ref: '#/components/schemas/Cat'
        - $ref: '#/components/schemas/Dog'
      discriminator:
        propertyName: kind
        mapping:
          cat: '#/components/schemas/Cat'
          dog: '#/components/schemas/Dog'
`)
	require.NoError(t, norm.Components())

	nt := byName(table, "Pet")
	require.NotNil(t, nt)
	require.Equal(t, ir.KindSum, nt.Kind)
	assert.Equal(t, "kind", nt.Discriminator)
	require.Len(t, nt.Variants, 2)

	assert.Equal(t, "Cat", nt.Variants[0].Name)
	assert.Equal(t, "cat", nt.Variants[0].WireValue)
	assert.Equal(t, byName(table, "Cat").ID, nt.Variants[0].Typ)
	assert.Equal(t, "dog", nt.Variants[1].WireValue)
}

func TestEnum_Variants(t *testing.T) {
	norm, table, _ := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    Status:
      type: string
      enum: [active, in-progress, closed]
`)
	require.NoError(t, norm.Components())

	nt := byName(table, "Status")
	require.NotNil(t, nt)
	require.Equal(t, ir.KindEnum, nt.Kind)
	require.Len(t, nt.Variants, 3)
	assert.Equal(t, "Active", nt.Variants[0].Name)
	assert.Equal(t, "InProgress", nt.Variants[1].Name)
	assert.Equal(t, "active", nt.Variants[0].Literal)
}

func TestAdditionalProperties_Shapes(t *testing.T) {
	norm, table, _ := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    TypedMap:
      type: object
      additionalProperties:
        type: integer
    OpenMap:
      type: object
      additionalProperties: true
    Mixed:
      type: object
      properties:
        id:
          type: string
      additionalProperties:
        type: string
`)
	require.NoError(t, norm.Components())

	typed := byName(table, "TypedMap")
	require.NotNil(t, typed)
	assert.Equal(t, ir.KindMap, typed.Kind)
	assert.Equal(t, ir.KindPrimitive, table.Get(typed.Elem).Kind)

	open := byName(table, "OpenMap")
	require.NotNil(t, open)
	assert.Equal(t, ir.KindMap, open.Kind)
	assert.Equal(t, ir.KindOpaque, table.Get(open.Elem).Kind)

	mixed := byName(table, "Mixed")
	require.NotNil(t, mixed)
	require.Equal(t, ir.KindStruct, mixed.Kind)
	require.Len(t, mixed.Fields, 2)
	catchAll := mixed.Fields[1]
	assert.Equal(t, "additional_properties", catchAll.Name)
	assert.Equal(t, ir.KindMap, table.Get(catchAll.Typ).Kind)
}

func TestSchema_NoTypeBecomesOpaque(t *testing.T) {
	norm, table, _ := setup(t, "openapi: 3.0.0\ninfo:\n  title: X\n")

	id, err := norm.Schema("/paths/~1x/get/responses/200/content/application~1json/schema", &openapi3.SchemaRef{Value: &openapi3.Schema{}}, "Whatever")
	require.NoError(t, err)

	nt := table.Get(id)
	assert.Equal(t, ir.KindOpaque, nt.Kind)
	assert.Equal(t, "json.RawMessage", nt.Opaque)

	// The dynamic value type is shared.
	again, err := norm.Schema("/paths/~1y/get/responses/200/content/application~1json/schema", &openapi3.SchemaRef{Value: &openapi3.Schema{}}, "Other")
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestReference_IgnoredComponentBecomesUnit(t *testing.T) {
	cfg := config.Default()
	cfg.Ignore.Components = []string{"Debug"}
	norm, table, diags := setupWith(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    Debug:
      type: object
      properties:
        trace:
          type: string
    Holder:
      type: object
      properties:
        debug:
          $ref: '#/components/schemas/Debug'
`, cfg)
	require.NoError(t, norm.Components())

	assert.Nil(t, byName(table, "Debug"), "ignored components are not emitted")

	holder := byName(table, "Holder")
	require.NotNil(t, holder)
	require.Len(t, holder.Fields, 1)
	unit := table.Get(holder.Fields[0].Typ)
	assert.Equal(t, ir.KindOpaque, unit.Kind)
	assert.Equal(t, "struct{}", unit.Opaque)
	assert.Greater(t, diags.Len(), 0)
}

func TestReference_ExternalDowngradesToOpaque(t *testing.T) {
	norm, table, diags := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    Holder:
      type: object
      properties:
        remote:
          $ref: 'common.yaml#/components/schemas/Shared'
`)
	require.NoError(t, norm.Components())

	holder := byName(table, "Holder")
	require.NotNil(t, holder)
	require.Len(t, holder.Fields, 1)

	remote := table.Get(holder.Fields[0].Typ)
	assert.Equal(t, ir.KindOpaque, remote.Kind)
	assert.True(t, remote.Origin.Synthetic)
	assert.Greater(t, diags.Len(), 0, "external downgrade is reported as a diagnostic")
}

func TestStructMapping_OverrideWins(t *testing.T) {
	cfg := config.Default()
	cfg.NameMapping.StructMapping["/components/schemas/Device"] = "Gadget"
	norm, table, _ := setupWith(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    Device:
      type: object
      properties:
        id:
          type: string
`, cfg)
	require.NoError(t, norm.Components())

	assert.NotNil(t, byName(table, "Gadget"))
	assert.Nil(t, byName(table, "Device"))
}

func TestArray_ElementNormalized(t *testing.T) {
	norm, table, _ := setup(t, `
openapi: 3.0.0
info:
  title: X
components:
  schemas:
    Tags:
      type: array
      items:
        type: string
`)
	require.NoError(t, norm.Components())

	nt := byName(table, "Tags")
	require.NotNil(t, nt)
	require.Equal(t, ir.KindArray, nt.Kind)
	elem := table.Get(nt.Elem)
	assert.Equal(t, ir.KindPrimitive, elem.Kind)
	assert.Equal(t, "string", elem.Prim.Type)
}
