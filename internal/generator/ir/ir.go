// Package ir holds the language-neutral intermediate representation the
// pipeline produces and the renderer consumes. Types live in a flat table
// keyed by dense integer ids, so cyclic schema graphs are expressed as plain
// index references.
package ir

// TypeId is a dense index into the type table. Stable within one run, not
// across runs.
type TypeId int

// None marks an absent type reference.
const None TypeId = -1

// Kind discriminates the closed set of type shapes every schema reduces to.
type Kind int

const (
	KindPending Kind = iota // allocated but not yet filled (cycle placeholder)
	KindPrimitive
	KindEnum
	KindStruct
	KindSum
	KindAlias
	KindArray
	KindMap
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindEnum:
		return "enum"
	case KindStruct:
		return "struct"
	case KindSum:
		return "sum"
	case KindAlias:
		return "alias"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindOpaque:
		return "opaque"
	}
	return "pending"
}

// Origin records where a type came from: a document pointer for schemas that
// exist in the spec, or a synthetic parent/role pair for types the generator
// invents (wrappers, response sums).
type Origin struct {
	Pointer   string
	Parent    TypeId
	Role      string
	Synthetic bool
}

// Primitive carries the wire type and optional format of a primitive.
type Primitive struct {
	Type   string // string, integer, number, boolean, null
	Format string // int64, date-time, uuid, ...
}

// Field is one struct member.
type Field struct {
	Name     string // snake_case identifier; the renderer owns final casing
	WireName string // the property name as it appears on the wire
	Typ      TypeId
	Optional bool // absent from the parent's required list
	Nullable bool // nullable keyword or "null" in the type union
	Docs     string
}

// Variant is one member of an enum or sum. Enums populate Literal; sums
// populate Typ and, when discriminated, WireValue. Response sums also record
// the Status that selects the variant.
type Variant struct {
	Name      string
	Literal   interface{}
	Typ       TypeId
	WireValue string
	Status    int
}

// NamedType is the record for one emitted data type. Exactly the fields
// relevant to Kind are populated.
type NamedType struct {
	ID     TypeId
	Name   string
	Origin Origin
	Kind   Kind

	Prim          Primitive // KindPrimitive
	Variants      []Variant // KindEnum, KindSum
	Fields        []Field   // KindStruct
	Elem          TypeId    // KindAlias, KindArray, KindMap
	Discriminator string    // KindSum, when discriminated
	Opaque        string    // KindOpaque: the emitted placeholder expression

	Docs string
}

// Param is one operation parameter.
type Param struct {
	Name     string
	WireName string
	Typ      TypeId
	Required bool
	Docs     string
}

// BodyVariant is one request body per content type.
type BodyVariant struct {
	ContentType string
	Typ         TypeId
}

// StatusDefault marks the declared default response.
const StatusDefault = 0

// ResponseVariant is one declared response per status and content type.
// Status is the literal HTTP status, or StatusDefault for the fallback.
type ResponseVariant struct {
	Status      int
	ContentType string
	Typ         TypeId
}

// Operation is one path/method pair reduced to its emission shape.
type Operation struct {
	ID           string
	Method       string
	PathTemplate string
	PathParams   []Param
	QueryParams  []Param
	HeaderParams []Param
	Body         []BodyVariant
	Responses    []ResponseVariant

	// ReturnType is the synthesized success return: the single success
	// response type, a status-keyed sum when several succeed, the default
	// response type when none succeeds, or a unit opaque when there is
	// neither a success nor a default response.
	ReturnType TypeId

	Deprecated bool
	Docs       string
}

// Snapshot is the immutable result handed to the renderer.
type Snapshot struct {
	Types      []*NamedType
	Operations []*Operation
	RootModule string
}

// Type returns the table entry for id, or nil for out-of-range ids.
func (s *Snapshot) Type(id TypeId) *NamedType {
	if id < 0 || int(id) >= len(s.Types) {
		return nil
	}
	return s.Types[id]
}
