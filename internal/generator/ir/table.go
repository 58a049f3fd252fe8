package ir

// Table is the mutable type store owned by the pipeline. Ids are assigned in
// allocation order; the caller is responsible for allocating in a
// deterministic traversal order.
type Table struct {
	types []*NamedType
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// Alloc reserves a slot with the given name and origin and returns its id.
// The entry starts as KindPending so cyclic references can point at it before
// its shape is known.
func (t *Table) Alloc(name string, origin Origin) TypeId {
	id := TypeId(len(t.types))
	t.types = append(t.types, &NamedType{
		ID:     id,
		Name:   name,
		Origin: origin,
		Kind:   KindPending,
		Elem:   None,
	})
	return id
}

// Get returns the entry for id. Panics on out-of-range ids: those are
// internal invariant violations, not user errors.
func (t *Table) Get(id TypeId) *NamedType {
	return t.types[id]
}

// Len returns the number of allocated types.
func (t *Table) Len() int {
	return len(t.types)
}

// All returns the entries in id order. The slice is shared, not copied.
func (t *Table) All() []*NamedType {
	return t.types
}
