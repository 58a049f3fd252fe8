// Package resolve classifies and canonicalizes $ref pointers over a document
// the openapi3 loader has already resolved. The loader populates every
// SchemaRef's Value; what remains here is the bookkeeping the loader does not
// do: canonical component pointers for naming and interning, and detection of
// reference cycles made entirely of bare aliases, which no emitted type can
// represent. External references never reach this package — the spec loader
// strips them before resolution.
package resolve

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/pixie-sh/clientgen-cli/internal/generator/spec"
)

// Kind classifies a failed reference.
type Kind int

const (
	// Missing is a reference with no component target in the document.
	Missing Kind = iota
	// CycleThroughAlias is a reference cycle consisting only of bare $ref
	// schemas.
	CycleThroughAlias
)

// RefError reports a reference the resolver could not follow.
type RefError struct {
	Kind Kind
	Ref  string
}

func (e *RefError) Error() string {
	if e.Kind == CycleThroughAlias {
		return fmt.Sprintf("reference cycle through aliases at %s", e.Ref)
	}
	return fmt.Sprintf("reference target does not exist: %s", e.Ref)
}

// Resolver looks up component schemas by reference.
type Resolver struct {
	t *openapi3.T
}

// New creates a resolver over the loaded document.
func New(t *openapi3.T) *Resolver {
	return &Resolver{t: t}
}

// Schema resolves a component schema reference and returns the entry along
// with its canonical pointer ("/components/schemas/X"). A reference with any
// other shape fails with Missing.
func (r *Resolver) Schema(ref string) (*openapi3.SchemaRef, string, error) {
	name := spec.ComponentName(ref, "schemas")
	if name == "" {
		return nil, "", &RefError{Kind: Missing, Ref: ref}
	}
	target := r.componentSchema(name)
	if target == nil {
		return nil, "", &RefError{Kind: Missing, Ref: ref}
	}
	return target, spec.Join("/components/schemas", name), nil
}

// TerminalSchema follows a chain of bare references to the first schema that
// carries its own keywords. A chain that revisits a pointer is a cycle made
// entirely of aliases and fails with CycleThroughAlias.
func (r *Resolver) TerminalSchema(ref string) (*openapi3.SchemaRef, string, error) {
	visited := map[string]bool{}
	current := ref
	for {
		target, pointer, err := r.Schema(current)
		if err != nil {
			return nil, "", err
		}
		if visited[pointer] {
			return nil, "", &RefError{Kind: CycleThroughAlias, Ref: ref}
		}
		visited[pointer] = true
		if target.Ref == "" {
			return target, pointer, nil
		}
		current = target.Ref
	}
}

func (r *Resolver) componentSchema(name string) *openapi3.SchemaRef {
	if r.t == nil || r.t.Components == nil {
		return nil
	}
	return r.t.Components.Schemas[name]
}
