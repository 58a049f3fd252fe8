package names

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pixie-sh/clientgen-cli/internal/generator/config"
	"github.com/pixie-sh/clientgen-cli/internal/generator/ir"
	"github.com/pixie-sh/clientgen-cli/internal/generator/spec"
)

// Scope keys for the two global scopes. Struct fields, enum/sum variants and
// operation parameters use their owner's origin pointer as scope key.
const (
	ScopeTypes      = "types"
	ScopeOperations = "operations"
)

// Allocator hands out globally deterministic, collision-free identifiers.
// Derivation asks the configuration first, then falls back to pointer-based
// rules; uniquification appends 2, 3, ... to later claimants of a name.
type Allocator struct {
	cfg    *config.Config
	diags  *ir.DiagnosticBag
	scopes map[string]map[string]bool
}

// New creates an allocator bound to the run's configuration and diagnostics.
func New(cfg *config.Config, diags *ir.DiagnosticBag) *Allocator {
	return &Allocator{
		cfg:    cfg,
		diags:  diags,
		scopes: map[string]map[string]bool{},
	}
}

// unique claims candidate within scope, suffixing from 2 upward when taken.
// The first claimant keeps the bare name.
func (a *Allocator) unique(scope, candidate string) string {
	taken, ok := a.scopes[scope]
	if !ok {
		taken = map[string]bool{}
		a.scopes[scope] = taken
	}
	if !taken[candidate] {
		taken[candidate] = true
		return candidate
	}
	for i := 2; ; i++ {
		next := candidate + strconv.Itoa(i)
		if !taken[next] {
			taken[next] = true
			return next
		}
	}
}

// TypeName allocates the identifier for a type originating at pointer. The
// hint is the derived candidate (component name, parent+role concatenation,
// or wrapper name); a struct_mapping override for the pointer wins over it.
func (a *Allocator) TypeName(pointer, hint string) string {
	if override, ok := a.cfg.StructOverride(pointer); ok {
		hint = override
	} else if component := spec.ComponentName(pointer, "schemas"); component != "" {
		hint = component
	}
	return a.unique(ScopeTypes, camelIdentifier(hint))
}

// FieldName allocates a struct field identifier within the owner scope. The
// wire name is the derivation source unless a property_mapping override
// exists for the field's pointer.
func (a *Allocator) FieldName(ownerScope, pointer, wireName string) string {
	candidate := wireName
	if override, ok := a.cfg.PropertyOverride(pointer); ok {
		candidate = override
	}
	return a.unique(ownerScope, a.snakeIdentifier(pointer, candidate))
}

// ParamName allocates a parameter identifier within the operation scope.
func (a *Allocator) ParamName(opScope, pointer, wireName string) string {
	candidate := wireName
	if override, ok := a.cfg.PropertyOverride(pointer); ok {
		candidate = override
	}
	return a.unique(opScope, a.snakeIdentifier(pointer, candidate))
}

// VariantName allocates an enum or sum variant identifier within the owner
// scope.
func (a *Allocator) VariantName(ownerScope, hint string) string {
	return a.unique(ownerScope, camelIdentifier(hint))
}

// OperationName allocates an operation identifier: operationId when declared,
// otherwise the method concatenated with the path segments, parameter
// placeholders stripped.
func (a *Allocator) OperationName(operationID, method, path string) string {
	hint := operationID
	if hint == "" {
		hint = DeriveOperation(method, path)
	}
	return a.unique(ScopeOperations, camelIdentifier(hint))
}

// DeriveOperation builds the fallback operation name from method and path.
func DeriveOperation(method, path string) string {
	var b strings.Builder
	b.WriteString(ToUpperCamel(strings.ToLower(method)))
	for _, segment := range strings.Split(path, "/") {
		if segment == "" || strings.HasPrefix(segment, "{") {
			continue
		}
		b.WriteString(ToUpperCamel(segment))
	}
	return b.String()
}

// EnumVariant derives a variant candidate from an enum literal. String
// literals convert directly; other literals are prefixed so the identifier
// stays legal.
func EnumVariant(literal interface{}) string {
	switch v := literal.(type) {
	case string:
		if v == "" {
			return "Empty"
		}
		return camelIdentifier(v)
	case bool:
		if v {
			return "True"
		}
		return "False"
	case nil:
		return "Null"
	default:
		text := strings.NewReplacer("-", "Minus", ".", "Point").Replace(trimFloat(v))
		return "Value" + text
	}
}

func trimFloat(v interface{}) string {
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	default:
		return ToUpperCamel(fmt.Sprintf("%v", v))
	}
}

// camelIdentifier case-converts a candidate to an UpperCamelCase identifier.
// Camel-case names cannot collide with the lowercase reserved words, but a
// leading digit still needs a prefix.
func camelIdentifier(s string) string {
	name := ToUpperCamel(s)
	if name == "" {
		return "X"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "N" + name
	}
	return name
}

// snakeIdentifier case-converts a candidate to snake_case and escapes
// reserved words, recording the escape as a diagnostic.
func (a *Allocator) snakeIdentifier(pointer, s string) string {
	name := ToSnake(s)
	escaped := EscapeReserved(name)
	if escaped != name && a.diags != nil {
		a.diags.Notef(pointer, "identifier %q collides with a reserved word; emitted as %q", name, escaped)
	}
	return escaped
}
