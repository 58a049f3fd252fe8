package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pixie-sh/clientgen-cli/internal/generator/ir"
	"github.com/pixie-sh/clientgen-cli/internal/generator/names"
)

// emitsFile reports whether a type gets its own model file. Structs, enums,
// sums and aliases always do; primitives, arrays, maps and opaques only when
// they are named components, whose name is part of the emitted surface.
func emitsFile(t *ir.NamedType) bool {
	switch t.Kind {
	case ir.KindStruct, ir.KindEnum, ir.KindSum, ir.KindAlias:
		return true
	default:
		return strings.HasPrefix(t.Origin.Pointer, "/components/schemas/")
	}
}

// exprBuilder turns TypeIds into Go type expressions, qualifying named types
// with the models package when rendering outside it and collecting the
// imports the expressions require.
type exprBuilder struct {
	snap      *ir.Snapshot
	modelPath string // import path of the models package; "" inside it
	imports   map[string]bool
}

func newExprBuilder(snap *ir.Snapshot, modelPath string) *exprBuilder {
	return &exprBuilder{snap: snap, modelPath: modelPath, imports: map[string]bool{}}
}

func (b *exprBuilder) importList() []string {
	out := make([]string, 0, len(b.imports))
	for imp := range b.imports {
		out = append(out, imp)
	}
	sort.Strings(out)
	return out
}

func (b *exprBuilder) expr(id ir.TypeId) string {
	t := b.snap.Type(id)
	if emitsFile(t) {
		if b.modelPath != "" {
			b.imports[b.modelPath] = true
			return "models." + t.Name
		}
		return t.Name
	}

	switch t.Kind {
	case ir.KindPrimitive:
		return b.primExpr(t.Prim)
	case ir.KindArray:
		return "[]" + b.expr(t.Elem)
	case ir.KindMap:
		return "map[string]" + b.expr(t.Elem)
	case ir.KindOpaque:
		if t.Opaque == "json.RawMessage" {
			b.imports["encoding/json"] = true
		}
		return t.Opaque
	case ir.KindAlias:
		return b.expr(t.Elem)
	}
	return "json.RawMessage"
}

func (b *exprBuilder) primExpr(p ir.Primitive) string {
	switch p.Type {
	case "string":
		switch p.Format {
		case "date-time", "date":
			b.imports["time"] = true
			return "time.Time"
		case "byte", "binary":
			return "[]byte"
		default:
			return "string"
		}
	case "integer":
		if p.Format == "int32" {
			return "int32"
		}
		return "int64"
	case "number":
		if p.Format == "float" {
			return "float32"
		}
		return "float64"
	case "boolean":
		return "bool"
	case "null":
		return "struct{}"
	}
	return "string"
}

// wrap applies the option-of-T rule: optional or nullable fields become
// pointers, except types whose zero value already expresses absence.
func wrap(expr string, optional, nullable bool) string {
	if !optional && !nullable {
		return expr
	}
	if strings.HasPrefix(expr, "[]") || strings.HasPrefix(expr, "map[") || expr == "json.RawMessage" {
		return expr
	}
	return "*" + expr
}

// docLines splits a docs string into comment lines.
func docLines(docs string) []string {
	if docs == "" {
		return nil
	}
	return strings.Split(strings.TrimSpace(docs), "\n")
}

// exported converts a snake_case IR identifier to an exported Go name,
// deduplicating within the given set (case conversion can merge distinct
// snake names).
func exported(snake string, taken map[string]bool) string {
	name := names.ToUpperCamel(snake)
	if name == "" {
		name = "Field"
	}
	if taken[name] {
		for i := 2; ; i++ {
			next := name + strconv.Itoa(i)
			if !taken[next] {
				name = next
				break
			}
		}
	}
	taken[name] = true
	return name
}

// modelView is the template context for one model file.
type modelView struct {
	Package string
	Name    string
	Kind    string
	Docs    []string
	Imports []string

	Fields []fieldView // struct

	BaseType string        // enum underlying type
	Variants []variantView // enum, sum

	Elem          string // alias and component-named primitive/array/map/opaque
	Discriminator string
	IsResponseSum bool
}

type fieldView struct {
	Name string
	Type string
	Tag  string
	Docs []string
}

type variantView struct {
	Name      string // exported, prefixed with the type name for enums
	Type      string // sum variant payload type
	Value     string // enum literal as Go source
	WireValue string
	Status    int
}

// newModelView prepares the render context for one named type.
func newModelView(snap *ir.Snapshot, pkg string, t *ir.NamedType) modelView {
	b := newExprBuilder(snap, "")
	view := modelView{
		Package: pkg,
		Name:    t.Name,
		Kind:    t.Kind.String(),
		Docs:    docLines(t.Docs),
	}

	switch t.Kind {
	case ir.KindStruct:
		taken := map[string]bool{}
		for _, f := range t.Fields {
			fv := fieldView{
				Name: exported(f.Name, taken),
				Type: wrap(b.expr(f.Typ), f.Optional, f.Nullable),
				Docs: docLines(f.Docs),
			}
			switch {
			case f.WireName == "":
				fv.Tag = "`json:\"-\"`"
			case f.Optional || f.Nullable:
				fv.Tag = fmt.Sprintf("`json:%q`", f.WireName+",omitempty")
			default:
				fv.Tag = fmt.Sprintf("`json:%q`", f.WireName)
			}
			view.Fields = append(view.Fields, fv)
		}

	case ir.KindEnum:
		view.BaseType = b.primExpr(t.Prim)
		taken := map[string]bool{}
		for _, v := range t.Variants {
			view.Variants = append(view.Variants, variantView{
				Name:  t.Name + exported(names.ToSnake(v.Name), taken),
				Value: literalSource(v.Literal),
			})
		}

	case ir.KindSum:
		view.Discriminator = t.Discriminator
		taken := map[string]bool{}
		for _, v := range t.Variants {
			view.Variants = append(view.Variants, variantView{
				Name:      exported(names.ToSnake(v.Name), taken),
				Type:      "*" + b.expr(v.Typ),
				WireValue: v.WireValue,
				Status:    v.Status,
			})
			if v.Status != 0 {
				view.IsResponseSum = true
			}
		}
		if !view.IsResponseSum {
			b.imports["encoding/json"] = true
			b.imports["fmt"] = true
		}

	default:
		// Component-named primitive, array, map or opaque: a transparent
		// alias. KindAlias lands here through expr on its target.
		if t.Kind == ir.KindAlias {
			view.Elem = b.expr(t.Elem)
		} else {
			view.Elem = aliasUnderlying(b, t)
		}
		view.Kind = "alias"
	}

	view.Imports = b.importList()
	return view
}

func aliasUnderlying(b *exprBuilder, t *ir.NamedType) string {
	switch t.Kind {
	case ir.KindPrimitive:
		return b.primExpr(t.Prim)
	case ir.KindArray:
		return "[]" + b.expr(t.Elem)
	case ir.KindMap:
		return "map[string]" + b.expr(t.Elem)
	case ir.KindOpaque:
		if t.Opaque == "json.RawMessage" {
			b.imports["encoding/json"] = true
		}
		return t.Opaque
	}
	return "json.RawMessage"
}

// literalSource renders an enum literal as Go source.
func literalSource(v interface{}) string {
	switch lit := v.(type) {
	case string:
		return strconv.Quote(lit)
	case float64:
		if lit == float64(int64(lit)) {
			return strconv.FormatInt(int64(lit), 10)
		}
		return strconv.FormatFloat(lit, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(lit)
	case int:
		return strconv.Itoa(lit)
	case int64:
		return strconv.FormatInt(lit, 10)
	default:
		return strconv.Quote(fmt.Sprintf("%v", v))
	}
}
