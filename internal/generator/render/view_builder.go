package render

import (
	"sort"
	"strings"

	"github.com/pixie-sh/clientgen-cli/internal/generator/ir"
	"github.com/pixie-sh/clientgen-cli/internal/generator/names"
)

// builderView is the template context for one operation builder file. An
// operation with several body content types renders one builder per variant.
type builderView struct {
	Package    string
	RootPkg    string
	RootImport string
	ModelsPath string
	Imports    []string

	Name        string
	Constructor string
	OpID        string
	Method      string
	PathTemplate string
	Docs        []string
	Deprecated  bool

	PathParams   []builderParam
	QueryParams  []builderParam
	HeaderParams []builderParam

	HasBody         bool
	BodyType        string
	BodyContentType string
	BodyEncode      string // json, bytes or text

	Return builderReturn
}

type builderParam struct {
	Field      string
	Setter     string
	Type       string
	WireName   string
	CookieName string
	Required   bool
	Conv       string // expression yielding the wire string for the stored value
	Docs       []string
}

type builderReturn struct {
	Type     string
	IsUnit   bool
	IsSum    bool
	Decode   string // json, bytes, text or none, for the non-sum case
	Variants []sumDecode
}

type sumDecode struct {
	Status int
	Field  string
	Type   string
	Decode string // json, bytes, text or none
}

// builderNames are identifiers reserved by the builder struct itself.
var builderNames = map[string]bool{"client": true, "body": true, "ctx": true}

// newBuilderViews prepares one view per builder the operation emits.
func newBuilderViews(snap *ir.Snapshot, op *ir.Operation, rootPkg, rootImport string) []builderView {
	bodies := op.Body
	if len(bodies) == 0 {
		bodies = []ir.BodyVariant{{}}
	}

	views := make([]builderView, 0, len(bodies))
	for _, body := range bodies {
		views = append(views, newBuilderView(snap, op, body, len(op.Body) > 1, rootPkg, rootImport))
	}
	return views
}

func newBuilderView(snap *ir.Snapshot, op *ir.Operation, body ir.BodyVariant, multiBody bool, rootPkg, rootImport string) builderView {
	b := newExprBuilder(snap, rootImport+"/models")

	constructor := op.ID
	if multiBody {
		constructor += contentSuffix(body.ContentType)
	}

	view := builderView{
		Package:      "builders",
		RootPkg:      rootPkg,
		RootImport:   rootImport,
		ModelsPath:   rootImport + "/models",
		Name:         constructor + "Builder",
		Constructor:  constructor,
		OpID:         op.ID,
		Method:       op.Method,
		PathTemplate: op.PathTemplate,
		Docs:         docLines(op.Docs),
		Deprecated:   op.Deprecated,
	}

	taken := map[string]bool{}
	for k := range builderNames {
		taken[k] = true
	}

	view.PathParams = builderParams(b, op.PathParams, taken, false)
	view.QueryParams = builderParams(b, op.QueryParams, taken, true)
	view.HeaderParams = builderParams(b, op.HeaderParams, taken, true)

	if len(op.Body) > 0 {
		view.HasBody = true
		view.BodyType = b.expr(body.Typ)
		view.BodyContentType = body.ContentType
		switch {
		case strings.Contains(body.ContentType, "json"):
			view.BodyEncode = "json"
		case view.BodyType == "[]byte":
			view.BodyEncode = "bytes"
		case view.BodyType == "string":
			view.BodyEncode = "text"
		default:
			view.BodyEncode = "json"
		}
	}

	view.Return = builderReturnView(snap, b, op)

	b.imports["context"] = true
	b.imports["net/http"] = true
	b.imports[rootImport] = true
	if len(view.QueryParams) > 0 || len(view.PathParams) > 0 {
		b.imports["net/url"] = true
	}
	if len(view.PathParams) > 0 {
		b.imports["strings"] = true
	}
	for _, params := range [][]builderParam{view.PathParams, view.QueryParams, view.HeaderParams} {
		for _, p := range params {
			if strings.HasPrefix(p.Conv, "fmt.") {
				b.imports["fmt"] = true
			}
			if strings.Contains(p.Conv, "time.RFC3339") {
				b.imports["time"] = true
			}
		}
	}
	if view.HasBody && view.BodyEncode == "json" {
		b.imports["encoding/json"] = true
	}
	if view.Return.Decode == "json" || anySumDecode(view.Return.Variants, "json") {
		b.imports["encoding/json"] = true
	}
	if view.Return.IsSum {
		b.imports["fmt"] = true
	}

	view.Imports = b.importList()
	return view
}

func anySumDecode(variants []sumDecode, kind string) bool {
	for _, v := range variants {
		if v.Decode == kind {
			return true
		}
	}
	return false
}

func builderParams(b *exprBuilder, params []ir.Param, taken map[string]bool, pointered bool) []builderParam {
	out := make([]builderParam, 0, len(params))
	for _, p := range params {
		field := lowerCamel(p.Name)
		for taken[field] || names.IsReserved(field) {
			field += "_"
		}
		taken[field] = true

		expr := b.expr(p.Typ)
		ref := "b." + field
		if pointered {
			ref = "*" + ref
		}

		bp := builderParam{
			Field:    field,
			Setter:   names.ToUpperCamel(p.Name),
			Type:     expr,
			WireName: p.WireName,
			Required: p.Required,
			Conv:     convExpr(ref, expr),
			Docs:     docLines(p.Docs),
		}
		if strings.HasPrefix(p.WireName, "cookie:") {
			bp.CookieName = strings.TrimPrefix(p.WireName, "cookie:")
			bp.WireName = ""
		}
		out = append(out, bp)
	}
	return out
}

// convExpr converts a stored parameter value to its wire string.
func convExpr(ref, goType string) string {
	switch goType {
	case "string":
		return ref
	case "time.Time":
		return "(" + ref + ").Format(time.RFC3339)"
	default:
		return "fmt.Sprint(" + ref + ")"
	}
}

func builderReturnView(snap *ir.Snapshot, b *exprBuilder, op *ir.Operation) builderReturn {
	ret := snap.Type(op.ReturnType)

	if ret.Kind == ir.KindOpaque && ret.Opaque == "struct{}" {
		return builderReturn{IsUnit: true}
	}

	if ret.Kind == ir.KindSum && isResponseSum(ret) {
		out := builderReturn{Type: b.expr(op.ReturnType), IsSum: true}
		taken := map[string]bool{}
		for _, v := range ret.Variants {
			out.Variants = append(out.Variants, sumDecode{
				Status: v.Status,
				Field:  exported(names.ToSnake(v.Name), taken),
				Type:   b.expr(v.Typ),
				Decode: decodeKind(snap, v.Typ, contentTypeFor(op, v.Status)),
			})
		}
		return out
	}

	status := successStatus(op)
	return builderReturn{
		Type:   b.expr(op.ReturnType),
		Decode: decodeKind(snap, op.ReturnType, contentTypeFor(op, status)),
	}
}

func isResponseSum(t *ir.NamedType) bool {
	for _, v := range t.Variants {
		if v.Status != 0 {
			return true
		}
	}
	return false
}

func successStatus(op *ir.Operation) int {
	statuses := make([]int, 0, len(op.Responses))
	for _, r := range op.Responses {
		if r.Status >= 200 && r.Status < 300 {
			statuses = append(statuses, r.Status)
		}
	}
	if len(statuses) == 0 {
		return ir.StatusDefault
	}
	sort.Ints(statuses)
	return statuses[0]
}

func contentTypeFor(op *ir.Operation, status int) string {
	for _, r := range op.Responses {
		if r.Status == status && strings.Contains(r.ContentType, "json") {
			return r.ContentType
		}
	}
	for _, r := range op.Responses {
		if r.Status == status {
			return r.ContentType
		}
	}
	return ""
}

// decodeKind picks how the builder decodes a response payload.
func decodeKind(snap *ir.Snapshot, id ir.TypeId, contentType string) string {
	t := snap.Type(id)
	if t.Kind == ir.KindAlias {
		t = snap.Type(t.Elem)
	}
	if t.Kind == ir.KindOpaque {
		switch t.Opaque {
		case "struct{}":
			return "none"
		case "[]byte":
			return "bytes"
		}
	}
	if contentType != "" && !strings.Contains(contentType, "json") {
		if t.Kind == ir.KindPrimitive && t.Prim.Type == "string" && t.Prim.Format == "" {
			return "text"
		}
	}
	return "json"
}

func contentSuffix(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	if i := strings.LastIndex(ct, "/"); i >= 0 {
		ct = ct[i+1:]
	}
	return names.ToUpperCamel(ct)
}

func lowerCamel(snake string) string {
	camel := names.ToUpperCamel(snake)
	if camel == "" {
		return "param"
	}
	return strings.ToLower(camel[:1]) + camel[1:]
}
