// Package synth builds the operation IR: one record per path/method pair,
// with parameters bucketed by location, request body variants per content
// type, and response variants per status and content type. It walks the
// reference-resolved openapi3 document; canonical component pointers are
// still derived from the $ref strings so config overrides and diagnostics
// address definitions, not resolved copies.
package synth

import (
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/pixie-sh/clientgen-cli/internal/generator/config"
	"github.com/pixie-sh/clientgen-cli/internal/generator/ir"
	"github.com/pixie-sh/clientgen-cli/internal/generator/names"
	"github.com/pixie-sh/clientgen-cli/internal/generator/normalize"
	"github.com/pixie-sh/clientgen-cli/internal/generator/spec"
)

// Synthesizer walks paths in lexicographic order and produces operations.
type Synthesizer struct {
	doc   *spec.Document
	norm  *normalize.Normalizer
	alloc *names.Allocator
	cfg   *config.Config
	diags *ir.DiagnosticBag
}

// New creates a synthesizer sharing the normalizer's table and allocator.
func New(doc *spec.Document, norm *normalize.Normalizer, alloc *names.Allocator, cfg *config.Config, diags *ir.DiagnosticBag) *Synthesizer {
	return &Synthesizer{doc: doc, norm: norm, alloc: alloc, cfg: cfg, diags: diags}
}

// Operations synthesizes every non-ignored operation, paths first
// lexicographically, then methods lexicographically within a path.
func (s *Synthesizer) Operations() ([]*ir.Operation, error) {
	items := s.doc.PathsMap()

	paths := make([]string, 0, len(items))
	for path := range items {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var out []*ir.Operation
	for _, path := range paths {
		if s.cfg.IgnoredPath(path) {
			s.diags.Notef(spec.Join("/paths", path), "path ignored by configuration")
			continue
		}
		item := items[path]
		if item == nil {
			continue
		}
		for _, method := range spec.Methods {
			op := spec.OperationFor(item, method)
			if op == nil {
				continue
			}
			built, err := s.operation(path, method, item, op)
			if err != nil {
				return nil, err
			}
			out = append(out, built)
		}
	}
	return out, nil
}

// sourcedParam tracks where a parameter was declared so override lookups and
// diagnostics carry the right pointer.
type sourcedParam struct {
	param   *openapi3.Parameter
	pointer string
}

func (s *Synthesizer) operation(path, method string, item *openapi3.PathItem, op *openapi3.Operation) (*ir.Operation, error) {
	opPtr := spec.Join("/paths", path, method)
	id := s.alloc.OperationName(op.OperationID, method, path)

	out := &ir.Operation{
		ID:           id,
		Method:       strings.ToUpper(method),
		PathTemplate: path,
		ReturnType:   ir.None,
		Deprecated:   op.Deprecated,
		Docs:         operationDocs(op),
	}

	if err := s.parameters(opPtr, path, id, item, op, out); err != nil {
		return nil, err
	}
	if err := s.requestBody(opPtr, id, op, out); err != nil {
		return nil, err
	}
	if err := s.responses(opPtr, id, op, out); err != nil {
		return nil, err
	}
	return out, nil
}

func operationDocs(op *openapi3.Operation) string {
	switch {
	case op.Summary != "" && op.Description != "":
		return op.Summary + "\n\n" + op.Description
	case op.Summary != "":
		return op.Summary
	default:
		return op.Description
	}
}

// parameters merges path-item and operation parameters (the operation wins on
// a name/location collision) and buckets them by location. Cookie parameters
// are carried as headers with a marked wire name.
func (s *Synthesizer) parameters(opPtr, path, opID string, item *openapi3.PathItem, op *openapi3.Operation, out *ir.Operation) error {
	merged := make([]sourcedParam, 0, len(item.Parameters)+len(op.Parameters))
	index := map[string]int{}

	include := func(p *openapi3.ParameterRef, pointer string) {
		if p == nil || p.Value == nil {
			return
		}
		if p.Ref != "" {
			if name := spec.ComponentName(p.Ref, "parameters"); name != "" {
				pointer = spec.Join("/components/parameters", name)
			}
		}
		if ext := spec.ExternalRefMarker(p.Value.Extensions); ext != "" {
			s.diags.Warnf(pointer, "external parameter reference %s skipped", ext)
			return
		}
		key := p.Value.In + "|" + p.Value.Name
		if i, ok := index[key]; ok {
			merged[i] = sourcedParam{param: p.Value, pointer: pointer}
			return
		}
		index[key] = len(merged)
		merged = append(merged, sourcedParam{param: p.Value, pointer: pointer})
	}

	for i, p := range item.Parameters {
		include(p, spec.Join("/paths", path, "parameters", strconv.Itoa(i)))
	}
	for i, p := range op.Parameters {
		include(p, spec.Join(opPtr, "parameters", strconv.Itoa(i)))
	}

	for _, sp := range merged {
		p := sp.param

		typ, err := s.norm.Schema(spec.Join(sp.pointer, "schema"), p.Schema, opID+names.ToUpperCamel(p.Name))
		if err != nil {
			return err
		}

		built := ir.Param{
			Name:     s.alloc.ParamName(opPtr, sp.pointer, p.Name),
			WireName: p.Name,
			Typ:      typ,
			Required: p.Required || p.In == "path",
			Docs:     p.Description,
		}

		switch p.In {
		case "path":
			out.PathParams = append(out.PathParams, built)
		case "query":
			out.QueryParams = append(out.QueryParams, built)
		case "header":
			out.HeaderParams = append(out.HeaderParams, built)
		case "cookie":
			built.WireName = "cookie:" + p.Name
			out.HeaderParams = append(out.HeaderParams, built)
			s.diags.Notef(sp.pointer, "cookie parameter %s emitted as a header", p.Name)
		default:
			s.diags.Warnf(sp.pointer, "parameter %s has unknown location %q and was skipped", p.Name, p.In)
		}
	}
	return nil
}

// requestBody produces one body variant per content type. Content with no
// schema resolves to the raw bytes type.
func (s *Synthesizer) requestBody(opPtr, opID string, op *openapi3.Operation, out *ir.Operation) error {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}

	body := op.RequestBody.Value
	bodyPtr := spec.Join(opPtr, "requestBody")
	if name := spec.ComponentName(op.RequestBody.Ref, "requestBodies"); name != "" {
		bodyPtr = spec.Join("/components/requestBodies", name)
	}
	if ext := spec.ExternalRefMarker(body.Extensions); ext != "" {
		s.diags.Warnf(bodyPtr, "external request body reference %s skipped", ext)
		return nil
	}

	contentTypes := make([]string, 0, len(body.Content))
	for ct := range body.Content {
		contentTypes = append(contentTypes, ct)
	}
	sort.Strings(contentTypes)

	for _, ct := range contentTypes {
		media := body.Content[ct]

		var typ ir.TypeId
		if media == nil || media.Schema == nil {
			typ = s.norm.OpaqueBytes()
		} else {
			hint := opID + "Body"
			if len(contentTypes) > 1 {
				hint += mimeSuffix(ct)
			}
			var err error
			typ, err = s.norm.Schema(spec.Join(bodyPtr, "content", ct, "schema"), media.Schema, hint)
			if err != nil {
				return err
			}
		}
		out.Body = append(out.Body, ir.BodyVariant{ContentType: ct, Typ: typ})
	}
	return nil
}

// responses produces one response variant per declared status and content
// type, then synthesizes the operation return type: the single success type,
// a status-keyed sum when several statuses succeed, the default response's
// type when no status succeeds, or the unit type.
func (s *Synthesizer) responses(opPtr, opID string, op *openapi3.Operation, out *ir.Operation) error {
	declared := map[string]*openapi3.ResponseRef{}
	if op.Responses != nil {
		declared = op.Responses.Map()
	}

	keys := make([]string, 0, len(declared))
	for key := range declared {
		keys = append(keys, key)
	}
	sortStatusKeys(keys)

	literal := map[int]bool{}
	for _, key := range keys {
		if status, ok := parseStatus(key); ok {
			literal[status] = true
		}
	}

	for _, key := range keys {
		ref := declared[key]
		respPtr := spec.Join(opPtr, "responses", key)

		status, ok := parseStatus(key)
		if !ok {
			if expanded, isRange := expandStatusRange(key); isRange {
				if literal[expanded] {
					s.diags.Warnf(respPtr, "status range %s shadowed by literal %d and skipped", key, expanded)
					continue
				}
				status = expanded
				s.diags.Notef(respPtr, "status range %s recorded as %d", key, expanded)
			} else if key == "default" {
				status = ir.StatusDefault
			} else {
				s.diags.Warnf(respPtr, "unrecognized status %q skipped", key)
				continue
			}
		}

		if ref == nil || ref.Value == nil {
			continue
		}
		resp := ref.Value
		if name := spec.ComponentName(ref.Ref, "responses"); name != "" {
			respPtr = spec.Join("/components/responses", name)
		}
		if ext := spec.ExternalRefMarker(resp.Extensions); ext != "" {
			s.diags.Warnf(respPtr, "external response reference %s skipped", ext)
			continue
		}

		if len(resp.Content) == 0 {
			out.Responses = append(out.Responses, ir.ResponseVariant{
				Status: status,
				Typ:    s.norm.OpaqueUnit(),
			})
			continue
		}

		contentTypes := make([]string, 0, len(resp.Content))
		for ct := range resp.Content {
			contentTypes = append(contentTypes, ct)
		}
		sort.Strings(contentTypes)

		for _, ct := range contentTypes {
			media := resp.Content[ct]

			var typ ir.TypeId
			if media == nil || media.Schema == nil {
				typ = s.norm.OpaqueBytes()
			} else {
				hint := opID + "Response"
				if status != ir.StatusDefault {
					hint += strconv.Itoa(status)
				} else {
					hint += "Default"
				}
				if len(contentTypes) > 1 {
					hint += mimeSuffix(ct)
				}
				var err error
				typ, err = s.norm.Schema(spec.Join(respPtr, "content", ct, "schema"), media.Schema, hint)
				if err != nil {
					return err
				}
			}
			out.Responses = append(out.Responses, ir.ResponseVariant{
				Status:      status,
				ContentType: ct,
				Typ:         typ,
			})
		}
	}

	out.ReturnType = s.returnType(opPtr, opID, out.Responses)
	return nil
}

// returnType picks the operation's synthesized success return.
func (s *Synthesizer) returnType(opPtr, opID string, responses []ir.ResponseVariant) ir.TypeId {
	perStatus := map[int]ir.TypeId{}
	var statuses []int

	for _, r := range responses {
		if r.Status < 200 || r.Status >= 300 {
			continue
		}
		if existing, ok := perStatus[r.Status]; ok {
			// Prefer the JSON variant when one status declares several.
			if r.ContentType == "application/json" && existing != r.Typ {
				perStatus[r.Status] = r.Typ
			}
			continue
		}
		perStatus[r.Status] = r.Typ
		statuses = append(statuses, r.Status)
	}

	switch len(statuses) {
	case 0:
		for _, r := range responses {
			if r.Status == ir.StatusDefault {
				return r.Typ
			}
		}
		return s.norm.OpaqueUnit()
	case 1:
		return perStatus[statuses[0]]
	}

	sort.Ints(statuses)
	variantScope := spec.Join(opPtr, "responses")
	variants := make([]ir.Variant, 0, len(statuses))
	for _, status := range statuses {
		name, ok := s.cfg.StatusVariant(strconv.Itoa(status))
		if !ok {
			name = "Status" + strconv.Itoa(status)
		}
		variants = append(variants, ir.Variant{
			Name:   s.alloc.VariantName(variantScope, name),
			Typ:    perStatus[status],
			Status: status,
		})
	}
	return s.norm.ResponseSum(opID+"Response", variants)
}

// mimeSuffix derives a name suffix from a content type's subtype, so the body
// variants of a multi-content operation get distinct type names.
func mimeSuffix(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	if i := strings.LastIndex(ct, "/"); i >= 0 {
		ct = ct[i+1:]
	}
	return names.ToUpperCamel(ct)
}

// parseStatus parses a literal status key.
func parseStatus(key string) (int, bool) {
	status, err := strconv.Atoi(key)
	if err != nil || status < 100 || status > 599 {
		return 0, false
	}
	return status, true
}

// expandStatusRange maps a class range like "2XX" to its class
// representative.
func expandStatusRange(key string) (int, bool) {
	upper := strings.ToUpper(key)
	if len(upper) == 3 && upper[1] == 'X' && upper[2] == 'X' && upper[0] >= '1' && upper[0] <= '5' {
		return int(upper[0]-'0') * 100, true
	}
	return 0, false
}

// sortStatusKeys orders response keys numerically with "default" last, other
// non-numeric keys (ranges) after literals of their class.
func sortStatusKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		return statusSortValue(keys[i]) < statusSortValue(keys[j])
	})
}

func statusSortValue(key string) int {
	if status, ok := parseStatus(key); ok {
		return status * 10
	}
	if class, ok := expandStatusRange(key); ok {
		return (class+100)*10 - 5
	}
	return 1 << 30
}
