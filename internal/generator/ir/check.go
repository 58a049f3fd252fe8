package ir

import (
	"github.com/pixie-sh/errors-go"
)

// Check enforces the snapshot invariants at the normalizer/renderer boundary:
// every referenced id resolves, names are unique within their scope, alias
// chains are collapsed, sums are non-empty and structs carry no duplicate
// wire names.
func (s *Snapshot) Check() error {
	seenNames := map[string]TypeId{}

	for _, nt := range s.Types {
		if nt.Kind == KindPending {
			return errors.New("type %s (#%d) was allocated but never filled", nt.Name, nt.ID)
		}

		if prev, ok := seenNames[nt.Name]; ok {
			return errors.New("type name %q is used by both #%d and #%d", nt.Name, prev, nt.ID)
		}
		seenNames[nt.Name] = nt.ID

		switch nt.Kind {
		case KindStruct:
			fieldNames := map[string]bool{}
			wireNames := map[string]bool{}
			for _, f := range nt.Fields {
				if fieldNames[f.Name] {
					return errors.New("struct %s has duplicate field name %q", nt.Name, f.Name)
				}
				if wireNames[f.WireName] {
					return errors.New("struct %s has duplicate wire name %q", nt.Name, f.WireName)
				}
				fieldNames[f.Name] = true
				wireNames[f.WireName] = true
				if err := s.checkRef(nt, f.Typ); err != nil {
					return err
				}
			}
		case KindSum:
			if len(nt.Variants) == 0 {
				return errors.New("sum %s has no variants", nt.Name)
			}
			variantNames := map[string]bool{}
			for _, v := range nt.Variants {
				if variantNames[v.Name] {
					return errors.New("sum %s has duplicate variant name %q", nt.Name, v.Name)
				}
				variantNames[v.Name] = true
				if err := s.checkRef(nt, v.Typ); err != nil {
					return err
				}
			}
		case KindEnum:
			variantNames := map[string]bool{}
			for _, v := range nt.Variants {
				if variantNames[v.Name] {
					return errors.New("enum %s has duplicate variant name %q", nt.Name, v.Name)
				}
				variantNames[v.Name] = true
			}
		case KindAlias:
			if err := s.checkRef(nt, nt.Elem); err != nil {
				return err
			}
			if target := s.Type(nt.Elem); target != nil && target.Kind == KindAlias {
				return errors.New("alias %s points at alias %s; chains must be collapsed", nt.Name, target.Name)
			}
		case KindArray, KindMap:
			if err := s.checkRef(nt, nt.Elem); err != nil {
				return err
			}
		}
	}

	for _, op := range s.Operations {
		paramNames := map[string]bool{}
		for _, bucket := range [][]Param{op.PathParams, op.QueryParams, op.HeaderParams} {
			for _, p := range bucket {
				if paramNames[p.Name] {
					return errors.New("operation %s has duplicate parameter name %q", op.ID, p.Name)
				}
				paramNames[p.Name] = true
				if s.Type(p.Typ) == nil {
					return errors.New("operation %s parameter %q references unknown type #%d", op.ID, p.Name, p.Typ)
				}
			}
		}
		for _, b := range op.Body {
			if s.Type(b.Typ) == nil {
				return errors.New("operation %s body %q references unknown type #%d", op.ID, b.ContentType, b.Typ)
			}
		}
		for _, r := range op.Responses {
			if s.Type(r.Typ) == nil {
				return errors.New("operation %s response %d references unknown type #%d", op.ID, r.Status, r.Typ)
			}
		}
		if s.Type(op.ReturnType) == nil {
			return errors.New("operation %s return references unknown type #%d", op.ID, op.ReturnType)
		}
	}

	return nil
}

func (s *Snapshot) checkRef(owner *NamedType, id TypeId) error {
	if s.Type(id) == nil {
		return errors.New("type %s references unknown type #%d", owner.Name, id)
	}
	return nil
}
