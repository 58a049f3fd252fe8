package spec

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Helpers over openapi3.Schema covering the 3.0/3.1 split the generator
// cares about: the type keyword may be a single string or a union that
// includes "null".

// TypeSlice returns the schema's type keyword entries, nil when absent.
func TypeSlice(s *openapi3.Schema) []string {
	if s == nil || s.Type == nil {
		return nil
	}
	return *s.Type
}

// PrimaryType returns the first non-"null" type entry, or "".
func PrimaryType(s *openapi3.Schema) string {
	for _, t := range TypeSlice(s) {
		if t != "null" {
			return t
		}
	}
	return ""
}

// HasType reports whether the type keyword includes t.
func HasType(s *openapi3.Schema, t string) bool {
	for _, v := range TypeSlice(s) {
		if v == t {
			return true
		}
	}
	return false
}

// IsNullable reports nullability from either the 3.0 nullable keyword or a
// 3.1 "null" entry in the type union.
func IsNullable(s *openapi3.Schema) bool {
	if s == nil {
		return false
	}
	return s.Nullable || HasType(s, "null")
}
